package bench

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResultsCSV(t *testing.T) {
	// GIVEN one success and one zero-duration failure
	inputs := []string{"0123456789", "0123456789"}
	results := []Result{
		{Index: 0, Duration: 2 * time.Second, Success: true, Output: "out"},
		{Index: 1, Duration: 0, Success: false, Err: "boom"},
	}
	path := filepath.Join(t.TempDir(), "results.csv")

	require.NoError(t, WriteResultsCSV(path, results, inputs))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"idx", "success", "duration", "input_chars", "output_chars", "chars_per_sec", "error", "timestamp"}, rows[0])

	// Success row: 10 chars / 2s = 5 chars/sec
	assert.Equal(t, "0", rows[1][0])
	assert.Equal(t, "true", rows[1][1])
	assert.Equal(t, "2.000", rows[1][2])
	assert.Equal(t, "10", rows[1][3])
	assert.Equal(t, "3", rows[1][4])
	assert.Equal(t, "5", rows[1][5])
	assert.Equal(t, "", rows[1][6])

	// Zero duration reports 0 chars/sec, not a division blowup
	assert.Equal(t, "0", rows[2][5])
	assert.Equal(t, "boom", rows[2][6])

	// Timestamps are RFC3339
	_, err = time.Parse(time.RFC3339, rows[1][7])
	assert.NoError(t, err)
}

func TestWriteResultsCSV_BadPath(t *testing.T) {
	err := WriteResultsCSV(filepath.Join(t.TempDir(), "missing", "results.csv"), nil, nil)
	assert.Error(t, err)
}
