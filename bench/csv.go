package bench

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// WriteResultsCSV exports one row per outcome. chars_per_sec is
// input_chars/duration, or 0 when the duration is zero.
func WriteResultsCSV(path string, results []Result, inputs []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"idx", "success", "duration", "input_chars", "output_chars", "chars_per_sec", "error", "timestamp"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range results {
		inputChars := 0
		if r.Index < len(inputs) {
			inputChars = len(inputs[r.Index])
		}
		outputChars := len(r.Output)

		charsPerSec := "0"
		if r.Duration > 0 {
			charsPerSec = strconv.FormatFloat(float64(inputChars)/r.Duration.Seconds(), 'f', 0, 64)
		}

		row := []string{
			strconv.Itoa(r.Index),
			strconv.FormatBool(r.Success),
			strconv.FormatFloat(r.Duration.Seconds(), 'f', 3, 64),
			strconv.Itoa(inputChars),
			strconv.Itoa(outputChars),
			charsPerSec,
			r.Err,
			time.Now().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
