package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChrF_IdenticalStrings(t *testing.T) {
	assert.InDelta(t, 1.0, ChrF("the quick brown fox", "the quick brown fox"), 1e-9)
}

func TestChrF_WhitespaceInsensitive(t *testing.T) {
	// chrF strips whitespace before n-gram extraction
	assert.InDelta(t, 1.0, ChrF("thequickbrownfox", "the quick brown fox"), 1e-9)
}

func TestChrF_DisjointStrings(t *testing.T) {
	assert.Equal(t, 0.0, ChrF("aaaa", "bbbb"))
}

func TestChrF_EmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, ChrF("", "reference"))
	assert.Equal(t, 0.0, ChrF("hypothesis", ""))
	assert.Equal(t, 1.0, ChrF("", ""))
}

func TestChrF_PartialOverlapIsBetween(t *testing.T) {
	score := ChrF("the quick brown fox", "the quick brown dog")
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestChrF_CloserHypothesisScoresHigher(t *testing.T) {
	ref := "der schnelle braune Fuchs springt"
	near := ChrF("der schnelle braune Fuchs sprang", ref)
	far := ChrF("ein Hund schläft im Garten", ref)
	assert.Greater(t, near, far)
}

func TestChrF_UnicodeSafe(t *testing.T) {
	assert.InDelta(t, 1.0, ChrF("日本語のテスト", "日本語のテスト"), 1e-9)
}
