package bench

import "strings"

// chrF parameters (Popović 2015): character n-grams up to order 6, recall
// weighted twice as heavily as precision.
const (
	chrfMaxOrder = 6
	chrfBeta     = 2.0
)

// ChrF computes the character n-gram F-score between a hypothesis and a
// reference, in [0, 1]. Whitespace is removed before n-gram extraction.
// Precision and recall are averaged over n-gram orders 1..6.
func ChrF(hypothesis, reference string) float64 {
	hyp := []rune(stripSpaces(hypothesis))
	ref := []rune(stripSpaces(reference))
	if len(hyp) == 0 || len(ref) == 0 {
		if len(hyp) == 0 && len(ref) == 0 {
			return 1.0
		}
		return 0.0
	}

	var precisionSum, recallSum float64
	orders := 0
	for n := 1; n <= chrfMaxOrder; n++ {
		hypCounts := ngramCounts(hyp, n)
		refCounts := ngramCounts(ref, n)
		if len(hypCounts) == 0 && len(refCounts) == 0 {
			break // both strings shorter than n
		}
		orders++

		matches := 0
		hypTotal := 0
		refTotal := 0
		for g, c := range hypCounts {
			hypTotal += c
			if rc, ok := refCounts[g]; ok {
				matches += min(c, rc)
			}
		}
		for _, c := range refCounts {
			refTotal += c
		}

		if hypTotal > 0 {
			precisionSum += float64(matches) / float64(hypTotal)
		}
		if refTotal > 0 {
			recallSum += float64(matches) / float64(refTotal)
		}
	}
	if orders == 0 {
		return 0.0
	}

	precision := precisionSum / float64(orders)
	recall := recallSum / float64(orders)
	if precision == 0 && recall == 0 {
		return 0.0
	}
	b2 := chrfBeta * chrfBeta
	return (1 + b2) * precision * recall / (b2*precision + recall)
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func ngramCounts(runes []rune, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(runes); i++ {
		counts[string(runes[i:i+n])]++
	}
	return counts
}
