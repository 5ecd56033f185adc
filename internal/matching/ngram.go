package matching

import "strings"

const ngramPad = "$"

// NgramSimilarity compares two strings by the overlap of their character
// n-grams: shared / (total - shared), counting repeated n-grams. Strings are
// padded with n-1 pad characters on each side so short words still produce
// n-grams at their edges.
func NgramSimilarity(a, b string, n int) float64 {
	if n < 1 {
		n = 1
	}
	if a == b {
		return 1
	}

	gramsA := ngrams(a, n)
	gramsB := ngrams(b, n)

	counts := make(map[string]int, len(gramsA))
	for _, g := range gramsA {
		counts[g]++
	}
	shared := 0
	for _, g := range gramsB {
		if counts[g] > 0 {
			counts[g]--
			shared++
		}
	}

	all := len(gramsA) + len(gramsB) - shared
	if all == 0 {
		return 0
	}
	return float64(shared) / float64(all)
}

func ngrams(s string, n int) []string {
	pad := strings.Repeat(ngramPad, n-1)
	runes := []rune(pad + s + pad)
	if len(runes) < n {
		return nil
	}
	grams := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+n]))
	}
	return grams
}
