package textutil

import "github.com/hbollon/go-edlib"

// Similarity returns the Jaro-Winkler similarity of the normalized forms of a
// and b, in [0, 1]. Empty inputs score 0.
func Similarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return float64(edlib.JaroWinklerSimilarity(na, nb))
}
