// Package ranking turns raw lexical scores into per-request scores and
// builds highlighted evidence snippets.
package ranking

import "math"

// Scale maps raw onto [0,100] relative to the best raw score of the same
// candidate set. Zero stays zero and a non-positive max yields zero.
func Scale(raw, maxRaw float64) float64 {
	if maxRaw <= 0 || raw <= 0 {
		return 0
	}
	return clamp(raw/maxRaw*100, 0, 100)
}

// Normalize scales every raw score against the maximum of raws. The result
// depends only on its input, so concurrent requests never share state.
func Normalize(raws []float64) []float64 {
	maxRaw := 0.0
	for _, r := range raws {
		if r > maxRaw {
			maxRaw = r
		}
	}
	out := make([]float64, len(raws))
	for i, r := range raws {
		out[i] = Scale(r, maxRaw)
	}
	return out
}

// Round2 rounds to two decimals for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
