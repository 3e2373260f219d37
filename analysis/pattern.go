// SPDX-License-Identifier: EPL-2.0

package analysis

import (
	"context"
	"math"
)

// PatternMatch is a repeating-segment match from the alternate search
// path. Unlike Candidate scores, higher is better here: Score is a
// similarity in [0,1].
type PatternMatch struct {
	StartSeconds float64
	EndSeconds   float64
	Score        float64
}

// fingerprint summarizes one coarse segment. The low/high split is a
// poor man's spectral balance: averaging adjacent samples keeps the
// low-frequency content, differencing them keeps the high end. No FFT
// anywhere.
type fingerprint struct {
	rms   float64
	zcr   float64
	lowE  float64
	highE float64
}

// MatchPatterns is the alternate, full-track correlation search, used
// when the matrix pipeline comes back with low confidence. It
// fingerprints the track in 100 ms segments, then looks for two runs
// of segments at least MinSeparationSeconds apart whose fingerprints
// correlate above the pattern threshold.
//
// Among clearing pairs, early starts and wide separation win: OST
// tracks typically play an intro once and then repeat a later body
// section, as far apart as possible.
func MatchPatterns(ctx context.Context, samples []float32, sampleRate int, cfg Config) (PatternMatch, bool, error) {
	segLen := int(cfg.SegmentSeconds * float64(sampleRate))
	if segLen < 2 {
		return PatternMatch{}, false, nil
	}
	nSeg := len(samples) / segLen
	window := cfg.PatternWindow
	minSep := int(cfg.MinSeparationSeconds / cfg.SegmentSeconds)

	if nSeg < minSep+window {
		return PatternMatch{}, false, nil
	}

	prints := make([]fingerprint, nSeg)
	for i := range prints {
		prints[i] = segmentFingerprint(samples[i*segLen : (i+1)*segLen])
	}

	best := PatternMatch{Score: -1}
	found := false

	for i := 0; i+window <= nSeg; i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return PatternMatch{}, false, ErrAnalysisCancelled
			}
		}
		for j := i + minSep; j+window <= nSeg; j++ {
			// Cheap pre-filter: runs whose anchor energies disagree
			// badly cannot correlate well.
			if math.Abs(prints[i].rms-prints[j].rms) > 0.2 {
				continue
			}

			sim := runSimilarity(prints[i:i+window], prints[j:j+window])
			if sim < cfg.PatternThreshold {
				continue
			}

			// Favour early first occurrences and wide separation.
			startFrac := float64(i) / float64(nSeg)
			sepFrac := float64(j-i) / float64(nSeg)
			score := sim * (1 - 0.2*startFrac) * (1 + 0.1*sepFrac)

			if score > best.Score {
				best = PatternMatch{
					StartSeconds: float64(i) * cfg.SegmentSeconds,
					EndSeconds:   float64(j) * cfg.SegmentSeconds,
					Score:        score,
				}
				found = true
			}
		}
	}

	if !found {
		return PatternMatch{}, false, nil
	}

	if best.Score > 1 {
		best.Score = 1
	}
	return best, true, nil
}

func segmentFingerprint(seg []float32) fingerprint {
	var sumSq, lowSq, highSq float64
	zc := 0

	for i := 0; i < len(seg); i++ {
		v := float64(seg[i])
		sumSq += v * v
		if i > 0 && signChange(seg[i-1], seg[i]) {
			zc++
		}
	}

	for i := 0; i+1 < len(seg); i += 2 {
		a, b := float64(seg[i]), float64(seg[i+1])
		low := (a + b) / 2
		high := (a - b) / 2
		lowSq += low * low
		highSq += high * high
	}

	n := float64(len(seg))
	pairs := math.Max(1, float64(len(seg)/2))

	return fingerprint{
		rms:   math.Sqrt(sumSq / n),
		zcr:   float64(zc) / n,
		lowE:  math.Sqrt(lowSq / pairs),
		highE: math.Sqrt(highSq / pairs),
	}
}

// runSimilarity compares two fingerprint runs: Pearson correlation of
// the flattened feature sequences, blended with an inverse-RMS-gap
// term so two runs with matching shape but very different loudness do
// not pass.
func runSimilarity(a, b []fingerprint) float64 {
	va := flattenPrints(a)
	vb := flattenPrints(b)

	corr := pearson(va, vb)
	if corr < 0 {
		corr = 0
	}

	var gap float64
	for i := range a {
		gap += math.Abs(a[i].rms - b[i].rms)
	}
	gap /= float64(len(a))
	invRMS := 1 / (1 + 10*gap)

	return 0.7*corr + 0.3*invRMS
}

func flattenPrints(prints []fingerprint) []float64 {
	out := make([]float64, 0, len(prints)*4)
	for _, p := range prints {
		out = append(out, p.rms, p.zcr, p.lowE, p.highE)
	}
	return out
}

func pearson(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var num, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		num += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0
	}
	return num / math.Sqrt(varA*varB)
}
