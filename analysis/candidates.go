// SPDX-License-Identifier: EPL-2.0

package analysis

import (
	"context"
	"math"
	"sort"
)

// SearchCandidates scans the smoothed matrix for low-distance
// (start, start+d) pairs. The diagonal offset d is the candidate loop
// length; it runs from the minimum to the maximum loop length, and the
// start frame is limited to the first third of the track, because OST
// loops that begin very late essentially do not occur.
//
// Each pair is scored as a blend of the exact matrix value and the
// mean along its diagonal run; the context term rewards pairs whose
// time-aligned neighbours (start+t, end+t) also match, i.e. sections
// that keep repeating for a while rather than isolated coincidences.
// Pairs scoring below the acceptance threshold become candidates.
// Lower is better.
func SearchCandidates(ctx context.Context, m *Matrix, cfg Config) ([]Candidate, error) {
	hop := cfg.hopSeconds()
	minFrames := int(cfg.MinLoopSeconds / hop)
	maxFrames := int(cfg.MaxLoopSeconds / hop)
	if maxFrames >= m.N {
		maxFrames = m.N - 1
	}

	startLimit := m.N / 3

	var candidates []Candidate

	for d := minFrames; d <= maxFrames; d++ {
		if err := ctx.Err(); err != nil {
			return nil, ErrAnalysisCancelled
		}
		for start := 0; start < startLimit; start++ {
			end := start + d
			if end >= m.N {
				break
			}

			point := m.At(start, end)
			context := m.diagonalMean(start, end)
			score := cfg.PointWeight*point + cfg.ContextWeight*context

			if score < cfg.AcceptThreshold {
				candidates = append(candidates, Candidate{
					StartFrame: start,
					EndFrame:   end,
					Score:      score,
				})
			}
		}
	}

	sort.Slice(candidates, func(i, k int) bool {
		return candidates[i].Score < candidates[k].Score
	})

	return candidates, nil
}

// VerifyCandidates checks candidates against the raw feature streams
// and collapses each verified repeat onto its first frame.
//
// The matrix search scores individual smoothed cells, so two unrelated
// quiet or sustained passages can pair up with an arbitrarily low
// distance. Correlating a few seconds of the per-frame streams from
// each point separates a genuine repeat (both runs trace the same
// contour) from a coincidental match: a flat run has no contour to
// correlate, and mismatched material correlates poorly. Candidates too
// close to the end of the track to judge pass through unverified.
//
// A repeated section yields one low cell per frame it lasts, all
// describing the same loop caught progressively later. Each survivor
// is slid back to the repeat's onset and duplicates are merged,
// keeping the best score, so the whole run competes as a single
// candidate at the correct start.
func VerifyCandidates(candidates []Candidate, f *Features, cfg Config) []Candidate {
	run := int(cfg.VerifyRunSeconds / cfg.hopSeconds())
	if run < 2 {
		return candidates
	}

	type pos struct{ start, end int }
	seen := make(map[pos]int)

	var verified []Candidate
	for _, c := range candidates {
		n := min(run, f.Frames()-c.EndFrame)
		if n >= run/2 && runCorrelation(f, c.StartFrame, c.EndFrame, n, cfg) < cfg.VerifyThreshold {
			continue
		}
		c = snapToOnset(c, f, cfg)

		p := pos{c.StartFrame, c.EndFrame}
		if idx, ok := seen[p]; ok {
			if c.Score < verified[idx].Score {
				verified[idx] = c
			}
			continue
		}
		seen[p] = len(verified)
		verified = append(verified, c)
	}

	sort.Slice(verified, func(i, k int) bool {
		return verified[i].Score < verified[k].Score
	})

	return verified
}

// runCorrelation is the per-stream Pearson correlation of the n-frame
// feature runs starting at frames a and b, blended with the matrix
// weights. Each stream is correlated separately: a constant stream
// contributes zero, so flat-on-flat pairs score near zero instead of
// trivially matching.
func runCorrelation(f *Features, a, b, n int, cfg Config) float64 {
	return cfg.EnergyWeight*pearson(f.Energy[a:a+n], f.Energy[b:b+n]) +
		cfg.ZeroCrossWeight*pearson(f.ZeroCross[a:a+n], f.ZeroCross[b:b+n]) +
		cfg.BrightnessWeight*pearson(f.Brightness[a:a+n], f.Brightness[b:b+n])
}

// snapToOnset slides a candidate backward along its diagonal while the
// material keeps repeating. The walk uses the raw frame distance, not
// the smoothed matrix, and stops at the first pair of frames that
// clearly differ.
func snapToOnset(c Candidate, f *Features, cfg Config) Candidate {
	for c.StartFrame > 0 {
		i, k := c.StartFrame-1, c.EndFrame-1
		if featureDistance(f, i, k, cfg) > cfg.OnsetTolerance {
			break
		}
		c.StartFrame, c.EndFrame = i, k
	}
	return c
}

// RescoreMusically re-weights the top candidates using loop-length
// heuristics and returns them re-sorted, best first.
//
// Loop lengths near an integer multiple of a common musical phrase
// length (2/4/8/16/32 s, or 1 to 16 bars at a 120 BPM reference) are
// rewarded; alignment to a longer reference counts for more, since a
// 32-second match is much less likely to be coincidence than a
// 2-second one. A second multiplier nudges the ranking toward loops
// that start early in the track.
func RescoreMusically(candidates []Candidate, m *Matrix, cfg Config) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	top := candidates
	if len(top) > cfg.TopCandidates {
		top = top[:cfg.TopCandidates]
	}

	hop := cfg.hopSeconds()
	startLimit := float64(m.N) / 3

	rescored := make([]Candidate, len(top))
	for i, c := range top {
		length := float64(c.EndFrame-c.StartFrame) * hop

		adjust := musicalAdjustment(length, cfg.ReferenceLengths)

		// Early starts are structurally more plausible: ramp from
		// ×0.9 at frame zero to ×1.1 at the start-frame limit.
		earliness := float64(c.StartFrame) / startLimit
		startMult := 0.9 + 0.2*earliness

		rescored[i] = Candidate{
			StartFrame: c.StartFrame,
			EndFrame:   c.EndFrame,
			Score:      c.Score * adjust * startMult,
		}
	}

	sort.Slice(rescored, func(i, k int) bool {
		return rescored[i].Score < rescored[k].Score
	})

	return rescored
}

// musicalAdjustment maps a loop length to a multiplicative score
// adjustment in [0.5, 1.2]. An exact multiple of a reference length
// halves the score; a length that fits nothing inflates it by 20%.
func musicalAdjustment(length float64, refs []float64) float64 {
	if length <= 0 || len(refs) == 0 {
		return 1.2
	}

	best := math.Inf(1)
	for _, ref := range refs {
		mult := math.Round(length / ref)
		if mult < 1 {
			mult = 1
		}
		// Proportional deviation from the nearest integer multiple,
		// discounted for longer references: long alignment is stronger
		// evidence.
		dev := math.Abs(length-mult*ref) / ref
		dev /= math.Log10(1 + ref)
		if dev < best {
			best = dev
		}
	}

	// 0 deviation -> ×0.5, deviations of 0.25 and beyond -> ×1.2.
	const devCap = 0.25
	t := best / devCap
	if t > 1 {
		t = 1
	}
	return 0.5 + 0.7*t
}
