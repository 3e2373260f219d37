// SPDX-License-Identifier: EPL-2.0

package analysis

import "math"

// RefineOutcome is the result of point refinement. Refined reports
// whether the search actually moved the points; when anything goes
// wrong internally the input points come back unchanged with
// Refined=false, because refinement is best-effort and must never be
// fatal.
type RefineOutcome struct {
	StartSeconds float64
	EndSeconds   float64
	StartSample  int
	EndSample    int
	Refined      bool
	Score        float64 // stage-1 combined seam score, lower is better
}

const (
	refineShortWin = 256 // RMS window around an offset
	refineCtxWin   = 128 // waveform-context comparison window
	refineZCScan   = 64  // how far to look for the nearest sign change
)

// RefinePoints snaps a frame-resolution (start, end) pair to
// sample-accurate transition points with a minimally audible seam.
//
// Stage 1 walks a ±window around both points on a coarse stride,
// scoring offset pairs on energy match, waveform-context difference,
// zero-crossing proximity and derivative smallness. Stage 2 kicks in
// when the best seam is still poor, re-aligning the end point by
// normalized cross-correlation. Stage 3 snaps both points to an exact
// sign-change pair, recovering the sample accuracy the coarse stride
// gave up.
func RefinePoints(samples []float32, sampleRate int, startSec, endSec float64, cfg Config) (out RefineOutcome) {
	out = RefineOutcome{
		StartSeconds: startSec,
		EndSeconds:   endSec,
		StartSample:  int(startSec * float64(sampleRate)),
		EndSample:    int(endSec * float64(sampleRate)),
	}

	// Refinement must never take the pipeline down with it.
	defer func() {
		if r := recover(); r != nil {
			out = RefineOutcome{
				StartSeconds: startSec,
				EndSeconds:   endSec,
				StartSample:  int(startSec * float64(sampleRate)),
				EndSample:    int(endSec * float64(sampleRate)),
			}
		}
	}()

	if len(samples) == 0 || sampleRate <= 0 {
		return out
	}

	sr := float64(sampleRate)
	startCenter := int(startSec * sr)
	endCenter := int(endSec * sr)
	window := int(cfg.RefineWindowSeconds * sr)
	maxDrift := int(cfg.MaxLengthDrift * sr)
	stride := cfg.RefineStride
	if stride < 1 {
		stride = 1
	}

	lo := refineShortWin
	hi := len(samples) - refineShortWin
	if hi <= lo {
		return clampOutcome(out, samples, sampleRate, cfg)
	}

	startOffs := offsetRange(startCenter, window, stride, lo, hi)
	endOffs := offsetRange(endCenter, window, stride, lo, hi)
	if len(startOffs) == 0 || len(endOffs) == 0 {
		return clampOutcome(out, samples, sampleRate, cfg)
	}

	startFeats := offsetFeatures(samples, startOffs)
	endFeats := offsetFeatures(samples, endOffs)

	// Stage 1: coarse pair search under the length-drift constraint.
	origLength := endCenter - startCenter
	bestScore := math.Inf(1)
	bestStart, bestEnd := startCenter, endCenter

	for i, so := range startOffs {
		for k, eo := range endOffs {
			drift := (eo - so) - origLength
			if drift < -maxDrift || drift > maxDrift {
				continue
			}
			score := seamScore(samples, so, eo, &startFeats[i], &endFeats[k])
			if score < bestScore {
				bestScore = score
				bestStart, bestEnd = so, eo
			}
		}
	}

	if math.IsInf(bestScore, 1) {
		return clampOutcome(out, samples, sampleRate, cfg)
	}

	// Stage 2: phase-correlation fallback when the coarse seam is
	// still rough.
	if bestScore > cfg.PhaseThreshold {
		if shifted, score, ok := phaseAlign(samples, bestStart, bestEnd, cfg.PhaseWindow); ok && score <= bestScore*1.1 {
			bestEnd = shifted
		}
	}

	// Stage 3: micro zero-crossing snap for the cleanest splice.
	if s, e, ok := zeroCrossSnap(samples, bestStart, bestEnd, cfg.SnapRadius); ok {
		bestStart, bestEnd = s, e
	}

	// Post-conditions: start not before MinStartSeconds, loop at least
	// MinLoopLength, both inside the buffer.
	minStart := int(cfg.MinStartSeconds * sr)
	if bestStart < minStart {
		bestStart = minStart
	}
	if bestEnd > len(samples) {
		bestEnd = len(samples)
	}
	if bestEnd-bestStart < int(cfg.MinLoopLength*sr) {
		// The refined pair collapsed below the usable floor; keep the
		// original points instead.
		return clampOutcome(out, samples, sampleRate, cfg)
	}

	out.StartSample = bestStart
	out.EndSample = bestEnd
	out.StartSeconds = float64(bestStart) / sr
	out.EndSeconds = float64(bestEnd) / sr
	out.Refined = true
	out.Score = bestScore
	return out
}

// clampOutcome enforces the postconditions on an unrefined result.
func clampOutcome(out RefineOutcome, samples []float32, sampleRate int, cfg Config) RefineOutcome {
	sr := float64(sampleRate)
	minStart := int(cfg.MinStartSeconds * sr)
	minLen := int(cfg.MinLoopLength * sr)

	if out.StartSample < minStart {
		out.StartSample = minStart
	}
	if out.EndSample > len(samples) {
		out.EndSample = len(samples)
	}
	if out.EndSample-out.StartSample < minLen {
		end := out.StartSample + minLen
		if end > len(samples) {
			end = len(samples)
			start := end - minLen
			if start < 0 {
				start = 0
			}
			out.StartSample = start
		}
		out.EndSample = end
	}

	out.StartSeconds = float64(out.StartSample) / sr
	out.EndSeconds = float64(out.EndSample) / sr
	return out
}

func offsetRange(center, window, stride, lo, hi int) []int {
	from := center - window
	if from < lo {
		from = lo
	}
	to := center + window
	if to > hi {
		to = hi
	}

	var offs []int
	for o := from; o <= to; o += stride {
		offs = append(offs, o)
	}
	return offs
}

// offsetFeature caches the per-offset measurements stage 1 scores
// pairs with, so the pair loop is a handful of float ops.
type offsetFeature struct {
	rms    float64
	zcDist float64 // normalized distance to nearest sign change
	deriv  float64
}

func offsetFeatures(samples []float32, offs []int) []offsetFeature {
	feats := make([]offsetFeature, len(offs))
	for i, o := range offs {
		feats[i] = offsetFeature{
			rms:    shortRMS(samples, o),
			zcDist: zeroCrossDistance(samples, o),
			deriv:  math.Abs(float64(samples[min(o+1, len(samples)-1)])-float64(samples[max(o-1, 0)])) / 2,
		}
	}
	return feats
}

func shortRMS(samples []float32, center int) float64 {
	from := max(center-refineShortWin/2, 0)
	to := min(center+refineShortWin/2, len(samples))

	var sum float64
	for _, s := range samples[from:to] {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(to-from))
}

func zeroCrossDistance(samples []float32, center int) float64 {
	for d := 0; d <= refineZCScan; d++ {
		for _, idx := range [2]int{center - d, center + d} {
			if idx <= 0 || idx >= len(samples) {
				continue
			}
			if signChange(samples[idx-1], samples[idx]) {
				return float64(d) / refineZCScan
			}
		}
	}
	return 1
}

func signChange(a, b float32) bool {
	return (a >= 0 && b < 0) || (a < 0 && b >= 0)
}

// seamScore measures how audible a jump from just-before-end to
// just-after-start would be. The context term compares the waveform
// approaching the end point with the waveform approaching the start
// point, since that is the material the ear hears across the splice.
func seamScore(samples []float32, startOff, endOff int, sf, ef *offsetFeature) float64 {
	energyDiff := math.Abs(sf.rms - ef.rms)

	ctxLen := min(refineCtxWin, min(startOff, endOff))
	var ctxDiff float64
	if ctxLen > 0 {
		for k := 1; k <= ctxLen; k++ {
			ctxDiff += math.Abs(float64(samples[endOff-k]) - float64(samples[startOff-k]))
		}
		ctxDiff /= float64(ctxLen)
	}

	zc := (sf.zcDist + ef.zcDist) / 2
	deriv := (sf.deriv + ef.deriv) / 2

	return 0.35*energyDiff + 0.35*ctxDiff + 0.15*zc + 0.15*deriv
}

// phaseAlign searches a window of end-point shifts for the one whose
// lead-in correlates best with the start point's lead-in. Returns the
// shifted end offset and its blended (1-NCC)/MAD score.
func phaseAlign(samples []float32, startOff, endOff, window int) (int, float64, bool) {
	if window < 16 {
		window = 1024
	}
	half := window / 2

	if startOff < window || endOff < window {
		return 0, 0, false
	}

	ref := samples[startOff-window : startOff]

	bestScore := math.Inf(1)
	bestEnd := endOff
	found := false

	for shift := -half; shift <= half; shift += 4 {
		eo := endOff + shift
		if eo < window || eo > len(samples) {
			continue
		}
		cand := samples[eo-window : eo]

		ncc := normalizedCrossCorrelation(ref, cand)
		mad := meanAbsDiff(ref, cand)
		score := 0.5*(1-ncc) + 0.5*mad

		if score < bestScore {
			bestScore = score
			bestEnd = eo
			found = true
		}
	}

	return bestEnd, bestScore, found
}

func meanAbsDiff(a, b []float32) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return sum / float64(n)
}

// normalizedCrossCorrelation returns the correlation coefficient of
// two equal-length windows, in [-1,1]. Degenerate (flat) windows
// return 0.
func normalizedCrossCorrelation(a, b []float32) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += float64(a[i])
		meanB += float64(b[i])
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var num, varA, varB float64
	for i := 0; i < n; i++ {
		da := float64(a[i]) - meanA
		db := float64(b[i]) - meanB
		num += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0
	}
	return num / math.Sqrt(varA*varB)
}

// zeroCrossSnap looks for a true sign-change sample within ±radius of
// both offsets whose 9-sample neighbourhoods match each other best,
// and snaps to that exact pair.
func zeroCrossSnap(samples []float32, startOff, endOff, radius int) (int, int, bool) {
	startCands := signChangesNear(samples, startOff, radius)
	endCands := signChangesNear(samples, endOff, radius)
	if len(startCands) == 0 || len(endCands) == 0 {
		return 0, 0, false
	}

	bestDiff := math.Inf(1)
	var bestS, bestE int

	for _, s := range startCands {
		for _, e := range endCands {
			d := neighborhoodDiff(samples, s, e, 4)
			if d < bestDiff {
				bestDiff = d
				bestS, bestE = s, e
			}
		}
	}

	return bestS, bestE, true
}

func signChangesNear(samples []float32, center, radius int) []int {
	var out []int
	for d := -radius; d <= radius; d++ {
		idx := center + d
		if idx <= 0 || idx >= len(samples) {
			continue
		}
		if signChange(samples[idx-1], samples[idx]) {
			out = append(out, idx)
		}
	}
	return out
}

func neighborhoodDiff(samples []float32, a, b, halfWidth int) float64 {
	var sum float64
	count := 0
	for o := -halfWidth; o <= halfWidth; o++ {
		ia, ib := a+o, b+o
		if ia < 0 || ia >= len(samples) || ib < 0 || ib >= len(samples) {
			continue
		}
		sum += math.Abs(float64(samples[ia]) - float64(samples[ib]))
		count++
	}
	if count == 0 {
		return math.Inf(1)
	}
	return sum / float64(count)
}
