// SPDX-License-Identifier: EPL-2.0

package analysis

import (
	"context"

	"github.com/henry-sm/ost-extender-musicbee/audio"
)

// ProgressFunc receives coarse stage progress during analysis. It is
// best-effort UI feedback; nil is fine.
type ProgressFunc func(stage string, fraction float64)

// Analyzer runs the loop-finding pipeline. It is CPU-bound and
// synchronous; callers wanting it off their interactive path run it in
// a goroutine and cancel superseded runs through the context.
type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze finds loop points in a mono buffer. It owns buf for the
// duration of the call and returns an immutable LoopResult.
//
// The pipeline degrades instead of failing: short tracks and empty
// candidate sets produce a duration-ratio fallback result with low
// confidence rather than an error. The only errors returned are a
// cancelled context and an empty input buffer.
func (a *Analyzer) Analyze(ctx context.Context, buf *audio.Buffer, progress ProgressFunc) (*LoopResult, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, ErrEmptyBuffer
	}

	report := func(stage string, frac float64) {
		if progress != nil {
			progress(stage, frac)
		}
	}

	duration := buf.Duration()

	// Very short tracks carry too little structure for the matrix
	// search to mean anything.
	if duration < a.cfg.MinTrackSeconds {
		report("fallback", 1.0)
		return a.fallbackResult(buf), nil
	}

	report("features", 0.0)
	feats := ExtractFeatures(buf.Samples, buf.SampleRate, a.cfg)

	minLoopFrames := int(a.cfg.MinLoopSeconds / a.cfg.hopSeconds())
	if feats.Frames() <= minLoopFrames {
		report("fallback", 1.0)
		return a.fallbackResult(buf), nil
	}

	report("matrix", 0.15)
	matrix, err := BuildMatrix(ctx, feats, a.cfg)
	if err != nil {
		return nil, err
	}

	report("search", 0.55)
	candidates, err := SearchCandidates(ctx, matrix, a.cfg)
	if err != nil {
		return nil, err
	}
	candidates = VerifyCandidates(candidates, feats, a.cfg)

	if len(candidates) == 0 {
		// Try the pattern path before giving up on structure entirely.
		if res, ok, err := a.patternResult(ctx, buf, report); err != nil {
			return nil, err
		} else if ok {
			report("done", 1.0)
			return res, nil
		}
		report("fallback", 1.0)
		return a.fallbackResult(buf), nil
	}

	candidates = RescoreMusically(candidates, matrix, a.cfg)
	best := candidates[0]

	confidence := 1 - best.Score/a.cfg.AcceptThreshold
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	hop := a.cfg.hopSeconds()
	startSec := float64(best.StartFrame) * hop
	endSec := float64(best.EndFrame) * hop

	if confidence < a.cfg.PatternFallbackConfidence {
		if res, ok, err := a.patternResult(ctx, buf, report); err != nil {
			return nil, err
		} else if ok && res.Confidence > confidence {
			report("done", 1.0)
			return res, nil
		}
	}

	report("refine", 0.85)
	refined := RefinePoints(buf.Samples, buf.SampleRate, startSec, endSec, a.cfg)

	report("done", 1.0)
	return &LoopResult{
		Status:          StatusSuccess,
		LoopStart:       refined.StartSeconds,
		LoopEnd:         refined.EndSeconds,
		LoopStartSample: refined.StartSample,
		LoopEndSample:   refined.EndSample,
		SampleRate:      buf.SampleRate,
		Confidence:      confidence,
		Method:          MethodAutomatic,
	}, nil
}

// patternResult runs the alternate correlation search and refines its
// winner. ok is false when nothing clears the pattern threshold.
func (a *Analyzer) patternResult(ctx context.Context, buf *audio.Buffer, report ProgressFunc) (*LoopResult, bool, error) {
	report("pattern", 0.7)

	match, ok, err := MatchPatterns(ctx, buf.Samples, buf.SampleRate, a.cfg)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	report("refine", 0.85)
	refined := RefinePoints(buf.Samples, buf.SampleRate, match.StartSeconds, match.EndSeconds, a.cfg)

	return &LoopResult{
		Status:          StatusSuccess,
		LoopStart:       refined.StartSeconds,
		LoopEnd:         refined.EndSeconds,
		LoopStartSample: refined.StartSample,
		LoopEndSample:   refined.EndSample,
		SampleRate:      buf.SampleRate,
		Confidence:      match.Score,
		Method:          MethodAutomatic,
	}, true, nil
}

// fallbackResult is the duration-ratio heuristic: no structure was
// found (or the track is too short to look), so estimate a loop over
// the middle of the track and say so with low confidence. Fallback
// confidence never exceeds 0.5, so anything reading the result can
// tell the points are unverified.
func (a *Analyzer) fallbackResult(buf *audio.Buffer) *LoopResult {
	duration := buf.Duration()
	start := duration * a.cfg.FallbackStartRatio
	end := duration * a.cfg.FallbackEndRatio

	confidence := a.cfg.FallbackConfidence
	if confidence > 0.5 {
		confidence = 0.5
	}

	return &LoopResult{
		Status:          StatusFallback,
		LoopStart:       start,
		LoopEnd:         end,
		LoopStartSample: buf.SampleAt(start),
		LoopEndSample:   buf.SampleAt(end),
		SampleRate:      buf.SampleRate,
		Confidence:      confidence,
		Method:          MethodFallback,
	}
}
