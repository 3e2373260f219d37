// SPDX-License-Identifier: EPL-2.0

package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/henry-sm/ost-extender-musicbee/internal/audiotest"
)

func TestMatchPatterns_FindsRepeatedBody(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	// Intro once, body twice: occurrences at 12 s and 27 s.
	samples, firstBody, secondBody := audiotest.LoopedTrack(8000, 12, 15)

	match, ok, err := MatchPatterns(context.Background(), samples, 8000, cfg)
	if err != nil {
		t.Fatalf("MatchPatterns() error = %v", err)
	}
	if !ok {
		t.Fatal("MatchPatterns() found no repeat in an exact A-B-B track")
	}

	wantStart := float64(firstBody) / 8000
	wantEnd := float64(secondBody) / 8000

	if math.Abs(match.StartSeconds-wantStart) > 0.5 {
		t.Errorf("match start = %v s, want ~%v s", match.StartSeconds, wantStart)
	}
	if math.Abs(match.EndSeconds-wantEnd) > 0.5 {
		t.Errorf("match end = %v s, want ~%v s", match.EndSeconds, wantEnd)
	}
	if match.Score < cfg.PatternThreshold {
		t.Errorf("match score %v below threshold %v", match.Score, cfg.PatternThreshold)
	}
}

func TestMatchPatterns_NoMatchInNoise(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	// A non-repeating clip long enough to search but with nothing to
	// find above the threshold.
	samples := audiotest.Segment(8000, 40, 19)

	_, ok, err := MatchPatterns(context.Background(), samples, 8000, cfg)
	if err != nil {
		t.Fatalf("MatchPatterns() error = %v", err)
	}
	if ok {
		t.Log("a self-similar stretch cleared the threshold; acceptable but unexpected")
	}
}

func TestMatchPatterns_TooShort(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	// Under the minimum separation there is nothing to pair.
	samples := audiotest.Sine(8000, 5, 440, 0.5)

	_, ok, err := MatchPatterns(context.Background(), samples, 8000, cfg)
	if err != nil {
		t.Fatalf("MatchPatterns() error = %v", err)
	}
	if ok {
		t.Error("MatchPatterns() reported a match on a 5 s clip")
	}
}

func TestMatchPatterns_Cancelled(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	samples, _, _ := audiotest.LoopedTrack(8000, 12, 15)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := MatchPatterns(ctx, samples, 8000, cfg); err != ErrAnalysisCancelled {
		t.Errorf("MatchPatterns(cancelled) err = %v, want ErrAnalysisCancelled", err)
	}
}

func TestSegmentFingerprint_SpectralSplit(t *testing.T) {
	t.Parallel()

	// A near-DC signal concentrates energy in the low split; an
	// alternating-sign signal concentrates it in the high split.
	low := make([]float32, 800)
	high := make([]float32, 800)
	for i := range low {
		low[i] = 0.5
		if i%2 == 0 {
			high[i] = 0.5
		} else {
			high[i] = -0.5
		}
	}

	fpLow := segmentFingerprint(low)
	fpHigh := segmentFingerprint(high)

	if fpLow.lowE <= fpLow.highE {
		t.Errorf("DC signal: lowE %v <= highE %v", fpLow.lowE, fpLow.highE)
	}
	if fpHigh.highE <= fpHigh.lowE {
		t.Errorf("Nyquist signal: highE %v <= lowE %v", fpHigh.highE, fpHigh.lowE)
	}
}

func TestPearson(t *testing.T) {
	t.Parallel()

	a := []float64{1, 2, 3, 4}
	b := []float64{2, 4, 6, 8}
	c := []float64{4, 3, 2, 1}

	if got := pearson(a, b); math.Abs(got-1) > 1e-12 {
		t.Errorf("pearson(scaled copy) = %v, want 1", got)
	}
	if got := pearson(a, c); math.Abs(got+1) > 1e-12 {
		t.Errorf("pearson(reversed) = %v, want -1", got)
	}
	if got := pearson(a, []float64{5, 5, 5, 5}); got != 0 {
		t.Errorf("pearson(constant) = %v, want 0", got)
	}
}
