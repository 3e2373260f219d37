// SPDX-License-Identifier: EPL-2.0

package analysis

// Config holds every tunable of the loop-finding pipeline. The
// defaults were arrived at empirically against game-soundtrack rips;
// none of them is known to be optimal, which is exactly why they live
// here instead of as literals in the search code.
type Config struct {
	// Feature extraction.
	FrameSeconds float64 // analysis window length; tempo-independent
	OnsetBoost   float64 // brightness multiplier on crude onset detection
	ZCHysteresis float32 // ignore sign changes below this amplitude

	// Similarity matrix.
	MaxMatrixFrames  int     // cap on N for the N×N matrix
	EnergyWeight     float64 // feature distance weights, sum to 1
	ZeroCrossWeight  float64
	BrightnessWeight float64

	// Candidate search.
	MinLoopSeconds   float64 // shortest allowed loop
	MaxLoopSeconds   float64 // longest allowed loop
	AcceptThreshold  float64 // keep candidates scoring below this
	PointWeight      float64 // blend of exact matrix value...
	ContextWeight    float64 // ...and the diagonal-run mean
	VerifyRunSeconds float64 // feature run correlated per candidate
	VerifyThreshold  float64 // minimum run correlation to keep one
	OnsetTolerance   float64 // frame distance still counted as repeating
	TopCandidates    int     // how many survive into musical rescoring
	ReferenceLengths []float64 // musically common loop lengths, seconds

	// Point refinement.
	RefineWindowSeconds float64 // search radius around each point
	RefineStride        int     // coarse search stride in samples
	MaxLengthDrift      float64 // max loop-length change, seconds
	PhaseThreshold      float64 // stage-1 score that triggers phase search
	PhaseWindow         int     // correlation window, samples
	SnapRadius          int     // zero-crossing snap radius, samples
	MinStartSeconds     float64 // refined start must be at least this
	MinLoopLength       float64 // refined end-start floor, seconds

	// Pattern matcher (alternate path).
	SegmentSeconds       float64 // fingerprint granularity
	MinSeparationSeconds float64 // repeats must be at least this far apart
	PatternThreshold     float64 // correlation cutoff for a match
	PatternWindow        int     // fingerprint run compared per pair, segments

	// Pipeline.
	MinTrackSeconds           float64 // shorter tracks go straight to fallback
	MaxAnalysisSeconds        float64 // decode cap; 0 = no cap
	AnalysisRate              int     // sample rate analysis runs at
	PatternFallbackConfidence float64 // below this, try the pattern matcher
	FallbackStartRatio        float64 // duration-ratio heuristic
	FallbackEndRatio          float64
	FallbackConfidence        float64 // must stay below 0.5
}

// DefaultConfig returns the tuning used by the shipped analyzer.
func DefaultConfig() Config {
	return Config{
		FrameSeconds: 0.2,
		OnsetBoost:   1.25,
		ZCHysteresis: 0.001,

		MaxMatrixFrames:  1000,
		EnergyWeight:     0.6,
		ZeroCrossWeight:  0.2,
		BrightnessWeight: 0.2,

		MinLoopSeconds:   8,
		MaxLoopSeconds:   120,
		AcceptThreshold:  0.3,
		PointWeight:      0.7,
		ContextWeight:    0.3,
		VerifyRunSeconds: 3.0,
		VerifyThreshold:  0.5,
		OnsetTolerance:   0.05,
		TopCandidates:    5,
		ReferenceLengths: []float64{2, 4, 8, 16, 32},

		RefineWindowSeconds: 0.5,
		RefineStride:        32,
		MaxLengthDrift:      0.3,
		PhaseThreshold:      0.08,
		PhaseWindow:         1024,
		SnapRadius:          16,
		MinStartSeconds:     0.1,
		MinLoopLength:       4.0,

		SegmentSeconds:       0.1,
		MinSeparationSeconds: 10,
		PatternThreshold:     0.80,
		PatternWindow:        20,

		MinTrackSeconds:           20,
		MaxAnalysisSeconds:        300,
		AnalysisRate:              22050,
		PatternFallbackConfidence: 0.5,
		FallbackStartRatio:        0.3,
		FallbackEndRatio:          0.8,
		FallbackConfidence:        0.45,
	}
}

// hopSeconds is half a frame; frames overlap by 50%.
func (c Config) hopSeconds() float64 {
	return c.FrameSeconds / 2
}
