// SPDX-License-Identifier: EPL-2.0

package analysis

// Status of an analysis run.
type Status int

const (
	StatusSuccess Status = iota
	StatusFallback
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFallback:
		return "fallback"
	default:
		return "failed"
	}
}

// Method records how the loop points were obtained.
type Method int

const (
	MethodAutomatic Method = iota
	MethodManual
	MethodFallback
)

func (m Method) String() string {
	switch m {
	case MethodAutomatic:
		return "Automatic"
	case MethodManual:
		return "Manual"
	default:
		return "Fallback"
	}
}

// LoopResult is the immutable outcome of one analysis run. Once
// returned it is never mutated; publication to the playback side is a
// pointer swap.
type LoopResult struct {
	Status          Status
	LoopStart       float64 // seconds
	LoopEnd         float64 // seconds
	LoopStartSample int
	LoopEndSample   int
	SampleRate      int
	Confidence      float64 // [0,1]; fallback results are capped at 0.5
	Method          Method
}

// Candidate is one scored (start, end) frame pair from the primary
// search. Lower score is better here; the pattern matcher uses the
// opposite convention and has its own type.
type Candidate struct {
	StartFrame int
	EndFrame   int
	Score      float64
}
