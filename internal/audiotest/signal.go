// SPDX-License-Identifier: EPL-2.0

package audiotest

import "math"

// Sine fills a mono buffer with a sine wave of the given frequency and
// amplitude. Used to build deterministic analysis fixtures.
func Sine(sampleRate int, seconds, frequency, amplitude float64) []float32 {
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		out[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*t))
	}
	return out
}

// Segment produces a mono clip whose character changes every note: a
// crude melody generator so repeated sections are distinguishable by
// energy and zero-crossing rate. The note sequence comes from a seeded
// LCG, so a clip is aperiodic within itself but exactly reproducible:
// concatenating the same segment twice yields a true repeat with no
// accidental shorter period.
func Segment(sampleRate int, seconds float64, seed int) []float32 {
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n)

	noteLen := sampleRate / 2 // half-second notes
	freqs := []float64{220, 330, 262, 392, 294, 440, 247, 349}

	state := uint32(seed)*2654435761 + 1
	next := func() uint32 {
		state = state*1664525 + 1013904223
		return state >> 16
	}

	numNotes := n/noteLen + 1
	noteFreq := make([]float64, numNotes)
	noteAmp := make([]float64, numNotes)
	for i := range noteFreq {
		r := next()
		noteFreq[i] = freqs[r%uint32(len(freqs))]
		noteAmp[i] = 0.3 + 0.5*float64(next()%16)/16.0
	}

	for i := range out {
		note := i / noteLen
		t := float64(i) / float64(sampleRate)
		out[i] = float32(noteAmp[note] * math.Sin(2*math.Pi*noteFreq[note]*t))
	}
	return out
}

// Concat joins clips into one buffer.
func Concat(clips ...[]float32) []float32 {
	total := 0
	for _, c := range clips {
		total += len(c)
	}
	out := make([]float32, 0, total)
	for _, c := range clips {
		out = append(out, c...)
	}
	return out
}

// LoopedTrack builds the classic OST shape: an intro section followed
// by a body section played twice. Returns the buffer plus the sample
// offsets of the two body occurrences, which a correct analysis should
// find as the loop points.
func LoopedTrack(sampleRate int, introSeconds, bodySeconds float64) (samples []float32, firstBody, secondBody int) {
	intro := Segment(sampleRate, introSeconds, 3)
	body := Segment(sampleRate, bodySeconds, 11)

	samples = Concat(intro, body, body)
	firstBody = len(intro)
	secondBody = len(intro) + len(body)
	return samples, firstBody, secondBody
}

// RMS of a clip, for assertions on rendered audio.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
