// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"io"
	"math"

	"github.com/henry-sm/ost-extender-musicbee/audio"
	"github.com/henry-sm/ost-extender-musicbee/formats/wav"
	"github.com/henry-sm/ost-extender-musicbee/utils"
)

// SynthesizeCrossfade blends the loop seam into a short standalone
// clip: the tail ending at the loop end fades out while the head
// starting at the loop start fades in. Before blending, the head is
// shifted within a small window (a tenth of the fade length each way)
// to the offset that best correlates with the tail, which keeps the
// two layers from phase-cancelling.
//
// Returns the blended samples and the chosen head offset. The caller
// decides what to do with the clip; on error it should fall back to a
// hard position jump.
func SynthesizeCrossfade(buf *audio.Buffer, loop LoopPoints, fadeMs int) (samples []float32, headOffset int, err error) {
	if buf == nil || len(buf.Samples) == 0 || fadeMs <= 0 {
		return nil, 0, ErrCrossfadeBounds
	}

	sr := buf.SampleRate
	fade := fadeMs * sr / 1000
	if fade < 2 {
		return nil, 0, ErrCrossfadeBounds
	}

	end := loop.EndSample
	start := loop.StartSample
	if end == 0 {
		end = buf.SampleAt(loop.EndSeconds)
	}
	if start == 0 && loop.StartSeconds > 0 {
		start = buf.SampleAt(loop.StartSeconds)
	}

	window := fade / 10
	if end-fade < 0 || end > len(buf.Samples) {
		return nil, 0, ErrCrossfadeBounds
	}
	if start-window < 0 || start+fade+window > len(buf.Samples) {
		// Shrink the alignment window rather than fail when the head
		// sits near a buffer edge.
		window = 0
		if start < 0 || start+fade > len(buf.Samples) {
			return nil, 0, ErrCrossfadeBounds
		}
	}

	tail := buf.Samples[end-fade : end]

	headOffset = bestAlignment(tail, buf.Samples, start, fade, window)
	head := buf.Samples[start+headOffset : start+headOffset+fade]

	out := make([]float32, fade)
	for i := range out {
		t := float64(i) / float64(fade-1)
		w := utils.SmoothStep(t)
		out[i] = float32((1-w)*float64(tail[i]) + w*float64(head[i]))
	}
	return out, headOffset, nil
}

// bestAlignment slides the head over [-window, window] and returns the
// shift with the highest normalized cross-correlation against the
// tail. Zero shift wins ties.
func bestAlignment(tail, samples []float32, start, fade, window int) int {
	if window == 0 {
		return 0
	}

	best, bestScore := 0, math.Inf(-1)
	for off := -window; off <= window; off++ {
		score := correlate(tail, samples[start+off:start+off+fade])
		if score > bestScore || (score == bestScore && abs(off) < abs(best)) {
			best, bestScore = off, score
		}
	}
	return best
}

func correlate(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// WriteCrossfadeWAV serializes a synthesized seam clip as 16-bit mono
// PCM so the host can queue it like any other file.
func WriteCrossfadeWAV(w io.Writer, samples []float32, sampleRate int) error {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = utils.Float32ToInt16(s)
	}
	return wav.WriteWAV16(w, sampleRate, 1, pcm)
}
