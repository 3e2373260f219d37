// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// Buffer is a fully-decoded mono clip. It is owned by exactly one
// pipeline stage at a time; analysis treats it as read-only input and
// never mutates it.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration of the buffer in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// SampleAt converts a time offset in seconds to a clamped sample index.
func (b *Buffer) SampleAt(seconds float64) int {
	idx := int(seconds * float64(b.SampleRate))
	if idx < 0 {
		return 0
	}
	if idx > len(b.Samples) {
		return len(b.Samples)
	}
	return idx
}

// CollectMono drains src through a mono mixer (and a resampler when
// targetRate differs from the source rate) into a Buffer.
//
// maxSeconds bounds how much audio is decoded: analysis only ever needs
// a prefix of very long tracks, and capping here keeps both decode time
// and the O(n²) similarity search in check. maxSeconds <= 0 means no
// cap.
func CollectMono(src Source, targetRate int, maxSeconds float64) (*Buffer, error) {
	var stream Source = src
	if targetRate > 0 && targetRate != src.SampleRate() {
		stream = NewResampler(src, targetRate)
	} else {
		targetRate = src.SampleRate()
	}
	mono := NewMonoMixer(stream)

	maxSamples := -1
	if maxSeconds > 0 {
		maxSamples = int(maxSeconds * float64(targetRate))
	}

	samples := make([]float32, 0, targetRate*8)
	buf := make([]float32, 4096)

	for {
		n, err := mono.ReadSamples(buf)
		if n > 0 {
			samples = append(samples, buf[:n]...)
		}

		if maxSamples >= 0 && len(samples) >= maxSamples {
			samples = samples[:maxSamples]
			break
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}
	}

	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	return &Buffer{Samples: samples, SampleRate: targetRate}, nil
}
