// SPDX-License-Identifier: EPL-2.0

package analysis

import "math"

// Features holds the three per-frame streams the similarity matrix is
// built from. All streams are the same length and normalized to [0,1]
// across the whole track. Frame i covers samples [i·hop, i·hop+frame).
type Features struct {
	Energy     []float64
	ZeroCross  []float64
	Brightness []float64

	FrameSize int // samples per frame
	HopSize   int // samples between frame starts
}

// Frames returns the number of analysis frames.
func (f *Features) Frames() int { return len(f.Energy) }

// ExtractFeatures derives the frame streams from a mono buffer.
//
// Energy is Hamming-windowed RMS. Zero-crossing rate counts sign
// changes with a small hysteresis so noise-floor wiggle is not
// counted. Brightness is a cheap spectral-centroid stand-in built from
// the other two, boosted on crude onsets (local energy spiking above
// its rolling average) so later matching leans toward rhythmically
// salient frames.
//
// A buffer shorter than one frame yields zero frames; that is a
// boundary condition, not an error.
func ExtractFeatures(samples []float32, sampleRate int, cfg Config) *Features {
	frameSize := int(cfg.FrameSeconds * float64(sampleRate))
	if frameSize < 2 {
		frameSize = 2
	}
	hopSize := frameSize / 2

	if len(samples) < frameSize {
		return &Features{FrameSize: frameSize, HopSize: hopSize}
	}

	numFrames := (len(samples)-frameSize)/hopSize + 1

	f := &Features{
		Energy:     make([]float64, numFrames),
		ZeroCross:  make([]float64, numFrames),
		Brightness: make([]float64, numFrames),
		FrameSize:  frameSize,
		HopSize:    hopSize,
	}

	window := hammingWindow(frameSize)

	// Rolling average of raw energy over the last few frames feeds the
	// onset detector.
	const rollingLen = 8
	var rolling [rollingLen]float64
	rollingCount := 0
	prevEnergy := 0.0

	for i := 0; i < numFrames; i++ {
		start := i * hopSize
		frame := samples[start : start+frameSize]

		energy := windowedRMS(frame, window)
		zc := zeroCrossRate(frame, cfg.ZCHysteresis)

		f.Energy[i] = energy
		f.ZeroCross[i] = zc

		brightness := 0.5*energy + 0.5*zc

		// Crude onset detection: energy well above both the rolling
		// average and the previous frame.
		if rollingCount > 0 {
			sum := 0.0
			n := min(rollingCount, rollingLen)
			for k := 0; k < n; k++ {
				sum += rolling[k]
			}
			avg := sum / float64(n)
			if energy > 1.5*avg && energy > 1.2*prevEnergy {
				brightness *= cfg.OnsetBoost
			}
		}
		f.Brightness[i] = brightness

		rolling[rollingCount%rollingLen] = energy
		rollingCount++
		prevEnergy = energy
	}

	normalize(f.Energy)
	normalize(f.ZeroCross)
	normalize(f.Brightness)

	return f
}

func hammingWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(size-1))
	}
	return w
}

func windowedRMS(frame []float32, window []float64) float64 {
	var sum float64
	for i, s := range frame {
		v := float64(s) * window[i]
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// zeroCrossRate counts sign changes, ignoring crossings where both
// samples sit inside the hysteresis band.
func zeroCrossRate(frame []float32, hysteresis float32) float64 {
	count := 0
	for i := 1; i < len(frame); i++ {
		a, b := frame[i-1], frame[i]
		if a > hysteresis && b < -hysteresis || a < -hysteresis && b > hysteresis {
			count++
		}
	}
	return float64(count) / float64(len(frame))
}

// normalize rescales a stream to [0,1] in place. A constant stream
// becomes all zeros; the range guard keeps the division defined.
func normalize(stream []float64) {
	if len(stream) == 0 {
		return
	}

	lo, hi := stream[0], stream[0]
	for _, v := range stream[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	span := hi - lo
	if span <= 0 {
		for i := range stream {
			stream[i] = 0
		}
		return
	}

	for i := range stream {
		stream[i] = (stream[i] - lo) / span
	}
}
