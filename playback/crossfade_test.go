// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"bytes"
	"math"
	"testing"

	"github.com/henry-sm/ost-extender-musicbee/audio"
	"github.com/henry-sm/ost-extender-musicbee/formats/wav"
	"github.com/henry-sm/ost-extender-musicbee/internal/audiotest"
)

func sineBuffer(rate int, seconds, freq float64) *audio.Buffer {
	return &audio.Buffer{
		Samples:    audiotest.Sine(rate, seconds, freq, 0.5),
		SampleRate: rate,
	}
}

func TestSynthesizeCrossfade_Length(t *testing.T) {
	t.Parallel()

	buf := sineBuffer(44100, 2, 220)
	loop := LoopPoints{
		StartSeconds: 0.3,
		EndSeconds:   1.7,
		StartSample:  int(0.3 * 44100),
		EndSample:    int(1.7 * 44100),
		SampleRate:   44100,
	}

	out, _, err := SynthesizeCrossfade(buf, loop, 40)
	if err != nil {
		t.Fatalf("SynthesizeCrossfade() error = %v", err)
	}
	want := 40 * 44100 / 1000
	if len(out) != want {
		t.Errorf("clip length = %d samples, want %d", len(out), want)
	}
}

func TestSynthesizeCrossfade_ConstantSignalStaysConstant(t *testing.T) {
	t.Parallel()

	// Complementary fades over a DC signal must reproduce the signal:
	// (1-w)*c + w*c = c at every position.
	const c = 0.25
	samples := make([]float32, 44100)
	for i := range samples {
		samples[i] = c
	}
	buf := &audio.Buffer{Samples: samples, SampleRate: 44100}
	loop := LoopPoints{
		StartSeconds: 0.25,
		EndSeconds:   0.75,
		StartSample:  11025,
		EndSample:    33075,
		SampleRate:   44100,
	}

	out, _, err := SynthesizeCrossfade(buf, loop, 40)
	if err != nil {
		t.Fatalf("SynthesizeCrossfade() error = %v", err)
	}
	for i, s := range out {
		if math.Abs(float64(s)-c) > 1e-6 {
			t.Fatalf("out[%d] = %v, want %v", i, s, c)
		}
	}
}

func TestSynthesizeCrossfade_SeamEndpoints(t *testing.T) {
	t.Parallel()

	buf := sineBuffer(44100, 2, 220)
	loop := LoopPoints{
		StartSample: int(0.3 * 44100),
		EndSample:   int(1.7 * 44100),
		SampleRate:  44100,
	}

	out, off, err := SynthesizeCrossfade(buf, loop, 40)
	if err != nil {
		t.Fatalf("SynthesizeCrossfade() error = %v", err)
	}

	fade := len(out)
	tailStart := buf.Samples[loop.EndSample-fade]
	headEnd := buf.Samples[loop.StartSample+off+fade-1]

	if math.Abs(float64(out[0]-tailStart)) > 1e-6 {
		t.Errorf("clip starts at %v, want the tail's first sample %v", out[0], tailStart)
	}
	if math.Abs(float64(out[fade-1]-headEnd)) > 1e-6 {
		t.Errorf("clip ends at %v, want the head's last sample %v", out[fade-1], headEnd)
	}
}

func TestSynthesizeCrossfade_AlignmentBounded(t *testing.T) {
	t.Parallel()

	buf := sineBuffer(44100, 2, 220)
	loop := LoopPoints{
		StartSample: int(0.3 * 44100),
		EndSample:   int(1.7 * 44100),
		SampleRate:  44100,
	}

	fade := 40 * 44100 / 1000
	_, off, err := SynthesizeCrossfade(buf, loop, 40)
	if err != nil {
		t.Fatalf("SynthesizeCrossfade() error = %v", err)
	}
	if abs(off) > fade/10 {
		t.Errorf("alignment offset %d outside search window %d", off, fade/10)
	}
}

func TestSynthesizeCrossfade_AlignmentImprovesCorrelation(t *testing.T) {
	t.Parallel()

	buf := sineBuffer(44100, 2, 220)
	loop := LoopPoints{
		// Arbitrary points: the head is almost never in phase with the
		// tail here, so alignment has work to do.
		StartSample: 13_003,
		EndSample:   70_007,
		SampleRate:  44100,
	}

	fade := 40 * 44100 / 1000
	_, off, err := SynthesizeCrossfade(buf, loop, 40)
	if err != nil {
		t.Fatalf("SynthesizeCrossfade() error = %v", err)
	}

	tail := buf.Samples[loop.EndSample-fade : loop.EndSample]
	aligned := correlate(tail, buf.Samples[loop.StartSample+off:loop.StartSample+off+fade])
	unshifted := correlate(tail, buf.Samples[loop.StartSample:loop.StartSample+fade])

	if aligned < unshifted-1e-12 {
		t.Errorf("aligned correlation %v worse than unshifted %v", aligned, unshifted)
	}
}

func TestSynthesizeCrossfade_Errors(t *testing.T) {
	t.Parallel()

	short := &audio.Buffer{Samples: make([]float32, 100), SampleRate: 44100}

	cases := []struct {
		name   string
		buf    *audio.Buffer
		loop   LoopPoints
		fadeMs int
	}{
		{"nil buffer", nil, LoopPoints{}, 40},
		{"zero fade", sineBuffer(44100, 1, 220), LoopPoints{EndSample: 22050, SampleRate: 44100}, 0},
		{"tail before buffer", short, LoopPoints{EndSample: 100, SampleRate: 44100}, 40},
		{"head past buffer", sineBuffer(44100, 1, 220), LoopPoints{StartSample: 44090, EndSample: 22050, SampleRate: 44100}, 40},
	}

	for _, tc := range cases {
		if _, _, err := SynthesizeCrossfade(tc.buf, tc.loop, tc.fadeMs); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestWriteCrossfadeWAV_RoundTrip(t *testing.T) {
	t.Parallel()

	clip := audiotest.Sine(44100, 0.05, 440, 0.5)

	var buf bytes.Buffer
	if err := WriteCrossfadeWAV(&buf, clip, 44100); err != nil {
		t.Fatalf("WriteCrossfadeWAV() error = %v", err)
	}

	src, err := wav.Decoder{}.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode written clip: %v", err)
	}
	defer src.Close()

	if src.SampleRate() != 44100 || src.Channels() != 1 {
		t.Fatalf("decoded as %d Hz / %d ch, want 44100 / 1", src.SampleRate(), src.Channels())
	}

	decoded := make([]float32, 0, len(clip))
	tmp := make([]float32, 1024)
	for {
		n, err := src.ReadSamples(tmp)
		decoded = append(decoded, tmp[:n]...)
		if err != nil {
			break
		}
	}

	if len(decoded) != len(clip) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(clip))
	}
	for i := range clip {
		if math.Abs(float64(decoded[i]-clip[i])) > 1.0/32000 {
			t.Fatalf("sample %d: decoded %v, wrote %v", i, decoded[i], clip[i])
		}
	}
}
