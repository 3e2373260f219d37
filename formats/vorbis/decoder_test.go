package vorbis

import (
	"bytes"
	"io"
	"testing"
)

// fakeOgg yields canned float32 frames, standing in for oggvorbis.Reader.
type fakeOgg struct {
	frames   []float32
	pos      int
	rate     int
	channels int
}

func (f *fakeOgg) SampleRate() int { return f.rate }
func (f *fakeOgg) Channels() int   { return f.channels }

func (f *fakeOgg) Read(p []float32) (int, error) {
	if f.pos >= len(f.frames) {
		return 0, io.EOF
	}
	n := copy(p, f.frames[f.pos:])
	// Round down to whole frames like the real reader.
	n -= n % f.channels
	f.pos += n
	if f.pos >= len(f.frames) {
		return n / f.channels, io.EOF
	}
	return n / f.channels, nil
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	src := &source{
		dec:        &fakeOgg{frames: []float32{0.1, 0.2, 0.3, 0.4}, rate: 48000, channels: 2},
		sampleRate: 48000,
		channels:   2,
		frameBuf:   make([]float32, 8),
	}

	dst := make([]float32, 4)
	n, err := src.ReadSamples(dst)
	if err != nil && err != io.EOF {
		t.Fatalf("ReadSamples() error = %v", err)
	}
	if n != 4 {
		t.Fatalf("ReadSamples() n = %d, want 4", n)
	}
	want := []float32{0.1, 0.2, 0.3, 0.4}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestSource_EmptyDst(t *testing.T) {
	t.Parallel()

	src := &source{
		dec:      &fakeOgg{rate: 48000, channels: 2},
		channels: 2,
	}

	n, err := src.ReadSamples(nil)
	if n != 0 || err != nil {
		t.Errorf("ReadSamples(nil) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestDecoder_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader([]byte("not an ogg stream at all")))
	if err == nil {
		t.Fatal("Decode() expected error for non-ogg input")
	}
}
