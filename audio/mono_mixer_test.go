// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"math"
	"testing"

	"github.com/henry-sm/ost-extender-musicbee/internal/audiotest"
)

func TestMonoMixer_MonoPassthrough(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 1, 100, func(int, int) float32 { return 0.5 })
	mixer := NewMonoMixer(src)

	if mixer.Channels() != 1 {
		t.Errorf("MonoMixer.Channels() = %d, want 1", mixer.Channels())
	}

	buf := make([]float32, 10)
	n, err := mixer.ReadSamples(buf)
	if err != nil {
		t.Fatalf("ReadSamples() error = %v", err)
	}
	if n != 10 {
		t.Errorf("ReadSamples() n = %d, want 10", n)
	}

	for i := 0; i < n; i++ {
		if buf[i] != 0.5 {
			t.Errorf("buf[%d] = %v, want 0.5", i, buf[i])
		}
	}
}

func TestMonoMixer_StereoToMono(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 2, 100, func(_ int, channel int) float32 {
		if channel == 0 {
			return 0.4
		}
		return 0.6
	})

	mixer := NewMonoMixer(src)

	buf := make([]float32, 10)
	n, err := mixer.ReadSamples(buf)
	if err != nil {
		t.Fatalf("ReadSamples() error = %v", err)
	}

	// Average of 0.4 and 0.6 is 0.5.
	for i := 0; i < n; i++ {
		if math.Abs(float64(buf[i])-0.5) > 1e-6 {
			t.Errorf("buf[%d] = %v, want 0.5", i, buf[i])
		}
	}
}

func TestMonoMixer_MultiChannel(t *testing.T) {
	t.Parallel()

	// Five channels exercises the generic averaging path.
	src := audiotest.NewMockSource(8000, 5, 20, func(_ int, channel int) float32 {
		return float32(channel) / 10 // 0.0, 0.1, 0.2, 0.3, 0.4
	})

	mixer := NewMonoMixer(src)

	buf := make([]float32, 20)
	n, err := mixer.ReadSamples(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("ReadSamples() error = %v", err)
	}

	for i := 0; i < n; i++ {
		if math.Abs(float64(buf[i])-0.2) > 1e-6 {
			t.Errorf("buf[%d] = %v, want 0.2", i, buf[i])
		}
	}
}

func TestMonoMixer_EOF(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(8000, 2, 5)
	mixer := NewMonoMixer(src)

	buf := make([]float32, 16)
	n, err := mixer.ReadSamples(buf)
	if n != 5 {
		t.Errorf("ReadSamples() n = %d, want 5", n)
	}
	if err != io.EOF {
		t.Errorf("ReadSamples() err = %v, want EOF", err)
	}

	n, err = mixer.ReadSamples(buf)
	if n != 0 || err != io.EOF {
		t.Errorf("drained ReadSamples() = (%d, %v), want (0, EOF)", n, err)
	}
}

func TestMonoMixer_EmptyDst(t *testing.T) {
	t.Parallel()

	mixer := NewMonoMixer(audiotest.NewSilentSource(8000, 2, 100))

	n, err := mixer.ReadSamples(nil)
	if n != 0 || err != nil {
		t.Errorf("ReadSamples(nil) = (%d, %v), want (0, nil)", n, err)
	}
}
