// SPDX-License-Identifier: EPL-2.0

package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/henry-sm/ost-extender-musicbee/audio"
	"github.com/henry-sm/ost-extender-musicbee/playback"
	"github.com/henry-sm/ost-extender-musicbee/utils"
)

var (
	ErrEmptyBuffer    = errors.New("render: empty sample buffer")
	ErrLoopOutOfRange = errors.New("render: loop points outside buffer")
	ErrLoopTooShort   = errors.New("render: loop body too short to repeat")
	ErrTargetTooSmall = errors.New("render: target duration shorter than first pass")
)

// Options controls an extension render.
type Options struct {
	// TargetSeconds is the minimum duration of the result. Repeats
	// are whole loop bodies, so the output runs a little past it.
	TargetSeconds float64

	// CrossfadeMs blends each repeat seam over this many
	// milliseconds. Zero splices hard.
	CrossfadeMs int
}

// Extend builds the extended sample stream: buf[0:loopEnd] once, then
// the loop body buf[loopStart:loopEnd] repeated until TargetSeconds is
// reached. With a crossfade, each seam replaces the last CrossfadeMs
// of audio with a blend into the next repeat.
func Extend(buf *audio.Buffer, loop playback.LoopPoints, opts Options) ([]float32, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, ErrEmptyBuffer
	}

	sr := buf.SampleRate
	start, end := loop.StartSample, loop.EndSample
	if start == 0 && loop.StartSeconds > 0 {
		start = buf.SampleAt(loop.StartSeconds)
	}
	if end == 0 {
		end = buf.SampleAt(loop.EndSeconds)
	}

	if start < 0 || end > len(buf.Samples) || end <= start {
		return nil, ErrLoopOutOfRange
	}

	body := buf.Samples[start:end]
	fade := opts.CrossfadeMs * sr / 1000
	if len(body) <= fade*2 {
		return nil, ErrLoopTooShort
	}

	targetSamples := int(opts.TargetSeconds * float64(sr))
	if targetSamples < end {
		return nil, ErrTargetTooSmall
	}

	// One seam clip serves every junction: the material on both sides
	// of each seam is identical across repeats.
	var seam []float32
	var headOffset int
	if fade > 0 {
		var err error
		seam, headOffset, err = playback.SynthesizeCrossfade(buf, loop, opts.CrossfadeMs)
		if err != nil {
			// Degraded render, not a failed one.
			seam, headOffset = nil, 0
			fade = 0
		}
	}

	out := make([]float32, 0, targetSamples+len(body))
	out = append(out, buf.Samples[:end]...)

	for len(out) < targetSamples {
		if fade > 0 {
			out = append(out[:len(out)-fade], seam...)
			out = append(out, body[fade+headOffset:]...)
		} else {
			out = append(out, body...)
		}
	}
	return out, nil
}

// OutputPath is the conventional destination for an extended render:
// the source path with an _extended suffix and a .wav extension.
func OutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + "_extended.wav"
}

// WriteFile writes mono samples as a 16-bit PCM WAV file.
func WriteFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := gowav.NewEncoder(f, sampleRate, 16, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(utils.Float32ToInt16(s))
	}

	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(ib); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return f.Close()
}

// ExtendToFile renders and writes in one step, returning the output
// path.
func ExtendToFile(buf *audio.Buffer, loop playback.LoopPoints, opts Options, inputPath string) (string, error) {
	samples, err := Extend(buf, loop, opts)
	if err != nil {
		return "", err
	}
	out := OutputPath(inputPath)
	if err := WriteFile(out, samples, buf.SampleRate); err != nil {
		return "", err
	}
	return out, nil
}
