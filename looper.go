// SPDX-License-Identifier: EPL-2.0

package ostextender

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/henry-sm/ost-extender-musicbee/analysis"
	"github.com/henry-sm/ost-extender-musicbee/audio"
	"github.com/henry-sm/ost-extender-musicbee/formats/aiff"
	"github.com/henry-sm/ost-extender-musicbee/formats/mp3"
	"github.com/henry-sm/ost-extender-musicbee/formats/vorbis"
	"github.com/henry-sm/ost-extender-musicbee/formats/wav"
)

// ErrUnsupportedFormat means no decoder is registered for the file's
// extension.
var ErrUnsupportedFormat = errors.New("ostextender: unsupported audio format")

// DefaultRegistry returns a decoder registry covering every format
// this module ships: wav, mp3, ogg and aiff (plus aif as an alias).
func DefaultRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	return reg
}

// DecodeFile decodes an audio file into a mono Buffer at targetRate.
// maxSeconds > 0 caps how much audio is decoded. The decoder is picked
// from DefaultRegistry by file extension.
func DecodeFile(path string, targetRate int, maxSeconds float64) (*audio.Buffer, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	dec, ok := DefaultRegistry().Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer src.Close()

	return audio.CollectMono(src, targetRate, maxSeconds)
}

// FindLoop runs the full detection pipeline over an already-decoded
// source: resample to the analysis rate, mix to mono, analyze.
func FindLoop(ctx context.Context, src audio.Source, cfg analysis.Config, progress analysis.ProgressFunc) (*analysis.LoopResult, error) {
	buf, err := audio.CollectMono(src, cfg.AnalysisRate, cfg.MaxAnalysisSeconds)
	if err != nil {
		return nil, err
	}
	return analysis.NewAnalyzer(cfg).Analyze(ctx, buf, progress)
}

// AnalyzeFile is the one-call path from an audio file to loop points:
// decode a bounded mono prefix at the analysis rate and run the
// pipeline on it.
func AnalyzeFile(ctx context.Context, path string, cfg analysis.Config, progress analysis.ProgressFunc) (*analysis.LoopResult, error) {
	buf, err := DecodeFile(path, cfg.AnalysisRate, cfg.MaxAnalysisSeconds)
	if err != nil {
		return nil, err
	}
	return analysis.NewAnalyzer(cfg).Analyze(ctx, buf, progress)
}
