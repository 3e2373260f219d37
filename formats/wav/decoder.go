package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/henry-sm/ost-extender-musicbee/audio"
)

type wavSource struct {
	r          io.Reader
	sampleRate int
	channels   int
	// assume PCM 16-bit
	buf []byte
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) Close() error    { return nil }
func (s *wavSource) BufSize() int    { return cap(s.buf) / 2 }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	// Read interleaved int16 frames and convert to float32.
	if len(s.buf) < len(dst)*2 {
		s.buf = make([]byte, len(dst)*2)
	}
	n, err := io.ReadFull(s.r, s.buf[:len(dst)*2])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("%w", err)
	}

	samples := n / 2

	for i := 0; i < samples; i++ {
		v := int16(binary.LittleEndian.Uint16(s.buf[2*i : 2*i+2]))
		dst[i] = float32(v) / 32768.0
	}

	if samples == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
		return 0, io.EOF
	}
	return samples, nil
}

type Decoder struct{}

// Decode parses a RIFF/WAVE stream and returns a Source positioned at
// the start of the sample data. Chunks between "fmt " and "data"
// (LIST, fact, cue) are skipped, so files from common editors decode
// as well as canonical 44-byte-header files.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	riff := make([]byte, 12)
	if _, err := io.ReadFull(r, riff); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	if !bytes.Equal(riff[:4], []byte("RIFF")) || !bytes.Equal(riff[8:12], []byte("WAVE")) {
		return nil, ErrNotWavFile
	}

	var (
		sampleRate int
		channels   int
		haveFmt    bool
		chunkHdr   = make([]byte, 8)
	)

	for {
		if _, err := io.ReadFull(r, chunkHdr); err != nil {
			return nil, ErrUnsupportedWavChunks
		}
		size := binary.LittleEndian.Uint32(chunkHdr[4:8])

		switch {
		case bytes.Equal(chunkHdr[:4], []byte("fmt ")):
			if size < 16 {
				return nil, ErrUnsupportedWavLayout
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("%w", err)
			}

			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample := int(binary.LittleEndian.Uint16(body[14:16]))

			if audioFormat != 1 || bitsPerSample != 16 {
				return nil, ErrOnlyPCM16bitSupported
			}
			haveFmt = true

		case bytes.Equal(chunkHdr[:4], []byte("data")):
			if !haveFmt {
				return nil, ErrUnsupportedWavLayout
			}
			return &wavSource{
				r:          io.LimitReader(r, int64(size)),
				sampleRate: sampleRate,
				channels:   channels,
				buf:        make([]byte, 4096),
			}, nil

		default:
			// Skip unknown chunk (word-aligned).
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("%w", err)
			}
		}
	}
}
