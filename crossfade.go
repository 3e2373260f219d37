// SPDX-License-Identifier: EPL-2.0

package ostextender

import (
	"context"
	"fmt"
	"os"

	"github.com/henry-sm/ost-extender-musicbee/playback"
)

// CrossfadeSynthesizer returns the seam synthesizer wired for files:
// decode the track, blend the loop seam, and write the clip to a
// temporary WAV the host can queue. Errors surface to the monitor,
// which falls back to a hard jump.
func CrossfadeSynthesizer() playback.CrossfadeFunc {
	return func(ctx context.Context, trackPath string, loop playback.LoopPoints, cfg playback.Config) (string, error) {
		buf, err := DecodeFile(trackPath, 0, 0)
		if err != nil {
			return "", err
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		// Stored sample indices belong to the analysis rate; rebuild
		// them against the native-rate buffer.
		native := playback.LoopPoints{
			StartSeconds: loop.StartSeconds,
			EndSeconds:   loop.EndSeconds,
			StartSample:  buf.SampleAt(loop.StartSeconds),
			EndSample:    buf.SampleAt(loop.EndSeconds),
			SampleRate:   buf.SampleRate,
		}

		samples, _, err := playback.SynthesizeCrossfade(buf, native, cfg.CrossfadeMs)
		if err != nil {
			return "", err
		}

		f, err := os.CreateTemp("", "ostextender-seam-*.wav")
		if err != nil {
			return "", fmt.Errorf("seam clip: %w", err)
		}
		if err := playback.WriteCrossfadeWAV(f, samples, buf.SampleRate); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", err
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return "", err
		}
		return f.Name(), nil
	}
}
