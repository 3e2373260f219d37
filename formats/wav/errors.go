// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile            = errors.New("not a RIFF/WAVE stream")
	ErrUnsupportedWavLayout  = errors.New("unsupported wav chunk layout")
	ErrOnlyPCM16bitSupported = errors.New("only 16-bit PCM wav is supported")
	ErrUnsupportedWavChunks  = errors.New("no data chunk found")
)
