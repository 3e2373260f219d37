// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and writes 16-bit PCM RIFF/WAVE streams.
//
// The decoder is a streaming implementation: it parses the chunk list
// up to the data chunk and then converts int16 frames on demand, so
// long tracks never need to be buffered as bytes. Unknown chunks
// (LIST, fact, cue) are skipped.
//
//	src, err := wav.Decoder{}.Decode(file)
//
// WriteWAV16 is the matching writer for rendered clips. Only 16-bit
// PCM is handled; compressed WAV variants return
// ErrOnlyPCM16bitSupported.
package wav
