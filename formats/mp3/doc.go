// SPDX-License-Identifier: EPL-2.0

// Package mp3 wraps hajimehoshi/go-mp3 behind the audio.Source
// interface. Output is always interleaved stereo; downstream stages
// mix to mono as needed.
package mp3
