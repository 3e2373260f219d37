// SPDX-License-Identifier: EPL-2.0

// Package render writes extended versions of looped tracks: the track
// plays through its first loop pass once, then the loop body repeats
// until a target duration is reached. Seams between repeats can be
// blended with the playback crossfade so the repeats splice cleanly.
//
// Output is 16-bit PCM WAV written with github.com/go-audio/wav.
package render
