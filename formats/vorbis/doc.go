// SPDX-License-Identifier: EPL-2.0

// Package vorbis wraps jfreymuth/oggvorbis behind the audio.Source
// interface. The decoder already yields float32 frames, so conversion
// is a straight copy.
package vorbis
