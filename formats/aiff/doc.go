// SPDX-License-Identifier: EPL-2.0

// Package aiff wraps go-audio/aiff behind the audio.Source interface.
// Only 16-bit PCM files are supported; non-seekable input is buffered
// in memory because the underlying decoder needs to seek.
package aiff
