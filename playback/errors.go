// SPDX-License-Identifier: EPL-2.0

package playback

import "errors"

var (
	// ErrNoLoopStored means the tag store has no loop record for the
	// track (or the loop-found flag is unset).
	ErrNoLoopStored = errors.New("playback: no loop points stored for track")

	// ErrBadLoopRecord means the stored slots exist but do not parse
	// into a usable loop.
	ErrBadLoopRecord = errors.New("playback: stored loop record is malformed")

	// ErrCrossfadeBounds means the requested fade window falls outside
	// the sample buffer.
	ErrCrossfadeBounds = errors.New("playback: crossfade window outside buffer")
)
