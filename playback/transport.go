// SPDX-License-Identifier: EPL-2.0

package playback

// PlayState is the host transport's coarse state. The monitor only
// needs to know whether audible playback is advancing.
type PlayState int

const (
	StateOther PlayState = iota
	StatePlaying
)

func (s PlayState) String() string {
	if s == StatePlaying {
		return "playing"
	}
	return "other"
}

// Transport is the control surface the monitor drives. Implementations
// wrap a real audio host; tests use an in-memory fake. Methods must be
// safe to call from the monitor goroutine and from the crossfade
// dispatch goroutine.
type Transport interface {
	// PositionMs reports the current playback position.
	PositionMs() (int, error)

	// SetPositionMs seeks within the current track.
	SetPositionMs(ms int) error

	// PlayState reports whether the transport is actively playing.
	PlayState() PlayState

	// QueueAndPlay asks the host to play the file next.
	QueueAndPlay(path string) error
}
