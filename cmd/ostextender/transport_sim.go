// SPDX-License-Identifier: EPL-2.0

package main

import (
	"sync"
	"time"

	"github.com/henry-sm/ost-extender-musicbee/playback"
)

// simTransport advances a playback position from the wall clock, sped
// up so a full loop pass takes seconds instead of minutes. Seeks reset
// the clock base, exactly like a real player.
type simTransport struct {
	mu     sync.Mutex
	start  time.Time
	baseMs int
	speed  float64
	onJump func(toMs int)
}

func newSimTransport(speed float64) *simTransport {
	if speed <= 0 {
		speed = 1
	}
	return &simTransport{start: time.Now(), speed: speed}
}

func (t *simTransport) PositionMs() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	elapsed := time.Since(t.start).Seconds() * 1000 * t.speed
	return t.baseMs + int(elapsed), nil
}

func (t *simTransport) SetPositionMs(ms int) error {
	t.mu.Lock()
	t.baseMs = ms
	t.start = time.Now()
	cb := t.onJump
	t.mu.Unlock()
	if cb != nil {
		cb(ms)
	}
	return nil
}

func (t *simTransport) PlayState() playback.PlayState {
	return playback.StatePlaying
}

func (t *simTransport) QueueAndPlay(string) error { return nil }
