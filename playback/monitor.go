// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"context"
	"sync"
	"time"
)

// Phase is where the state machine is relative to the loop end.
type Phase int

const (
	// PhaseIdle: no loop armed, or playback is far from the loop end.
	PhaseIdle Phase = iota
	// PhaseApproaching: position is within the approach buffer of the
	// loop end; the next tick inside the tight window triggers.
	PhaseApproaching
)

func (p Phase) String() string {
	if p == PhaseApproaching {
		return "approaching"
	}
	return "idle"
}

// State is the loop monitor's entire mutable state, passed in and out
// of Tick by value. Keeping it a value means a tick can be replayed or
// simulated without a clock or a transport.
type State struct {
	Phase    Phase
	Loop     LoopPoints
	HasLoop  bool
	LastJump time.Time
}

// ActionKind tags what a tick decided.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionJump
	ActionCrossfade
)

// Action is Tick's output: what the caller should do to the transport.
// ToMs is the jump target for both Jump and Crossfade; a crossfade
// that cannot be synthesized in time degrades to Jump(ToMs).
type Action struct {
	Kind ActionKind
	ToMs int
}

// tightBufferMs converts the configured sample window to milliseconds
// for this track, clamped so it neither exceeds the approach buffer's
// usefulness nor shrinks below poll jitter.
func tightBufferMs(loop LoopPoints, cfg Config) int {
	if loop.SampleRate <= 0 {
		return 50
	}
	ms := cfg.TightBufferSamples * 1000 / loop.SampleRate
	if ms < 10 {
		return 10
	}
	if ms > 50 {
		return 50
	}
	return ms
}

// Tick advances the state machine by one observation of the transport
// position. Pure: no clock reads, no transport calls, no logging.
//
// Trigger rules, in priority order:
//  1. within the jump cooldown, do nothing
//  2. past the loop end by more than the overshoot slack, jump
//     immediately whatever the phase (recovers missed polls)
//  3. inside the approach buffer, arm; inside the tight window while
//     armed, trigger a jump or crossfade
//
// Arming and triggering can happen on the same tick, so a large poll
// step that lands straight inside the tight window still triggers.
func Tick(s State, positionMs int, now time.Time, cfg Config) (State, Action) {
	if !s.HasLoop {
		s.Phase = PhaseIdle
		return s, Action{}
	}

	if !s.LastJump.IsZero() && now.Sub(s.LastJump) < time.Duration(cfg.CooldownMs)*time.Millisecond {
		return s, Action{}
	}

	endMs := s.Loop.EndMs()
	startMs := s.Loop.StartMs()

	if positionMs > endMs+cfg.OvershootSlackMs {
		s.Phase = PhaseIdle
		s.LastJump = now
		return s, Action{Kind: ActionJump, ToMs: startMs}
	}

	if s.Phase == PhaseIdle && positionMs >= endMs-cfg.ApproachBufferMs {
		s.Phase = PhaseApproaching
	}

	if s.Phase == PhaseApproaching {
		if positionMs < endMs-cfg.ApproachBufferMs {
			// Seeked back out of the window.
			s.Phase = PhaseIdle
			return s, Action{}
		}
		if positionMs >= endMs-tightBufferMs(s.Loop, cfg) {
			s.Phase = PhaseIdle
			s.LastJump = now
			kind := ActionJump
			if cfg.CrossfadeEnabled {
				kind = ActionCrossfade
			}
			return s, Action{Kind: kind, ToMs: startMs}
		}
	}

	return s, Action{}
}

// CrossfadeFunc synthesizes a seam clip for the given track and
// returns a path the transport can queue. Implementations load the
// track audio themselves; the monitor only hands over the loop record.
type CrossfadeFunc func(ctx context.Context, trackPath string, loop LoopPoints, cfg Config) (clipPath string, err error)

// Monitor polls a Transport and executes Tick's decisions. One
// goroutine owns the State; nothing else reads or writes it.
type Monitor struct {
	transport Transport
	tags      TagStore
	track     func() string
	cfg       Config

	synth CrossfadeFunc
	logf  func(format string, args ...any)
	now   func() time.Time

	state     State
	lastTrack string

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithCrossfade supplies the seam synthesizer used when the config
// enables crossfading.
func WithCrossfade(fn CrossfadeFunc) MonitorOption {
	return func(m *Monitor) { m.synth = fn }
}

// WithLogf routes the monitor's diagnostics. Default is silent.
func WithLogf(logf func(format string, args ...any)) MonitorOption {
	return func(m *Monitor) { m.logf = logf }
}

// withClock overrides the wall clock in tests.
func withClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor builds a monitor over the given transport and tag store.
// track reports the host's current track path; an empty string means
// nothing is loaded.
func NewMonitor(t Transport, tags TagStore, track func() string, cfg Config, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		transport: t,
		tags:      tags,
		track:     track,
		cfg:       cfg,
		logf:      func(string, ...any) {},
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the poll goroutine. Call Stop to end it.
func (m *Monitor) Start() {
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.poll()
			}
		}
	}()
}

// Stop ends the poll goroutine and waits for it to exit. Safe to call
// more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

// poll runs one tick against the live transport. A panic anywhere in
// the tick is swallowed and clears the cached track identity, so the
// next poll starts from a clean reload; the host's playback must never
// be taken down by the monitor.
func (m *Monitor) poll() {
	defer func() {
		if r := recover(); r != nil {
			m.logf("loop monitor: tick panic: %v", r)
			m.lastTrack = ""
			m.state = State{}
		}
	}()

	track := m.track()
	if track != m.lastTrack {
		m.reload(track)
	}
	if !m.state.HasLoop {
		return
	}

	if m.transport.PlayState() != StatePlaying {
		m.state.Phase = PhaseIdle
		return
	}

	pos, err := m.transport.PositionMs()
	if err != nil {
		m.logf("loop monitor: read position: %v", err)
		return
	}

	var action Action
	m.state, action = Tick(m.state, pos, m.now(), m.cfg)

	switch action.Kind {
	case ActionJump:
		m.jump(action.ToMs)
	case ActionCrossfade:
		m.dispatchCrossfade(track, action.ToMs)
	}
}

// reload swaps in the loop record for a new track, or disarms if the
// track has none.
func (m *Monitor) reload(track string) {
	m.lastTrack = track
	m.state = State{}
	if track == "" {
		return
	}

	loop, err := LoadLoopPoints(m.tags, track)
	if err != nil {
		if err != ErrNoLoopStored {
			m.logf("loop monitor: load loop for %s: %v", track, err)
		}
		return
	}
	m.state.Loop = loop
	m.state.HasLoop = true
	m.logf("loop monitor: armed %s [%0.3f s .. %0.3f s]", track, loop.StartSeconds, loop.EndSeconds)
}

func (m *Monitor) jump(toMs int) {
	if err := m.transport.SetPositionMs(toMs); err != nil {
		m.logf("loop monitor: jump to %d ms: %v", toMs, err)
	}
}

// dispatchCrossfade synthesizes the seam clip off the poll goroutine.
// If the synthesizer is missing, slow, or failing, the transition
// degrades to the plain jump; the seam is then audible but playback
// still loops.
func (m *Monitor) dispatchCrossfade(track string, toMs int) {
	if m.synth == nil {
		m.jump(toMs)
		return
	}

	loop := m.state.Loop
	cfg := m.cfg
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.CrossfadeTimeout)
		defer cancel()

		clip, err := m.synth(ctx, track, loop, cfg)
		if err != nil {
			m.logf("loop monitor: crossfade failed, jumping: %v", err)
			m.jump(toMs)
			return
		}
		if err := m.transport.QueueAndPlay(clip); err != nil {
			m.logf("loop monitor: queue crossfade clip: %v", err)
			m.jump(toMs)
			return
		}
		// The clip covers the seam; land playback just past it.
		m.jump(toMs + cfg.CrossfadeMs)
	}()
}
