// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"
)

func testLoop() LoopPoints {
	return LoopPoints{
		StartSeconds: 10,
		EndSeconds:   30,
		StartSample:  10 * 44100,
		EndSample:    30 * 44100,
		SampleRate:   44100,
	}
}

func armedState() State {
	return State{Loop: testLoop(), HasLoop: true}
}

func TestTick_ExactlyOneJump(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	state := armedState()
	now := time.Unix(0, 0)
	step := 75 * time.Millisecond

	// Walk playback from well before the loop end to just past it,
	// seeking back to the jump target whenever a jump fires, like a
	// real transport would.
	pos := 28_000
	var jumps []int
	for i := 0; i < 100; i++ {
		var action Action
		state, action = Tick(state, pos, now, cfg)
		if action.Kind != ActionNone {
			jumps = append(jumps, action.ToMs)
			pos = action.ToMs
		}
		pos += 75
		now = now.Add(step)
	}

	if len(jumps) != 1 {
		t.Fatalf("got %d jumps (%v), want exactly 1", len(jumps), jumps)
	}
	if jumps[0] != testLoop().StartMs() {
		t.Errorf("jump target = %d ms, want %d ms", jumps[0], testLoop().StartMs())
	}
}

func TestTick_TriggersInsideTightWindow(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	loop := testLoop()
	now := time.Unix(0, 0)

	state, action := Tick(armedState(), loop.EndMs()-200, now, cfg)
	if action.Kind != ActionNone {
		t.Fatalf("triggered %d ms early", 200)
	}
	if state.Phase != PhaseApproaching {
		t.Fatalf("Phase = %v, want approaching inside the buffer", state.Phase)
	}

	state, action = Tick(state, loop.EndMs()-5, now.Add(time.Millisecond), cfg)
	if action.Kind != ActionJump {
		t.Errorf("action = %v, want jump inside the tight window", action.Kind)
	}
	if state.Phase != PhaseIdle {
		t.Errorf("Phase = %v after jump, want idle", state.Phase)
	}
}

func TestTick_OvershootSafetyJump(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	loop := testLoop()

	// A missed poll: the position shows up two seconds past the loop
	// end with the machine still idle.
	_, action := Tick(armedState(), loop.EndMs()+2000, time.Unix(0, 0), cfg)
	if action.Kind != ActionJump {
		t.Fatalf("action = %v, want safety jump", action.Kind)
	}
	if action.ToMs != loop.StartMs() {
		t.Errorf("safety jump to %d ms, want %d ms", action.ToMs, loop.StartMs())
	}
}

func TestTick_CooldownSuppressesDoubleTrigger(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	loop := testLoop()
	now := time.Unix(100, 0)

	state, action := Tick(armedState(), loop.EndMs()-5, now, cfg)
	if action.Kind != ActionJump {
		t.Fatal("first trigger missing")
	}

	// Jittered poll still reports a position near the end shortly
	// after the jump.
	state, action = Tick(state, loop.EndMs()-5, now.Add(100*time.Millisecond), cfg)
	if action.Kind != ActionNone {
		t.Errorf("double trigger %v inside cooldown", action.Kind)
	}

	// Past the cooldown the machine is live again.
	state, action = Tick(state, loop.EndMs()-5, now.Add(time.Duration(cfg.CooldownMs+100)*time.Millisecond), cfg)
	if action.Kind != ActionJump {
		t.Errorf("action = %v after cooldown, want jump", action.Kind)
	}
	_ = state
}

func TestTick_NoLoopStaysIdle(t *testing.T) {
	t.Parallel()

	state, action := Tick(State{}, 1_000_000, time.Unix(0, 0), DefaultConfig())
	if action.Kind != ActionNone || state.Phase != PhaseIdle {
		t.Errorf("unarmed tick produced %v / %v", action.Kind, state.Phase)
	}
}

func TestTick_SeekAwayDisarms(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	loop := testLoop()
	now := time.Unix(0, 0)

	state, _ := Tick(armedState(), loop.EndMs()-200, now, cfg)
	if state.Phase != PhaseApproaching {
		t.Fatal("not armed")
	}

	// User seeks back to the middle of the track.
	state, action := Tick(state, 5_000, now.Add(time.Millisecond), cfg)
	if state.Phase != PhaseIdle || action.Kind != ActionNone {
		t.Errorf("seek away left Phase=%v action=%v", state.Phase, action.Kind)
	}
}

func TestTick_CrossfadeWhenEnabled(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CrossfadeEnabled = true
	loop := testLoop()

	state := armedState()
	state.Phase = PhaseApproaching
	_, action := Tick(state, loop.EndMs()-5, time.Unix(0, 0), cfg)
	if action.Kind != ActionCrossfade {
		t.Errorf("action = %v, want crossfade", action.Kind)
	}
}

func TestTightBufferMs(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig() // 1024 samples
	cases := []struct {
		sampleRate int
		want       int
	}{
		{44100, 23},
		{8000, 50},  // 128 ms clamps down
		{96000, 10}, // 10.6 ms clamps up
		{0, 50},     // unknown rate: widest window
	}
	for _, tc := range cases {
		got := tightBufferMs(LoopPoints{SampleRate: tc.sampleRate}, cfg)
		if got != tc.want {
			t.Errorf("tightBufferMs(rate=%d) = %d, want %d", tc.sampleRate, got, tc.want)
		}
	}
}

// fakeTransport records every call; channels let tests wait for the
// async crossfade goroutine.
type fakeTransport struct {
	mu     sync.Mutex
	pos    int
	state  PlayState
	panics bool

	jumps  []int
	queued []string
	jumped chan int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{state: StatePlaying, jumped: make(chan int, 8)}
}

func (f *fakeTransport) PositionMs() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("transport gone")
	}
	return f.pos, nil
}

func (f *fakeTransport) SetPositionMs(ms int) error {
	f.mu.Lock()
	f.jumps = append(f.jumps, ms)
	f.pos = ms
	f.mu.Unlock()
	f.jumped <- ms
	return nil
}

func (f *fakeTransport) PlayState() PlayState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) QueueAndPlay(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, path)
	return nil
}

func (f *fakeTransport) setPos(ms int) {
	f.mu.Lock()
	f.pos = ms
	f.mu.Unlock()
}

// memStore is an in-memory TagStore.
type memStore struct {
	tags    map[string]map[string]string
	commits int
}

func newMemStore() *memStore {
	return &memStore{tags: map[string]map[string]string{}}
}

func (m *memStore) GetTag(path, slot string) (string, error) {
	return m.tags[path][slot], nil
}

func (m *memStore) SetTag(path, slot, value string) error {
	if m.tags[path] == nil {
		m.tags[path] = map[string]string{}
	}
	m.tags[path][slot] = value
	return nil
}

func (m *memStore) CommitTags(string) error {
	m.commits++
	return nil
}

func storeLoop(t *testing.T, store TagStore, path string, loop LoopPoints) {
	t.Helper()
	set := func(slot, v string) {
		if err := store.SetTag(path, slot, v); err != nil {
			t.Fatalf("SetTag(%s): %v", slot, err)
		}
	}
	set(SlotLoopFound, "1")
	set(SlotLoopStart, fmt.Sprintf("%.6f", loop.StartSeconds))
	set(SlotLoopEnd, fmt.Sprintf("%.6f", loop.EndSeconds))
	set(SlotStartSample, strconv.Itoa(loop.StartSample))
	set(SlotEndSample, strconv.Itoa(loop.EndSample))
	set(SlotSampleRate, strconv.Itoa(loop.SampleRate))
}

func TestMonitor_TrackChangeReloads(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	store := newMemStore()
	storeLoop(t, store, "a.wav", testLoop())

	current := "a.wav"
	m := NewMonitor(tr, store, func() string { return current }, DefaultConfig())

	m.poll()
	if !m.state.HasLoop {
		t.Fatal("loop not armed for tagged track")
	}

	current = "b.wav" // no stored loop
	m.poll()
	if m.state.HasLoop {
		t.Error("loop still armed after switching to untagged track")
	}
	if m.lastTrack != "b.wav" {
		t.Errorf("lastTrack = %q, want b.wav", m.lastTrack)
	}
}

func TestMonitor_JumpsAtLoopEnd(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	store := newMemStore()
	storeLoop(t, store, "a.wav", testLoop())

	clock := time.Unix(0, 0)
	m := NewMonitor(tr, store, func() string { return "a.wav" }, DefaultConfig(),
		withClock(func() time.Time { return clock }))

	tr.setPos(testLoop().EndMs() - 5)
	m.poll() // arms and triggers in one observation

	select {
	case to := <-tr.jumped:
		if to != testLoop().StartMs() {
			t.Errorf("jumped to %d ms, want %d ms", to, testLoop().StartMs())
		}
	default:
		t.Fatal("no jump executed")
	}
}

func TestMonitor_PausedTransportDisarms(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	store := newMemStore()
	storeLoop(t, store, "a.wav", testLoop())

	m := NewMonitor(tr, store, func() string { return "a.wav" }, DefaultConfig())

	tr.setPos(testLoop().EndMs() - 200)
	m.poll()
	if m.state.Phase != PhaseApproaching {
		t.Fatal("not armed")
	}

	tr.mu.Lock()
	tr.state = StateOther
	tr.mu.Unlock()

	m.poll()
	if m.state.Phase != PhaseIdle {
		t.Errorf("Phase = %v while paused, want idle", m.state.Phase)
	}
	if len(tr.jumps) != 0 {
		t.Errorf("jumped while paused: %v", tr.jumps)
	}
}

func TestMonitor_TickPanicResetsTrack(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	store := newMemStore()
	storeLoop(t, store, "a.wav", testLoop())

	m := NewMonitor(tr, store, func() string { return "a.wav" }, DefaultConfig())

	m.poll()
	if m.lastTrack != "a.wav" {
		t.Fatal("track not cached")
	}

	tr.mu.Lock()
	tr.panics = true
	tr.mu.Unlock()

	m.poll() // must not propagate the panic
	if m.lastTrack != "" {
		t.Errorf("lastTrack = %q after panic, want cleared", m.lastTrack)
	}

	tr.mu.Lock()
	tr.panics = false
	tr.mu.Unlock()

	m.poll()
	if !m.state.HasLoop {
		t.Error("loop not re-armed after recovery")
	}
}

func TestMonitor_CrossfadeFallsBackToJump(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	store := newMemStore()
	storeLoop(t, store, "a.wav", testLoop())

	cfg := DefaultConfig()
	cfg.CrossfadeEnabled = true

	synthErr := errors.New("no samples")
	m := NewMonitor(tr, store, func() string { return "a.wav" }, cfg,
		WithCrossfade(func(_ context.Context, _ string, _ LoopPoints, _ Config) (string, error) {
			return "", synthErr
		}))

	tr.setPos(testLoop().EndMs() - 5)
	m.poll()

	select {
	case to := <-tr.jumped:
		if to != testLoop().StartMs() {
			t.Errorf("fallback jump to %d ms, want %d ms", to, testLoop().StartMs())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("crossfade failure did not fall back to a jump")
	}
	if len(tr.queued) != 0 {
		t.Errorf("queued clips despite synth error: %v", tr.queued)
	}
}

func TestMonitor_CrossfadeQueuesClip(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	store := newMemStore()
	storeLoop(t, store, "a.wav", testLoop())

	cfg := DefaultConfig()
	cfg.CrossfadeEnabled = true

	m := NewMonitor(tr, store, func() string { return "a.wav" }, cfg,
		WithCrossfade(func(_ context.Context, track string, _ LoopPoints, _ Config) (string, error) {
			return track + ".seam.wav", nil
		}))

	tr.setPos(testLoop().EndMs() - 5)
	m.poll()

	select {
	case to := <-tr.jumped:
		want := testLoop().StartMs() + cfg.CrossfadeMs
		if to != want {
			t.Errorf("post-crossfade jump to %d ms, want %d ms", to, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("crossfade path never completed")
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.queued) != 1 || tr.queued[0] != "a.wav.seam.wav" {
		t.Errorf("queued = %v, want the synthesized clip", tr.queued)
	}
}

func TestMonitor_StartStop(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	store := newMemStore()

	cfg := DefaultConfig()
	cfg.PollInterval = time.Millisecond

	m := NewMonitor(tr, store, func() string { return "" }, cfg)
	m.Start()
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	m.Stop() // idempotent
}
