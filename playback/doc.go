// SPDX-License-Identifier: EPL-2.0

// Package playback watches a host transport and keeps a looped track
// inside its loop region.
//
// The decision logic lives in Tick, a pure function from (state,
// position, clock) to (state, action). It never touches the transport
// itself; it only says what should happen. Monitor is the thin shell
// that runs Tick on a real ticker, reads the Transport, reloads stored
// loop points when the track changes, and executes the returned
// actions. Splitting the two keeps the timing-sensitive part fully
// deterministic under test.
//
// Loop points travel between analysis and playback through a TagStore,
// a flat six-slot per-track record. The store is the only shared state
// between the two sides; the monitor treats whatever it loads as
// immutable.
//
// When crossfading is enabled the seam transition is synthesized off
// the poll goroutine. A slow or failing synthesis degrades to a plain
// position jump, never to a stalled tick.
package playback
