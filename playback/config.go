// SPDX-License-Identifier: EPL-2.0

package playback

import "time"

// Config carries the monitor's timing constants. The defaults come
// from listening tests; everything is adjustable because none of the
// values is derived from first principles.
type Config struct {
	// PollInterval is how often the monitor samples the transport
	// position.
	PollInterval time.Duration

	// ApproachBufferMs is how far before the loop end the monitor
	// arms itself.
	ApproachBufferMs int

	// TightBufferSamples sets the trigger precision window as a
	// sample count; it is divided by the track's sample rate and
	// clamped to [10 ms, 50 ms] so the window tracks the material's
	// resolution without collapsing below poll jitter.
	TightBufferSamples int

	// OvershootSlackMs is the furthest past the loop end a position
	// may be observed before the monitor forces a corrective jump
	// regardless of phase. Covers missed polls.
	OvershootSlackMs int

	// CooldownMs suppresses a second trigger right after a jump.
	CooldownMs int

	// CrossfadeEnabled selects a synthesized seam over a hard jump.
	CrossfadeEnabled bool

	// CrossfadeMs is the blended seam length.
	CrossfadeMs int

	// CrossfadeTimeout bounds how long the monitor waits for seam
	// synthesis before falling back to a hard jump.
	CrossfadeTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval:       75 * time.Millisecond,
		ApproachBufferMs:   500,
		TightBufferSamples: 1024,
		OvershootSlackMs:   500,
		CooldownMs:         500,
		CrossfadeEnabled:   false,
		CrossfadeMs:        40,
		CrossfadeTimeout:   250 * time.Millisecond,
	}
}
