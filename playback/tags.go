// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"fmt"
	"math"
	"strconv"

	"github.com/henry-sm/ost-extender-musicbee/analysis"
)

// Tag slots holding one loop record per track. The record is flat on
// purpose: any host key/value tag facility can carry it.
const (
	SlotLoopFound   = "LOOP_FOUND"
	SlotLoopStart   = "LOOP_START"
	SlotLoopEnd     = "LOOP_END"
	SlotStartSample = "LOOP_START_SAMPLE"
	SlotEndSample   = "LOOP_END_SAMPLE"
	SlotSampleRate  = "LOOP_SAMPLE_RATE"
)

// TagStore is durable per-track key/value storage. GetTag returns the
// empty string for an absent slot. Writes become visible to other
// readers only after CommitTags.
type TagStore interface {
	GetTag(path, slot string) (string, error)
	SetTag(path, slot, value string) error
	CommitTags(path string) error
}

// LoopPoints is the playback-side view of a stored loop: where to jump
// from and to, in both seconds and exact samples.
type LoopPoints struct {
	StartSeconds float64
	EndSeconds   float64
	StartSample  int
	EndSample    int
	SampleRate   int
}

func (p LoopPoints) StartMs() int { return int(math.Round(p.StartSeconds * 1000)) }
func (p LoopPoints) EndMs() int   { return int(math.Round(p.EndSeconds * 1000)) }

// SaveLoopResult writes an analysis result into the track's tag slots
// and commits. Fallback results are stored too; the loop-found flag
// records that analysis ran, and the confidence lives with the caller,
// not the record.
func SaveLoopResult(store TagStore, path string, res *analysis.LoopResult) error {
	slots := map[string]string{
		SlotLoopFound:   "1",
		SlotLoopStart:   strconv.FormatFloat(res.LoopStart, 'f', 6, 64),
		SlotLoopEnd:     strconv.FormatFloat(res.LoopEnd, 'f', 6, 64),
		SlotStartSample: strconv.Itoa(res.LoopStartSample),
		SlotEndSample:   strconv.Itoa(res.LoopEndSample),
		SlotSampleRate:  strconv.Itoa(res.SampleRate),
	}
	for slot, value := range slots {
		if err := store.SetTag(path, slot, value); err != nil {
			return fmt.Errorf("save loop tag %s: %w", slot, err)
		}
	}
	if err := store.CommitTags(path); err != nil {
		return fmt.Errorf("commit loop tags: %w", err)
	}
	return nil
}

// LoadLoopPoints reads the track's loop record. ErrNoLoopStored means
// the track was never analyzed (not an abnormal condition); the
// monitor stays idle on it.
func LoadLoopPoints(store TagStore, path string) (LoopPoints, error) {
	found, err := store.GetTag(path, SlotLoopFound)
	if err != nil {
		return LoopPoints{}, fmt.Errorf("read loop flag: %w", err)
	}
	if found != "1" {
		return LoopPoints{}, ErrNoLoopStored
	}

	var p LoopPoints
	read := func(slot string, dst *float64) {
		if err != nil {
			return
		}
		var raw string
		if raw, err = store.GetTag(path, slot); err != nil {
			return
		}
		if *dst, err = strconv.ParseFloat(raw, 64); err != nil {
			err = fmt.Errorf("%w: slot %s: %v", ErrBadLoopRecord, slot, err)
		}
	}
	readInt := func(slot string, dst *int) {
		if err != nil {
			return
		}
		var raw string
		if raw, err = store.GetTag(path, slot); err != nil {
			return
		}
		if *dst, err = strconv.Atoi(raw); err != nil {
			err = fmt.Errorf("%w: slot %s: %v", ErrBadLoopRecord, slot, err)
		}
	}

	read(SlotLoopStart, &p.StartSeconds)
	read(SlotLoopEnd, &p.EndSeconds)
	readInt(SlotStartSample, &p.StartSample)
	readInt(SlotEndSample, &p.EndSample)
	readInt(SlotSampleRate, &p.SampleRate)
	if err != nil {
		return LoopPoints{}, err
	}

	if p.EndSeconds <= p.StartSeconds || p.StartSeconds < 0 {
		return LoopPoints{}, ErrBadLoopRecord
	}
	return p, nil
}
