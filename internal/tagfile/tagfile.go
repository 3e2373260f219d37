// SPDX-License-Identifier: EPL-2.0

// Package tagfile stores per-track tags in a sidecar file next to the
// audio: <track>.loop, one KEY=VALUE pair per line. It stands in for a
// host player's tag database when running from the command line.
package tagfile

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Store implements the playback tag contract over sidecar files.
// Writes stage in memory and hit disk on CommitTags, mirroring
// commit-style tag APIs. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	pending map[string]map[string]string
}

func NewStore() *Store {
	return &Store{pending: map[string]map[string]string{}}
}

func sidecarPath(trackPath string) string {
	return trackPath + ".loop"
}

// GetTag reads a slot, preferring a staged but uncommitted value.
// Absent slots and absent sidecar files both read as the empty string.
func (s *Store) GetTag(path, slot string) (string, error) {
	s.mu.Lock()
	if staged, ok := s.pending[path][slot]; ok {
		s.mu.Unlock()
		return staged, nil
	}
	s.mu.Unlock()

	tags, err := readSidecar(sidecarPath(path))
	if err != nil {
		return "", err
	}
	return tags[slot], nil
}

// SetTag stages a slot value for the track.
func (s *Store) SetTag(path, slot, value string) error {
	if strings.ContainsAny(slot, "=\n") || strings.Contains(value, "\n") {
		return fmt.Errorf("tagfile: invalid slot or value for %s", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[path] == nil {
		s.pending[path] = map[string]string{}
	}
	s.pending[path][slot] = value
	return nil
}

// CommitTags merges staged values into the sidecar file and clears the
// staging area. The file is replaced atomically.
func (s *Store) CommitTags(path string) error {
	s.mu.Lock()
	staged := s.pending[path]
	delete(s.pending, path)
	s.mu.Unlock()

	if len(staged) == 0 {
		return nil
	}

	side := sidecarPath(path)
	tags, err := readSidecar(side)
	if err != nil {
		return err
	}
	for slot, value := range staged {
		tags[slot] = value
	}

	tmp := side + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("tagfile: %w", err)
	}

	slots := make([]string, 0, len(tags))
	for slot := range tags {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	w := bufio.NewWriter(f)
	for _, slot := range slots {
		fmt.Fprintf(w, "%s=%s\n", slot, tags[slot])
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("tagfile: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("tagfile: %w", err)
	}
	if err := os.Rename(tmp, side); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("tagfile: %w", err)
	}
	return nil
}

func readSidecar(path string) (map[string]string, error) {
	tags := map[string]string{}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tags, nil
		}
		return nil, fmt.Errorf("tagfile: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		slot, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		tags[slot] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tagfile: %w", err)
	}
	return tags, nil
}
