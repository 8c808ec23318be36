package segment

import (
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"sync"
	"time"
)

const StatisticsFile = "statistics.txt"

// Stats accumulates per speaker totals. It is safe for concurrent use.
type Stats struct {
	mu       sync.Mutex
	found    int
	skipped  int
	speakers map[string]time.Duration
}

func newStats(found int) *Stats {
	return &Stats{found: found, speakers: make(map[string]time.Duration)}
}

func (s *Stats) add(speaker string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speakers[speaker] += d
}

func (s *Stats) skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped++
}

// Found is the number of recordings found in the source tree.
func (s *Stats) Found() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.found
}

func (s *Stats) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Speakers returns the speakers with at least one probed recording, sorted.
func (s *Stats) Speakers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.speakers))
}

func (s *Stats) Total(speaker string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speakers[speaker]
}

func (s *Stats) Overall() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.speakers {
		total += d
	}
	return total
}

func (s *Stats) Write(w io.Writer) error {
	speakers := s.Speakers()
	lines := []string{
		fmt.Sprintf("Number of WAV files found: %d", s.Found()),
		fmt.Sprintf("Number of WAV files skipped: %d", s.Skipped()),
		fmt.Sprintf("Number of unique singers found: %d", len(speakers)),
		fmt.Sprintf("Overall length of data: %d seconds", roundSeconds(s.Overall())),
		"Total length of data for each singer:",
	}
	for _, speaker := range speakers {
		lines = append(lines, fmt.Sprintf("%s: %d seconds", speaker, roundSeconds(s.Total(speaker))))
	}
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func roundSeconds(d time.Duration) int64 {
	return int64(math.Round(d.Seconds()))
}
