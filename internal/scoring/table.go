// Package scoring accumulates per-candidate latency and selects the winner.
package scoring

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"timing-attack/internal/core"
)

// ErrNoUsableCandidate is returned by ArgMax when no candidate has a
// successful measurement.
var ErrNoUsableCandidate = errors.New("no candidate has a usable measurement")

// Entry is the accumulator of a single candidate
type Entry struct {
	Total        time.Duration
	Successes    int
	Failures     int
	Disqualified bool
	LastErr      error
}

// Usable reports whether the entry may take part in selection
func (e Entry) Usable() bool {
	return e.Successes > 0 && !e.Disqualified
}

// slower reports whether the mean latency of (total, n) samples is strictly
// larger than that of (otherTotal, otherN). Both counts must be positive.
func slower(total time.Duration, n int, otherTotal time.Duration, otherN int) bool {
	return int64(total)*int64(otherN) > int64(otherTotal)*int64(n)
}

type slot struct {
	mu sync.Mutex
	Entry
}

// ScoreTable maps a fixed, ordered candidate space to accumulated latency.
// Each candidate has its own lock, so workers owning different candidates
// never contend.
type ScoreTable[K core.Candidate] struct {
	keys  []K
	slots map[K]*slot
}

// NewScoreTable creates a table over keys. Duplicate keys are collapsed onto
// their first occurrence.
func NewScoreTable[K core.Candidate](keys []K) *ScoreTable[K] {
	t := &ScoreTable[K]{
		keys:  make([]K, 0, len(keys)),
		slots: make(map[K]*slot, len(keys)),
	}
	for _, k := range keys {
		if _, ok := t.slots[k]; ok {
			continue
		}
		t.keys = append(t.keys, k)
		t.slots[k] = &slot{}
	}
	return t
}

// NewLengthTable creates a table over the lengths 0..maxLength-1
func NewLengthTable(maxLength int) *ScoreTable[int] {
	keys := make([]int, 0, maxLength)
	for l := 0; l < maxLength; l++ {
		keys = append(keys, l)
	}
	return NewScoreTable(keys)
}

// Len returns the number of candidates
func (t *ScoreTable[K]) Len() int {
	return len(t.keys)
}

// Keys returns the candidates in selection order
func (t *ScoreTable[K]) Keys() []K {
	out := make([]K, len(t.keys))
	copy(out, t.keys)
	return out
}

func (t *ScoreTable[K]) slot(key K) *slot {
	s, ok := t.slots[key]
	if !ok {
		panic(fmt.Sprintf("scoring: unknown candidate %v", key))
	}
	return s
}

// Add records one successful measurement for key
func (t *ScoreTable[K]) Add(key K, result core.ProbeResult) {
	s := t.slot(key)
	s.mu.Lock()
	s.Total += result.Elapsed
	s.Successes++
	s.mu.Unlock()
}

// Fail records a failed measurement for key. The measurement is missing,
// not zero: the total is left untouched and ArgMax ranks by the mean of the
// successful samples only.
func (t *ScoreTable[K]) Fail(key K, err error) {
	s := t.slot(key)
	s.mu.Lock()
	s.Failures++
	s.LastErr = err
	s.mu.Unlock()
}

// Disqualify records a failure and removes key from selection altogether
func (t *ScoreTable[K]) Disqualify(key K, err error) {
	s := t.slot(key)
	s.mu.Lock()
	s.Failures++
	s.Disqualified = true
	s.LastErr = err
	s.mu.Unlock()
}

// Entry returns a copy of key's accumulator
func (t *ScoreTable[K]) Entry(key K) Entry {
	s := t.slot(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Entry
}

// ArgMax returns the usable candidate with the largest mean latency per
// successful sample. With no failures every candidate has the same number of
// samples and this is the largest total. Ties go to the candidate that comes
// first in key order.
func (t *ScoreTable[K]) ArgMax() (K, error) {
	var (
		best  K
		top   Entry
		found bool
	)

	if len(t.keys) == 0 {
		return best, core.ErrEmptyCandidates
	}

	for _, k := range t.keys {
		e := t.Entry(k)
		if !e.Usable() {
			continue
		}
		if !found || slower(e.Total, e.Successes, top.Total, top.Successes) {
			best, top, found = k, e, true
		}
	}

	if !found {
		return best, ErrNoUsableCandidate
	}
	return best, nil
}

// Usable returns the number of candidates that may take part in selection
func (t *ScoreTable[K]) Usable() int {
	n := 0
	for _, k := range t.keys {
		if t.Entry(k).Usable() {
			n++
		}
	}
	return n
}

// Snapshot renders the table for logs and reports, in key order
func (t *ScoreTable[K]) Snapshot(format func(K) string) []core.CandidateScore {
	out := make([]core.CandidateScore, 0, len(t.keys))
	for _, k := range t.keys {
		e := t.Entry(k)
		out = append(out, core.CandidateScore{
			Key:          format(k),
			Total:        e.Total,
			Successes:    e.Successes,
			Failures:     e.Failures,
			Disqualified: e.Disqualified,
		})
	}
	return out
}

// FormatLength renders a length key
func FormatLength(l int) string {
	return fmt.Sprintf("%d", l)
}

// FormatChar renders a character key
func FormatChar(c rune) string {
	return string(c)
}
