// Package memory implements the append-only conversation log and the
// summary-sentinel compactor described in SPEC_FULL.md §4.D.
package memory

import (
	"sync"

	swerr "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// EntryKind is the closed set of memory entry kinds.
type EntryKind string

const (
	KindAgentTurn  EntryKind = "agent_turn"
	KindToolResult EntryKind = "tool_result"
	KindSummary    EntryKind = "summary"
	KindSystem     EntryKind = "system"
)

// Entry is one append-only memory record.
type Entry struct {
	Seq             int64
	Kind            EntryKind
	Content         string
	Author          string
	EstimatedTokens int
	Compacted       bool
}

// Store is the authoritative, append-only sequence of Entry values for one
// session. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	entries   []Entry
	nextSeq   int64
	estimator Estimator
}

// NewStore constructs an empty store using the given token estimator.
func NewStore(estimator Estimator) *Store {
	if estimator == nil {
		estimator = NewTokenEstimator()
	}
	return &Store{estimator: estimator}
}

// Append adds a new entry, assigning it the next sequence number and
// computing its estimated token count.
func (s *Store) Append(kind EntryKind, content, author string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := Entry{
		Seq:             s.nextSeq,
		Kind:            kind,
		Content:         content,
		Author:          author,
		EstimatedTokens: s.estimator.Estimate(content),
	}
	s.nextSeq++
	s.entries = append(s.entries, e)
	return e
}

// ActiveEntries returns non-compacted entries in sequence order.
func (s *Store) ActiveEntries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.Compacted {
			out = append(out, e)
		}
	}
	return out
}

// AllEntries returns every entry, compacted or not, in sequence order.
func (s *Store) AllEntries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// ActiveTokenCount returns the sum of estimated_tokens over active entries;
// this must equal invariant 4 of spec.md §3 at all times.
func (s *Store) ActiveTokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, e := range s.entries {
		if !e.Compacted {
			total += e.EstimatedTokens
		}
	}
	return total
}

// InsertSummary atomically assigns the summary entry a sequence number
// strictly greater than lastCompactedSeq and marks every non-summary entry
// with seq <= lastCompactedSeq as compacted, satisfying invariant 3 of
// spec.md §3.
func (s *Store) InsertSummary(content, author string, lastCompactedSeq int64) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.nextSeq
	if seq <= lastCompactedSeq {
		seq = lastCompactedSeq + 1
	}
	summary := Entry{
		Seq:             seq,
		Kind:            KindSummary,
		Content:         content,
		Author:          author,
		EstimatedTokens: s.estimator.Estimate(content),
	}
	s.nextSeq = seq + 1

	for i := range s.entries {
		if s.entries[i].Kind != KindSummary && s.entries[i].Seq <= lastCompactedSeq {
			s.entries[i].Compacted = true
		}
	}
	s.entries = append(s.entries, summary)
	return summary
}

// RangeError is the shape shared by EmptyInput, SummarizationFailed, and
// SummaryTooLarge: each carries the sequence range the compaction attempt
// touched, per spec.md §4.D.
type RangeError struct {
	Reason  string
	FromSeq int64
	ToSeq   int64
	Cause   error
}

func (e *RangeError) Error() string {
	return swerr.FailedTo(e.Reason, e.Cause).Error()
}

func (e *RangeError) Unwrap() error { return e.Cause }
