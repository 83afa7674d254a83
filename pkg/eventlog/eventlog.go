// Package eventlog persists the append-only event log from SPEC_FULL.md §6:
// newline-delimited JSON, one entry per state transition, gate result, or
// decision. The file is human-readable and replayable; the Log never
// rewrites or truncates what it has written.
package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/go-faster/jx"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// Kind discriminates event-log entries.
type Kind string

const (
	KindTransition   Kind = "transition"
	KindGateResult   Kind = "gate_result"
	KindDecision     Kind = "decision"
	KindFlagForHuman Kind = "flag_for_human"
)

// Event is one NDJSON line. Detail carries the kind-specific payload; its
// keys are stable per kind so downstream consumers can parse without a
// schema registry.
type Event struct {
	Seq    int64          `json:"seq"`
	Time   time.Time      `json:"time"`
	Kind   Kind           `json:"kind"`
	BeadID string         `json:"bead_id"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Log is an append-only NDJSON event log backed by a single file.
type Log struct {
	mu   sync.Mutex
	f    *os.File
	seq  int64
	path string
}

// Open opens (creating if absent) the event log at path. Sequence numbers
// resume after the highest seq already present, so reopening a log keeps
// the sequence monotonic across process restarts.
func Open(path string) (*Log, error) {
	last, err := lastSeq(path)
	if err != nil {
		return nil, swarmerrors.FailedTo("scan event log", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, swarmerrors.FailedTo("open event log", err)
	}
	return &Log{f: f, seq: last, path: path}, nil
}

// Append assigns the event the next sequence number and writes it as one
// JSON line. The event's Seq field is overwritten; callers never choose
// their own. Encoding goes through jx rather than reflection: the log sits
// on the hot path of every transition, gate result, and decision.
func (l *Log) Append(ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	ev.Seq = l.seq
	data, err := encodeEvent(ev)
	if err != nil {
		l.seq--
		return swarmerrors.FailedTo("encode event", err)
	}
	if _, err := l.f.Write(append(data, '\n')); err != nil {
		l.seq--
		return swarmerrors.FailedTo("append event", err)
	}
	return nil
}

func encodeEvent(ev Event) ([]byte, error) {
	var detail []byte
	if len(ev.Detail) > 0 {
		var err error
		detail, err = json.Marshal(ev.Detail)
		if err != nil {
			return nil, err
		}
	}
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("seq", func(e *jx.Encoder) { e.Int64(ev.Seq) })
		e.Field("time", func(e *jx.Encoder) { e.Str(ev.Time.Format(time.RFC3339Nano)) })
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(ev.Kind)) })
		e.Field("bead_id", func(e *jx.Encoder) { e.Str(ev.BeadID) })
		if detail != nil {
			e.Field("detail", func(e *jx.Encoder) { e.Raw(detail) })
		}
	})
	return e.Bytes(), nil
}

// Close closes the backing file. Append after Close returns an error from
// the file layer.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// Read replays every event in the log at path, in write order. A missing
// file yields an empty slice, matching the missing-file tolerance of the
// other persisted stores.
func Read(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, swarmerrors.FailedTo("open event log", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, swarmerrors.FailedTo("decode event log line", err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, swarmerrors.FailedTo("read event log", err)
	}
	return events, nil
}

func lastSeq(path string) (int64, error) {
	events, err := Read(path)
	if err != nil {
		return 0, err
	}
	var last int64
	for _, ev := range events {
		if ev.Seq > last {
			last = ev.Seq
		}
	}
	return last, nil
}
