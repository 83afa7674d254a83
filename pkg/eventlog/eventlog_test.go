package eventlog

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRead_MissingFileIsEmpty(t *testing.T) {
	events, err := Read(filepath.Join(t.TempDir(), "events.ndjson"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestAppend_AssignsMonotonicSeq(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		ev := Event{Time: time.Unix(int64(i), 0), Kind: KindTransition, BeadID: "bead-1"}
		if err := log.Append(ev); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	events, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, ev := range events {
		if ev.Seq != int64(i+1) {
			t.Errorf("events[%d].Seq = %d, want %d", i, ev.Seq, i+1)
		}
	}
}

func TestOpen_ResumesSeqAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := log.Append(Event{Kind: KindGateResult, BeadID: "bead-1"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	log.Close()

	log2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if err := log2.Append(Event{Kind: KindDecision, BeadID: "bead-1"}); err != nil {
		t.Fatalf("Append() after reopen error = %v", err)
	}
	log2.Close()

	events, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[1].Seq != 2 {
		t.Errorf("seq after reopen = %d, want 2", events[1].Seq)
	}
	if events[1].Kind != KindDecision {
		t.Errorf("kind after reopen = %v, want %v", events[1].Kind, KindDecision)
	}
}

func TestAppend_RoundTripsDetail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ev := Event{
		Kind:   KindTransition,
		BeadID: "bead-7",
		Detail: map[string]any{"from": "verifying", "to": "implementing", "reason": "retry"},
	}
	if err := log.Append(ev); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	log.Close()

	events, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got := events[0].Detail["to"]; got != "implementing" {
		t.Errorf("Detail[to] = %v, want implementing", got)
	}
}
