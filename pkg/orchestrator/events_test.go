package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jordigilh/swarmcore/pkg/eventlog"
)

// memorySink collects events in order without touching the filesystem.
type memorySink struct {
	events []eventlog.Event
}

func (m *memorySink) Append(ev eventlog.Event) error {
	m.events = append(m.events, ev)
	return nil
}

func countKind(events []eventlog.Event, kind eventlog.Kind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestRunIteration_EmitsEventLogEntries(t *testing.T) {
	sess := readyImplementingSession(t)
	packet := AssembleWorkPacket(AssembleInput{TaskText: "fix the off-by-one in the ring buffer"})
	sink := &memorySink{}
	deps := greenDeps(`{"files":[]}`)
	deps.Events = sink

	if _, err := RunIteration(context.Background(), sess, map[string]string{}, packet, deps); err != nil {
		t.Fatalf("RunIteration() error = %v", err)
	}

	// Green path: Implementing -> Verifying -> Validating -> Merging ->
	// Resolved is 4 transitions; 4 enabled gates; escalation + acceptance
	// decisions.
	if got := countKind(sink.events, eventlog.KindTransition); got != 4 {
		t.Errorf("transition events = %d, want 4", got)
	}
	if got := countKind(sink.events, eventlog.KindGateResult); got != 4 {
		t.Errorf("gate_result events = %d, want 4", got)
	}
	if got := countKind(sink.events, eventlog.KindDecision); got != 2 {
		t.Errorf("decision events = %d, want 2 (escalation + acceptance)", got)
	}
	for _, ev := range sink.events {
		if ev.BeadID != sess.BeadID {
			t.Fatalf("event bead_id = %q, want %q", ev.BeadID, sess.BeadID)
		}
	}
}

func TestRunIteration_EventsPersistAsNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	log, err := eventlog.Open(path)
	if err != nil {
		t.Fatalf("eventlog.Open() error = %v", err)
	}

	sess := readyImplementingSession(t)
	packet := AssembleWorkPacket(AssembleInput{TaskText: "rename the helper"})
	deps := greenDeps(`{"files":[]}`)
	deps.Events = log
	if _, err := RunIteration(context.Background(), sess, map[string]string{}, packet, deps); err != nil {
		t.Fatalf("RunIteration() error = %v", err)
	}
	log.Close()

	events, err := eventlog.Read(path)
	if err != nil {
		t.Fatalf("eventlog.Read() error = %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected persisted events")
	}
	for i, ev := range events {
		if ev.Seq != int64(i+1) {
			t.Fatalf("events[%d].Seq = %d, want %d", i, ev.Seq, i+1)
		}
	}
	if events[0].Kind != eventlog.KindTransition {
		t.Errorf("first event kind = %v, want transition", events[0].Kind)
	}
}
