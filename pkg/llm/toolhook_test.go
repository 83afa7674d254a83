package llm

import (
	"context"
	"testing"
	"time"
)

func TestBudgetToolHook_TerminatesAtMaxCalls(t *testing.T) {
	hook := NewBudgetToolHook(ToolBudget{MaxToolCalls: 3}, nil, nil)
	ev := ToolCallEvent{ToolName: "read_file"}

	for i := 0; i < 2; i++ {
		if hook.Observe(context.Background(), ev) {
			t.Fatalf("call %d should not terminate", i+1)
		}
	}
	if !hook.Observe(context.Background(), ev) {
		t.Fatal("third call should hit the budget and terminate")
	}
	if hook.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", hook.Calls())
	}
}

func TestBudgetToolHook_TerminatesPastDeadline(t *testing.T) {
	clock := time.Unix(1000, 0)
	hook := NewBudgetToolHook(
		ToolBudget{Deadline: time.Unix(1005, 0)},
		nil,
		func() time.Time { return clock },
	)
	ev := ToolCallEvent{ToolName: "run_tests"}

	if hook.Observe(context.Background(), ev) {
		t.Fatal("call before the deadline should not terminate")
	}
	clock = time.Unix(1010, 0)
	if !hook.Observe(context.Background(), ev) {
		t.Fatal("call past the deadline should terminate")
	}
}

func TestBudgetToolHook_UnboundedWithoutBudget(t *testing.T) {
	hook := NewBudgetToolHook(ToolBudget{}, nil, nil)
	for i := 0; i < 50; i++ {
		if hook.Observe(context.Background(), ToolCallEvent{}) {
			t.Fatalf("call %d terminated with no budget configured", i+1)
		}
	}
}

// terminatingHook vetoes immediately, standing in for a caller-supplied
// policy layered under the budget.
type terminatingHook struct{}

func (terminatingHook) Observe(context.Context, ToolCallEvent) bool { return true }

func TestBudgetToolHook_InnerHookMayTerminateFirst(t *testing.T) {
	hook := NewBudgetToolHook(ToolBudget{MaxToolCalls: 100}, terminatingHook{}, nil)
	if !hook.Observe(context.Background(), ToolCallEvent{}) {
		t.Fatal("inner hook's terminate directive must propagate")
	}
}
