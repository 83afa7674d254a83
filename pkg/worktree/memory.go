package worktree

import "context"

// MemoryProvider opens fake in-memory worktrees, sufficient to drive the
// orchestrator and acceptance-policy tests without a real git checkout.
type MemoryProvider struct {
	// Stats, keyed by issue id, is returned by the opened worktree's
	// DiffStat. Missing entries return a zero DiffStat.
	Stats map[string]DiffStat
	opened []string
}

// Open implements Provider.
func (p *MemoryProvider) Open(ctx context.Context, issueID string) (Worktree, error) {
	p.opened = append(p.opened, issueID)
	return &memoryWorktree{issueID: issueID, stat: p.Stats[issueID]}, nil
}

// Opened returns every issue id Open was called with, in call order.
func (p *MemoryProvider) Opened() []string { return p.opened }

type memoryWorktree struct {
	issueID string
	stat    DiffStat
	closed  bool
}

func (w *memoryWorktree) Dir() string { return "/tmp/swarm-worktrees/" + w.issueID }

func (w *memoryWorktree) HeadCommit(ctx context.Context) (string, error) {
	return "deadbeef-" + w.issueID, nil
}

func (w *memoryWorktree) DiffStat(ctx context.Context) (DiffStat, error) {
	return w.stat, nil
}

func (w *memoryWorktree) Close(ctx context.Context) error {
	w.closed = true
	return nil
}
