// Package worktree defines the narrow git-as-content-addressed-worktree
// contract spec.md §1 treats as an external collaborator, plus a real
// exec.CommandContext-backed implementation grounded in the verifier
// package's sub-process spawning style (pkg/verifier/spawner.go).
package worktree

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// Worktree is one session's exclusive checkout. Per spec.md §5, one session
// owns one Worktree for its lifetime; the orchestrator never shares a
// Worktree across sessions.
type Worktree interface {
	// Dir is the filesystem path the verifier pipeline and patch engine
	// operate against.
	Dir() string
	// HeadCommit returns the current commit hash, used for VerifierReport's
	// branch/commit metadata (spec.md §4.B step 1).
	HeadCommit(ctx context.Context) (string, error)
	// DiffStat returns {added, removed} line counts and the list of
	// modified file paths relative to the worktree's base commit, feeding
	// the acceptance policy's max_diff_lines/scope_to_crates gates.
	DiffStat(ctx context.Context) (DiffStat, error)
	// Close releases the worktree (e.g. `git worktree remove`).
	Close(ctx context.Context) error
}

// DiffStat summarizes a worktree's uncommitted change set.
type DiffStat struct {
	Added        int
	Removed      int
	ModifiedFiles []string
}

// Provider opens a Worktree for one issue, per spec.md §6's
// `Open(issueID) (Worktree, error)` collaborator contract.
type Provider interface {
	Open(ctx context.Context, issueID string) (Worktree, error)
}

// GitProvider opens worktrees via `git worktree add`, rooted under BaseDir,
// against BaseBranch.
type GitProvider struct {
	RepoDir    string
	BaseDir    string
	BaseBranch string
}

// Open implements Provider.
func (p *GitProvider) Open(ctx context.Context, issueID string) (Worktree, error) {
	dir := p.BaseDir + "/" + issueID
	branch := "swarm/" + issueID
	if err := p.run(ctx, p.RepoDir, "worktree", "add", "-b", branch, dir, p.BaseBranch); err != nil {
		return nil, swarmerrors.FailedTo("create worktree for issue "+issueID, err)
	}
	return &gitWorktree{dir: dir, repoDir: p.RepoDir}, nil
}

func (p *GitProvider) run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return swarmerrors.Wrapf(err, "git %s: %s", strings.Join(args, " "), stderr.String())
	}
	return nil
}

type gitWorktree struct {
	dir     string
	repoDir string
}

func (w *gitWorktree) Dir() string { return w.dir }

func (w *gitWorktree) HeadCommit(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = w.dir
	out, err := cmd.Output()
	if err != nil {
		return "", swarmerrors.FailedTo("read worktree HEAD", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (w *gitWorktree) DiffStat(ctx context.Context) (DiffStat, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--numstat", "HEAD")
	cmd.Dir = w.dir
	out, err := cmd.Output()
	if err != nil {
		return DiffStat{}, swarmerrors.FailedTo("read worktree diff stat", err)
	}
	var stat DiffStat
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		added := parseNumstatField(fields[0])
		removed := parseNumstatField(fields[1])
		stat.Added += added
		stat.Removed += removed
		stat.ModifiedFiles = append(stat.ModifiedFiles, fields[2])
	}
	return stat, nil
}

func parseNumstatField(f string) int {
	n := 0
	for _, r := range f {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func (w *gitWorktree) Close(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "git", "worktree", "remove", "--force", w.dir)
	cmd.Dir = w.repoDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return swarmerrors.Wrapf(err, "git worktree remove: %s", stderr.String())
	}
	return nil
}
