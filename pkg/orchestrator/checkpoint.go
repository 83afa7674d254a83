package orchestrator

import (
	"encoding/json"
	"os"
	"time"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// Checkpoint is the session-state.json shape: enough to resume a session
// mid-flight after a process restart. The transition log travels with it so
// a resumed session still satisfies the legal-path property over its full
// history.
type Checkpoint struct {
	BeadID    string               `json:"bead_id"`
	Current   State                `json:"current_state"`
	Iteration int                  `json:"iteration"`
	StartedAt time.Time            `json:"started_at"`
	Log       []TransitionLogEntry `json:"transition_log"`
}

// Checkpoint captures the session's resumable state.
func (s *Session) Checkpoint() Checkpoint {
	return Checkpoint{
		BeadID:    s.BeadID,
		Current:   s.Current,
		Iteration: s.iteration,
		StartedAt: s.startedAt,
		Log:       append([]TransitionLogEntry(nil), s.Log...),
	}
}

// SaveCheckpoint atomically replaces the checkpoint file at path.
func SaveCheckpoint(path string, s *Session) error {
	data, err := json.MarshalIndent(s.Checkpoint(), "", "  ")
	if err != nil {
		return swarmerrors.FailedTo("encode session checkpoint", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return swarmerrors.FailedTo("write session checkpoint", err)
	}
	return os.Rename(tmp, path)
}

// LoadCheckpoint restores a session from path. The checkpoint is optional:
// a missing file yields (nil, nil) and the caller starts a fresh session. A
// checkpoint whose transition log does not replay to a legal path is
// corrupt and rejected.
func LoadCheckpoint(path string, now func() time.Time) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, swarmerrors.FailedTo("read session checkpoint", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, swarmerrors.FailedTo("decode session checkpoint", err)
	}
	endState := StateSelectingIssue
	if n := len(cp.Log); n > 0 {
		endState = cp.Log[n-1].To
	}
	if !LegalPath(cp.Log) || cp.Current != endState {
		return nil, &swarmerrors.OperationError{
			Operation: "resume session checkpoint",
			Component: "orchestrator",
			Resource:  path,
			Cause:     swarmerrors.ErrIllegalTransition,
		}
	}
	if now == nil {
		now = time.Now
	}
	return &Session{
		BeadID:    cp.BeadID,
		Current:   cp.Current,
		Log:       cp.Log,
		iteration: cp.Iteration,
		startedAt: cp.StartedAt,
		now:       now,
	}, nil
}
