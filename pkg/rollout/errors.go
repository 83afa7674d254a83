package rollout

import faster "github.com/go-faster/errors"

var (
	ErrUnknownFeature       = faster.New("unknown feature")
	ErrNoForwardTransition  = faster.New("no legal forward transition from current stage")
	ErrNoBackwardTransition = faster.New("no legal backward transition from current stage")
	ErrGateRejected         = faster.New("safety gate rejected the advance")
)
