package llm

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// SendWithRetry wraps agent.Send with the single-retry policy spec.md §7
// mandates for InferenceFailure: "session may retry once per attempt, then
// surface." A fixed short backoff is used since this is a single retry, not
// an open-ended policy.
func SendWithRetry(ctx context.Context, agent Agent, turn Turn, backoffBase time.Duration) (Response, error) {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(backoffBase))

	var resp Response
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := agent.Send(ctx, turn)
		if err != nil {
			resp = Response{}
			return retry.RetryableError(swarmerrors.Wrap(err, "inference attempt failed"))
		}
		resp = r
		return nil
	})
	if err != nil {
		return Response{}, swarmerrors.Wrapf(swarmerrors.ErrInferenceFailure, "inference failed after retry: %v", err)
	}
	return resp, nil
}
