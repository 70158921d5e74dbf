package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"claim-intake-service/internal/faults"
	"claim-intake-service/internal/metrics"
)

// Updater is the slice of client.Client the resolver needs.
type Updater interface {
	UpdateWorkflow(ctx context.Context, options client.UpdateWorkflowOptions) (client.WorkflowUpdateHandle, error)
}

// Resolver resolves callback tokens from outside any workflow, e.g. on behalf of a
// human reviewer.
type Resolver struct {
	client Updater
}

func NewResolver(c Updater) *Resolver {
	return &Resolver{client: c}
}

// Resolve delivers value to the future behind token. Unknown tokens, tokens that were
// already resolved, values of the wrong shape and futures whose workflow has ended
// all return an error wrapping faults.ErrCallbackRejected.
func (r *Resolver) Resolve(ctx context.Context, token string, value interface{}) error {
	err := r.resolve(ctx, token, value)
	switch {
	case err == nil:
		metrics.CallbackResolutions.WithLabelValues("resolved").Inc()
	case errors.Is(err, faults.ErrCallbackRejected):
		metrics.CallbackResolutions.WithLabelValues("rejected").Inc()
	default:
		metrics.CallbackResolutions.WithLabelValues("error").Inc()
	}
	return err
}

func (r *Resolver) resolve(ctx context.Context, token string, value interface{}) error {
	t, err := ParseToken(token)
	if err != nil {
		return fmt.Errorf("%w: %v", faults.ErrCallbackRejected, err)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode callback value: %w", err)
	}

	handle, err := r.client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   t.WorkflowID,
		UpdateName:   ResolveUpdate,
		Args:         []interface{}{Resolution{ID: t.ID, Value: raw}},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return classify(t, err)
	}
	if err := handle.Get(ctx, nil); err != nil {
		return classify(t, err)
	}
	return nil
}

func classify(t Token, err error) error {
	var appErr *temporal.ApplicationError
	var notFound *serviceerror.NotFound
	if errors.As(err, &appErr) || errors.As(err, &notFound) {
		return fmt.Errorf("%w: workflow %s: %v", faults.ErrCallbackRejected, t.WorkflowID, err)
	}
	return fmt.Errorf("resolve callback on workflow %s: %w", t.WorkflowID, err)
}
