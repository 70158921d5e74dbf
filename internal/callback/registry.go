// Package callback implements callback futures: a workflow creates a future and hands
// its token to some other party, then suspends until that party resolves the token.
//
// The workflow side is a Registry installed once per workflow execution. It accepts
// resolutions through a Temporal update (external callers get the rejection back) and
// through a signal (other workflows, which cannot issue updates). Both paths apply the
// same rule: the first resolution of a known token wins, every later one is rejected.
// Pending futures survive worker restarts because replay recreates them from history.
package callback

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/workflow"

	"claim-intake-service/internal/faults"
)

const (
	ResolveUpdate = "callback.resolve"
	ResolveSignal = "callback.resolve.signal"
)

// Resolution carries a value for the future with the given id.
type Resolution struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value"`
}

type slot struct {
	settable workflow.Settable
	check    func(json.RawMessage) error
	resolved bool
}

type Registry struct {
	workflowID string
	slots      map[string]*slot
	logger     log.Logger
}

// NewRegistry installs the resolve handlers on the current workflow.
func NewRegistry(ctx workflow.Context) (*Registry, error) {
	r := &Registry{
		workflowID: workflow.GetInfo(ctx).WorkflowExecution.ID,
		slots:      make(map[string]*slot),
		logger:     workflow.GetLogger(ctx),
	}

	err := workflow.SetUpdateHandlerWithOptions(ctx, ResolveUpdate, func(_ workflow.Context, res Resolution) error {
		return r.resolve(res)
	}, workflow.UpdateHandlerOptions{
		Validator: r.validate,
	})
	if err != nil {
		return nil, fmt.Errorf("register %s handler: %w", ResolveUpdate, err)
	}

	ch := workflow.GetSignalChannel(ctx, ResolveSignal)
	workflow.Go(ctx, func(ctx workflow.Context) {
		for {
			var res Resolution
			ch.Receive(ctx, &res)
			if err := r.resolve(res); err != nil {
				r.logger.Warn("callback resolution dropped", "id", res.ID, "error", err)
			}
		}
	})
	return r, nil
}

// Pending reports how many futures are still waiting for a resolution.
func (r *Registry) Pending() int {
	n := 0
	for _, s := range r.slots {
		if !s.resolved {
			n++
		}
	}
	return n
}

func (r *Registry) validate(res Resolution) error {
	s, ok := r.slots[res.ID]
	if !ok {
		return faults.Protocol(faults.ErrCallbackUnknown)
	}
	if s.resolved {
		return faults.Protocol(faults.ErrCallbackResolved)
	}
	if err := s.check(res.Value); err != nil {
		return faults.Permanent(faults.TypeInvalidInput, "callback value rejected", err)
	}
	return nil
}

func (r *Registry) resolve(res Resolution) error {
	if err := r.validate(res); err != nil {
		return err
	}
	s := r.slots[res.ID]
	s.resolved = true
	s.settable.Set(res.Value, nil)
	r.logger.Info("callback resolved", "id", res.ID)
	return nil
}

// Future is a callback future resolving to a T.
type Future[T any] struct {
	token  Token
	future workflow.Future
}

// New creates a future hosted by r. The id comes from a side effect so replay yields
// the same token.
func New[T any](ctx workflow.Context, r *Registry) (Future[T], error) {
	var id string
	err := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
		return uuid.NewString()
	}).Get(&id)
	if err != nil {
		return Future[T]{}, fmt.Errorf("allocate callback id: %w", err)
	}

	f, settable := workflow.NewFuture(ctx)
	r.slots[id] = &slot{
		settable: settable,
		check: func(raw json.RawMessage) error {
			_, err := decode[T](raw)
			return err
		},
	}
	return Future[T]{token: Token{WorkflowID: r.workflowID, ID: id}, future: f}, nil
}

func (f Future[T]) Token() Token { return f.token }

// Get suspends until the future is resolved.
func (f Future[T]) Get(ctx workflow.Context) (T, error) {
	var raw json.RawMessage
	if err := f.future.Get(ctx, &raw); err != nil {
		var zero T
		return zero, err
	}
	return decode[T](raw)
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("empty callback value")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode callback value: %w", err)
	}
	if vv, ok := any(&v).(interface{ Validate() error }); ok {
		if err := vv.Validate(); err != nil {
			return v, err
		}
	}
	return v, nil
}

// Signal resolves token from inside another workflow.
func Signal(ctx workflow.Context, token Token, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode callback value: %w", err)
	}
	res := Resolution{ID: token.ID, Value: raw}
	return workflow.SignalExternalWorkflow(ctx, token.WorkflowID, "", ResolveSignal, res).Get(ctx, nil)
}
