// Package durable holds the two durability contracts the claim workflows are written
// against: a step executor that runs side effects as retried, memoised Temporal activities,
// and a keyed state store owned by a single workflow instance.
package durable

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"claim-intake-service/internal/faults"
)

// RetryPolicy bounds how often a step is attempted.
type RetryPolicy struct {
	// MaxAttempts counts the first attempt. A step failing transiently MaxAttempts
	// times fails the workflow.
	MaxAttempts        int32
	InitialInterval    time.Duration
	BackoffCoefficient float64
	StartToClose       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        3,
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		StartToClose:       2 * time.Minute,
	}
}

func (p RetryPolicy) activityOptions() workflow.ActivityOptions {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.BackoffCoefficient < 1 {
		p.BackoffCoefficient = d.BackoffCoefficient
	}
	if p.StartToClose <= 0 {
		p.StartToClose = d.StartToClose
	}
	return workflow.ActivityOptions{
		StartToCloseTimeout: p.StartToClose,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        p.InitialInterval,
			BackoffCoefficient:     p.BackoffCoefficient,
			MaximumAttempts:        p.MaxAttempts,
			NonRetryableErrorTypes: faults.PermanentTypes,
		},
	}
}

// Step runs activity as the named step and returns its result.
//
// Once the step has completed, replaying the workflow (after a worker restart or a
// cache eviction) returns the recorded result instead of running the activity again.
// A failure reaching the workflow, whether permanent or the last of MaxAttempts
// transient ones, is returned as a non-retryable StepFailed error naming the step.
func Step[T any](ctx workflow.Context, name string, policy RetryPolicy, activity interface{}, args ...interface{}) (T, error) {
	var out T
	actx := workflow.WithActivityOptions(ctx, policy.activityOptions())
	if err := workflow.ExecuteActivity(actx, activity, args...).Get(actx, &out); err != nil {
		return out, escalate(ctx, name, err)
	}
	return out, nil
}

// Do is Step for activities without a result.
func Do(ctx workflow.Context, name string, policy RetryPolicy, activity interface{}, args ...interface{}) error {
	actx := workflow.WithActivityOptions(ctx, policy.activityOptions())
	if err := workflow.ExecuteActivity(actx, activity, args...).Get(actx, nil); err != nil {
		return escalate(ctx, name, err)
	}
	return nil
}

func escalate(ctx workflow.Context, name string, err error) error {
	workflow.GetLogger(ctx).Error("step failed", "step", name, "permanent", faults.IsPermanent(err), "error", err)
	return faults.Permanent(faults.TypeStepFailed, fmt.Sprintf("step %q failed", name), err)
}
