// Package workflows holds the claim orchestrator and the interview session actor.
package workflows

import (
	"go.temporal.io/sdk/workflow"

	"claim-intake-service/internal/activities"
	"claim-intake-service/internal/durable"
)

// acts is only used to name activity methods.
var acts *activities.Activities

// Workflows carries the worker-side settings shared by every workflow.
type Workflows struct {
	Policy durable.RetryPolicy
}

func New(policy durable.RetryPolicy) *Workflows {
	return &Workflows{Policy: policy}
}

func (w *Workflows) Register(r Registrar) {
	r.RegisterWorkflowWithOptions(w.ProcessClaim, workflow.RegisterOptions{Name: ProcessClaimWorkflow})
	r.RegisterWorkflowWithOptions(w.AwaitInterview, workflow.RegisterOptions{Name: AwaitInterviewWorkflow})
	r.RegisterWorkflowWithOptions(w.InterviewSession, workflow.RegisterOptions{Name: InterviewSessionWorkflow})
}
