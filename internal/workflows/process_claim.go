package workflows

import (
	"github.com/google/uuid"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/workflow"

	"claim-intake-service/internal/callback"
	"claim-intake-service/internal/durable"
	"claim-intake-service/internal/faults"
	"claim-intake-service/internal/modal"
)

// claimRun is the in-workflow state of one ProcessClaim execution.
type claimRun struct {
	ctx      workflow.Context
	policy   durable.RetryPolicy
	logger   log.Logger
	state    *modal.ClaimState
	registry *callback.Registry
}

func (r *claimRun) audit(kind, message string, data map[string]any) {
	r.state.Audit = append(r.state.Audit, modal.AuditEvent{
		At:      workflow.Now(r.ctx),
		Kind:    kind,
		Message: message,
		Data:    data,
	})
}

func (r *claimRun) setStage(stage modal.Stage) {
	r.state.Stage = stage
	r.audit("STAGE", string(stage), nil)
}

func (r *claimRun) view() (modal.ClaimState, error) {
	v := *r.state
	if r.registry != nil {
		v.PendingCallbacks = r.registry.Pending()
	}
	return v, nil
}

// ProcessClaim runs one claim from intake to a terminal decision.
//
// The claim is checked for completeness, the submitter is interviewed while it is
// incomplete, and a human reviewer decides. A request_info decision sends the claim
// back through the completeness check with the reviewer's comment as context.
func (w *Workflows) ProcessClaim(ctx workflow.Context, req modal.ClaimRequest) (modal.ClaimResponse, error) {
	r := &claimRun{
		ctx:    ctx,
		policy: w.Policy,
		logger: workflow.GetLogger(ctx),
		state: &modal.ClaimState{
			Stage:   modal.StageIntake,
			Request: req,
			Audit:   make([]modal.AuditEvent, 0),
		},
	}
	r.logger.Info("claim workflow started", "submitter", req.User.Name, "images", len(req.Images))

	_ = workflow.SetQueryHandler(ctx, ClaimStateQuery, r.view)

	if err := req.Validate(); err != nil {
		r.audit("ERROR", "claim request rejected", map[string]any{"error": err.Error()})
		return modal.ClaimResponse{}, faults.Permanent(faults.TypeInvalidInput, "invalid claim request", err)
	}

	registry, err := callback.NewRegistry(ctx)
	if err != nil {
		return modal.ClaimResponse{}, err
	}
	r.registry = registry

	desc, err := durable.Step[modal.ClaimDescription](ctx, StepIntake, r.policy, acts.Intake, req)
	if err != nil {
		return modal.ClaimResponse{}, err
	}
	r.state.ClaimDescription = desc
	r.audit("INTAKE", "initial claim description built", map[string]any{"openFields": len(desc.OpenFields())})

	var sessionKey string
	if err := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
		return uuid.NewString()
	}).Get(&sessionKey); err != nil {
		return modal.ClaimResponse{}, err
	}
	r.state.SessionKey = sessionKey

	resp, err := r.decide(desc)
	if r.state.InterviewRound > 0 {
		retireSession(ctx, sessionKey)
	}
	if err != nil {
		r.audit("ERROR", "claim workflow failed", map[string]any{"error": err.Error()})
		return modal.ClaimResponse{}, err
	}
	r.logger.Info("claim decided", "status", resp.Status)
	return resp, nil
}

// decide loops through completeness checks, interview rounds and reviews until the
// reviewer approves or rejects the claim.
func (r *claimRun) decide(desc modal.ClaimDescription) (modal.ClaimResponse, error) {
	ctx := r.ctx
	for {
		r.setStage(modal.StageCompletenessCheck)
		verdict, err := durable.Step[modal.CompletenessVerdict](ctx, StepCheckCompleteness, r.policy, acts.CheckCompleteness,
			modal.CompletenessInput{ClaimDescription: desc, ReviewComment: r.state.ReviewComment})
		if err != nil {
			return modal.ClaimResponse{}, err
		}

		if verdict.Complete == modal.VerdictIncomplete {
			if desc, err = r.interview(desc, verdict.RequestForInfo); err != nil {
				return modal.ClaimResponse{}, err
			}
		}

		eval, err := r.review(desc)
		if err != nil {
			return modal.ClaimResponse{}, err
		}
		if eval.Status.Terminal() {
			if eval.Status == modal.EvaluationApproved {
				r.setStage(modal.StageApproved)
			} else {
				r.setStage(modal.StageRejected)
			}
			return modal.ClaimResponse{Status: eval.Status}, nil
		}
		r.state.ReviewComment = eval.Comment
	}
}

// interview runs one interview round on the claim's session and returns the refined
// description. Every round of a run uses the same session key.
func (r *claimRun) interview(desc modal.ClaimDescription, requestForInfo string) (modal.ClaimDescription, error) {
	r.state.InterviewRound++
	round := r.state.InterviewRound
	r.setStage(modal.StageInterviewing)
	r.audit("INTERVIEW", "interviewing submitter", map[string]any{
		"round":          round,
		"requestForInfo": requestForInfo,
	})

	cctx := workflow.WithChildOptions(r.ctx, workflow.ChildWorkflowOptions{
		WorkflowID: RoundWorkflowID(r.state.SessionKey, round),
	})
	in := modal.AwaitInterviewInput{
		SessionKey: r.state.SessionKey,
		Round:      round,
		Interview:  modal.InterviewRequest{ClaimDescription: desc, RequestForInfo: requestForInfo},
	}
	var refined modal.ClaimDescription
	if err := workflow.ExecuteChildWorkflow(cctx, AwaitInterviewWorkflow, in).Get(r.ctx, &refined); err != nil {
		r.logger.Error("interview failed", "round", round, "error", err)
		return desc, err
	}
	r.state.ClaimDescription = refined
	return refined, nil
}

func (r *claimRun) review(desc modal.ClaimDescription) (modal.Evaluation, error) {
	r.setStage(modal.StageHumanReview)
	f, err := callback.New[modal.Evaluation](r.ctx, r.registry)
	if err != nil {
		return modal.Evaluation{}, err
	}
	r.state.ReviewToken = f.Token().String()

	if err := durable.Do(r.ctx, StepNotifyReviewer, r.policy, acts.NotifyReviewer,
		modal.ReviewRequest{ClaimDescription: desc, CallbackID: r.state.ReviewToken}); err != nil {
		return modal.Evaluation{}, err
	}

	eval, err := f.Get(r.ctx)
	r.state.ReviewToken = ""
	if err != nil {
		return modal.Evaluation{}, err
	}
	r.audit("REVIEW", "reviewer decided", map[string]any{"status": eval.Status, "comment": eval.Comment})
	return eval, nil
}

// retireSession ends the claim's interview session. A failure only leaves the session
// idle, so it is logged and ignored.
func retireSession(ctx workflow.Context, sessionKey string) {
	err := workflow.SignalExternalWorkflow(ctx, SessionWorkflowID(sessionKey), "", RetireSignal, nil).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("could not retire interview session", "sessionKey", sessionKey, "error", err)
	}
}
