package workflows

import (
	"go.temporal.io/sdk/workflow"

	"claim-intake-service/internal/activities"
	"claim-intake-service/internal/callback"
	"claim-intake-service/internal/durable"
	"claim-intake-service/internal/modal"
)

// AwaitInterview runs one interview round on a session: it opens the interview, tells
// the user, and returns the refined description once the session reports completion.
func (w *Workflows) AwaitInterview(ctx workflow.Context, in modal.AwaitInterviewInput) (modal.ClaimDescription, error) {
	registry, err := callback.NewRegistry(ctx)
	if err != nil {
		return modal.ClaimDescription{}, err
	}
	done, err := callback.New[modal.ClaimDescription](ctx, registry)
	if err != nil {
		return modal.ClaimDescription{}, err
	}

	open := activities.OpenInterviewInput{
		SessionKey: in.SessionKey,
		Request: modal.CreateInterviewRequest{
			Interview:  in.Interview,
			OnComplete: done.Token().String(),
			Round:      in.Round,
		},
	}
	if err := durable.Do(ctx, StepCreateInterview, w.Policy, acts.OpenInterview, open); err != nil {
		return modal.ClaimDescription{}, err
	}
	if err := durable.Do(ctx, stepAskUser(in.SessionKey), w.Policy, acts.NotifyUser,
		modal.UserNotification{SessionID: in.SessionKey}); err != nil {
		return modal.ClaimDescription{}, err
	}

	workflow.GetLogger(ctx).Info("waiting for interview", "sessionKey", in.SessionKey, "round", in.Round)
	return done.Get(ctx)
}
