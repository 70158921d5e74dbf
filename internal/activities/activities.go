// Package activities holds the side effects of the claim workflows. Every method runs
// as a durable step; permanent failures come back as non-retryable application errors.
package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"claim-intake-service/internal/completion"
	"claim-intake-service/internal/faults"
	"claim-intake-service/internal/images"
	"claim-intake-service/internal/modal"
)

type Completer interface {
	Complete(ctx context.Context, req completion.Request, out interface{}) (completion.Usage, error)
}

type ImageResolver interface {
	ResolveAll(refs []string) ([]images.Image, error)
}

type Notifier interface {
	NotifyReviewer(ctx context.Context, req modal.ReviewRequest) error
	NotifyUser(ctx context.Context, msg modal.UserNotification) error
}

// SessionOpener delivers createInterview to an interview session, starting the
// session workflow if it is not running.
type SessionOpener interface {
	OpenInterview(ctx context.Context, sessionKey string, req modal.CreateInterviewRequest) error
}

// Deployments names the completion deployments per task.
type Deployments struct {
	Intake    string
	Interview string
}

type Activities struct {
	Completer   Completer
	Images      ImageResolver
	Notifier    Notifier
	Sessions    SessionOpener
	Deployments Deployments
}

// Intake builds the initial claim description from the note and images.
func (a *Activities) Intake(ctx context.Context, req modal.ClaimRequest) (modal.ClaimDescription, error) {
	if err := req.Validate(); err != nil {
		return modal.ClaimDescription{}, faults.Permanent(faults.TypeInvalidInput, "invalid claim request", err)
	}
	imgs, err := a.Images.ResolveAll(req.Images)
	if err != nil {
		return modal.ClaimDescription{}, err
	}

	parts := []completion.Part{completion.TextPart(intakePrompt(req.Description))}
	for _, img := range imgs {
		parts = append(parts, completion.ImagePart(img.DataURL))
	}

	var desc modal.ClaimDescription
	usage, err := a.Completer.Complete(ctx, completion.Request{
		Deployment:   a.Deployments.Intake,
		Instructions: intakeInstructions,
		Parts:        parts,
		Schema:       completion.ClaimDescriptionSchema,
	}, &desc)
	if err != nil {
		return modal.ClaimDescription{}, err
	}
	activity.GetLogger(ctx).Info("intake extracted claim description",
		"images", len(imgs), "openFields", len(desc.OpenFields()), "totalTokens", usage.TotalTokens)
	return desc, nil
}

func (a *Activities) CheckCompleteness(ctx context.Context, in modal.CompletenessInput) (modal.CompletenessVerdict, error) {
	var verdict modal.CompletenessVerdict
	_, err := a.Completer.Complete(ctx, completion.Request{
		Deployment:   a.Deployments.Intake,
		Instructions: completenessInstructions,
		Parts:        []completion.Part{completion.TextPart(completenessPrompt(in))},
		Schema:       completion.CompletenessSchema,
	}, &verdict)
	if err != nil {
		return modal.CompletenessVerdict{}, err
	}
	activity.GetLogger(ctx).Info("completeness checked", "verdict", verdict.Complete)
	return verdict, nil
}

// RefineInterview folds the transcript into the description and decides whether the
// interview is done.
func (a *Activities) RefineInterview(ctx context.Context, in modal.RefineInput) (modal.InterviewResponse, error) {
	var resp modal.InterviewResponse
	_, err := a.Completer.Complete(ctx, completion.Request{
		Deployment:   a.Deployments.Interview,
		Instructions: interviewInstructions,
		Parts:        []completion.Part{completion.TextPart(interviewPrompt(in))},
		Schema:       completion.InterviewSchema,
	}, &resp)
	if err != nil {
		return modal.InterviewResponse{}, err
	}
	return resp, nil
}

func (a *Activities) NotifyReviewer(ctx context.Context, req modal.ReviewRequest) error {
	if err := a.Notifier.NotifyReviewer(ctx, req); err != nil {
		return err
	}
	activity.GetLogger(ctx).Info("reviewer notified", "callbackId", req.CallbackID)
	return nil
}

func (a *Activities) NotifyUser(ctx context.Context, msg modal.UserNotification) error {
	if err := a.Notifier.NotifyUser(ctx, msg); err != nil {
		return err
	}
	activity.GetLogger(ctx).Info("user notified", "sessionId", msg.SessionID)
	return nil
}

type OpenInterviewInput struct {
	SessionKey string                       `json:"sessionKey"`
	Request    modal.CreateInterviewRequest `json:"request"`
}

// OpenInterview delivers createInterview to the session. A rejection by the session
// is permanent.
func (a *Activities) OpenInterview(ctx context.Context, in OpenInterviewInput) error {
	err := a.Sessions.OpenInterview(ctx, in.SessionKey, in.Request)
	if err == nil {
		return nil
	}
	if faults.Kind(err) != "" {
		return faults.Permanent(faults.TypeProtocolViolation,
			fmt.Sprintf("session %s rejected interview round %d", in.SessionKey, in.Request.Round), err)
	}
	return fmt.Errorf("open interview on session %s: %w", in.SessionKey, err)
}
