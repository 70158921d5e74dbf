// Package service is the client side of the claim workflows, shared by the API, the
// CLI and the worker's interview activity.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"claim-intake-service/internal/callback"
	"claim-intake-service/internal/claimindex"
	"claim-intake-service/internal/faults"
	"claim-intake-service/internal/metrics"
	"claim-intake-service/internal/modal"
	"claim-intake-service/internal/workflows"
)

// TemporalClient is the part of client.Client used here.
type TemporalClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
	UpdateWorkflow(ctx context.Context, options client.UpdateWorkflowOptions) (client.WorkflowUpdateHandle, error)
	UpdateWithStartWorkflow(ctx context.Context, options client.UpdateWithStartWorkflowOptions) (client.WorkflowUpdateHandle, error)
	NewWithStartWorkflowOperation(options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) client.WithStartWorkflowOperation
}

// Index records submitted claims. It is optional.
type Index interface {
	Put(ctx context.Context, e claimindex.Entry) error
	Get(ctx context.Context, workflowID string) (claimindex.Entry, error)
	SetStage(ctx context.Context, workflowID string, stage modal.Stage, at time.Time) error
	List(ctx context.Context) ([]claimindex.Entry, error)
}

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNoIndex        = errors.New("claim index is not configured")
)

type Service struct {
	client    TemporalClient
	taskQueue string
	index     Index
	resolver  *callback.Resolver
	now       func() time.Time
}

func New(c TemporalClient, taskQueue string, index Index) *Service {
	return &Service{
		client:    c,
		taskQueue: taskQueue,
		index:     index,
		resolver:  callback.NewResolver(c),
		now:       time.Now,
	}
}

// SubmitClaim starts a claim workflow and returns its workflow id.
func (s *Service) SubmitClaim(ctx context.Context, req modal.ClaimRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	id := workflows.ClaimWorkflowID(uuid.NewString())
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: s.taskQueue,
	}, workflows.ProcessClaimWorkflow, req)
	if err != nil {
		return "", fmt.Errorf("start claim workflow: %w", err)
	}
	metrics.ClaimsSubmitted.Inc()

	if s.index != nil {
		now := s.now().UTC()
		err := s.index.Put(ctx, claimindex.Entry{
			WorkflowID:  run.GetID(),
			RunID:       run.GetRunID(),
			Submitter:   req.User,
			Amount:      req.Amount,
			Images:      len(req.Images),
			Stage:       modal.StageIntake,
			SubmittedAt: now,
		})
		if err != nil {
			return run.GetID(), fmt.Errorf("index claim %s: %w", run.GetID(), err)
		}
	}
	return run.GetID(), nil
}

// ClaimState queries a claim and refreshes its indexed stage.
func (s *Service) ClaimState(ctx context.Context, workflowID string) (modal.ClaimState, error) {
	var st modal.ClaimState
	if err := s.query(ctx, workflowID, workflows.ClaimStateQuery, &st); err != nil {
		return modal.ClaimState{}, err
	}
	if s.index != nil {
		if err := s.index.SetStage(ctx, workflowID, st.Stage, s.now().UTC()); err != nil && !errors.Is(err, claimindex.ErrNotFound) {
			return st, fmt.Errorf("index claim %s: %w", workflowID, err)
		}
	}
	return st, nil
}

func (s *Service) ListClaims(ctx context.Context) ([]claimindex.Entry, error) {
	if s.index == nil {
		return nil, ErrNoIndex
	}
	return s.index.List(ctx)
}

// ResolveCallback delivers a JSON value to the callback behind token.
func (s *Service) ResolveCallback(ctx context.Context, token string, value json.RawMessage) error {
	return s.resolver.Resolve(ctx, token, value)
}

// OpenInterview delivers createInterview to a session, starting the session workflow
// when it is not running.
func (s *Service) OpenInterview(ctx context.Context, sessionKey string, req modal.CreateInterviewRequest) error {
	start := s.client.NewWithStartWorkflowOperation(client.StartWorkflowOptions{
		ID:                       workflows.SessionWorkflowID(sessionKey),
		TaskQueue:                s.taskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}, workflows.InterviewSessionWorkflow, workflows.SessionInput{SessionKey: sessionKey})

	handle, err := s.client.UpdateWithStartWorkflow(ctx, client.UpdateWithStartWorkflowOptions{
		StartWorkflowOperation: start,
		UpdateOptions: client.UpdateWorkflowOptions{
			UpdateID:     fmt.Sprintf("%s/round-%d", workflows.CreateInterviewUpdate, req.Round),
			UpdateName:   workflows.CreateInterviewUpdate,
			Args:         []interface{}{req},
			WaitForStage: client.WorkflowUpdateStageCompleted,
		},
	})
	if err != nil {
		return err
	}
	return handle.Get(ctx, nil)
}

// PostMessage sends a user message to a session and returns the agent's summary.
// Messages to a closed session fail with an error wrapping faults.ErrSessionClosed.
func (s *Service) PostMessage(ctx context.Context, sessionKey, text string) (reply string, err error) {
	defer func() {
		metrics.UserMessages.WithLabelValues(messageOutcome(err)).Inc()
	}()

	handle, err := s.client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   workflows.SessionWorkflowID(sessionKey),
		UpdateName:   workflows.PostUserMessageUpdate,
		Args:         []interface{}{modal.UserMessage{Message: text}},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return "", classifySession(sessionKey, err)
	}
	if err := handle.Get(ctx, &reply); err != nil {
		return "", classifySession(sessionKey, err)
	}
	return reply, nil
}

func (s *Service) History(ctx context.Context, sessionKey string, offset int) ([]modal.ChatMessage, error) {
	var h []modal.ChatMessage
	if err := s.query(ctx, workflows.SessionWorkflowID(sessionKey), workflows.HistoryQuery, &h, offset); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) SessionState(ctx context.Context, sessionKey string) (modal.SessionState, error) {
	var st modal.SessionState
	err := s.query(ctx, workflows.SessionWorkflowID(sessionKey), workflows.SessionStateQuery, &st)
	return st, err
}

func (s *Service) query(ctx context.Context, workflowID, queryType string, out interface{}, args ...interface{}) error {
	v, err := s.client.QueryWorkflow(ctx, workflowID, "", queryType, args...)
	if err != nil {
		return fmt.Errorf("query %s on %s: %w", queryType, workflowID, err)
	}
	if err := v.Get(out); err != nil {
		return fmt.Errorf("decode %s result: %w", queryType, err)
	}
	return nil
}

// classifySession maps rejected updates of a session to ErrSessionClosed when the
// session refused the message as a protocol violation.
func classifySession(sessionKey string, err error) error {
	if faults.HasKind(err, faults.TypeProtocolViolation) {
		return fmt.Errorf("%w: session %s: %v", faults.ErrSessionClosed, sessionKey, err)
	}
	return fmt.Errorf("post message to session %s: %w", sessionKey, err)
}

func messageOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, faults.ErrSessionClosed):
		return "closed"
	default:
		return "error"
	}
}
