package workflows

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/workflow"

	"claim-intake-service/internal/callback"
	"claim-intake-service/internal/durable"
	"claim-intake-service/internal/faults"
	"claim-intake-service/internal/modal"
)

// Session state keys.
const (
	keyStatus           = "status"
	keyClaimDescription = "claimDescription"
	keyRequestForInfo   = "requestForInfo"
	keyChatHistory      = "chatHistory"
	keyCallback         = "callback"
	keyRound            = "round"
	keyUndelivered      = "undelivered"
)

// SessionInput starts or continues an interview session.
type SessionInput struct {
	SessionKey string                     `json:"sessionKey"`
	Snapshot   map[string]json.RawMessage `json:"snapshot,omitempty"`
}

type session struct {
	key     string
	policy  durable.RetryPolicy
	state   *durable.State
	logger  log.Logger
	busy    bool
	retired bool
}

// InterviewSession is the entity behind one interview session key. It owns the
// transcript and handles one operation at a time; reads never wait.
func (w *Workflows) InterviewSession(ctx workflow.Context, in SessionInput) error {
	s := &session{
		key:    in.SessionKey,
		policy: w.Policy,
		state:  durable.NewState(in.Snapshot),
		logger: workflow.GetLogger(ctx),
	}

	if err := workflow.SetQueryHandler(ctx, HistoryQuery, s.history); err != nil {
		return err
	}
	if err := workflow.SetQueryHandler(ctx, SessionStateQuery, s.view); err != nil {
		return err
	}
	if err := workflow.SetUpdateHandlerWithOptions(ctx, CreateInterviewUpdate, s.createInterview, workflow.UpdateHandlerOptions{
		Validator: s.validateCreate,
	}); err != nil {
		return err
	}
	if err := workflow.SetUpdateHandlerWithOptions(ctx, PostUserMessageUpdate, s.postUserMessage, workflow.UpdateHandlerOptions{
		Validator: s.validatePost,
	}); err != nil {
		return err
	}

	retire := workflow.GetSignalChannel(ctx, RetireSignal)
	workflow.Go(ctx, func(ctx workflow.Context) {
		retire.Receive(ctx, nil)
		s.retired = true
	})

	err := workflow.Await(ctx, func() bool {
		return s.retired || (!s.busy && workflow.GetInfo(ctx).GetContinueAsNewSuggested())
	})
	if err != nil {
		return err
	}
	if err := workflow.Await(ctx, func() bool { return !s.busy && workflow.AllHandlersFinished(ctx) }); err != nil {
		return err
	}

	if s.retired {
		s.logger.Info("interview session retired", "sessionKey", s.key)
		return nil
	}
	s.logger.Info("interview session continuing as new", "sessionKey", s.key)
	return workflow.NewContinueAsNewError(ctx, InterviewSessionWorkflow, SessionInput{
		SessionKey: s.key,
		Snapshot:   s.state.Snapshot(),
	})
}

func (s *session) acquire(ctx workflow.Context) error {
	if err := workflow.Await(ctx, func() bool { return !s.busy }); err != nil {
		return err
	}
	s.busy = true
	return nil
}

func (s *session) release() { s.busy = false }

func (s *session) status() modal.SessionStatus {
	var st modal.SessionStatus
	_, _ = s.state.Get(keyStatus, &st)
	return st
}

func (s *session) round() int {
	var r int
	_, _ = s.state.Get(keyRound, &r)
	return r
}

func (s *session) transcript() ([]modal.ChatMessage, error) {
	history := make([]modal.ChatMessage, 0)
	if _, err := s.state.Get(keyChatHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *session) validateCreate(req modal.CreateInterviewRequest) error {
	if err := req.Validate(); err != nil {
		return faults.Permanent(faults.TypeInvalidInput, "invalid interview request", err)
	}
	if s.retired {
		return faults.Protocol(faults.ErrSessionClosed)
	}
	if s.status() == modal.SessionClosed && req.Round <= s.round() {
		return faults.Protocol(fmt.Errorf("%w: round %d after round %d", faults.ErrStaleInterview, req.Round, s.round()))
	}
	return nil
}

// createInterview opens the session for a new round. Repeating the current round with
// the same callback is a no-op.
func (s *session) createInterview(ctx workflow.Context, req modal.CreateInterviewRequest) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	if err := s.validateCreate(req); err != nil {
		return err
	}
	var current string
	_, _ = s.state.Get(keyCallback, &current)
	if s.status() == modal.SessionOpen && s.round() == req.Round && current == req.OnComplete {
		return nil
	}

	history, err := s.transcript()
	if err != nil {
		return err
	}
	history = append(history, modal.AgentTurn(initialMessage(req.Interview.ClaimDescription, req.Interview.RequestForInfo)))

	return errors.Join(
		s.state.Set(keyStatus, modal.SessionOpen),
		s.state.Set(keyClaimDescription, req.Interview.ClaimDescription),
		s.state.Set(keyRequestForInfo, req.Interview.RequestForInfo),
		s.state.Set(keyRound, req.Round),
		s.state.Set(keyChatHistory, history),
		s.state.Set(keyCallback, req.OnComplete),
	)
}

func (s *session) validatePost(msg modal.UserMessage) error {
	if s.retired || s.status() != modal.SessionOpen {
		return faults.Protocol(faults.ErrSessionClosed)
	}
	if msg.Message == "" {
		return faults.Permanent(faults.TypeInvalidInput, "message is empty", nil)
	}
	return nil
}

// postUserMessage records a user answer and the agent's reply. The transcript only
// changes once the refinement step has succeeded.
func (s *session) postUserMessage(ctx workflow.Context, msg modal.UserMessage) (string, error) {
	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.release()

	if err := s.validatePost(msg); err != nil {
		return "", err
	}

	var desc modal.ClaimDescription
	var request string
	if _, err := s.state.Get(keyClaimDescription, &desc); err != nil {
		return "", err
	}
	if _, err := s.state.Get(keyRequestForInfo, &request); err != nil {
		return "", err
	}
	history, err := s.transcript()
	if err != nil {
		return "", err
	}
	history = append(history, modal.UserTurn(msg.Message))

	resp, err := durable.Step[modal.InterviewResponse](ctx, StepProcessInterview, s.policy, acts.RefineInterview,
		modal.RefineInput{ClaimDescription: desc, RequestForInfo: request, ChatHistory: history})
	if err != nil {
		return "", err
	}

	history = append(history, modal.AgentTurn(resp.Message))
	if err := s.state.Set(keyChatHistory, history); err != nil {
		return "", err
	}

	if resp.Status == modal.VerdictComplete {
		if err := s.complete(ctx, resp.RefinedDescription); err != nil {
			return "", err
		}
	}
	return summary(resp), nil
}

// complete closes the session and hands the refined description to whoever is
// waiting on the callback.
func (s *session) complete(ctx workflow.Context, refined modal.ClaimDescription) error {
	if err := errors.Join(
		s.state.Set(keyStatus, modal.SessionClosed),
		s.state.Set(keyClaimDescription, refined),
	); err != nil {
		return err
	}

	var token string
	if ok, _ := s.state.Get(keyCallback, &token); ok && token != "" {
		tok, err := callback.ParseToken(token)
		if err == nil {
			err = callback.Signal(ctx, tok, refined)
		}
		if err != nil {
			// The transcript and the closed status stand; the stranded round stays
			// visible in the session state.
			s.logger.Error("could not resolve interview callback", "sessionKey", s.key, "error", err)
			if err := s.state.Set(keyUndelivered, modal.Undelivered{Token: token, Round: s.round(), Error: err.Error()}); err != nil {
				return err
			}
		} else {
			s.state.Clear(keyUndelivered)
		}
	}
	s.state.Clear(keyCallback)
	s.logger.Info("interview session closed", "sessionKey", s.key, "round", s.round())
	return nil
}

// history returns the transcript from offset on. Offsets are clamped to the
// transcript bounds.
func (s *session) history(offset int) ([]modal.ChatMessage, error) {
	history, err := s.transcript()
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(history) {
		offset = len(history)
	}
	return history[offset:], nil
}

func (s *session) view() (modal.SessionState, error) {
	v := modal.SessionState{
		Status:           s.status(),
		Round:            s.round(),
		AwaitingCallback: s.state.Has(keyCallback),
	}
	if _, err := s.state.Get(keyClaimDescription, &v.ClaimDescription); err != nil {
		return v, err
	}
	if _, err := s.state.Get(keyRequestForInfo, &v.RequestForInfo); err != nil {
		return v, err
	}
	var undelivered modal.Undelivered
	ok, err := s.state.Get(keyUndelivered, &undelivered)
	if err != nil {
		return v, err
	}
	if ok {
		v.Undelivered = &undelivered
	}
	history, err := s.transcript()
	if err != nil {
		return v, err
	}
	v.Turns = len(history)
	return v, nil
}
