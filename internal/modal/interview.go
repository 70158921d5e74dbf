package modal

import "errors"

// ChatMessage is one transcript turn. Exactly one of Agent and User is set.
type ChatMessage struct {
	Agent string `json:"agent,omitempty"`
	User  string `json:"user,omitempty"`
}

type Author string

const (
	AuthorAgent Author = "agent"
	AuthorUser  Author = "user"
)

func AgentTurn(text string) ChatMessage { return ChatMessage{Agent: text} }
func UserTurn(text string) ChatMessage  { return ChatMessage{User: text} }

func (m ChatMessage) Author() Author {
	if m.User != "" {
		return AuthorUser
	}
	return AuthorAgent
}

func (m ChatMessage) Text() string {
	if m.User != "" {
		return m.User
	}
	return m.Agent
}

type InterviewRequest struct {
	ClaimDescription ClaimDescription `json:"claimDescription"`
	RequestForInfo   string           `json:"requestForInfo"`
}

// InterviewResponse is the output of one refinement step.
type InterviewResponse struct {
	Status             Verdict          `json:"status"`
	RefinedDescription ClaimDescription `json:"refinedDescription"`
	Message            string           `json:"message"`
}

// CreateInterviewRequest opens (or re-affirms) an interview session for one round.
type CreateInterviewRequest struct {
	Interview  InterviewRequest `json:"interview"`
	OnComplete string           `json:"onComplete"`
	Round      int              `json:"round"`
}

func (r CreateInterviewRequest) Validate() error {
	if r.OnComplete == "" {
		return errors.New("completion callback token is required")
	}
	if r.Round < 1 {
		return errors.New("interview round must be at least 1")
	}
	return nil
}

type UserMessage struct {
	Message string `json:"message"`
}

// AwaitInterviewInput starts one interview round on a session.
type AwaitInterviewInput struct {
	SessionKey string           `json:"sessionKey"`
	Round      int              `json:"round"`
	Interview  InterviewRequest `json:"interview"`
}

// RefineInput is the input of the interview refinement step.
type RefineInput struct {
	ClaimDescription ClaimDescription `json:"claimDescription"`
	RequestForInfo   string           `json:"requestForInfo"`
	ChatHistory      []ChatMessage    `json:"chatHistory"`
}

// CompletenessInput is the input of the completeness check step.
type CompletenessInput struct {
	ClaimDescription ClaimDescription `json:"claimDescription"`
	ReviewComment    string           `json:"reviewComment,omitempty"`
}

type CompletenessVerdict struct {
	Complete       Verdict `json:"complete"`
	RequestForInfo string  `json:"requestForInfo"`
}

// SessionState is the query view of an interview session.
type SessionState struct {
	Status           SessionStatus    `json:"status"`
	ClaimDescription ClaimDescription `json:"claimDescription"`
	RequestForInfo   string           `json:"requestForInfo"`
	Round            int              `json:"round"`
	Turns            int              `json:"turns"`
	AwaitingCallback bool             `json:"awaitingCallback"`
	Undelivered      *Undelivered     `json:"undelivered,omitempty"`
}

// Undelivered records a finished round whose waiter could not be signalled.
type Undelivered struct {
	Token string `json:"token"`
	Round int    `json:"round"`
	Error string `json:"error"`
}
