package modal

import (
	"fmt"
	"strings"
	"time"
)

// Evaluation is the human reviewer's decision on a claim.
type Evaluation struct {
	Status  EvaluationStatus `json:"status"`
	Comment string           `json:"comment,omitempty"`
}

func (e Evaluation) Validate() error {
	switch e.Status {
	case EvaluationApproved, EvaluationRejected:
		return nil
	case EvaluationRequestInfo:
		if strings.TrimSpace(e.Comment) == "" {
			return fmt.Errorf("evaluation %q needs a comment", e.Status)
		}
		return nil
	default:
		return fmt.Errorf("unknown evaluation status %q", e.Status)
	}
}

// ReviewRequest is the payload delivered to the human-notification sink.
type ReviewRequest struct {
	ClaimDescription ClaimDescription `json:"claimDescription"`
	CallbackID       string           `json:"callbackId"`
}

// UserNotification is the payload delivered to the user-notification sink.
type UserNotification struct {
	SessionID string `json:"sessionId"`
}

type AuditEvent struct {
	At      time.Time      `json:"at"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// ClaimState is the query view of a running claim.
type ClaimState struct {
	Stage            Stage            `json:"stage"`
	Request          ClaimRequest     `json:"request"`
	ClaimDescription ClaimDescription `json:"claimDescription"`
	SessionKey       string           `json:"sessionKey,omitempty"`
	InterviewRound   int              `json:"interviewRound"`
	ReviewToken      string           `json:"reviewToken,omitempty"`
	ReviewComment    string           `json:"reviewComment,omitempty"`
	PendingCallbacks int              `json:"pendingCallbacks"`
	Audit            []AuditEvent     `json:"audit,omitempty"`
}
