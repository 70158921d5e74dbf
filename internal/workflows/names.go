package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"
)

const TaskQueue = "CLAIM_INTAKE_TASK_QUEUE"

// Workflow type names.
const (
	ProcessClaimWorkflow     = "ProcessClaim"
	AwaitInterviewWorkflow   = "AwaitInterview"
	InterviewSessionWorkflow = "InterviewSession"
)

// Handler names.
const (
	ClaimStateQuery       = "claim_state"
	CreateInterviewUpdate = "createInterview"
	PostUserMessageUpdate = "postUserMessage"
	HistoryQuery          = "getHistory"
	SessionStateQuery     = "session_state"
	RetireSignal          = "retire"
)

// Step names.
const (
	StepIntake            = "build initial claim description"
	StepCheckCompleteness = "check completeness of claim description"
	StepNotifyReviewer    = "notify human reviewer"
	StepCreateInterview   = "create interview"
	StepProcessInterview  = "process interview response"
)

func stepAskUser(sessionKey string) string {
	return "ask user for input at session " + sessionKey
}

func ClaimWorkflowID(id string) string { return "claim-" + id }

func SessionWorkflowID(sessionKey string) string { return "interview-" + sessionKey }

func RoundWorkflowID(sessionKey string, round int) string {
	return fmt.Sprintf("interview-%s/round-%d", sessionKey, round)
}

// Registrar is satisfied by worker.Worker and the test workflow environment.
type Registrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
}
