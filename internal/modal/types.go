package modal

type Verdict string

const (
	VerdictComplete   Verdict = "complete"
	VerdictIncomplete Verdict = "incomplete"
)

type EvaluationStatus string

const (
	EvaluationApproved    EvaluationStatus = "approved"
	EvaluationRejected    EvaluationStatus = "rejected"
	EvaluationRequestInfo EvaluationStatus = "request_info"
)

// Terminal reports whether the status ends the claim workflow.
func (s EvaluationStatus) Terminal() bool {
	return s == EvaluationApproved || s == EvaluationRejected
}

type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// Stage is the position of a claim run in its state machine.
type Stage string

const (
	StageIntake            Stage = "intake"
	StageCompletenessCheck Stage = "completeness_check"
	StageInterviewing      Stage = "interviewing"
	StageHumanReview       Stage = "human_review"
	StageApproved          Stage = "approved"
	StageRejected          Stage = "rejected"
)

type FieldState string

const (
	FieldSupported     FieldState = "supported"
	FieldUnknown       FieldState = "unknown"
	FieldContradiction FieldState = "contradiction"
)
