package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"

	"claim-intake-service/internal/claimindex"
	"claim-intake-service/internal/faults"
	"claim-intake-service/internal/modal"
	"claim-intake-service/internal/workflows"
)

// encoded is a converter.EncodedValue over an in-memory value.
type encoded struct{ v interface{} }

func (e encoded) HasValue() bool { return e.v != nil }

func (e encoded) Get(out interface{}) error {
	raw, err := json.Marshal(e.v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

type handle struct {
	client.WorkflowUpdateHandle
	result interface{}
	err    error
}

func (h handle) Get(_ context.Context, out interface{}) error {
	if h.err != nil {
		return h.err
	}
	if out == nil {
		return nil
	}
	return encoded{h.result}.Get(out)
}

type startOp struct {
	client.WithStartWorkflowOperation
}

func openIndex(t *testing.T) *claimindex.Store {
	t.Helper()
	idx, err := claimindex.Open(filepath.Join(t.TempDir(), "claims.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

var request = modal.ClaimRequest{
	User:        modal.User{Name: "Ada"},
	Description: "bent wheel",
	Amount:      99,
}

func TestSubmitClaim(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("claim-abc")
	run.On("GetRunID").Return("run-1")
	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.TaskQueue == "q" && len(o.ID) > len("claim-")
	}), workflows.ProcessClaimWorkflow, request).Return(run, nil).Once()

	idx := openIndex(t)
	id, err := New(c, "q", idx).SubmitClaim(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "claim-abc", id)

	e, err := idx.Get(context.Background(), "claim-abc")
	require.NoError(t, err)
	assert.Equal(t, "run-1", e.RunID)
	assert.Equal(t, modal.StageIntake, e.Stage)
	c.AssertExpectations(t)
}

func TestSubmitClaim_Invalid(t *testing.T) {
	c := &mocks.Client{}
	_, err := New(c, "q", nil).SubmitClaim(context.Background(), modal.ClaimRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	c.AssertNotCalled(t, "ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClaimState_RefreshesIndex(t *testing.T) {
	c := &mocks.Client{}
	c.On("QueryWorkflow", mock.Anything, "claim-abc", "", workflows.ClaimStateQuery).
		Return(encoded{modal.ClaimState{Stage: modal.StageHumanReview, ReviewToken: "cb1.x.y"}}, nil).Once()

	idx := openIndex(t)
	require.NoError(t, idx.Put(context.Background(), claimindex.Entry{WorkflowID: "claim-abc", Stage: modal.StageIntake}))

	st, err := New(c, "q", idx).ClaimState(context.Background(), "claim-abc")
	require.NoError(t, err)
	assert.Equal(t, "cb1.x.y", st.ReviewToken)

	e, err := idx.Get(context.Background(), "claim-abc")
	require.NoError(t, err)
	assert.Equal(t, modal.StageHumanReview, e.Stage)
}

func TestListClaims_NoIndex(t *testing.T) {
	_, err := New(&mocks.Client{}, "q", nil).ListClaims(context.Background())
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestOpenInterview(t *testing.T) {
	c := &mocks.Client{}
	req := modal.CreateInterviewRequest{OnComplete: "cb1.x.y", Round: 2}
	op := startOp{}
	c.On("NewWithStartWorkflowOperation", mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.ID == "interview-k" &&
			o.TaskQueue == "q" &&
			o.WorkflowIDConflictPolicy == enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING
	}), workflows.InterviewSessionWorkflow, workflows.SessionInput{SessionKey: "k"}).Return(op).Once()
	c.On("UpdateWithStartWorkflow", mock.Anything, mock.MatchedBy(func(o client.UpdateWithStartWorkflowOptions) bool {
		return o.UpdateOptions.UpdateName == workflows.CreateInterviewUpdate &&
			o.UpdateOptions.UpdateID == "createInterview/round-2" &&
			o.UpdateOptions.Args[0] == req
	})).Return(handle{}, nil).Once()

	require.NoError(t, New(c, "q", nil).OpenInterview(context.Background(), "k", req))
	c.AssertExpectations(t)
}

func TestPostMessage(t *testing.T) {
	c := &mocks.Client{}
	c.On("UpdateWorkflow", mock.Anything, mock.MatchedBy(func(o client.UpdateWorkflowOptions) bool {
		return o.WorkflowID == "interview-k" && o.UpdateName == workflows.PostUserMessageUpdate
	})).Return(handle{result: "Claim information is complete: thanks"}, nil).Once()

	reply, err := New(c, "q", nil).PostMessage(context.Background(), "k", "Main Street")
	require.NoError(t, err)
	assert.Equal(t, "Claim information is complete: thanks", reply)
}

func TestPostMessage_ClosedSession(t *testing.T) {
	c := &mocks.Client{}
	rejected := temporal.NewNonRetryableApplicationError(faults.ErrSessionClosed.Error(), faults.TypeProtocolViolation, nil)
	c.On("UpdateWorkflow", mock.Anything, mock.Anything).Return(handle{err: rejected}, nil).Once()

	_, err := New(c, "q", nil).PostMessage(context.Background(), "k", "hello")
	assert.ErrorIs(t, err, faults.ErrSessionClosed)
}

func TestPostMessage_TransportError(t *testing.T) {
	c := &mocks.Client{}
	c.On("UpdateWorkflow", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable")).Once()

	_, err := New(c, "q", nil).PostMessage(context.Background(), "k", "hello")
	require.Error(t, err)
	assert.False(t, errors.Is(err, faults.ErrSessionClosed))
}

func TestHistory(t *testing.T) {
	c := &mocks.Client{}
	c.On("QueryWorkflow", mock.Anything, "interview-k", "", workflows.HistoryQuery, 2).
		Return(encoded{[]modal.ChatMessage{modal.UserTurn("Main Street")}}, nil).Once()

	h, err := New(c, "q", nil).History(context.Background(), "k", 2)
	require.NoError(t, err)
	assert.Equal(t, []modal.ChatMessage{{User: "Main Street"}}, h)
}
