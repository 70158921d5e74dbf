package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"

	"claim-intake-service/internal/claimindex"
	"claim-intake-service/internal/faults"
	"claim-intake-service/internal/modal"
	"claim-intake-service/internal/service"
)

type fakeService struct {
	submitted []modal.ClaimRequest
	resolved  map[string]json.RawMessage
	messages  []string
	states    map[string]modal.ClaimState
	history   []modal.ChatMessage
	session   modal.SessionState
	postErr   error
}

func newFakeService() *fakeService {
	return &fakeService{
		resolved: map[string]json.RawMessage{},
		states:   map[string]modal.ClaimState{},
	}
}

func (f *fakeService) SubmitClaim(_ context.Context, req modal.ClaimRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
	}
	f.submitted = append(f.submitted, req)
	return "claim-1", nil
}

func (f *fakeService) ClaimState(_ context.Context, id string) (modal.ClaimState, error) {
	st, ok := f.states[id]
	if !ok {
		return modal.ClaimState{}, serviceerror.NewNotFound("workflow not found")
	}
	return st, nil
}

func (f *fakeService) ListClaims(context.Context) ([]claimindex.Entry, error) {
	out := make([]claimindex.Entry, 0, len(f.states))
	for id, st := range f.states {
		out = append(out, claimindex.Entry{WorkflowID: id, Stage: st.Stage})
	}
	return out, nil
}

func (f *fakeService) ResolveCallback(_ context.Context, token string, value json.RawMessage) error {
	if _, done := f.resolved[token]; done {
		return fmt.Errorf("%w: already resolved", faults.ErrCallbackRejected)
	}
	f.resolved[token] = value
	return nil
}

func (f *fakeService) PostMessage(_ context.Context, key, text string) (string, error) {
	if f.postErr != nil {
		return "", f.postErr
	}
	f.messages = append(f.messages, key+":"+text)
	return "Claim information is incomplete: which street?", nil
}

func (f *fakeService) History(_ context.Context, _ string, offset int) ([]modal.ChatMessage, error) {
	if offset > len(f.history) {
		offset = len(f.history)
	}
	return f.history[offset:], nil
}

func (f *fakeService) SessionState(context.Context, string) (modal.SessionState, error) {
	return f.session, nil
}

func serve(t *testing.T, svc claimService) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newRouter(svc, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSubmitClaim(t *testing.T) {
	svc := newFakeService()
	srv := serve(t, svc)

	resp := post(t, srv.URL+"/claims", `{"user":{"name":"Ada"},"description":"bent wheel","images":["a.png"],"amount":120}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out submitResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "claim-1", out.WorkflowID)
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, []string{"a.png"}, svc.submitted[0].Images)

	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/claims", `{"description":"","amount":0}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/claims", `not json`).StatusCode)
}

func TestClaimState(t *testing.T) {
	svc := newFakeService()
	svc.states["claim-1"] = modal.ClaimState{Stage: modal.StageHumanReview, ReviewToken: "cb1.x.y"}
	srv := serve(t, svc)

	resp := get(t, srv.URL+"/claims/claim-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st modal.ClaimState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "cb1.x.y", st.ReviewToken)

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/claims/claim-9").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/claims").StatusCode)
}

func TestResolveCallback(t *testing.T) {
	svc := newFakeService()
	srv := serve(t, svc)

	resp := post(t, srv.URL+"/callbacks/cb1.x.y/resolve", `{"status":"approved"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"approved"}`, string(svc.resolved["cb1.x.y"]))

	assert.Equal(t, http.StatusConflict, post(t, srv.URL+"/callbacks/cb1.x.y/resolve", `{"status":"rejected"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/callbacks/cb1.x.z/resolve", `{oops`).StatusCode)
}

func TestInterviewMessages(t *testing.T) {
	svc := newFakeService()
	srv := serve(t, svc)

	resp := post(t, srv.URL+"/interviews/k/messages", `{"message":"Main Street"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out messageResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Claim information is incomplete: which street?", out.Reply)
	assert.Equal(t, []string{"k:Main Street"}, svc.messages)

	assert.Equal(t, http.StatusBadRequest, post(t, srv.URL+"/interviews/k/messages", `{"message":""}`).StatusCode)

	svc.postErr = fmt.Errorf("%w: session k", faults.ErrSessionClosed)
	assert.Equal(t, http.StatusConflict, post(t, srv.URL+"/interviews/k/messages", `{"message":"late"}`).StatusCode)

	svc.postErr = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, post(t, srv.URL+"/interviews/k/messages", `{"message":"x"}`).StatusCode)
}

func TestInterviewHistory(t *testing.T) {
	svc := newFakeService()
	svc.history = []modal.ChatMessage{modal.AgentTurn("Where?"), modal.UserTurn("Main Street")}
	srv := serve(t, svc)

	resp := get(t, srv.URL+"/interviews/k/history?offset=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var h []modal.ChatMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, []modal.ChatMessage{{User: "Main Street"}}, h)

	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/interviews/k/history?offset=abc").StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := serve(t, newFakeService())
	resp := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUI_DecisionResolvesReviewToken(t *testing.T) {
	svc := newFakeService()
	svc.states["claim-1"] = modal.ClaimState{
		Stage:            modal.StageHumanReview,
		ReviewToken:      "cb1.x.y",
		ClaimDescription: modal.ClaimDescription{ObjectDescription: "Bicycle", LocationOfIncident: modal.UnknownMarker + ": missing"},
	}
	srv := serve(t, svc)

	page := get(t, srv.URL+"/ui/claims/claim-1")
	body, err := io.ReadAll(page.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `value="cb1.x.y"`)
	assert.Contains(t, string(body), `class="unknown"`)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.PostForm(srv.URL+"/ui/claims/claim-1/decision", url.Values{
		"token":   {"cb1.x.y"},
		"status":  {"request_info"},
		"comment": {"Need the date"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.JSONEq(t, `{"status":"request_info","comment":"Need the date"}`, string(svc.resolved["cb1.x.y"]))

	bad, err := client.PostForm(srv.URL+"/ui/claims/claim-1/decision", url.Values{"token": {"cb1.x.y"}, "status": {"maybe"}})
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestUI_Chat(t *testing.T) {
	svc := newFakeService()
	svc.session = modal.SessionState{Status: modal.SessionOpen}
	svc.history = []modal.ChatMessage{modal.AgentTurn("Where did it happen?")}
	srv := serve(t, svc)

	page := get(t, srv.URL+"/ui/chat/k")
	body, err := io.ReadAll(page.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Where did it happen?")
	assert.Contains(t, string(body), `action="/ui/chat/k"`)
	assert.NotContains(t, string(body), "was not delivered")

	svc.session = modal.SessionState{
		Status:      modal.SessionClosed,
		Undelivered: &modal.Undelivered{Token: "cb1.a.b", Round: 1, Error: "workflow execution not found"},
	}
	closed := get(t, srv.URL+"/ui/chat/k")
	closedBody, err := io.ReadAll(closed.Body)
	require.NoError(t, err)
	assert.Contains(t, string(closedBody), "Round 1 finished but its result was not delivered: workflow execution not found")

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.PostForm(srv.URL+"/ui/chat/k", url.Values{"message": {"Main Street"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, []string{"k:Main Street"}, svc.messages)
}
