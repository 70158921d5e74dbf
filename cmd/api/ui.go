package main

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"claim-intake-service/internal/claimindex"
	"claim-intake-service/internal/modal"
)

type uiServer struct {
	svc claimService
	t   *template.Template
}

type uiClaimRow struct {
	Entry claimindex.Entry
	State modal.ClaimState
}

type uiIndexData struct {
	Tab    string
	Claims []uiClaimRow
	Error  string
}

type uiFieldRow struct {
	Name  string
	Value string
	State modal.FieldState
}

type uiDetailData struct {
	WorkflowID string
	State      modal.ClaimState
	Fields     []uiFieldRow
	Error      string
}

type uiChatData struct {
	SessionKey string
	Session    modal.SessionState
	History    []modal.ChatMessage
	Reply      string
	Error      string
}

func registerUIRoutes(r chi.Router, svc claimService) {
	t := template.Must(template.New("base").Parse(uiTemplates))
	s := &uiServer{svc: svc, t: t}

	r.Get("/ui", s.handleIndex)
	r.Get("/ui/claims/{workflowId}", s.handleDetail)
	r.Post("/ui/claims/{workflowId}/decision", s.handleDecision)
	r.Get("/ui/chat/{key}", s.handleChat)
	r.Post("/ui/chat/{key}", s.handleChatPost)
}

// handleIndex lists indexed claims. The review tab queries each running claim and
// keeps the ones waiting for a reviewer.
func (s *uiServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	if tab != "all" {
		tab = "review"
	}
	data := uiIndexData{Tab: tab}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	entries, err := s.svc.ListClaims(ctx)
	if err != nil {
		data.Error = err.Error()
		_ = s.t.ExecuteTemplate(w, "index", data)
		return
	}

	for _, e := range entries {
		if tab == "all" {
			data.Claims = append(data.Claims, uiClaimRow{Entry: e, State: modal.ClaimState{Stage: e.Stage}})
			continue
		}
		if e.Stage == modal.StageApproved || e.Stage == modal.StageRejected {
			continue
		}
		st, err := s.queryClaim(ctx, e.WorkflowID)
		if err != nil || st.ReviewToken == "" {
			continue
		}
		data.Claims = append(data.Claims, uiClaimRow{Entry: e, State: st})
		if len(data.Claims) >= 100 {
			break
		}
	}
	_ = s.t.ExecuteTemplate(w, "index", data)
}

func (s *uiServer) handleDetail(w http.ResponseWriter, r *http.Request) {
	wid := chi.URLParam(r, "workflowId")
	data := uiDetailData{WorkflowID: wid}

	st, err := s.queryClaim(r.Context(), wid)
	if err != nil {
		data.Error = err.Error()
		_ = s.t.ExecuteTemplate(w, "detail", data)
		return
	}
	data.State = st
	for _, f := range st.ClaimDescription.Fields() {
		data.Fields = append(data.Fields, uiFieldRow{Name: f[0], Value: f[1], State: modal.ClassifyField(f[1])})
	}
	_ = s.t.ExecuteTemplate(w, "detail", data)
}

// handleDecision resolves the claim's review callback with the reviewer's evaluation.
func (s *uiServer) handleDecision(w http.ResponseWriter, r *http.Request) {
	wid := chi.URLParam(r, "workflowId")

	eval := modal.Evaluation{
		Status:  modal.EvaluationStatus(r.FormValue("status")),
		Comment: r.FormValue("comment"),
	}
	if err := eval.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	value, err := json.Marshal(eval)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := s.svc.ResolveCallback(ctx, r.FormValue("token"), value); err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, "/ui/claims/"+url.PathEscape(wid), http.StatusSeeOther)
}

func (s *uiServer) handleChat(w http.ResponseWriter, r *http.Request) {
	data := uiChatData{SessionKey: chi.URLParam(r, "key"), Reply: r.URL.Query().Get("reply")}
	s.renderChat(r.Context(), w, data)
}

func (s *uiServer) handleChatPost(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	msg := r.FormValue("message")
	if msg == "" {
		http.Redirect(w, r, "/ui/chat/"+url.PathEscape(key), http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Minute)
	defer cancel()

	reply, err := s.svc.PostMessage(ctx, key, msg)
	if err != nil {
		s.renderChat(r.Context(), w, uiChatData{SessionKey: key, Error: err.Error()})
		return
	}
	http.Redirect(w, r, "/ui/chat/"+url.PathEscape(key)+"?reply="+url.QueryEscape(reply), http.StatusSeeOther)
}

func (s *uiServer) renderChat(ctx context.Context, w http.ResponseWriter, data uiChatData) {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	session, err := s.svc.SessionState(cctx, data.SessionKey)
	if err != nil {
		if data.Error == "" {
			data.Error = err.Error()
		}
		_ = s.t.ExecuteTemplate(w, "chat", data)
		return
	}
	data.Session = session
	data.History, err = s.svc.History(cctx, data.SessionKey, 0)
	if err != nil && data.Error == "" {
		data.Error = err.Error()
	}
	_ = s.t.ExecuteTemplate(w, "chat", data)
}

func (s *uiServer) queryClaim(ctx context.Context, wid string) (modal.ClaimState, error) {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.svc.ClaimState(cctx, wid)
}

const uiTemplates = `
{{define "style"}}
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .tabs a { margin-right: 12px; }
    table { border-collapse: collapse; width: 100%; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 8px; vertical-align: top; }
    .err { color: #b00020; }
    .muted { color: #666; }
    .unknown { background: #fff6d5; }
    .contradiction { background: #fde2e2; }
    .agent { background: #f1f5fb; padding: 8px 12px; margin: 8px 0; white-space: pre-wrap; }
    .user { background: #eef8ee; padding: 8px 12px; margin: 8px 0 8px 48px; white-space: pre-wrap; }
  </style>
{{end}}

{{define "index"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Claim Intake</title>
  {{template "style"}}
</head>
<body>
  <h2>Claim Intake</h2>

  <div class="tabs">
    <a href="/ui?tab=review">Awaiting review</a>
    <a href="/ui?tab=all">All claims</a>
  </div>

  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}

  {{if eq .Tab "review"}}
    <h3>Claims awaiting a reviewer</h3>
  {{else}}
    <h3>All claims</h3>
    <p class="muted">Stages are the last ones observed by this API.</p>
  {{end}}
  <table>
    <thead><tr><th>Claim</th><th>Submitter</th><th>Amount</th><th>Stage</th><th>Submitted</th></tr></thead>
    <tbody>
    {{range .Claims}}
      <tr>
        <td><a href="/ui/claims/{{.Entry.WorkflowID}}">{{.Entry.WorkflowID}}</a></td>
        <td>{{.Entry.Submitter.Name}}</td>
        <td>{{printf "%.2f" .Entry.Amount}}</td>
        <td>{{.State.Stage}}</td>
        <td>{{.Entry.SubmittedAt.Format "2006-01-02 15:04"}}</td>
      </tr>
    {{end}}
    </tbody>
  </table>
</body>
</html>
{{end}}

{{define "detail"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Claim {{.WorkflowID}}</title>
  {{template "style"}}
</head>
<body>
  <a href="/ui">&larr; Back</a>
  <h2>Claim {{.WorkflowID}}</h2>

  {{if .Error}}<p class="err">{{.Error}}</p>{{else}}
  <p><b>Stage:</b> {{.State.Stage}}<br/>
     <b>Submitter:</b> {{.State.Request.User.Name}} ({{.State.Request.User.Email}})<br/>
     <b>Amount:</b> {{printf "%.2f" .State.Request.Amount}}<br/>
     <b>Note:</b> {{.State.Request.Description}}</p>

  <h3>Claim description</h3>
  <table>
    <tbody>
    {{range .Fields}}
      <tr class="{{.State}}"><th>{{.Name}}</th><td>{{.Value}}</td></tr>
    {{end}}
    </tbody>
  </table>

  {{if .State.SessionKey}}
    <p>Interview rounds: {{.State.InterviewRound}}
    {{if .State.InterviewRound}}(<a href="/ui/chat/{{.State.SessionKey}}">transcript</a>){{end}}</p>
  {{end}}

  <h3>Review</h3>
  {{if .State.ReviewToken}}
    <form method="post" action="/ui/claims/{{.WorkflowID}}/decision">
      <input type="hidden" name="token" value="{{.State.ReviewToken}}"/>
      <label>Comment:<br/><textarea name="comment" rows="3" cols="80"></textarea></label><br/><br/>
      <button name="status" value="approved" type="submit">Approve</button>
      <button name="status" value="rejected" type="submit">Reject</button>
      <button name="status" value="request_info" type="submit">Request more information</button>
    </form>
  {{else}}
    <p class="muted">(No review pending)</p>
    {{if .State.ReviewComment}}<p>Last reviewer comment: {{.State.ReviewComment}}</p>{{end}}
  {{end}}

  <h3>Audit Log</h3>
  <table>
    <thead><tr><th>Time</th><th>Kind</th><th>Message</th></tr></thead>
    <tbody>
      {{range .State.Audit}}
        <tr>
          <td>{{.At.Format "2006-01-02 15:04:05"}}</td>
          <td>{{.Kind}}</td>
          <td>{{.Message}}</td>
        </tr>
      {{end}}
    </tbody>
  </table>
  {{end}}
</body>
</html>
{{end}}

{{define "chat"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Claim interview</title>
  {{template "style"}}
</head>
<body>
  <h2>Claim interview</h2>
  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}
  {{with .Session.Undelivered}}<p class="err">Round {{.Round}} finished but its result was not delivered: {{.Error}}</p>{{end}}

  {{range .History}}
    {{if .User}}<div class="user">{{.User}}</div>{{else}}<div class="agent">{{.Agent}}</div>{{end}}
  {{end}}

  {{if .Reply}}<p class="muted">{{.Reply}}</p>{{end}}

  {{if eq .Session.Status "open"}}
    <form method="post" action="/ui/chat/{{.SessionKey}}">
      <textarea name="message" rows="3" cols="80"></textarea><br/>
      <button type="submit">Send</button>
    </form>
  {{else}}
    <p class="muted">This interview is closed. Thank you!</p>
  {{end}}
</body>
</html>
{{end}}
`
