// Command sinks stands in for the reviewer and user notification services during
// local runs. It prints each notification with the command that answers it.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"claim-intake-service/internal/config"
	"claim-intake-service/internal/logging"
	"claim-intake-service/internal/modal"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Width(26).Foreground(lipgloss.Color("8"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func main() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("unable to load config")
	}
	logger := logging.New(cfg.Log)

	errc := make(chan error, 2)
	for _, s := range []struct {
		target  string
		handler http.HandlerFunc
	}{
		{cfg.Notify.ReviewerURL, reviewerHandler(os.Stdout, cfg.API.PublicURL)},
		{cfg.Notify.UserURL, userHandler(os.Stdout, cfg.API.PublicURL)},
	} {
		u, err := url.Parse(s.target)
		if err != nil || u.Host == "" {
			logger.Fatal().Str("url", s.target).Msg("invalid sink url")
		}
		r := newRouter(u.Path, s.handler)
		logger.Info().Str("addr", u.Host).Str("path", routePath(u.Path)).Msg("sink listening")
		go func(addr string) { errc <- http.ListenAndServe(addr, r) }(u.Host)
	}
	logger.Fatal().Err(<-errc).Msg("sink stopped")
}

func routePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

func newRouter(path string, h http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post(routePath(path), h)
	return r
}

func reviewerHandler(w io.Writer, publicURL string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var req modal.ReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, renderReview(req, publicURL))
		rw.WriteHeader(http.StatusNoContent)
	}
}

func userHandler(w io.Writer, publicURL string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var msg modal.UserNotification
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		if msg.SessionID == "" {
			http.Error(rw, "sessionId is required", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, renderUser(msg, publicURL))
		rw.WriteHeader(http.StatusNoContent)
	}
}

func renderReview(req modal.ReviewRequest, publicURL string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Claim waiting for review"))
	b.WriteString("\n\n")
	for _, f := range req.ClaimDescription.Fields() {
		value := f[1]
		if modal.ClassifyField(value) != modal.FieldSupported {
			value = warnStyle.Render(value)
		}
		b.WriteString(labelStyle.Render(f[0]) + value + "\n")
	}
	base := strings.TrimRight(publicURL, "/")
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Resolve with one of:") + "\n")
	for _, status := range []modal.EvaluationStatus{modal.EvaluationApproved, modal.EvaluationRejected} {
		fmt.Fprintf(&b, "  curl -X POST %s/callbacks/%s/resolve -d '{\"status\":%q}'\n", base, req.CallbackID, status)
	}
	fmt.Fprintf(&b, "  curl -X POST %s/callbacks/%s/resolve -d '{\"status\":%q,\"comment\":\"...\"}'",
		base, req.CallbackID, modal.EvaluationRequestInfo)
	return boxStyle.Render(b.String())
}

func renderUser(msg modal.UserNotification, publicURL string) string {
	base := strings.TrimRight(publicURL, "/")
	body := titleStyle.Render("Your claim needs more information") + "\n\n" +
		labelStyle.Render("Session") + msg.SessionID + "\n" +
		labelStyle.Render("Chat") + hintStyle.Render(base+"/ui/chat/"+url.PathEscape(msg.SessionID))
	return boxStyle.Render(body)
}
