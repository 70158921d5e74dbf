package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"claim-intake-service/internal/claimindex"
	"claim-intake-service/internal/config"
	"claim-intake-service/internal/faults"
	"claim-intake-service/internal/logging"
	"claim-intake-service/internal/metrics"
	"claim-intake-service/internal/modal"
	"claim-intake-service/internal/service"
)

// claimService is what the HTTP layer needs from service.Service.
type claimService interface {
	SubmitClaim(ctx context.Context, req modal.ClaimRequest) (string, error)
	ClaimState(ctx context.Context, workflowID string) (modal.ClaimState, error)
	ListClaims(ctx context.Context) ([]claimindex.Entry, error)
	ResolveCallback(ctx context.Context, token string, value json.RawMessage) error
	PostMessage(ctx context.Context, sessionKey, text string) (string, error)
	History(ctx context.Context, sessionKey string, offset int) ([]modal.ChatMessage, error)
	SessionState(ctx context.Context, sessionKey string) (modal.SessionState, error)
}

type submitResp struct {
	WorkflowID string `json:"workflowId"`
}

type messageReq struct {
	Message string `json:"message"`
}

type messageResp struct {
	Reply string `json:"reply"`
}

func main() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("unable to load config")
	}
	logger := logging.New(cfg.Log)

	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create Temporal client")
	}
	defer tc.Close()

	index, err := claimindex.Open(cfg.Index.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to open claim index")
	}
	defer index.Close()

	r := newRouter(service.New(tc, cfg.Temporal.TaskQueue, index), logger)

	logger.Info().Str("addr", cfg.API.Listen).Msg("api listening")
	if err := http.ListenAndServe(cfg.API.Listen, r); err != nil {
		logger.Fatal().Err(err).Msg("api stopped")
	}
}

func newRouter(svc claimService, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, requestLogger(logger))

	// Submit a claim. The claim workflow id is returned; everything else is read
	// back through GET /claims/{workflowId}.
	r.Post("/claims", func(w http.ResponseWriter, r *http.Request) {
		var req modal.ClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body: {\"user\":{...},\"description\":\"...\",\"images\":[...],\"amount\":0}", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		id, err := svc.SubmitClaim(ctx, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSONStatus(w, http.StatusAccepted, submitResp{WorkflowID: id})
	})

	r.Get("/claims", func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.ListClaims(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, entries)
	})

	r.Get("/claims/{workflowId}", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		st, err := svc.ClaimState(ctx, chi.URLParam(r, "workflowId"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, st)
	})

	// Resolve a callback token. The body is the JSON value handed to the waiting
	// workflow, e.g. {"status":"approved"} for a review.
	r.Post("/callbacks/{token}/resolve", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil || !json.Valid(body) {
			http.Error(w, "invalid body: expected a JSON value", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		if err := svc.ResolveCallback(ctx, chi.URLParam(r, "token"), body); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	})

	r.Get("/interviews/{key}", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		st, err := svc.SessionState(ctx, chi.URLParam(r, "key"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, st)
	})

	// Post a chat message. This waits for the agent's answer, which takes one
	// completion round trip.
	r.Post("/interviews/{key}/messages", func(w http.ResponseWriter, r *http.Request) {
		var req messageReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
			http.Error(w, "invalid body: {\"message\":\"...\"}", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Minute)
		defer cancel()

		reply, err := svc.PostMessage(ctx, chi.URLParam(r, "key"), req.Message)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, messageResp{Reply: reply})
	})

	r.Get("/interviews/{key}/history", func(w http.ResponseWriter, r *http.Request) {
		offset := 0
		if v := r.URL.Query().Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, "offset must be an integer", http.StatusBadRequest)
				return
			}
			offset = n
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		history, err := svc.History(ctx, chi.URLParam(r, "key"), offset)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, history)
	})

	r.Handle("/metrics", metrics.Handler())
	registerUIRoutes(r, svc)
	return r
}

// writeError maps service errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var notFound *serviceerror.NotFound
	switch {
	case errors.Is(err, service.ErrInvalidRequest), faults.HasKind(err, faults.TypeInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, faults.ErrCallbackRejected), errors.Is(err, faults.ErrSessionClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &notFound), errors.Is(err, claimindex.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrNoIndex):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("requestId", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
