package main

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"claim-intake-service/internal/activities"
	"claim-intake-service/internal/completion"
	"claim-intake-service/internal/config"
	"claim-intake-service/internal/images"
	"claim-intake-service/internal/logging"
	"claim-intake-service/internal/metrics"
	"claim-intake-service/internal/notify"
	"claim-intake-service/internal/service"
	"claim-intake-service/internal/workflows"
)

func main() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("unable to load config")
	}
	logger := logging.New(cfg.Log)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create Temporal client")
	}
	defer c.Close()

	completer, err := completion.NewAzureClient(cfg.Completion.Endpoint, cfg.Completion.APIKey, cfg.Completion.MaxOutputTokens)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create completion client")
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	workflows.New(cfg.Steps.Policy()).Register(w)
	w.RegisterActivity(&activities.Activities{
		Completer: completer,
		Images:    images.NewResolver(cfg.Images.Root),
		Notifier:  notify.NewNotifier(cfg.Notify.ReviewerURL, cfg.Notify.UserURL, cfg.Notify.Timeout),
		Sessions:  service.New(c, cfg.Temporal.TaskQueue, nil),
		Deployments: activities.Deployments{
			Intake:    cfg.Completion.IntakeDeployment,
			Interview: cfg.Completion.InterviewDeployment,
		},
	})

	if cfg.Metrics.Listen != "" {
		r := chi.NewRouter()
		r.Handle("/metrics", metrics.Handler())
		go func() {
			logger.Info().Str("addr", cfg.Metrics.Listen).Msg("metrics listening")
			if err := http.ListenAndServe(cfg.Metrics.Listen, r); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	logger.Info().Str("taskQueue", cfg.Temporal.TaskQueue).Msg("worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal().Err(err).Msg("worker exited")
	}
}
