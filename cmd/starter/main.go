package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"claim-intake-service/internal/config"
	"claim-intake-service/internal/logging"
	"claim-intake-service/internal/modal"
	"claim-intake-service/internal/service"
)

// claims is the part of service.Service the commands use.
type claims interface {
	SubmitClaim(ctx context.Context, req modal.ClaimRequest) (string, error)
	ClaimState(ctx context.Context, workflowID string) (modal.ClaimState, error)
	ResolveCallback(ctx context.Context, token string, value json.RawMessage) error
	PostMessage(ctx context.Context, sessionKey, text string) (string, error)
	History(ctx context.Context, sessionKey string, offset int) ([]modal.ChatMessage, error)
}

type app struct {
	svc     claims
	out     io.Writer
	timeout time.Duration
}

// starter is a development CLI for driving claims by hand. It talks to Temporal
// directly and leaves the claim index to the API process, which holds its lock.
func main() {
	a := &app{out: os.Stdout, timeout: 30 * time.Second}
	var closeClient func()

	root := newRootCommand(a)
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if a.svc != nil {
			return nil
		}
		cfg, err := config.NewLoader().Load()
		if err != nil {
			return err
		}
		logger := logging.New(cfg.Log).Level(zerolog.WarnLevel)
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    logging.NewTemporalLogger(logger),
		})
		if err != nil {
			return fmt.Errorf("unable to create Temporal client: %w", err)
		}
		closeClient = tc.Close
		a.svc = service.New(tc, cfg.Temporal.TaskQueue, nil)
		return nil
	}

	err := root.Execute()
	if closeClient != nil {
		closeClient()
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "starter",
		Short:        "Submit and drive insurance claims",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", a.timeout, "timeout for each call")
	root.AddCommand(
		newSubmitCommand(a),
		newStatusCommand(a),
		newResolveCommand(a),
		newChatCommand(a),
		newHistoryCommand(a),
	)
	return root
}

func (a *app) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, a.timeout)
}

func newSubmitCommand(a *app) *cobra.Command {
	var req modal.ClaimRequest
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Start a claim workflow",
		Long: `Start a claim workflow for a submitter.

Example:
  starter submit --name "Ada" --email ada@example.com \
    --note "Bike was hit by a car on Main Street" --image bike.png --amount 450`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			id, err := a.svc.SubmitClaim(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "started claim workflow %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.User.Name, "name", "", "submitter name")
	cmd.Flags().StringVar(&req.User.Email, "email", "", "submitter email")
	cmd.Flags().StringVar(&req.Description, "note", "", "free-text description of the incident")
	cmd.Flags().StringSliceVar(&req.Images, "image", nil, "image reference, repeatable")
	cmd.Flags().Float64Var(&req.Amount, "amount", 0, "claimed amount")
	return cmd
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <workflow-id>",
		Short: "Show the current state of a claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			st, err := a.svc.ClaimState(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(a.out, st)
		},
	}
}

func newResolveCommand(a *app) *cobra.Command {
	var (
		status  string
		comment string
		value   string
	)
	cmd := &cobra.Command{
		Use:   "resolve <token>",
		Short: "Resolve a callback token",
		Long: `Resolve a callback token, usually the review token of a claim.

Either pass the raw JSON value or build a reviewer evaluation from flags.

Examples:
  starter resolve cb1.Y2xhaW0t.ZjAwZA --status approved
  starter resolve cb1.Y2xhaW0t.ZjAwZA --status request_info --comment "When did it happen?"
  starter resolve cb1.Y2xhaW0t.ZjAwZA --value '{"status":"rejected"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := resolutionValue(status, comment, value)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			if err := a.svc.ResolveCallback(ctx, args[0], raw); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "resolved")
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "evaluation status: approved, rejected or request_info")
	cmd.Flags().StringVar(&comment, "comment", "", "reviewer comment")
	cmd.Flags().StringVar(&value, "value", "", "raw JSON value")
	cmd.MarkFlagsMutuallyExclusive("value", "status")
	cmd.MarkFlagsOneRequired("value", "status")
	return cmd
}

func resolutionValue(status, comment, value string) (json.RawMessage, error) {
	if value != "" {
		if !json.Valid([]byte(value)) {
			return nil, errors.New("--value is not valid JSON")
		}
		return json.RawMessage(value), nil
	}
	eval := modal.Evaluation{Status: modal.EvaluationStatus(status), Comment: comment}
	if err := eval.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(eval)
}

func newChatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <session-key> <message>",
		Short: "Post a message to an interview session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			reply, err := a.svc.PostMessage(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Agent: %s\n", reply)
			return nil
		},
	}
}

func newHistoryCommand(a *app) *cobra.Command {
	var offset int
	cmd := &cobra.Command{
		Use:   "history <session-key>",
		Short: "Print an interview transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			turns, err := a.svc.History(ctx, args[0], offset)
			if err != nil {
				return err
			}
			for _, m := range turns {
				if m.Agent != "" {
					fmt.Fprintf(a.out, "Agent: %s\n", m.Agent)
				}
				if m.User != "" {
					fmt.Fprintf(a.out, "User: %s\n", m.User)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many turns")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
