package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"opsd/internal/app"
	"opsd/internal/infra/store"
)

type rootOptions struct {
	configPath string
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := rootOptions{
		configPath: "opsd.yaml",
	}

	root := &cobra.Command{
		Use:   "opsd",
		Short: "Operator console for pipeline orchestration and lineage",
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to config file")

	root.AddCommand(
		newServeCmd(logger, &opts),
		newValidateCmd(logger, &opts),
		newRunCmd(logger, &opts),
		newApproveCmd(logger, &opts),
		newRejectCmd(logger, &opts),
		newHistoryCmd(logger, &opts),
		newStatusCmd(logger, &opts),
		newTelemetryCmd(logger, &opts),
	)

	return root
}

func newServeCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the console daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			application := app.New(logger)
			return application.Serve(ctx, app.ServeOptions{
				ConfigPath: opts.configPath,
			})
		},
	}
}

func newValidateCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(logger)
			return application.ValidateConfig(app.ServeOptions{
				ConfigPath: opts.configPath,
			})
		},
	}
}

func withConsole(logger *zap.Logger, opts *rootOptions, fn func(ctx context.Context, console *app.Console) error) error {
	console, err := app.New(logger).Build(opts.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = console.Close() }()
	return fn(context.Background(), console)
}

func newRunCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <command text>",
		Short: "Interpret and execute a free-text operator command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withConsole(logger, opts, func(ctx context.Context, console *app.Console) error {
				call, ok := console.Dispatcher.Dispatch(ctx, text)
				if !ok {
					fmt.Println("no tool matched that command; try asking about flows, runs, or lineage")
					return nil
				}
				return printJSON(cmd, call)
			})
		},
	}
}

func newApproveCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	var operator, comment string
	cmd := &cobra.Command{
		Use:   "approve <runId>",
		Short: "Record an approval decision for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(logger, opts, func(_ context.Context, console *app.Console) error {
				approval, err := console.Approve(args[0], operator, comment)
				if err != nil {
					return err
				}
				return printJSON(cmd, approval)
			})
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "operator recording the decision")
	cmd.Flags().StringVar(&comment, "comment", "", "optional comment")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

func newRejectCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	var operator, reason, comment string
	cmd := &cobra.Command{
		Use:   "reject <runId>",
		Short: "Record a rejection decision for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(logger, opts, func(_ context.Context, console *app.Console) error {
				approval, err := console.Reject(args[0], operator, reason, comment)
				if err != nil {
					return err
				}
				return printJSON(cmd, approval)
			})
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "operator recording the decision")
	cmd.Flags().StringVar(&reason, "reason", "", "why the run was rejected")
	cmd.Flags().StringVar(&comment, "comment", "", "optional comment")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

func newHistoryCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <runId>",
		Short: "Show the audit trail for a run, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(logger, opts, func(_ context.Context, console *app.Console) error {
				entries, err := console.Store.History(args[0])
				if err != nil {
					return err
				}
				current, err := console.Store.GetApproval(args[0])
				switch {
				case errors.Is(err, store.ErrApprovalNotFound):
					fmt.Println("no decision recorded")
				case err != nil:
					return err
				default:
					if err := printJSON(cmd, current); err != nil {
						return err
					}
				}
				return printJSON(cmd, entries)
			})
		},
	}
}

func newStatusCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Poll every telemetry source once and print the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(logger, opts, func(ctx context.Context, console *app.Console) error {
				console.Aggregator.CheckOnce(ctx)
				return printJSON(cmd, console.Aggregator.Snapshot())
			})
		},
	}
}

func newTelemetryCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telemetry <enable|disable>",
		Short: "Flip the persisted telemetry polling gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "enable":
				enabled = true
			case "disable":
				enabled = false
			default:
				return fmt.Errorf("expected enable or disable, got %q", args[0])
			}
			return withConsole(logger, opts, func(_ context.Context, console *app.Console) error {
				return console.SetTelemetryEnabled(enabled)
			})
		},
	}
	return cmd
}

func printJSON(cmd *cobra.Command, value any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
