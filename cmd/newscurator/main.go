// Package main provides the newscurator binary entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"NewsCurator/internal/app"
	"NewsCurator/internal/config"
	"NewsCurator/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	dryRun     bool
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "newscurator",
		Short:         "Curate AI news through fresh, elevated and archival tiers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML); defaults to $NEWSCURATOR_CONFIG")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Do not publish to Slack or call the enrichment model")

	cmd.AddCommand(
		fetchCmd(flags),
		tickCmd(flags),
		renderCmd(flags),
		validateCmd(flags),
		historyCmd(flags),
		runCmd(flags),
	)
	return cmd
}

func fetchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Ingest new stories and surface them in the fresh channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app.Application, log *slog.Logger) error {
				report, err := a.Fetch(ctx)
				log.Info("fetch complete", "run_id", report.RunID, "fetched", report.Fetched, "admitted", report.Admitted)
				return err
			})
		},
	}
}

func tickCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Refresh engagement, promote and expire stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app.Application, log *slog.Logger) error {
				report, err := a.Tick(ctx)
				log.Info("tick complete",
					"run_id", report.RunID,
					"promoted", report.Promoted,
					"removed", report.Removed,
					"permanently_archived", report.PermanentlyArchived,
				)
				return err
			})
		},
	}
}

func renderCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Write the Markdown document tree from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				return a.Render(ctx)
			})
		},
	}
}

func validateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check front matter of every rendered document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(_ context.Context, a *app.Application, _ *slog.Logger) error {
				problems, err := a.Validate()
				if err != nil {
					return err
				}
				for _, p := range problems {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				if len(problems) > 0 {
					return fmt.Errorf("%d document problems", len(problems))
				}
				return nil
			})
		},
	}
}

func historyCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history <story-id>",
		Short: "Print the journaled transitions of a story as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				transitions, err := a.History(ctx, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, t := range transitions {
					if err := enc.Encode(map[string]any{
						"run_id":      t.RunID,
						"kind":        t.Kind,
						"from":        t.From,
						"to":          t.To,
						"value_score": t.ValueScore,
						"at":          t.At.Format(time.RFC3339),
					}); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func runCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run fetch, tick and render on the configured interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(ctx context.Context, a *app.Application, _ *slog.Logger) error {
				return a.Run(ctx)
			})
		},
	}
}

func withApp(ctx context.Context, flags *globalFlags, fn func(context.Context, *app.Application, *slog.Logger) error) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	application, err := app.New(ctx, cfg, app.Options{DryRun: flags.dryRun}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("close application", "error", cerr)
		}
	}()

	return fn(ctx, application, logger)
}
