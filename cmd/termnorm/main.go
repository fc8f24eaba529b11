// Command termnorm builds and evaluates the industrial term normalization index.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/KoSuyeon/SKAI-project/internal/config"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
	"github.com/KoSuyeon/SKAI-project/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, normerrors.ErrConfig) {
			slog.Error("Configuration error", "error", err)
		} else {
			slog.Error("Command failed", "error", err)
		}

		stop()
		os.Exit(normerrors.ExitCode(err))
	}
}

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries state shared by every subcommand once the root command has run.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "termnorm",
		Version:       version,
		Short:         "Normalize free-form industrial terms against a canonical dictionary",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			setupLogging(cfg.LogLevel)

			a.cfg = cfg

			runID := uuid.Must(uuid.NewV7()).String()
			ctx := observability.WithRunID(cmd.Context(), runID)
			ctx = observability.WithStage(ctx, cmd.Name())
			cmd.SetContext(ctx)

			return nil
		},
	}

	root.AddCommand(
		newGenerateCmd(a),
		newIndexCmd(a),
		newEvaluateCmd(a),
		newSummarizeCmd(a),
		newSearchCmd(a),
		newServeCmd(a),
		newWorkerCmd(a),
	)

	return root
}

// setupLogging configures the global logger based on the log level.
func setupLogging(level string) {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	inner := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(observability.NewRunHandler(inner)))
}

// requireFlag returns a configuration error when a required path flag is empty.
func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return normerrors.NewConfigError(name, fmt.Sprintf("--%s is required", name))
	}

	return nil
}
