package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policyqa/internal/config"
	"github.com/custodia-labs/policyqa/internal/runtime"
)

// newLogger builds the process logger from the log section
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// bootstrap loads configuration, installs the logger and builds the
// services with a ready vector index. The caller closes the result.
func bootstrap(ctx context.Context, cmd *cobra.Command) (*config.Config, *runtime.Services, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	svc, err := runtime.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := svc.Start(ctx); err != nil {
		svc.Close()
		return nil, nil, err
	}
	return cfg, svc, nil
}
