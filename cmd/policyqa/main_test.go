package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policyqa/internal/config"
	"github.com/custodia-labs/policyqa/internal/core/domain"
)

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "policyqa version test-version-1.0.0")
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ingest", "ask", "version"} {
		assert.True(t, names[want], want)
	}
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	assert.Error(t, askCmd.Args(askCmd, []string{"https://example.com/policy.pdf"}))
	assert.NoError(t, askCmd.Args(askCmd, []string{"https://example.com/policy.pdf", "What is the grace period?"}))
}

func TestIngestCmd_RequiresLocator(t *testing.T) {
	assert.Error(t, ingestCmd.Args(ingestCmd, nil))
	assert.NoError(t, ingestCmd.Args(ingestCmd, []string{"file:///tmp/policy.pdf"}))
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
		hidden  slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"WARN", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(config.LogConfig{Level: tt.level, Format: "text"}, &bytes.Buffer{})
			assert.True(t, logger.Enabled(context.Background(), tt.enabled))
			assert.False(t, logger.Enabled(context.Background(), tt.hidden))
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	newLogger(config.LogConfig{Level: "info", Format: "json"}, &buf).Info("hello", "document_id", "abc")

	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"document_id":"abc"`)
}

func TestPrintResults(t *testing.T) {
	results := []*domain.AnswerResult{
		{Question: "q1", Answer: "A grace period of 30 days is provided for premium payment.", Confidence: 80},
		{Question: "q2", Answer: "second"},
	}

	t.Run("json lines", func(t *testing.T) {
		buf := new(bytes.Buffer)
		cmd := &cobra.Command{}
		cmd.SetOut(buf)

		require.NoError(t, printResults(cmd, results))
		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 2)
		assert.Contains(t, string(lines[0]), `"question":"q1"`)
		assert.Contains(t, string(lines[0]), `"confidence":80`)
	})

	t.Run("answers only", func(t *testing.T) {
		askAnswersOnly = true
		defer func() { askAnswersOnly = false }()

		buf := new(bytes.Buffer)
		cmd := &cobra.Command{}
		cmd.SetOut(buf)

		require.NoError(t, printResults(cmd, results))
		assert.Equal(t, "A grace period of 30 days is provided for premium payment.\nsecond\n", buf.String())
	})
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "nonexistent")
	cmd := &cobra.Command{}
	cmd.SetErr(&bytes.Buffer{})

	_, _, err := bootstrap(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
