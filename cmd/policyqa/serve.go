package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpapi "github.com/custodia-labs/policyqa/internal/adapters/driving/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, svc, err := bootstrap(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	checks := make(map[string]httpapi.Pinger)
	for name, check := range svc.Checks() {
		checks[name] = httpapi.PingerFunc(check)
	}

	serverCfg := httpapi.DefaultConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.Version = version

	server := httpapi.NewServer(serverCfg, svc.Run, svc.Ingestion, checks, nil)
	return server.Start(ctx)
}

// commandContext falls back to Background when cobra has none
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
