package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/anforahq/anfora/internal/config"
	"github.com/anforahq/anfora/internal/ingress"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := buildRunner(cfg)
		if err != nil {
			return err
		}
		loop, err := buildLoop(cfg, runner)
		if err != nil {
			return err
		}

		server, err := ingress.NewHTTPServer(cfg.Server, cfg.CORS, loop)
		if err != nil {
			return err
		}
		server.Start()

		waitForShutdown(cmd.Context())

		timeout, err := config.DurationOrDefault(cfg.Server.ShutdownTimeout, config.DefaultServerShutdownTimeout)
		if err != nil {
			return err
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return server.Stop(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
