package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/anforahq/anfora/internal/config"
	"github.com/anforahq/anfora/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP tool server over SSE",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := buildRunner(cfg)
		if err != nil {
			return err
		}

		server := mcpserver.New(cfg.MCP.Port, runner)
		server.Start()

		waitForShutdown(cmd.Context())

		timeout, err := config.DurationOrDefault(cfg.MCP.ShutdownTimeout, config.DefaultMCPShutdownTimeout)
		if err != nil {
			return err
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return server.Stop(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
