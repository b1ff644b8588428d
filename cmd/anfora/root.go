package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anforahq/anfora/internal/config"
	"github.com/anforahq/anfora/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "anfora",
	Short: "Anfora business assistant",
	Long:  `Anfora is an LLM-driven business assistant over the AdventureWorks database, Gmail, and an email classifier.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.anfora/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("server.port", config.DefaultServerPort, "chat API port")
	rootCmd.PersistentFlags().Int("mcp.port", config.DefaultMCPPort, "MCP tool server port")
}
