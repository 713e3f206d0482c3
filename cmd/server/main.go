package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"sessionauth/internal/config"
	"sessionauth/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Session authentication service",
	Long: `Serves signup, login and logout over HTTP, keeping sessions server-side
and handing the browser a signed session cookie.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		logging.Init(cfg.LogLevel, cfg.LogPretty)
		return cfg.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
	SilenceUsage: true,
}

var cfg *config.Config

// @title Session Auth API
// @version 1.0
// @description Email and password signup, login and logout backed by server-side sessions.
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logging.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}
