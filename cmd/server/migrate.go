package main

import (
	"github.com/spf13/cobra"

	"sessionauth/internal/db"
	"sessionauth/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the users and sessions tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		gormDB, err := db.NewMySQL(cfg.MySQLDSN)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(gormDB); err != nil {
				logging.Warn().Err(err).Msg("close database")
			}
		}()

		if err := db.Migrate(gormDB); err != nil {
			return err
		}
		logging.Info().Msg("database migrations completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
