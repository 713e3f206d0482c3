package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sessionauth/internal/auth"
	"sessionauth/internal/config"
	"sessionauth/internal/db"
	apperrors "sessionauth/internal/errors"
	"sessionauth/internal/logging"
	"sessionauth/internal/model"
	"sessionauth/internal/repository"
	"sessionauth/internal/service"
)

var (
	email    string
	password string
	role     string
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a user account directly in the database",
	Long: `Creates a user with the given role. Signup through the HTTP API only
creates USER accounts, so this is how the first ADMIN is made.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logging.Init(cfg.LogLevel, cfg.LogPretty)
		if err := cfg.Validate(); err != nil {
			return err
		}
		if len(password) < 8 || len(password) > 100 {
			return errors.New("password must be between 8 and 100 characters")
		}

		gormDB, err := db.NewMySQL(cfg.MySQLDSN)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if err := db.Close(gormDB); err != nil {
				logging.Warn().Err(err).Msg("close database")
			}
		}()
		if err := db.Migrate(gormDB); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		hasher, err := auth.NewHasher(cfg.BcryptCost)
		if err != nil {
			return err
		}
		svc := service.NewAuthService(repository.NewUserRepository(gormDB), hasher)

		user, err := svc.CreateUser(cmd.Context(), email, password, model.Role(strings.ToUpper(role)))
		if errors.Is(err, apperrors.ErrDuplicateEmail) {
			logging.Warn().Str("email", model.NormalizeEmail(email)).Msg("user already exists, nothing to do")
			return nil
		}
		if err != nil {
			return err
		}

		logging.Info().Uint("user_id", user.ID).Str("email", user.Email).Str("role", string(user.Role)).Msg("user created")
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&email, "email", "", "Email of the account")
	rootCmd.Flags().StringVar(&password, "password", "", "Password of the account")
	rootCmd.Flags().StringVar(&role, "role", string(model.RoleAdmin), "Role: USER or ADMIN")
	_ = rootCmd.MarkFlagRequired("email")
	_ = rootCmd.MarkFlagRequired("password")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error().Err(err).Msg("seed failed")
		os.Exit(1)
	}
}
