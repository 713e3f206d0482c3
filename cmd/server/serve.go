package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"sessionauth/docs"
	"sessionauth/internal/auth"
	"sessionauth/internal/cache"
	"sessionauth/internal/config"
	"sessionauth/internal/db"
	"sessionauth/internal/handler"
	"sessionauth/internal/logging"
	authmw "sessionauth/internal/middleware"
	"sessionauth/internal/repository"
	"sessionauth/internal/repository/memory"
	"sessionauth/internal/router"
	"sessionauth/internal/service"
	"sessionauth/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// stores holds the persistence backends selected by configuration.
type stores struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	closers  []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logging.Warn().Err(err).Msg("close store")
		}
	}
}

// openStores connects the credential store and session persistence. Users
// live in MySQL for every backend except memory.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{}

	if cfg.SessionBackend == config.BackendMemory {
		logging.Warn().Msg("using in-memory stores, data is lost on restart")
		st.users = memory.NewUserRepository()
		st.sessions = memory.NewSessionRepository()
		return st, nil
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}
	st.closers = append(st.closers, func() error { return db.Close(gormDB) })
	st.users = repository.NewUserRepository(gormDB)

	switch cfg.SessionBackend {
	case config.BackendMySQL:
		st.sessions = repository.NewSessionRepository(gormDB)
	case config.BackendRedis:
		cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		st.closers = append(st.closers, cacheClient.Close)
		if err := cacheClient.Ping(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		st.sessions = repository.NewRedisSessionRepository(cacheClient)
	case config.BackendBolt:
		boltDB, err := db.NewBolt(cfg.BoltPath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("bolt open: %w", err)
		}
		st.closers = append(st.closers, boltDB.Close)
		st.sessions, err = repository.NewBoltSessionRepository(boltDB)
		if err != nil {
			st.Close()
			return nil, err
		}
	}
	return st, nil
}

// newServer builds the echo instance with every dependency wired.
func newServer(cfg *config.Config, st *stores) (*echo.Echo, error) {
	if cfg.UsesDefaultSecret() {
		logging.Warn().Msg("SESSION_SECRET is not set, using an insecure default secret")
	}

	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	codec, err := auth.NewCookieCodec(cfg.Secrets(), cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	credentials, err := auth.NewCredentialsStrategy(st.users, hasher)
	if err != nil {
		return nil, err
	}

	authn := authmw.New(authmw.Config{
		Store:      session.NewStore(st.sessions),
		Codec:      codec,
		Strategies: auth.NewRegistry(credentials, auth.SignupStrategy{}),
		TTL:        cfg.SessionTTL,
		Rolling:    cfg.SessionRolling,
	})

	e := echo.New()
	router.Register(e,
		authn,
		handler.NewAuthHandler(service.NewAuthService(st.users, hasher), authn),
		handler.NewUserHandler(),
	)
	return e, nil
}

func swaggerURL(host string) string {
	switch {
	case host == "":
		return "http://localhost:" + cfg.ServerPort + "/swagger/index.html"
	case strings.HasPrefix(host, "http://"), strings.HasPrefix(host, "https://"):
		return host + "/swagger/index.html"
	default:
		return "http://" + host + "/swagger/index.html"
	}
}

func serve(ctx context.Context) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	logging.Info().Str("backend", cfg.SessionBackend).Msg("session backend selected")

	e, err := newServer(cfg, st)
	if err != nil {
		return err
	}

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "http://"), "https://")
	}
	logging.Info().Str("url", swaggerURL(cfg.SwaggerHost)).Msg("swagger documentation available")

	done := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		logging.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- fmt.Errorf("server start: %w", err)
			return
		}
		done <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-done:
		return err
	}
}
