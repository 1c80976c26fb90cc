package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/citadel-pow/pow-bot/internal/config"
	"github.com/citadel-pow/pow-bot/internal/database"
	"github.com/citadel-pow/pow-bot/internal/logging"
	"github.com/citadel-pow/pow-bot/internal/posts"
	"github.com/citadel-pow/pow-bot/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var backendFlagKeys = map[string]string{
	"database-path":  "database.path",
	"signing-secret": "auth.signing_secret",
}

func newServeBackendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-backend",
		Short: "Serve the reference discord-posts backend on SQLite",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			bindCommandFlags(cmd, backendFlagKeys)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeBackend(cmd.Context())
		},
	}

	defaults := config.NewViper()
	cmd.Flags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.Flags().String("signing-secret", "", "Service token signing secret (overrides env)")
	return cmd
}

func runServeBackend(ctx context.Context) error {
	backendConfig, err := config.LoadBackend(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(backendConfig.LogLevel, backendConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(backendConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	postsService, err := posts.NewService(posts.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: posts.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	deps := server.BackendDependencies{
		Posts:  postsService,
		Logger: logger,
	}
	tokens, err := newServiceTokens(backendConfig.SigningSecret)
	if err != nil {
		return err
	}
	if tokens != nil {
		deps.Tokens = tokens
	} else {
		logger.Warn("service token authentication disabled")
	}

	handler, err := server.NewBackendHandler(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    backendConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serveHTTP(signalCtx, httpServer, logger)
}
