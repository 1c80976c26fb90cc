package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/citadel-pow/pow-bot/internal/config"
	"github.com/citadel-pow/pow-bot/internal/discord"
	"github.com/citadel-pow/pow-bot/internal/logging"
	"github.com/citadel-pow/pow-bot/internal/realtime"
	"github.com/citadel-pow/pow-bot/internal/server"
	"github.com/citadel-pow/pow-bot/internal/syncclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newListenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Mirror reaction changes to the backend and serve the card endpoint",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			bindCommandFlags(cmd, botFlagKeys)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(cmd.Context())
		},
	}
	addBotFlags(cmd)
	return cmd
}

func runListen(ctx context.Context) error {
	botConfig, err := config.LoadBot(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(botConfig.LogLevel, botConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	syncClient, err := newSyncClient(botConfig, logger)
	if err != nil {
		return err
	}

	session, err := discord.NewSession(botConfig.BotToken)
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := realtime.NewQueue(0)
	gateway, err := discord.NewGateway(signalCtx, queue, logger)
	if err != nil {
		return err
	}
	removeHandlers := gateway.Register(session)

	if err := session.Open(); err != nil {
		removeHandlers()
		return fmt.Errorf("open discord session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("discord session close failed", zap.Error(err))
		}
	}()
	selfID := ""
	if session.State != nil && session.State.User != nil {
		selfID = session.State.User.ID
	}
	logger.Info("discord session opened", zap.String("self_id", selfID))

	restClient, err := discord.NewClient(session)
	if err != nil {
		return err
	}
	aggregator, err := realtime.NewAggregator(realtime.Config{
		ChannelID: botConfig.ChannelID,
		SelfID:    selfID,
		Syncer:    syncClient,
		Resolver:  restClient,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewBotHandler(server.BotDependencies{
		Sender:    restClient,
		Registrar: syncClient,
		ChannelID: botConfig.ChannelID,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:    botConfig.HTTPAddress,
		Handler: handler,
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := aggregator.Run(signalCtx, queue.Events()); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reaction loop stopped", zap.Error(err))
		}
	}()

	serveErr := serveHTTP(signalCtx, httpServer, logger)

	stop()
	removeHandlers()
	queue.Close()
	<-loopDone
	logger.Info("listener stopped")

	return serveErr
}

func newSyncClient(botConfig config.BotConfig, logger *zap.Logger) (*syncclient.Client, error) {
	tokens, err := newServiceTokens(botConfig.BackendSigningSecret)
	if err != nil {
		return nil, err
	}
	clientConfig := syncclient.Config{
		BaseURL: botConfig.BackendURL,
		Timeout: botConfig.BackendTimeout,
		Logger:  logger,
	}
	if tokens != nil {
		clientConfig.Tokens = tokens
	}
	return syncclient.NewClient(clientConfig)
}
