package main

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/citadel-pow/pow-bot/internal/backfill"
	"github.com/citadel-pow/pow-bot/internal/config"
	"github.com/citadel-pow/pow-bot/internal/discord"
	"github.com/citadel-pow/pow-bot/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var backfillFlagKeys = map[string]string{
	"page-size":     "backfill.page_size",
	"max-pages":     "backfill.max_pages",
	"page-delay":    "backfill.page_delay",
	"message-delay": "backfill.message_delay",
}

func newBackfillCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Register existing POW posts and their reactions from channel history",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			bindCommandFlags(cmd, botFlagKeys)
			bindCommandFlags(cmd, backfillFlagKeys)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd.Context(), cmd.OutOrStdout())
		},
	}
	addBotFlags(cmd)

	defaults := config.NewViper()
	cmd.Flags().Int("page-size", defaults.GetInt("backfill.page_size"), "Messages per history page (max 100)")
	cmd.Flags().Int("max-pages", defaults.GetInt("backfill.max_pages"), "Maximum history pages to scan")
	cmd.Flags().Duration("page-delay", defaults.GetDuration("backfill.page_delay"), "Delay after each history page")
	cmd.Flags().Duration("message-delay", defaults.GetDuration("backfill.message_delay"), "Delay between processed posts")
	return cmd
}

func runBackfill(ctx context.Context, out io.Writer) error {
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

	// History reads use the REST API only; no gateway connection is opened.
	session, err := discord.NewSession(botConfig.BotToken)
	if err != nil {
		return err
	}
	restClient, err := discord.NewClient(session)
	if err != nil {
		return err
	}

	orchestrator, err := backfill.NewOrchestrator(backfill.Config{
		ChannelID:    botConfig.ChannelID,
		PageSize:     botConfig.Backfill.PageSize,
		MaxPages:     botConfig.Backfill.MaxPages,
		PageDelay:    botConfig.Backfill.PageDelay,
		MessageDelay: botConfig.Backfill.MessageDelay,
		History:      restClient,
		Backend:      syncClient,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("backfill starting",
		zap.String("channel_id", botConfig.ChannelID),
		zap.Int("page_size", botConfig.Backfill.PageSize),
		zap.Int("max_pages", botConfig.Backfill.MaxPages))

	summary, runErr := orchestrator.Run(signalCtx)

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return err
	}
	return runErr
}
