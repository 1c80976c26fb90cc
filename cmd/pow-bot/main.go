package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/citadel-pow/pow-bot/internal/auth"
	"github.com/citadel-pow/pow-bot/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "pow-bot",
		Short:        "POW Discord reaction sync and backfill",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newListenCommand(), newBackfillCommand(), newServeBackendCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", "", "HTTP listen address (default :3001, or :$BOT_PORT)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")

	bindFlag(cmd.PersistentFlags().Lookup("http-address"), "http.address")
	bindFlag(cmd.PersistentFlags().Lookup("log-level"), "log.level")
	bindFlag(cmd.PersistentFlags().Lookup("log-format"), "log.format")
}

var botFlagKeys = map[string]string{
	"channel-id":      "discord.channel_id",
	"backend-url":     "backend.url",
	"backend-timeout": "backend.timeout",
}

func addBotFlags(cmd *cobra.Command) {
	defaults := config.NewViper()
	cmd.Flags().String("channel-id", "", "Watched channel id (overrides POW_CHANNEL_ID)")
	cmd.Flags().String("backend-url", "", "Backend base URL (overrides BACKEND_API_URL)")
	cmd.Flags().Duration("backend-timeout", defaults.GetDuration("backend.timeout"), "Backend request timeout")
}

// bindCommandFlags binds a subcommand's local flags at run time. Viper keeps
// only the last binding per key.
func bindCommandFlags(cmd *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		bindFlag(cmd.Flags().Lookup(name), key)
	}
}

func bindFlag(flag *pflag.Flag, key string) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// newServiceTokens returns nil when no signing secret is configured.
func newServiceTokens(secret string) (*auth.TokenIssuer, error) {
	if secret == "" {
		return nil, nil
	}
	return auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(secret),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
	})
}

// serveHTTP runs the server until ctx is done or it fails to listen.
func serveHTTP(ctx context.Context, httpServer *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", httpServer.Addr))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
