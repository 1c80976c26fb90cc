package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "POWBOT"
	defaultHTTPAddress  = ":3001"
	defaultDatabasePath = "pow-backend.db"
	defaultLogLevel     = "info"
	defaultLogFormat    = "json"
	defaultTimeout      = 10 * time.Second
	defaultPageSize     = 100
	defaultMaxPages     = 5
	defaultPageDelay    = time.Second
	defaultMessageDelay = 500 * time.Millisecond
	maxPageSize         = 100
)

var (
	// ErrMissingBotToken is returned when discord.bot_token is unset.
	ErrMissingBotToken = errors.New("config: discord.bot_token (DISCORD_BOT_TOKEN) is required")
	// ErrMissingChannelID is returned when discord.channel_id is unset.
	ErrMissingChannelID = errors.New("config: discord.channel_id (POW_CHANNEL_ID) is required")
	// ErrMissingBackendURL is returned when backend.url is unset.
	ErrMissingBackendURL = errors.New("config: backend.url (BACKEND_API_URL) is required")
)

// legacyEnv maps keys to the environment names used by existing deployments.
var legacyEnv = map[string]string{
	"discord.bot_token":  "DISCORD_BOT_TOKEN",
	"discord.channel_id": "POW_CHANNEL_ID",
	"backend.url":        "BACKEND_API_URL",
	"http.port":          "BOT_PORT",
}

// BackfillConfig carries pagination and pacing for a backfill run.
type BackfillConfig struct {
	PageSize     int
	MaxPages     int
	PageDelay    time.Duration
	MessageDelay time.Duration
}

// BotConfig captures runtime configuration for the listen and backfill commands.
type BotConfig struct {
	BotToken             string
	ChannelID            string
	BackendURL           string
	BackendTimeout       time.Duration
	BackendSigningSecret string
	HTTPAddress          string
	Backfill             BackfillConfig
	LogLevel             string
	LogFormat            string
}

// BackendConfig captures runtime configuration for the reference backend.
type BackendConfig struct {
	HTTPAddress   string
	DatabasePath  string
	SigningSecret string
	LogLevel      string
	LogFormat     string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
// http.address has no default here so BOT_PORT can still apply when it is unset.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	for key, legacyName := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = configViper.BindEnv(key, prefixed, legacyName)
	}

	configViper.SetDefault("backend.timeout", defaultTimeout)
	configViper.SetDefault("backfill.page_size", defaultPageSize)
	configViper.SetDefault("backfill.max_pages", defaultMaxPages)
	configViper.SetDefault("backfill.page_delay", defaultPageDelay)
	configViper.SetDefault("backfill.message_delay", defaultMessageDelay)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
}

// LoadBot parses and validates the bot configuration.
func LoadBot(configViper *viper.Viper) (BotConfig, error) {
	cfg := BotConfig{
		BotToken:             strings.TrimSpace(configViper.GetString("discord.bot_token")),
		ChannelID:            strings.TrimSpace(configViper.GetString("discord.channel_id")),
		BackendURL:           strings.TrimSpace(configViper.GetString("backend.url")),
		BackendTimeout:       configViper.GetDuration("backend.timeout"),
		BackendSigningSecret: configViper.GetString("backend.signing_secret"),
		HTTPAddress:          httpAddress(configViper),
		Backfill: BackfillConfig{
			PageSize:     configViper.GetInt("backfill.page_size"),
			MaxPages:     configViper.GetInt("backfill.max_pages"),
			PageDelay:    configViper.GetDuration("backfill.page_delay"),
			MessageDelay: configViper.GetDuration("backfill.message_delay"),
		},
		LogLevel:  configViper.GetString("log.level"),
		LogFormat: configViper.GetString("log.format"),
	}

	if err := cfg.validate(); err != nil {
		return BotConfig{}, err
	}

	return cfg, nil
}

func (c BotConfig) validate() error {
	if c.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.ChannelID == "" {
		return ErrMissingChannelID
	}
	if c.BackendURL == "" {
		return ErrMissingBackendURL
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	if c.Backfill.PageSize <= 0 || c.Backfill.PageSize > maxPageSize {
		return fmt.Errorf("backfill.page_size must be between 1 and %d", maxPageSize)
	}
	if c.Backfill.MaxPages <= 0 {
		return fmt.Errorf("backfill.max_pages must be positive")
	}
	if c.Backfill.PageDelay < 0 || c.Backfill.MessageDelay < 0 {
		return fmt.Errorf("backfill delays must not be negative")
	}
	return nil
}

// LoadBackend parses and validates the reference backend configuration.
func LoadBackend(configViper *viper.Viper) (BackendConfig, error) {
	cfg := BackendConfig{
		HTTPAddress:   httpAddress(configViper),
		DatabasePath:  strings.TrimSpace(configViper.GetString("database.path")),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		LogLevel:      configViper.GetString("log.level"),
		LogFormat:     configViper.GetString("log.format"),
	}

	if cfg.DatabasePath == "" {
		return BackendConfig{}, fmt.Errorf("database.path is required")
	}

	return cfg, nil
}

func httpAddress(configViper *viper.Viper) string {
	if address := strings.TrimSpace(configViper.GetString("http.address")); address != "" {
		return address
	}
	if port := strings.TrimSpace(configViper.GetString("http.port")); port != "" {
		return ":" + port
	}
	return defaultHTTPAddress
}
