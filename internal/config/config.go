// Package config handles loading and validating the anigen configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the anigen daemon and CLI.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Store      StoreConfig      `mapstructure:"store"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Billing    BillingConfig    `mapstructure:"billing"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// AppConfig holds product-level settings.
type AppConfig struct {
	Name           string `mapstructure:"name"`            // prefix of exported file names
	ExportDir      string `mapstructure:"export_dir"`      // where CLI exports land
	ExportSidecar  bool   `mapstructure:"export_sidecar"`  // write a .toml next to each export
	DefaultAccount string `mapstructure:"default_account"` // account used by the CLI
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the REST/WebSocket transport.
type HTTPConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Port       int    `mapstructure:"port"`
	AdminToken string `mapstructure:"admin_token"` // bearer token for manual credit grants; empty disables the endpoint
	Swagger    bool   `mapstructure:"swagger"`
}

// LedgerConfig holds pricing and renewal settings.
type LedgerConfig struct {
	MonthlyGrant   int64         `mapstructure:"monthly_grant"`
	GenerationCost int64         `mapstructure:"generation_cost"`
	ImageCost      int64         `mapstructure:"image_cost"`
	RenewalPeriod  time.Duration `mapstructure:"renewal_period"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver   string         `mapstructure:"driver"` // "sqlite", "postgres" or "memory"
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig holds the SQLite database location.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig holds the PostgreSQL connection string.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// AudioConfig fixes the PCM format and local playback.
type AudioConfig struct {
	SampleRate int            `mapstructure:"sample_rate"`
	Playback   PlaybackConfig `mapstructure:"playback"`
}

// PlaybackConfig enables the system speaker.
type PlaybackConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Buffer  time.Duration `mapstructure:"buffer"`
}

// ProvidersConfig selects and configures the generation collaborators.
type ProvidersConfig struct {
	Describer DescriberConfig `mapstructure:"describer"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Imager    ImagerConfig    `mapstructure:"imager"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Local     LocalConfig     `mapstructure:"local"`
	Piper     PiperConfig     `mapstructure:"piper"`
}

// DescriberConfig selects the atmosphere text backend.
type DescriberConfig struct {
	Backend string `mapstructure:"backend"` // "gemini", "openai" or "local"
}

// SpeechConfig selects the audio backend.
type SpeechConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"` // "gemini", "openai" or "piper"
	Voice   string `mapstructure:"voice"`
}

// ImagerConfig selects the image backend.
type ImagerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"` // "gemini"
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	APIKey        string `mapstructure:"api_key"`
	DescribeModel string `mapstructure:"describe_model"`
	SpeechModel   string `mapstructure:"speech_model"`
	ImageModel    string `mapstructure:"image_model"`
	AspectRatio   string `mapstructure:"aspect_ratio"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"`
	CompletionModel string `mapstructure:"completion_model"`
	SpeechModel     string `mapstructure:"speech_model"`
	Voice           string `mapstructure:"voice"` // OpenAI voices differ from Gemini's
}

// LocalConfig holds self-hosted LLM settings.
type LocalConfig struct {
	LLMEndpoint string `mapstructure:"llm_endpoint"`
	LLMModel    string `mapstructure:"llm_model"` // Ollama model name (e.g., "llama3.2:1b")
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
type PiperConfig struct {
	Endpoint string `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
	Voice    string `mapstructure:"voice"`    // Piper voice model name
}

// BillingConfig configures the payment collaborator.
type BillingConfig struct {
	Stripe StripeConfig `mapstructure:"stripe"`
}

// StripeConfig holds the webhook settings.
type StripeConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./anigen.yaml, ./configs/anigen.yaml, /etc/anigen/anigen.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("app.name", "AniGen")
	v.SetDefault("app.export_dir", "./exports")
	v.SetDefault("app.export_sidecar", true)
	v.SetDefault("app.default_account", "local")
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.http.admin_token", "")
	v.SetDefault("transports.http.swagger", true)
	v.SetDefault("ledger.monthly_grant", 9)
	v.SetDefault("ledger.generation_cost", 3)
	v.SetDefault("ledger.image_cost", 3)
	v.SetDefault("ledger.renewal_period", "720h")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite.path", "./data/anigen.db")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("audio.sample_rate", 24000)
	v.SetDefault("audio.playback.enabled", false)
	v.SetDefault("audio.playback.buffer", "100ms")
	v.SetDefault("providers.describer.backend", "gemini")
	v.SetDefault("providers.speech.enabled", true)
	v.SetDefault("providers.speech.backend", "gemini")
	v.SetDefault("providers.speech.voice", "Kore")
	v.SetDefault("providers.imager.enabled", true)
	v.SetDefault("providers.imager.backend", "gemini")
	v.SetDefault("providers.gemini.describe_model", "gemini-3-flash-preview")
	v.SetDefault("providers.gemini.speech_model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("providers.gemini.image_model", "gemini-2.5-flash-image")
	v.SetDefault("providers.gemini.aspect_ratio", "1:1")
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.openai.completion_model", "gpt-4o-mini")
	v.SetDefault("providers.openai.speech_model", "gpt-4o-mini-tts")
	v.SetDefault("providers.openai.voice", "alloy")
	v.SetDefault("providers.local.llm_endpoint", "http://localhost:11434/api/generate")
	v.SetDefault("providers.local.llm_model", "llama3")
	v.SetDefault("providers.piper.endpoint", "localhost:10200")
	v.SetDefault("providers.piper.voice", "en_US-lessac-medium")
	v.SetDefault("billing.stripe.enabled", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("anigen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/anigen")
	}

	// Environment variables: ANIGEN_STORE_DRIVER, ANIGEN_PROVIDERS_GEMINI_API_KEY, etc.
	v.SetEnvPrefix("ANIGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional, env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}")
	cfg.Providers.Gemini.APIKey = resolveEnvRef(cfg.Providers.Gemini.APIKey)
	cfg.Providers.OpenAI.APIKey = resolveEnvRef(cfg.Providers.OpenAI.APIKey)
	cfg.Store.Postgres.DSN = resolveEnvRef(cfg.Store.Postgres.DSN)
	cfg.Billing.Stripe.WebhookSecret = resolveEnvRef(cfg.Billing.Stripe.WebhookSecret)
	cfg.Transports.HTTP.AdminToken = resolveEnvRef(cfg.Transports.HTTP.AdminToken)

	// The Gemini SDK convention applies when nothing else is configured.
	if cfg.Providers.Gemini.APIKey == "" {
		cfg.Providers.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	var errs []error
	if c.Ledger.MonthlyGrant < 0 {
		errs = append(errs, fmt.Errorf("ledger.monthly_grant must not be negative"))
	}
	if c.Ledger.GenerationCost <= 0 || c.Ledger.ImageCost <= 0 {
		errs = append(errs, fmt.Errorf("ledger costs must be positive"))
	}
	if c.Ledger.RenewalPeriod <= 0 {
		errs = append(errs, fmt.Errorf("ledger.renewal_period must be positive"))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive"))
	}
	switch c.Store.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			errs = append(errs, fmt.Errorf("store.postgres.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	switch c.Providers.Describer.Backend {
	case "gemini", "openai", "local":
	default:
		errs = append(errs, fmt.Errorf("unknown providers.describer.backend %q", c.Providers.Describer.Backend))
	}
	if c.Providers.Speech.Enabled {
		switch c.Providers.Speech.Backend {
		case "gemini", "openai", "piper":
		default:
			errs = append(errs, fmt.Errorf("unknown providers.speech.backend %q", c.Providers.Speech.Backend))
		}
	}
	if c.Providers.Imager.Enabled && c.Providers.Imager.Backend != "gemini" {
		errs = append(errs, fmt.Errorf("unknown providers.imager.backend %q", c.Providers.Imager.Backend))
	}
	if c.Billing.Stripe.Enabled && c.Billing.Stripe.WebhookSecret == "" {
		errs = append(errs, fmt.Errorf("billing.stripe.webhook_secret is required when stripe is enabled"))
	}
	return errors.Join(errs...)
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
