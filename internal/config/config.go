package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Vendor    VendorConfig
	Scan      ScanConfig
	Narrative NarrativeConfig
	Notify    NotifyConfig
	Watchlist WatchlistConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	StaticDir       string
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// VendorConfig configures the ORATS market-data client.
type VendorConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// ScanConfig controls the price grid and scoring heuristics.
type ScanConfig struct {
	GridPoints        int
	GridLow           float64
	GridHigh          float64
	Interpolate       bool
	RiskFreeRate      float64
	ScoringConfigPath string
}

// NarrativeConfig selects and configures the LLM provider.
type NarrativeConfig struct {
	Provider        string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	Temperature     float64
	Timeout         time.Duration
}

// NotifyConfig holds Discord notification credentials.
type NotifyConfig struct {
	DiscordToken     string
	DiscordChannelID string
	// DashboardURL links posted scans back to the web UI.
	DashboardURL string
}

// WatchlistConfig drives the periodic scanner.
type WatchlistConfig struct {
	Tickers  []string
	Interval time.Duration
	MinDTE   int
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultStaticDir       = "./web"

	defaultLogFormat = "json"

	defaultVendorBaseURL    = "https://api.orats.io/datav2"
	defaultVendorTimeout    = 30 * time.Second
	defaultVendorMaxRetries = 3

	defaultGridPoints   = 200
	defaultGridLow      = 0.8
	defaultGridHigh     = 1.2
	defaultRiskFreeRate = 0.04

	defaultNarrativeProvider = "none"
	defaultOpenAIModel       = "gpt-4o-mini"
	defaultAnthropicModel    = "claude-sonnet-4-5"
	defaultTemperature       = 0.3
	defaultNarrativeTimeout  = 90 * time.Second

	defaultWatchlistInterval = 60 * time.Minute
	defaultWatchlistMinDTE   = 7
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			StaticDir:       getEnv("STATIC_DIR", defaultStaticDir),
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Vendor: VendorConfig{
			APIKey:     os.Getenv("ORATS_API_KEY"),
			BaseURL:    getEnv("ORATS_BASE_URL", defaultVendorBaseURL),
			Timeout:    defaultVendorTimeout,
			MaxRetries: defaultVendorMaxRetries,
		},
		Scan: ScanConfig{
			GridPoints:        defaultGridPoints,
			GridLow:           defaultGridLow,
			GridHigh:          defaultGridHigh,
			RiskFreeRate:      defaultRiskFreeRate,
			ScoringConfigPath: os.Getenv("SCORING_CONFIG_PATH"),
		},
		Narrative: NarrativeConfig{
			Provider:        getEnv("NARRATIVE_PROVIDER", defaultNarrativeProvider),
			OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:     getEnv("OPENAI_MODEL", defaultOpenAIModel),
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", defaultAnthropicModel),
			Temperature:     defaultTemperature,
			Timeout:         defaultNarrativeTimeout,
		},
		Notify: NotifyConfig{
			DiscordToken:     os.Getenv("DISCORD_BOT_TOKEN"),
			DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),
			DashboardURL:     os.Getenv("DASHBOARD_URL"),
		},
		Watchlist: WatchlistConfig{
			Tickers:  parseTickers(os.Getenv("WATCHLIST")),
			Interval: defaultWatchlistInterval,
			MinDTE:   defaultWatchlistMinDTE,
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("ORATS_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ORATS_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Vendor.Timeout = d
	}

	if v := os.Getenv("ORATS_MAX_RETRIES"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ORATS_MAX_RETRIES: %w", err)
		}
		cfg.Vendor.MaxRetries = n
	}

	if v := os.Getenv("SCAN_GRID_POINTS"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil || n < 3 {
			return Config{}, fmt.Errorf("invalid SCAN_GRID_POINTS: must be an integer >= 3")
		}
		cfg.Scan.GridPoints = n
	}

	if v := os.Getenv("SCAN_GRID_LOW"); v != "" {
		f, err := parsePositiveFloat(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCAN_GRID_LOW: %w", err)
		}
		cfg.Scan.GridLow = f
	}

	if v := os.Getenv("SCAN_GRID_HIGH"); v != "" {
		f, err := parsePositiveFloat(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCAN_GRID_HIGH: %w", err)
		}
		cfg.Scan.GridHigh = f
	}

	if cfg.Scan.GridLow >= cfg.Scan.GridHigh {
		return Config{}, fmt.Errorf("invalid scan grid: SCAN_GRID_LOW must be below SCAN_GRID_HIGH")
	}

	if v := os.Getenv("SCAN_INTERPOLATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCAN_INTERPOLATE: %w", err)
		}
		cfg.Scan.Interpolate = b
	}

	if v := os.Getenv("SCAN_RISK_FREE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCAN_RISK_FREE_RATE: %w", err)
		}
		cfg.Scan.RiskFreeRate = f
	}

	switch cfg.Narrative.Provider {
	case "openai", "anthropic", "none":
	default:
		return Config{}, fmt.Errorf("invalid NARRATIVE_PROVIDER: must be 'openai', 'anthropic' or 'none'")
	}

	if v := os.Getenv("NARRATIVE_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 2 {
			return Config{}, fmt.Errorf("invalid NARRATIVE_TEMPERATURE: must be between 0 and 2")
		}
		cfg.Narrative.Temperature = f
	}

	if v := os.Getenv("NARRATIVE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid NARRATIVE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Narrative.Timeout = d
	}

	if v := os.Getenv("WATCHLIST_INTERVAL_MINUTES"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil || n == 0 {
			return Config{}, fmt.Errorf("invalid WATCHLIST_INTERVAL_MINUTES: must be a positive integer")
		}
		cfg.Watchlist.Interval = time.Duration(n) * time.Minute
	}

	if v := os.Getenv("WATCHLIST_MIN_DTE"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid WATCHLIST_MIN_DTE: %w", err)
		}
		cfg.Watchlist.MinDTE = n
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseNonNegativeInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}

func parsePositiveFloat(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("must be a positive number")
	}
	return f, nil
}

func parseTickers(raw string) []string {
	var tickers []string
	for _, part := range strings.Split(raw, ",") {
		if t := strings.ToUpper(strings.TrimSpace(part)); t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
