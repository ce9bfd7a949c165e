package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"depthboard/internal/candles"
)

type Symbol struct {
	ID      string `yaml:"id"`      // feed product id, e.g. BTC-USD
	Display string `yaml:"display"` // short name for the stats view
}

type Config struct {
	LogLevel               string   `yaml:"log_level"`
	FeedURL                string   `yaml:"feed_url"`
	Symbols                []Symbol `yaml:"symbols"`
	BaseGranularitySeconds int64    `yaml:"base_granularity_seconds"`
	TradeLogCapacity       int      `yaml:"trade_log_capacity"`
	PollIntervalMS         int      `yaml:"poll_interval_ms"`
}

func defaults() Config {
	return Config{
		LogLevel: "info",
		FeedURL:  "wss://ws-feed.exchange.coinbase.com",
		Symbols: []Symbol{
			{ID: "BTC-USD", Display: "BTC"},
			{ID: "ETH-USD", Display: "ETH"},
			{ID: "ADA-USD", Display: "ADA"},
		},
		BaseGranularitySeconds: 60,
		TradeLogCapacity:       500,
		PollIntervalMS:         500,
	}
}

// Load reads the yaml config at path. A missing file yields the defaults;
// a present-but-invalid one is an error.
func Load(path string) (Config, error) {
	cfg := defaults()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	// Validation & normalization
	if len(cfg.Symbols) == 0 {
		return cfg, errors.New("at least one symbol required")
	}
	seen := map[string]bool{}
	for i, s := range cfg.Symbols {
		id := strings.ToUpper(strings.TrimSpace(s.ID))
		if id == "" {
			return cfg, errors.New("symbol with empty id")
		}
		if seen[id] {
			return cfg, fmt.Errorf("duplicate symbol %s", id)
		}
		seen[id] = true
		cfg.Symbols[i].ID = id
		if cfg.Symbols[i].Display == "" {
			cfg.Symbols[i].Display = id
		}
	}
	if !candles.Supported(cfg.BaseGranularitySeconds) {
		return cfg, fmt.Errorf("base_granularity_seconds must be one of %v", candles.SupportedGranularities)
	}
	if cfg.TradeLogCapacity < 0 {
		return cfg, errors.New("trade_log_capacity must be >= 0 (0 = unbounded)")
	}
	if cfg.PollIntervalMS < 50 {
		return cfg, errors.New("poll_interval_ms must be >= 50")
	}
	return cfg, nil
}

func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
