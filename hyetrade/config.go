package hyetrade

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/trading"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log   LogConfig   `toml:"log"`
	DB    DBConfig    `toml:"db"`
	Trade TradeConfig `toml:"trade"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type TradeConfig struct {
	MaxActiveTradesPerPair int `toml:"max_active_trades_per_pair"`
	ConfirmTimeoutHours    int `toml:"confirm_timeout_hours"`
}

// TradingConfig maps the TOML section onto the trading service tunables,
// falling back to the service defaults for anything unset.
func (c TradeConfig) TradingConfig() trading.Config {
	cfg := trading.Config{
		MaxActiveTradesPerPair: c.MaxActiveTradesPerPair,
		ConfirmTimeout:         time.Duration(c.ConfirmTimeoutHours) * time.Hour,
	}
	if cfg.MaxActiveTradesPerPair <= 0 {
		cfg.MaxActiveTradesPerPair = trading.DefaultMaxActiveTradesPerPair
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = trading.DefaultConfirmTimeout
	}
	return cfg
}
