package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode                   string   `yaml:"mode"`
	DataSource             string   `yaml:"data_source"`
	Universe               []string `yaml:"universe"`
	TradingIntervalSeconds int      `yaml:"trading_interval_seconds"`
	Scan                   struct {
		Enabled         bool `yaml:"enabled"`
		IntervalSeconds int  `yaml:"interval_seconds"`
		MaxTokens       int  `yaml:"max_tokens"`
	} `yaml:"scan"`
	Risk struct {
		MaxPositionSize  float64 `yaml:"max_position_size"`
		MaxDailyLoss     float64 `yaml:"max_daily_loss"`
		MaxDrawdown      float64 `yaml:"max_drawdown"`
		MaxOpenPositions int     `yaml:"max_open_positions"`
		StopLossPct      float64 `yaml:"stop_loss_pct"`
		TakeProfitPct    float64 `yaml:"take_profit_pct"`
	} `yaml:"risk"`
	Recall struct {
		SnapshotPath  string `yaml:"snapshot_path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"recall"`
	Portfolio struct {
		InitialValue float64 `yaml:"initial_value"`
	} `yaml:"portfolio"`
	Chain struct {
		WalletPath string `yaml:"wallet_path"`
	} `yaml:"chain"`
	Report struct {
		OutDir string `yaml:"out_dir"`
	} `yaml:"report"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.DataSource != "MOCK" && c.DataSource != "LIVE" {
		return fmt.Errorf("invalid data_source '%s': must be 'MOCK' or 'LIVE'", c.DataSource)
	}
	if len(c.Universe) == 0 {
		return errors.New("universe cannot be empty")
	}
	if c.TradingIntervalSeconds <= 0 {
		return fmt.Errorf("trading_interval_seconds must be positive, got %d", c.TradingIntervalSeconds)
	}
	if c.Scan.Enabled && c.Scan.IntervalSeconds <= 0 {
		return fmt.Errorf("scan.interval_seconds must be positive when scanning, got %d", c.Scan.IntervalSeconds)
	}
	if c.Risk.MaxPositionSize <= 0 {
		return fmt.Errorf("risk.max_position_size must be positive, got %.2f", c.Risk.MaxPositionSize)
	}
	if c.Risk.MaxDrawdown <= 0 || c.Risk.MaxDrawdown >= 1 {
		return fmt.Errorf("risk.max_drawdown must be a fraction in (0,1), got %.2f", c.Risk.MaxDrawdown)
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk.max_open_positions must be positive, got %d", c.Risk.MaxOpenPositions)
	}
	if c.Portfolio.InitialValue <= 0 {
		return fmt.Errorf("portfolio.initial_value must be positive, got %.2f", c.Portfolio.InitialValue)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.DataSource == "" {
		c.DataSource = "MOCK"
	}
	if c.TradingIntervalSeconds == 0 {
		c.TradingIntervalSeconds = 15
	}
	if c.Scan.IntervalSeconds == 0 {
		c.Scan.IntervalSeconds = 60
	}
	if c.Scan.MaxTokens == 0 {
		c.Scan.MaxTokens = 5
	}
	if c.Recall.SnapshotPath == "" {
		c.Recall.SnapshotPath = "data/recall.json"
	}
	if c.Recall.RetentionDays == 0 {
		c.Recall.RetentionDays = 30
	}
	if c.Chain.WalletPath == "" {
		c.Chain.WalletPath = "data/wallet.key"
	}
	if c.Report.OutDir == "" {
		c.Report.OutDir = "reports"
	}
	if c.Log.Level == "" {
		c.Log.Level = "INFO"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
