package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/noddlecat/noddletrader/Internal/utils/sessions"
)

type Config struct {
	Symbol                  string `yaml:"symbol"`
	AnalysisIntervalSeconds int    `yaml:"analysis_interval_seconds"`

	Bias struct {
		Timeframe      string  `yaml:"timeframe"`
		WindowSize     int     `yaml:"window_size"`
		MinCandleRange float64 `yaml:"min_candle_range"`
	} `yaml:"bias"`

	Gaps struct {
		Timeframe           string  `yaml:"timeframe"`
		WindowSize          int     `yaml:"window_size"`
		MinGapSize          float64 `yaml:"min_gap_size"`
		MitigationTolerance float64 `yaml:"mitigation_tolerance"`
	} `yaml:"gaps"`

	Risk struct {
		Fraction    float64 `yaml:"fraction"`
		RewardRatio float64 `yaml:"reward_ratio"`
		PipSize     float64 `yaml:"pip_size"`
		PipValue    float64 `yaml:"pip_value"`
		LotStep     float64 `yaml:"lot_step"`
		MinLot      float64 `yaml:"min_lot"`
		MinStopPips float64 `yaml:"min_stop_pips"`
	} `yaml:"risk"`

	Session struct {
		Enabled bool   `yaml:"enabled"`
		Name    string `yaml:"name"`
	} `yaml:"session"`
}

// LoadConfig reads config.yaml from the usual locations. Validation
// failures are returned to the caller, which treats them as fatal:
// a malformed configuration must halt at startup, never mid-cycle.
func LoadConfig() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	possiblePaths := []string{
		filepath.Join(cwd, "config.yaml"),
		"config.yaml",
		filepath.Join(cwd, "Internal", "utils", "config", "config.yaml"),
		"Internal/utils/config/config.yaml",
	}

	var data []byte
	for _, path := range possiblePaths {
		data, err = os.ReadFile(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("config.yaml not found: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Default returns the strategy defaults used when config.yaml omits a
// field.
func Default() *Config {
	cfg := &Config{
		Symbol:                  "EURUSD",
		AnalysisIntervalSeconds: 5,
	}
	cfg.Bias.Timeframe = "15Min"
	cfg.Bias.WindowSize = 15
	cfg.Bias.MinCandleRange = 0.0003
	cfg.Gaps.Timeframe = "1Min"
	cfg.Gaps.WindowSize = 7
	cfg.Gaps.MinGapSize = 0.0003
	cfg.Gaps.MitigationTolerance = 0.00015
	cfg.Risk.Fraction = 0.01
	cfg.Risk.RewardRatio = 1.5
	cfg.Risk.PipSize = 0.0001
	cfg.Risk.PipValue = 10
	cfg.Risk.LotStep = 0.01
	cfg.Risk.MinLot = 0.01
	cfg.Risk.MinStopPips = 1
	cfg.Session.Enabled = false
	cfg.Session.Name = "NY"
	return cfg
}

func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.AnalysisIntervalSeconds <= 0 {
		return fmt.Errorf("analysis_interval_seconds must be positive")
	}
	if c.Bias.WindowSize < 3 {
		return fmt.Errorf("bias.window_size must be at least 3")
	}
	if c.Gaps.WindowSize < 3 {
		return fmt.Errorf("gaps.window_size must be at least 3")
	}
	if c.Bias.MinCandleRange < 0 || c.Gaps.MinGapSize < 0 || c.Gaps.MitigationTolerance < 0 {
		return fmt.Errorf("range and tolerance values must not be negative")
	}
	if c.Risk.Fraction <= 0 || c.Risk.Fraction > 1 {
		return fmt.Errorf("risk.fraction must be in (0, 1]")
	}
	if c.Risk.RewardRatio <= 0 {
		return fmt.Errorf("risk.reward_ratio must be positive")
	}
	if c.Risk.PipSize <= 0 || c.Risk.PipValue <= 0 {
		return fmt.Errorf("risk.pip_size and risk.pip_value must be positive")
	}
	if c.Risk.LotStep <= 0 || c.Risk.MinLot <= 0 {
		return fmt.Errorf("risk.lot_step and risk.min_lot must be positive")
	}
	if c.Session.Enabled && !sessions.Known(c.Session.Name) {
		return fmt.Errorf("unknown session.name %q", c.Session.Name)
	}
	return nil
}
