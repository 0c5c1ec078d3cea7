package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/meihua/internal/hexagram"
	"github.com/rewired-gh/meihua/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	Game      GameConfig      `mapstructure:"game"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Data      DataConfig      `mapstructure:"data"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Optimize  OptimizeConfig  `mapstructure:"optimize"`
	Evolution EvolutionConfig `mapstructure:"evolution"`
	Guard     GuardConfig     `mapstructure:"guard"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// GameConfig selects the game and the moving-line rule
type GameConfig struct {
	Type       string `mapstructure:"type"`
	MovingRule string `mapstructure:"moving_rule"`
}

// ScoringConfig holds the base scoring parameters
type ScoringConfig struct {
	HexWeights      []float64 `mapstructure:"hex_weights"`
	HistoryWeight   float64   `mapstructure:"history_weight"`
	RecencyWeight   float64   `mapstructure:"recency_weight"`
	GapWeight       float64   `mapstructure:"gap_weight"`
	CalendarWeight  float64   `mapstructure:"calendar_weight"`
	HistoryHalfLife float64   `mapstructure:"history_half_life"`
	HistoryWindow   int       `mapstructure:"history_window"`
	DynamicWeights  bool      `mapstructure:"dynamic_weights"`
}

// DataConfig holds history loading and caching configuration
type DataConfig struct {
	CacheDir         string        `mapstructure:"cache_dir"`
	DatasetDir       string        `mapstructure:"dataset_dir"`
	SourceBaseURL    string        `mapstructure:"source_base_url"`
	Offline          bool          `mapstructure:"offline"`
	ForceUpdate      bool          `mapstructure:"force_update"`
	MaxPeriods       int           `mapstructure:"max_periods"`
	SimulatedPeriods int           `mapstructure:"simulated_periods"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// BacktestConfig holds the replay window
type BacktestConfig struct {
	WindowSize int `mapstructure:"window_size"`
	Step       int `mapstructure:"step"`
}

// OptimizeConfig holds the grid search axes
type OptimizeConfig struct {
	HexGrid     [][]float64 `mapstructure:"hex_grid"`
	HistoryGrid []float64   `mapstructure:"history_grid"`
}

// EvolutionConfig holds genetic search overrides. Zero values defer to the inferred guidance.
type EvolutionConfig struct {
	Iterations int   `mapstructure:"iterations"`
	Population int   `mapstructure:"population"`
	Seed       int64 `mapstructure:"seed"`
	Workers    int   `mapstructure:"workers"`
}

// GuardConfig holds guard-set recommendation settings
type GuardConfig struct {
	Sets    int `mapstructure:"sets"`
	Horizon int `mapstructure:"horizon"`
	Blue    int `mapstructure:"blue"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// Presets are merged over the file in order.
func Load(path string, presets ...string) (*Config, error) {
	v := newViper()

	// Set config file
	v.SetConfigFile(path)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v, presets)
}

// LoadDefaults builds the configuration from defaults and environment
// variables only, merging any presets.
func LoadDefaults(presets ...string) (*Config, error) {
	return unmarshal(newViper(), presets)
}

// envKeyReplacer maps nested keys to env names, e.g. MEIHUA_GAME_TYPE.
var envKeyReplacer = strings.NewReplacer(".", "_")

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("MEIHUA")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper, presets []string) (*Config, error) {
	for _, p := range presets {
		v.SetConfigFile(p)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge preset %s: %w", p, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Game defaults
	v.SetDefault("game.type", string(models.GameSSQ))
	v.SetDefault("game.moving_rule", string(hexagram.MovingStandard))

	// Scoring defaults
	base := models.DefaultScoringParameters()
	v.SetDefault("scoring.hex_weights", base.HexWeights[:])
	v.SetDefault("scoring.history_weight", base.HistoryWeight)
	v.SetDefault("scoring.recency_weight", base.RecencyWeight)
	v.SetDefault("scoring.gap_weight", base.GapWeight)
	v.SetDefault("scoring.calendar_weight", base.CalendarWeight)
	v.SetDefault("scoring.history_half_life", base.HistoryHalfLife)
	v.SetDefault("scoring.history_window", base.HistoryWindow)
	v.SetDefault("scoring.dynamic_weights", true)

	// Data defaults
	v.SetDefault("data.cache_dir", "./data/meihua_cache")
	v.SetDefault("data.dataset_dir", "./data/raw")
	v.SetDefault("data.source_base_url", "")
	v.SetDefault("data.offline", false)
	v.SetDefault("data.force_update", false)
	v.SetDefault("data.max_periods", 0)
	v.SetDefault("data.simulated_periods", 200)
	v.SetDefault("data.timeout", "30s")

	// Backtest defaults
	v.SetDefault("backtest.window_size", 100)
	v.SetDefault("backtest.step", 1)

	// Optimize defaults
	v.SetDefault("optimize.hex_grid", [][]float64{{0.5, 0.2, 0.3}, {0.4, 0.3, 0.3}, {0.3, 0.3, 0.4}})
	v.SetDefault("optimize.history_grid", []float64{0.2, 0.4, 0.6})

	// Evolution defaults
	v.SetDefault("evolution.iterations", 0)
	v.SetDefault("evolution.population", 0)
	v.SetDefault("evolution.seed", 0)
	v.SetDefault("evolution.workers", 1)

	// Guard defaults
	v.SetDefault("guard.sets", 0)
	v.SetDefault("guard.horizon", 120)
	v.SetDefault("guard.blue", 5)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Game config
	if _, err := models.ParseGameType(c.Game.Type); err != nil {
		return fmt.Errorf("game.type: %w", err)
	}
	if _, err := hexagram.ParseMovingRule(c.Game.MovingRule); err != nil {
		return fmt.Errorf("game.moving_rule: %w", err)
	}

	// Validate Scoring config
	if len(c.Scoring.HexWeights) != 3 {
		return fmt.Errorf("scoring.hex_weights must have exactly 3 values")
	}
	params := c.ScoringParameters()
	if err := params.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}

	// Validate Data config
	if !c.Data.Offline && c.Data.SourceBaseURL != "" && c.Data.Timeout < time.Second {
		return fmt.Errorf("data.timeout must be at least 1 second")
	}
	if c.Data.MaxPeriods < 0 {
		return fmt.Errorf("data.max_periods must not be negative")
	}

	// Validate Backtest config
	if c.Backtest.WindowSize < 0 {
		return fmt.Errorf("backtest.window_size must not be negative")
	}
	if c.Backtest.Step < 1 {
		return fmt.Errorf("backtest.step must be at least 1")
	}

	// Validate Optimize config
	for i, row := range c.Optimize.HexGrid {
		if len(row) != 3 {
			return fmt.Errorf("optimize.hex_grid[%d] must have exactly 3 values", i)
		}
	}

	// Validate Evolution config
	if c.Evolution.Iterations < 0 || c.Evolution.Population < 0 {
		return fmt.Errorf("evolution.iterations and evolution.population must not be negative")
	}
	if c.Evolution.Workers < 1 {
		return fmt.Errorf("evolution.workers must be at least 1")
	}

	// Validate Guard config
	if c.Guard.Sets < 0 || c.Guard.Blue < 0 {
		return fmt.Errorf("guard.sets and guard.blue must not be negative")
	}
	if c.Guard.Horizon < 1 {
		return fmt.Errorf("guard.horizon must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.Telegram.MaxRetries < 0 {
		return fmt.Errorf("telegram.max_retries must not be negative")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// GameType returns the parsed game type. Call Validate first.
func (c *Config) GameType() models.GameType {
	t, _ := models.ParseGameType(c.Game.Type)
	return t
}

// MovingRule returns the parsed moving-line rule. Call Validate first.
func (c *Config) MovingRule() hexagram.MovingRule {
	r, _ := hexagram.ParseMovingRule(c.Game.MovingRule)
	return r
}

// ScoringParameters returns the base scoring parameters.
func (c *Config) ScoringParameters() models.ScoringParameters {
	p := models.ScoringParameters{
		HistoryWeight:   c.Scoring.HistoryWeight,
		RecencyWeight:   c.Scoring.RecencyWeight,
		GapWeight:       c.Scoring.GapWeight,
		CalendarWeight:  c.Scoring.CalendarWeight,
		HistoryHalfLife: c.Scoring.HistoryHalfLife,
		HistoryWindow:   c.Scoring.HistoryWindow,
	}
	copy(p.HexWeights[:], c.Scoring.HexWeights)
	return p
}

// HexGrid returns the grid search hex weights. Call Validate first.
func (c *Config) HexGrid() [][3]float64 {
	grid := make([][3]float64, 0, len(c.Optimize.HexGrid))
	for _, row := range c.Optimize.HexGrid {
		var h [3]float64
		copy(h[:], row)
		grid = append(grid, h)
	}
	return grid
}

// Preset is the scoring overlay written by the evolve command.
type Preset struct {
	Scoring models.ScoringParameters `yaml:"scoring"`
}

// SavePreset writes params as a YAML scoring overlay that Load accepts as a preset.
func SavePreset(path string, params models.ScoringParameters) error {
	data, err := yaml.Marshal(Preset{Scoring: params})
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create preset directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preset: %w", err)
	}
	return nil
}
