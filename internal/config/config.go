// Package config provides configuration management for the spread advisor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"angel-trader/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Analysis    AnalysisConfig          `mapstructure:"analysis"`
	Gateway     GatewayConfig           `mapstructure:"gateway"`
	Symbols     map[string]SymbolConfig `mapstructure:"symbols"`
	UI          UIConfig                `mapstructure:"ui"`
	Credentials Credentials             `mapstructure:"-"` // Loaded separately
}

// AnalysisConfig holds spread analysis parameters.
type AnalysisConfig struct {
	MinDeltaDiff float64 `mapstructure:"min_delta_diff"`
	MaxDeltaDiff float64 `mapstructure:"max_delta_diff"`
	StrikeWindow int     `mapstructure:"strike_window"`
	TopN         int     `mapstructure:"top_n"`
}

// GatewayConfig holds upstream fetch behavior parameters.
type GatewayConfig struct {
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RateLimitPerSec   float64       `mapstructure:"rate_limit_per_sec"`
	BreakerEnabled    bool          `mapstructure:"breaker_enabled"`
	RefreshMarginMins int           `mapstructure:"refresh_margin_mins"`
}

// SymbolConfig holds per-underlying contract parameters.
type SymbolConfig struct {
	LotSize        int     `mapstructure:"lot_size"`
	StrikeInterval float64 `mapstructure:"strike_interval"`
	Token          string  `mapstructure:"token"`
}

// UIConfig holds CLI output configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// Credentials holds provider API credentials.
type Credentials struct {
	Angel AngelCredentials `mapstructure:"angel"`
}

// AngelCredentials holds SmartAPI credentials.
type AngelCredentials struct {
	APIKey     string `mapstructure:"api_key"`
	ClientCode string `mapstructure:"client_code"`
	Password   string `mapstructure:"password"`
	TOTPSecret string `mapstructure:"totp_secret"`
}

// Complete reports whether every credential field is set.
func (c AngelCredentials) Complete() bool {
	return c.APIKey != "" && c.ClientCode != "" && c.Password != "" && c.TOTPSecret != ""
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/angel-trader"
	}
	return filepath.Join(home, ".config", "angel-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANGEL_API_KEY"); v != "" {
		cfg.Credentials.Angel.APIKey = v
	}
	if v := os.Getenv("ANGEL_CLIENT_CODE"); v != "" {
		cfg.Credentials.Angel.ClientCode = v
	}
	if v := os.Getenv("ANGEL_PASSWORD"); v != "" {
		cfg.Credentials.Angel.Password = v
	}
	if v := os.Getenv("ANGEL_TOTP_SECRET"); v != "" {
		cfg.Credentials.Angel.TOTPSecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Analysis.MinDeltaDiff == 0 {
		cfg.Analysis.MinDeltaDiff = 0.15
	}
	if cfg.Analysis.MaxDeltaDiff == 0 {
		cfg.Analysis.MaxDeltaDiff = 0.26
	}
	if cfg.Analysis.StrikeWindow == 0 {
		cfg.Analysis.StrikeWindow = 6
	}
	if cfg.Analysis.TopN == 0 {
		cfg.Analysis.TopN = 10
	}
	if cfg.Gateway.MaxRetries == 0 {
		cfg.Gateway.MaxRetries = 3
	}
	if cfg.Gateway.InitialBackoff == 0 {
		cfg.Gateway.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.Gateway.MaxBackoff == 0 {
		cfg.Gateway.MaxBackoff = 8 * time.Second
	}
	if cfg.Gateway.RequestTimeout == 0 {
		cfg.Gateway.RequestTimeout = 10 * time.Second
	}
	if cfg.Gateway.RateLimitPerSec == 0 {
		cfg.Gateway.RateLimitPerSec = 3
	}
	if cfg.Gateway.RefreshMarginMins == 0 {
		cfg.Gateway.RefreshMarginMins = 5
	}
	if cfg.Symbols == nil {
		cfg.Symbols = map[string]SymbolConfig{}
	}
	if _, ok := cfg.Symbols[string(models.Nifty)]; !ok {
		cfg.Symbols[string(models.Nifty)] = SymbolConfig{LotSize: 75, StrikeInterval: 50, Token: "99926000"}
	}
	if _, ok := cfg.Symbols[string(models.BankNifty)]; !ok {
		cfg.Symbols[string(models.BankNifty)] = SymbolConfig{LotSize: 35, StrikeInterval: 100, Token: "99926009"}
	}
	if cfg.UI.DateFormat == "" {
		cfg.UI.DateFormat = "02-Jan-2006"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Analysis.MinDeltaDiff < 0 || c.Analysis.MaxDeltaDiff > 1 {
		return fmt.Errorf("delta band must lie within [0, 1]")
	}
	if c.Analysis.MinDeltaDiff >= c.Analysis.MaxDeltaDiff {
		return fmt.Errorf("min_delta_diff must be below max_delta_diff")
	}
	if c.Analysis.StrikeWindow < 1 {
		return fmt.Errorf("strike_window must be at least 1")
	}
	if c.Analysis.TopN < 1 {
		return fmt.Errorf("top_n must be at least 1")
	}
	for sym, sc := range c.Symbols {
		if sc.LotSize <= 0 {
			return fmt.Errorf("lot_size for %s must be positive", sym)
		}
		if sc.StrikeInterval <= 0 {
			return fmt.Errorf("strike_interval for %s must be positive", sym)
		}
	}
	return nil
}

// Symbol returns the per-symbol settings, or false when unknown.
func (c *Config) Symbol(sym models.Symbol) (SymbolConfig, bool) {
	sc, ok := c.Symbols[string(sym)]
	return sc, ok
}
