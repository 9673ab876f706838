// Package config loads the engine configuration from environment variables
// and an optional config file, and supports hot reload of the rollout
// settings.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/marloweh/suggestd/internal/model"
)

// Config is the full engine configuration.
//
// Environment variables (prefix SUGGEST_, dots become underscores):
//
//	SUGGEST_ENABLED          master switch for the suggestion engine
//	SUGGEST_MODE             heuristic|model|auto
//	SUGGEST_MODEL_PATH       model artifact path; empty disables the scorer
//	SUGGEST_SHADOW           run the scorer silently for comparison
//	SUGGEST_CANARY_PCT       0-100 sampling intensity in auto mode
//	SUGGEST_MIN_CONFIDENCE   serve gate for model candidates
//	SUGGEST_TOP_K            max candidates returned per transaction
//	SUGGEST_CACHE_TTL        merchant-memory retention in seconds
//	SUGGEST_DATABASE_PATH    SQLite database location
//	SUGGEST_HTTP_HOST / SUGGEST_HTTP_PORT
//	SUGGEST_LOGGING_LEVEL / SUGGEST_LOGGING_FORMAT
type Config struct {
	Mode          string
	ModelPath     string
	DatabasePath  string
	HTTPHost      string
	LogLevel      string
	LogFormat     string
	CacheTTL      time.Duration
	HTTPPort      int
	CanaryPct     int
	TopK          int
	MinConfidence float64
	Enabled       bool
	Shadow        bool
}

func setDefaults() {
	viper.SetDefault("enabled", true)
	viper.SetDefault("mode", string(model.ModeHeuristic))
	viper.SetDefault("model_path", "")
	viper.SetDefault("shadow", false)
	viper.SetDefault("canary_pct", 0)
	viper.SetDefault("min_confidence", 0.65)
	viper.SetDefault("top_k", 3)
	viper.SetDefault("cache_ttl", 30*24*3600)
	viper.SetDefault("database_path", "suggestd.db")
	viper.SetDefault("http.host", "localhost")
	viper.SetDefault("http.port", 8900)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
}

// Load reads configuration from the environment and, when cfgFile is
// non-empty, from that file.
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	viper.SetEnvPrefix("SUGGEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Enabled:       viper.GetBool("enabled"),
		Mode:          viper.GetString("mode"),
		ModelPath:     viper.GetString("model_path"),
		Shadow:        viper.GetBool("shadow"),
		CanaryPct:     viper.GetInt("canary_pct"),
		MinConfidence: viper.GetFloat64("min_confidence"),
		TopK:          viper.GetInt("top_k"),
		CacheTTL:      time.Duration(viper.GetInt("cache_ttl")) * time.Second,
		DatabasePath:  viper.GetString("database_path"),
		HTTPHost:      viper.GetString("http.host"),
		HTTPPort:      viper.GetInt("http.port"),
		LogLevel:      viper.GetString("logging.level"),
		LogFormat:     viper.GetString("logging.format"),
	}

	if err := cfg.Rollout().Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Rollout derives the rollout configuration from the loaded settings.
func (c *Config) Rollout() model.RolloutConfig {
	return model.RolloutConfig{
		Mode:          model.RolloutMode(c.Mode),
		CanaryPct:     c.CanaryPct,
		Shadow:        c.Shadow,
		MinConfidence: c.MinConfidence,
		TopK:          c.TopK,
	}
}

// Watch re-reads the config file on change and invokes onChange with the
// new rollout configuration. Requires a config file to have been loaded.
func Watch(onChange func(model.RolloutConfig)) {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		cfg := model.RolloutConfig{
			Mode:          model.RolloutMode(viper.GetString("mode")),
			CanaryPct:     viper.GetInt("canary_pct"),
			Shadow:        viper.GetBool("shadow"),
			MinConfidence: viper.GetFloat64("min_confidence"),
			TopK:          viper.GetInt("top_k"),
		}
		if err := cfg.Validate(); err != nil {
			slog.Error("Ignoring invalid rollout config change", "error", err)
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}
