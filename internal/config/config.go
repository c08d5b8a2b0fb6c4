// Package config loads slidecheck settings from defaults, an optional YAML
// file, a .env file and SLIDECHECK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	EnvPrefix = "SLIDECHECK"

	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	AI      AIConfig      `mapstructure:"ai"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	MaxUploadMB int64    `mapstructure:"max_upload_mb"`
}

type StorageConfig struct {
	Dir    string `mapstructure:"dir"`
	DBPath string `mapstructure:"db_path"`
}

type AIConfig struct {
	Provider           string        `mapstructure:"provider"`
	Model              string        `mapstructure:"model"`
	APIKey             string        `mapstructure:"api_key"`
	Timeout            time.Duration `mapstructure:"timeout"`
	InitialTemperature float32       `mapstructure:"initial_temperature"`
	LegalTemperature   float32       `mapstructure:"legal_temperature"`
}

type RulesConfig struct {
	Path           string `mapstructure:"path"`
	LawSummaryPath string `mapstructure:"law_summary_path"`
	Watch          bool   `mapstructure:"watch"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// NewViper returns a viper instance with defaults and environment binding.
// Callers may bind flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("server.max_upload_mb", 50)
	v.SetDefault("storage.dir", "./storage")
	v.SetDefault("storage.db_path", "./storage/app.db")
	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.timeout", 5*time.Minute)
	v.SetDefault("ai.initial_temperature", 0.2)
	v.SetDefault("ai.legal_temperature", 0.1)
	v.SetDefault("rules.path", "")
	v.SetDefault("rules.law_summary_path", "")
	v.SetDefault("rules.watch", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (or ./slidecheck.yaml when file is empty and it exists)
// into v and decodes the result. A .env file in the working directory is
// loaded first when present.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("slidecheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case ProviderGemini:
		if c.AI.APIKey == "" {
			return errors.New("ai.api_key is required for the gemini provider (or set GEMINI_API_KEY / API_KEY)")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown ai.provider %q (want %s or %s)", c.AI.Provider, ProviderGemini, ProviderMock)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
