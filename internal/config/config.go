// Package config provides configuration loading and validation for the CLI.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. COLDMAIL_ENDPOINT.
const EnvPrefix = "COLDMAIL"

// Defaults.
const (
	DefaultEndpoint  = "http://localhost:8000"
	DefaultTimeout   = 30 * time.Second
	DefaultPort      = 8080
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Config holds the client configuration.
// Values come from an optional coldmail.yaml, then COLDMAIL_* environment variables.
type Config struct {
	Endpoint  string        `mapstructure:"endpoint"`   // Base URL of the generation service
	Timeout   time.Duration `mapstructure:"timeout"`    // Per-request timeout
	OutputDir string        `mapstructure:"output_dir"` // Where export files are written
	Log       LogConfig     `mapstructure:"log"`
	Server    ServerConfig  `mapstructure:"server"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the console server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// Load reads configuration. path may be empty, in which case coldmail.yaml is looked up
// in the working directory and ./configs; a missing file is not an error.
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("coldmail")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", DefaultEndpoint)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("output_dir", ".")
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("server.port", DefaultPort)
}

// loadEnvFile loads .env from the working directory if present.
func loadEnvFile() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config error: 'endpoint' must be an absolute URL, got %q", c.Endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config error: 'endpoint' scheme must be http or https")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config error: 'timeout' must be positive")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' out of range: %d", c.Server.Port)
	}
	if c.Log.Format != "" && c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("config error: 'log.format' must be json or console")
	}
	return nil
}

// ResolveOutputDir returns dir if set, else the configured output directory, as an absolute path.
func (c *Config) ResolveOutputDir(dir string) (string, error) {
	if dir == "" {
		dir = c.OutputDir
	}
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output directory: %w", err)
	}
	return abs, nil
}
