package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds process-wide settings for the server and the CLI.
type Config struct {
	Port           string   `mapstructure:"port"`
	DBPath         string   `mapstructure:"db_path"`
	Timezone       string   `mapstructure:"timezone"`
	CatalogPath    string   `mapstructure:"catalog_path"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       string   `mapstructure:"log_level"`
	SilentDB       bool     `mapstructure:"silent_db"`
}

const (
	DefaultPort     = "2000"
	DefaultTimezone = "America/Mexico_City"
)

// DefaultDBPath is relative to the working directory.
var DefaultDBPath = filepath.Join("data", "sla-tracker.db")

var defaultOrigins = []string{
	"http://localhost:1000",
	"http://127.0.0.1:1000",
}

// Load reads configuration from the environment and, when file is non-empty or
// SLA_CONFIG is set, from a YAML file. Environment variables win over the file.
func Load(file string) (Config, error) {
	v := viper.New()

	v.SetDefault("port", DefaultPort)
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("timezone", DefaultTimezone)
	v.SetDefault("catalog_path", "")
	v.SetDefault("allowed_origins", defaultOrigins)
	v.SetDefault("log_level", "info")
	v.SetDefault("silent_db", true)

	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("db_path", "SLA_DB_PATH")
	_ = v.BindEnv("timezone", "SLA_TIMEZONE")
	_ = v.BindEnv("catalog_path", "SLA_CATALOG_PATH")
	_ = v.BindEnv("allowed_origins", "SLA_ALLOWED_ORIGINS")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("silent_db", "SLA_SILENT_DB")
	_ = v.BindEnv("config", "SLA_CONFIG")

	if file == "" {
		file = strings.TrimSpace(v.GetString("config"))
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing configuration: %w", err)
	}
	cfg.AllowedOrigins = splitOrigins(cfg.AllowedOrigins)
	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late at startup.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// splitOrigins accepts both YAML lists and comma separated env values.
func splitOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
