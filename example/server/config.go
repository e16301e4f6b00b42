package main

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is read from WEBSOCKIFY_* environment variables.
type Config struct {
	Addr        string   `envconfig:"ADDR" default:":8167"`
	TLSCert     string   `envconfig:"TLS_CERT"`
	TLSKey      string   `envconfig:"TLS_KEY"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	LogDev      bool     `envconfig:"LOG_DEV" default:"false"`
	MetricsPath string   `envconfig:"METRICS_PATH" default:"/metrics"`
	Origins     []string `envconfig:"ORIGINS"`
}

func loadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("websockify", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("WEBSOCKIFY_TLS_CERT and WEBSOCKIFY_TLS_KEY must be set together")
	}
	return &cfg, nil
}

func (c *Config) TLSEnabled() bool {
	return c.TLSCert != ""
}

func (c *Config) newLogger() (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	zapCfg := zap.NewProductionConfig()
	if c.LogDev {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
