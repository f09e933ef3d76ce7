package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type config struct {
	Port             string        `yaml:"port" validate:"required,numeric"`
	BackendURL       string        `yaml:"backendURL" validate:"required,http_url"`
	RequestTimeout   time.Duration `yaml:"requestTimeout" validate:"gte=0"`
	StatusClearDelay time.Duration `yaml:"statusClearDelay" validate:"gt=0"`
	LogLevel         string        `yaml:"logLevel" validate:"oneof=debug info warn error"`
}

const envPrefix = "MEETINGCHAT_"

func defaultConfig() config {
	return config{
		Port:             "8080",
		BackendURL:       "http://localhost:5000",
		StatusClearDelay: 5 * time.Second,
		LogLevel:         "info",
	}
}

// loadConfig reads the YAML file at path over the defaults, then applies environment overrides. A missing
// file is not an error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return config{}, fmt.Errorf("error opening config file: %w", err)
	default:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return config{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var err error
	if c.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.StatusClearDelay, err = getEnvDuration("STATUS_CLEAR_DELAY", c.StatusClearDelay); err != nil {
		return err
	}
	return nil
}

func (c config) slogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(envPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("error parsing %s%s: %w", envPrefix, key, err)
	}
	return d, nil
}
