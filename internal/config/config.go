package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/vitebski/nba-endpoint-analyzer/internal/connector"
	"github.com/vitebski/nba-endpoint-analyzer/internal/store"
	"github.com/vitebski/nba-endpoint-analyzer/internal/utils"
)

const (
	defaultConfigPath    = "~/.config/nba-endpoint-analyzer/config.toml"
	defaultEndpointPause = time.Second
	defaultWorkers       = 1

	envPrefix = "NBA_ANALYZER_"
)

var validate = validator.New()

// Config holds the analyzer settings
type Config struct {
	BaseURL       string        `validate:"required,url"`
	Timeout       time.Duration `validate:"gt=0"`
	RetryAttempts int           `validate:"gte=1,lte=10"`
	RetryPause    time.Duration `validate:"gte=0"`
	EndpointPause time.Duration `validate:"gte=0"`
	Workers       int           `validate:"gte=1,lte=16"`
	StorePath     string        `validate:"required"`
	TablesPath    string
	CatalogPath   string
	LogLevel      string `validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Archive       bool
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		BaseURL:       connector.DefaultBaseURL,
		Timeout:       connector.DefaultTimeout,
		RetryAttempts: connector.DefaultRetryAttempts,
		RetryPause:    connector.DefaultRetryPause,
		EndpointPause: defaultEndpointPause,
		Workers:       defaultWorkers,
		StorePath:     store.DefaultPath,
	}
}

type fileConfig struct {
	BaseURL       string `toml:"base_url"`
	Timeout       string `toml:"timeout"`
	RetryAttempts *int   `toml:"retry_attempts"`
	RetryPause    string `toml:"retry_pause"`
	EndpointPause string `toml:"endpoint_pause"`
	Workers       *int   `toml:"workers"`
	StorePath     string `toml:"store_path"`
	TablesPath    string `toml:"tables_path"`
	CatalogPath   string `toml:"catalog_path"`
	LogLevel      string `toml:"log_level"`
	Archive       *bool  `toml:"archive"`
}

// Load reads defaults, then the TOML file at path, then NBA_ANALYZER_*
// environment variables. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.mergeFile(resolved); err != nil {
		return Config{}, err
	}
	cfg.mergeEnv()

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		c.BaseURL = v
	}
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"timeout", raw.Timeout, &c.Timeout},
		{"retry_pause", raw.RetryPause, &c.RetryPause},
		{"endpoint_pause", raw.EndpointPause, &c.EndpointPause},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.value) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return fmt.Errorf("parse config: %s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	if raw.RetryAttempts != nil {
		c.RetryAttempts = *raw.RetryAttempts
	}
	if raw.Workers != nil {
		c.Workers = *raw.Workers
	}
	if v := strings.TrimSpace(raw.StorePath); v != "" {
		c.StorePath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.TablesPath); v != "" {
		c.TablesPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.CatalogPath); v != "" {
		c.CatalogPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = v
	}
	if raw.Archive != nil {
		c.Archive = *raw.Archive
	}
	return nil
}

func (c *Config) mergeEnv() {
	if v := os.Getenv(envPrefix + "BASE_URL"); v != "" {
		c.BaseURL = v
	}
	c.Timeout = utils.GetEnvDuration(envPrefix+"TIMEOUT", c.Timeout)
	c.RetryAttempts = utils.GetEnvInt(envPrefix+"RETRY_ATTEMPTS", c.RetryAttempts)
	c.RetryPause = utils.GetEnvDuration(envPrefix+"RETRY_PAUSE", c.RetryPause)
	c.EndpointPause = utils.GetEnvDuration(envPrefix+"ENDPOINT_PAUSE", c.EndpointPause)
	c.Workers = utils.GetEnvInt(envPrefix+"WORKERS", c.Workers)
	if v := os.Getenv(envPrefix + "STORE_PATH"); v != "" {
		c.StorePath = v
	}
	if v := os.Getenv(envPrefix + "TABLES_PATH"); v != "" {
		c.TablesPath = v
	}
	if v := os.Getenv(envPrefix + "CATALOG_PATH"); v != "" {
		c.CatalogPath = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	c.Archive = utils.GetEnvBool(envPrefix+"ARCHIVE", c.Archive)
}

// Validate checks the settings are usable
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
