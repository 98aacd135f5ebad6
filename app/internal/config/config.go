package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort    = 8000
	DefaultServiceName = "pulse-app"
)

// Config holds all settings for the instrumented demo application.
type Config struct {
	App AppConfig `yaml:"app"`
}

// AppConfig holds the app-side settings.
type AppConfig struct {
	// HTTPPort is the port the application (and its /metrics/ route) listens on.
	HTTPPort int `yaml:"http_port"`

	// ServiceName is attached to every exported metric as a constant
	// service="..." label.
	ServiceName string `yaml:"service_name"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("app config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("app config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("app config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		App: AppConfig{
			HTTPPort:    DefaultHTTPPort,
			ServiceName: DefaultServiceName,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.App.HTTPPort <= 0 || cfg.App.HTTPPort > 65535 {
		return fmt.Errorf("app.http_port %d is out of range [1, 65535]", cfg.App.HTTPPort)
	}
	if cfg.App.ServiceName == "" {
		return fmt.Errorf("app.service_name must not be empty")
	}
	return nil
}
