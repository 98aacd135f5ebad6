package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort     = 3000
	DefaultDBPath       = "board.db"
	DefaultAdminUser    = "admin"
	DefaultAdminPass    = "admin"
	DefaultSessionTTL   = 12 * time.Hour
	DefaultStreamPeriod = 5 * time.Second
)

// Config is the board's top-level configuration.
type Config struct {
	Board BoardConfig `yaml:"board"`
}

// BoardConfig holds all board-side settings.
type BoardConfig struct {
	// HTTPPort is the port the UI and API listen on.
	HTTPPort int `yaml:"http_port"`

	// DBPath is the SQLite file holding users, data sources, and
	// dashboards. Point it at a persistent volume so they survive
	// restarts.
	DBPath string `yaml:"db_path"`

	// AdminUser and AdminPassword seed the initial admin account on first
	// start. The password is deliberately well-known and the account is
	// flagged must-change — Login reports this until it is rotated.
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password"`

	// SessionTTL is how long a login session stays valid.
	SessionTTL time.Duration `yaml:"session_ttl"`

	// StreamPeriod is how often the WebSocket hub pushes re-rendered
	// dashboards to connected clients.
	StreamPeriod time.Duration `yaml:"stream_period"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("board config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("board config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("board config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Board: BoardConfig{
			HTTPPort:      DefaultHTTPPort,
			DBPath:        DefaultDBPath,
			AdminUser:     DefaultAdminUser,
			AdminPassword: DefaultAdminPass,
			SessionTTL:    DefaultSessionTTL,
			StreamPeriod:  DefaultStreamPeriod,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Board.HTTPPort <= 0 || cfg.Board.HTTPPort > 65535 {
		return fmt.Errorf("board.http_port %d is out of range [1, 65535]", cfg.Board.HTTPPort)
	}
	if cfg.Board.DBPath == "" {
		return fmt.Errorf("board.db_path must not be empty")
	}
	if cfg.Board.AdminUser == "" {
		return fmt.Errorf("board.admin_user must not be empty")
	}
	if cfg.Board.SessionTTL <= 0 {
		return fmt.Errorf("board.session_ttl must be positive")
	}
	if cfg.Board.StreamPeriod <= 0 {
		return fmt.Errorf("board.stream_period must be positive")
	}
	return nil
}
