package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultScrapeInterval = 15 * time.Second
	DefaultScrapeTimeout  = 10 * time.Second
	DefaultRetention      = 2 * time.Hour
	DefaultHTTPPort       = 9090
	DefaultMetricsPath    = "/metrics"
	DefaultScheme         = "http"
)

// Config is the collector's top-level configuration.
type Config struct {
	Global        GlobalConfig   `yaml:"global"`
	Storage       StorageConfig  `yaml:"storage"`
	ScrapeConfigs []ScrapeConfig `yaml:"scrape_configs"`
}

// GlobalConfig holds defaults shared by every scrape job.
type GlobalConfig struct {
	// ScrapeInterval is the default interval between scrapes of one target.
	ScrapeInterval time.Duration `yaml:"scrape_interval"`

	// ScrapeTimeout is the default per-scrape deadline. A scrape still
	// running at the deadline is abandoned and counted as a failure.
	ScrapeTimeout time.Duration `yaml:"scrape_timeout"`

	// HTTPPort is the port the query API and UI listen on.
	HTTPPort int `yaml:"http_port"`
}

// StorageConfig controls the in-memory sample store.
type StorageConfig struct {
	// Retention is how long appended samples are kept before eviction.
	Retention time.Duration `yaml:"retention"`
}

// ScrapeConfig describes one scrape job: a set of targets sharing a job
// name, path, scheme, and interval.
type ScrapeConfig struct {
	// JobName is attached to every sample from this job as job="...".
	JobName string `yaml:"job_name"`

	// ScrapeInterval overrides the global interval for this job.
	ScrapeInterval time.Duration `yaml:"scrape_interval"`

	// ScrapeTimeout overrides the global timeout for this job.
	ScrapeTimeout time.Duration `yaml:"scrape_timeout"`

	// MetricsPath is the HTTP path of the exposition route. It must match
	// the target's route exactly, trailing slash included.
	MetricsPath string `yaml:"metrics_path"`

	// Scheme is http or https.
	Scheme string `yaml:"scheme"`

	// StaticConfigs lists the target groups for this job.
	StaticConfigs []StaticConfig `yaml:"static_configs"`
}

// StaticConfig is one group of statically-addressed targets with shared labels.
type StaticConfig struct {
	// Targets is a list of host:port addresses.
	Targets []string `yaml:"targets"`

	// Labels is attached to every sample scraped from these targets.
	Labels map[string]string `yaml:"labels"`
}

// IntervalFor returns the effective scrape interval for job: the job's own
// override, or the global default.
func (c *Config) IntervalFor(job ScrapeConfig) time.Duration {
	if job.ScrapeInterval > 0 {
		return job.ScrapeInterval
	}
	return c.Global.ScrapeInterval
}

// TimeoutFor returns the effective scrape timeout for job, capped at the
// effective interval so one scrape can never overlap the next.
func (c *Config) TimeoutFor(job ScrapeConfig) time.Duration {
	t := job.ScrapeTimeout
	if t <= 0 {
		t = c.Global.ScrapeTimeout
	}
	if iv := c.IntervalFor(job); t > iv {
		t = iv
	}
	return t
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("collector config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("collector config: parse yaml: %w", err)
	}

	applyJobDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("collector config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Global: GlobalConfig{
			ScrapeInterval: DefaultScrapeInterval,
			ScrapeTimeout:  DefaultScrapeTimeout,
			HTTPPort:       DefaultHTTPPort,
		},
		Storage: StorageConfig{
			Retention: DefaultRetention,
		},
	}
}

// applyJobDefaults fills per-job fields that default per job rather than
// globally.
func applyJobDefaults(cfg *Config) {
	for i := range cfg.ScrapeConfigs {
		job := &cfg.ScrapeConfigs[i]
		if job.MetricsPath == "" {
			job.MetricsPath = DefaultMetricsPath
		}
		if job.Scheme == "" {
			job.Scheme = DefaultScheme
		}
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Global.ScrapeInterval <= 0 {
		return fmt.Errorf("global.scrape_interval must be positive")
	}
	if cfg.Global.ScrapeTimeout <= 0 {
		return fmt.Errorf("global.scrape_timeout must be positive")
	}
	if cfg.Global.HTTPPort <= 0 || cfg.Global.HTTPPort > 65535 {
		return fmt.Errorf("global.http_port %d is out of range [1, 65535]", cfg.Global.HTTPPort)
	}
	if cfg.Storage.Retention <= 0 {
		return fmt.Errorf("storage.retention must be positive")
	}

	seen := make(map[string]bool)
	for i, job := range cfg.ScrapeConfigs {
		if job.JobName == "" {
			return fmt.Errorf("scrape_configs[%d]: job_name is required", i)
		}
		if seen[job.JobName] {
			return fmt.Errorf("scrape_configs[%d]: duplicate job_name %q", i, job.JobName)
		}
		seen[job.JobName] = true

		switch job.Scheme {
		case "http", "https":
		default:
			return fmt.Errorf("scrape_configs[%d] %q: scheme %q: want http|https", i, job.JobName, job.Scheme)
		}
		if job.MetricsPath == "" || job.MetricsPath[0] != '/' {
			return fmt.Errorf("scrape_configs[%d] %q: metrics_path must start with /", i, job.JobName)
		}
		for _, sc := range job.StaticConfigs {
			for _, t := range sc.Targets {
				if _, _, err := net.SplitHostPort(t); err != nil {
					return fmt.Errorf("scrape_configs[%d] %q: target %q: want host:port", i, job.JobName, t)
				}
			}
		}
	}
	return nil
}
