package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes yaml to a temp file and returns its path.
func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collector.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
global:
  scrape_interval: 5s
  scrape_timeout: 4s
  http_port: 9090
storage:
  retention: 1h
scrape_configs:
  - job_name: pulse-app
    metrics_path: /metrics/
    static_configs:
      - targets:
          - app:8000
        labels:
          env: demo
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Global.ScrapeInterval != 5*time.Second {
		t.Errorf("ScrapeInterval: got %v, want 5s", cfg.Global.ScrapeInterval)
	}
	if cfg.Storage.Retention != time.Hour {
		t.Errorf("Retention: got %v, want 1h", cfg.Storage.Retention)
	}
	if len(cfg.ScrapeConfigs) != 1 {
		t.Fatalf("ScrapeConfigs: got %d, want 1", len(cfg.ScrapeConfigs))
	}

	job := cfg.ScrapeConfigs[0]
	if job.MetricsPath != "/metrics/" {
		t.Errorf("MetricsPath: got %q, want /metrics/", job.MetricsPath)
	}
	if job.Scheme != "http" {
		t.Errorf("Scheme default: got %q, want http", job.Scheme)
	}
	if job.StaticConfigs[0].Labels["env"] != "demo" {
		t.Errorf("label env: got %q, want demo", job.StaticConfigs[0].Labels["env"])
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "scrape_configs: []\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Global.ScrapeInterval != DefaultScrapeInterval {
		t.Errorf("ScrapeInterval: got %v, want default %v", cfg.Global.ScrapeInterval, DefaultScrapeInterval)
	}
	if cfg.Global.HTTPPort != DefaultHTTPPort {
		t.Errorf("HTTPPort: got %d, want default %d", cfg.Global.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Storage.Retention != DefaultRetention {
		t.Errorf("Retention: got %v, want default %v", cfg.Storage.Retention, DefaultRetention)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing job name", `
scrape_configs:
  - metrics_path: /metrics
    static_configs:
      - targets: ["a:1"]
`},
		{"duplicate job name", `
scrape_configs:
  - job_name: a
    static_configs: [{targets: ["x:1"]}]
  - job_name: a
    static_configs: [{targets: ["y:1"]}]
`},
		{"bad scheme", `
scrape_configs:
  - job_name: a
    scheme: gopher
    static_configs: [{targets: ["x:1"]}]
`},
		{"target without port", `
scrape_configs:
  - job_name: a
    static_configs: [{targets: ["justahost"]}]
`},
		{"negative interval", `
global:
  scrape_interval: -5s
`},
		{"not yaml", "{{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.yaml)); err == nil {
				t.Error("Load: expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load: expected error for missing file")
	}
}

func TestTimeoutFor_CappedAtInterval(t *testing.T) {
	cfg := &Config{
		Global: GlobalConfig{
			ScrapeInterval: 5 * time.Second,
			ScrapeTimeout:  10 * time.Second,
		},
	}
	job := ScrapeConfig{JobName: "a"}
	if got := cfg.TimeoutFor(job); got != 5*time.Second {
		t.Errorf("TimeoutFor: got %v, want 5s (capped at interval)", got)
	}
}

func TestIntervalFor_JobOverride(t *testing.T) {
	cfg := &Config{Global: GlobalConfig{ScrapeInterval: 15 * time.Second}}
	job := ScrapeConfig{JobName: "a", ScrapeInterval: time.Minute}
	if got := cfg.IntervalFor(job); got != time.Minute {
		t.Errorf("IntervalFor: got %v, want 1m", got)
	}
}
