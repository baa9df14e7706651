package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
crawler:
  user_agent: catalog-agent
  timeout_seconds: 45
  delay_seconds: 3
  max_items: 30
browser:
  enabled: true
  max_parallel: 2
  nav_timeout_seconds: 30
storage:
  backend: gcs
  gcs_bucket: bucket
  size_ceiling_mb: 10
analysis:
  base_url: https://analysis.internal
  api_key: analysis-key
search:
  chunk_size_words: 200
  overlap_words: 20
dedup:
  batch_size: 25
logging:
  development: false
scheduler:
  interval_minutes: 120
sources:
  - id: bizinfo
    name: 기업마당
    url: https://www.bizinfo.go.kr/list
    type: plain
    active: true
  - id: kstartup
    name: K-스타트업
    url: https://www.k-startup.go.kr/list
    type: browser
    active: true
    wait_selector: ".board-list"
waf_hosts:
  - www.mss.go.kr
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Fatalf("expected fetch timeout 45s, got %v", got)
	}
	if got := cfg.PoliteDelay(); got != 3*time.Second {
		t.Fatalf("expected polite delay 3s, got %v", got)
	}
	if got := cfg.SizeCeilingBytes(); got != 10<<20 {
		t.Fatalf("expected 10MiB size ceiling, got %d", got)
	}
	if got := cfg.SchedulerInterval(); got != 2*time.Hour {
		t.Fatalf("expected 2h interval, got %v", got)
	}
	if cfg.Search.ChunkSizeWords != 200 || cfg.Search.OverlapWords != 20 {
		t.Fatalf("expected search overrides to apply: %+v", cfg.Search)
	}
	// Defaults survive partial overrides.
	if cfg.Search.MatchThreshold != 0.3 {
		t.Fatalf("expected default match threshold, got %v", cfg.Search.MatchThreshold)
	}

	sources := cfg.CatalogSources()
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[1].Type != "browser" || sources[1].WaitSelector != ".board-list" {
		t.Fatalf("expected browser source with wait selector: %+v", sources[1])
	}
	if len(cfg.WAFHosts) != 1 || cfg.WAFHosts[0] != "www.mss.go.kr" {
		t.Fatalf("expected waf host override: %+v", cfg.WAFHosts)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		Crawler: CrawlerConfig{TimeoutSeconds: 10},
		Search:  SearchConfig{ChunkSizeWords: 300, OverlapWords: 30},
		Storage: StorageConfig{Backend: "memory"},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.Crawler.TimeoutSeconds = 0
				return c
			}(),
			want: "crawler.timeout_seconds",
		},
		{
			name: "browser missing max parallel",
			cfg: func() Config {
				c := base
				c.Browser.Enabled = true
				c.Browser.MaxParallel = 0
				return c
			}(),
			want: "browser.max_parallel",
		},
		{
			name: "auth missing api key",
			cfg: func() Config {
				c := base
				c.Auth.Enabled = true
				return c
			}(),
			want: "auth.api_key",
		},
		{
			name: "overlap too large",
			cfg: func() Config {
				c := base
				c.Search.OverlapWords = 300
				return c
			}(),
			want: "search.overlap_words",
		},
		{
			name: "gcs backend without bucket",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "gcs"
				return c
			}(),
			want: "storage.gcs_bucket",
		},
		{
			name: "unknown backend",
			cfg: func() Config {
				c := base
				c.Storage.Backend = "s3"
				return c
			}(),
			want: "storage.backend",
		},
		{
			name: "source missing url",
			cfg: func() Config {
				c := base
				c.Sources = []SourceConfig{{ID: "x"}}
				return c
			}(),
			want: "sources[0]",
		},
		{
			name: "source bad type",
			cfg: func() Config {
				c := base
				c.Sources = []SourceConfig{{ID: "x", URL: "https://x.test", Type: "api"}}
				return c
			}(),
			want: "sources[0].type",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
