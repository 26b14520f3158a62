package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/coldcases/pkg/config"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Search.Debounce != 300*time.Millisecond {
		t.Errorf("debounce = %v, want 300ms", cfg.Search.Debounce)
	}
}

func TestCatalogConfig_PathRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Catalog.Path = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("empty catalog path should fail")
	}
	if !strings.Contains(err.Error(), "catalog") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCatalogConfig_BlankStatus(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Catalog.Statuses = []string{"Unsolved", ""}
	if err := cfg.Validate(); err == nil {
		t.Fatal("blank status should fail")
	}
}

func TestSearchConfig_ZeroDebounce(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Search.Debounce = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero debounce should fail")
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("out of range port should fail")
	}
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	t.Setenv("COLDCASES_TEST_ROOT", "/srv/cases")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `app:
  log_level: debug
  http:
    port: 9090
catalog:
  path: ${COLDCASES_TEST_ROOT}
  statuses: [Open, Closed]
search:
  debounce: 150ms
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.Path != "/srv/cases" {
		t.Errorf("path = %q", cfg.Catalog.Path)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.Search.Debounce != 150*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Search.Debounce)
	}
	if len(cfg.Catalog.Statuses) != 2 || cfg.Catalog.Statuses[0] != "Open" {
		t.Errorf("statuses = %v", cfg.Catalog.Statuses)
	}
	// Untouched sections keep their defaults.
	if cfg.Catalog.Concurrency != 8 {
		t.Errorf("concurrency = %d, want default 8", cfg.Catalog.Concurrency)
	}
}
