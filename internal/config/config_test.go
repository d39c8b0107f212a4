package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "./tiers.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoadAppliesSearchDefaults(t *testing.T) {
	path := writeConfig(t, `
search:
  scroll_page_size: 500
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.ScrollPageSize != 500 {
		t.Errorf("scroll_page_size = %d, want 500", cfg.Search.ScrollPageSize)
	}
	if cfg.Search.MaxResultWindow != 10000 {
		t.Errorf("max_result_window default = %d, want 10000", cfg.Search.MaxResultWindow)
	}
	if cfg.Search.MaxScrollPages != 200 {
		t.Errorf("max_scroll_pages default = %d, want 200", cfg.Search.MaxScrollPages)
	}
	if cfg.Search.DefaultLimit != 30 {
		t.Errorf("default_limit default = %d, want 30", cfg.Search.DefaultLimit)
	}
}

func TestLoadExpandsDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "./dumps"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(filepath.Dir(path), "dumps")
	if cfg.Storage.DataDir != want {
		t.Errorf("data_dir = %q, want %q", cfg.Storage.DataDir, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
