package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.Addr != "127.0.0.1:8090" || cfg.Seed != 1337 {
		t.Fatalf("defaults=%+v", cfg)
	}
	if !cfg.Index.Enabled || !cfg.Audit.Enabled || !cfg.Snapshot.Restore || cfg.Snapshot.EveryDays != 0 {
		t.Fatalf("nested defaults=%+v", cfg)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	body := "logLevel: debug\nseed: 42\nsnapshot:\n  everyDays: 3\nindex:\n  enabled: true\n  path: idx.sqlite\n"
	if err := os.WriteFile(filepath.Join(dir, "driftline.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DRIFTLINE_INDEX_ENABLED", "false")
	t.Setenv("DRIFTLINE_ADDR", "127.0.0.1:9999")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Seed != 42 || cfg.Snapshot.EveryDays != 3 || cfg.Index.Path != "idx.sqlite" {
		t.Fatalf("file values=%+v", cfg)
	}
	if cfg.Index.Enabled || cfg.Addr != "127.0.0.1:9999" {
		t.Fatalf("env overrides ignored: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
	}{
		{"format", "logFormat: xml\n"},
		{"every days", "snapshot:\n  everyDays: -1\n"},
		{"syntax", "logLevel: [\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "driftline.yaml"), []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := Load(dir); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestConfig_Paths(t *testing.T) {
	cfg := Config{DataDir: "data", ConfigDir: "configs", WorldID: "w1", Scenario: "scenario.yaml"}
	if got := cfg.SnapshotDir(); got != filepath.Join("data", "worlds", "w1", "snapshots") {
		t.Fatalf("snapshot dir=%s", got)
	}
	if got := cfg.IndexPath(); got != filepath.Join("data", "worlds", "w1", "index.sqlite") {
		t.Fatalf("index path=%s", got)
	}
	if got := cfg.ScenarioPath(); got != filepath.Join("configs", "scenario.yaml") {
		t.Fatalf("scenario path=%s", got)
	}
	cfg.Scenario = "/srv/alt.yaml"
	cfg.Index.Path = "idx.sqlite"
	if cfg.ScenarioPath() != "/srv/alt.yaml" || cfg.IndexPath() != "idx.sqlite" {
		t.Fatalf("overrides ignored: %s %s", cfg.ScenarioPath(), cfg.IndexPath())
	}
}
