package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagConfig = ""
		flagDB = ""
	})
}

func TestConfigPathDefault(t *testing.T) {
	resetFlags(t)
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	flagConfig = ""

	path, err := configPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if want := filepath.Join(tmp, ".safe-estate", "config.yaml"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	resetFlags(t)
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("ESTATE_PORT", "")
	t.Setenv("ESTATE_DB", "")
	t.Chdir(tmp)

	path := filepath.Join(tmp, "estate.yaml")
	data := []byte("server:\n  port: 9090\ndb_path: /var/lib/estate/estate.db\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	flagConfig = path

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.DBPath != "/var/lib/estate/estate.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
}

func TestLoadConfigDBFlagWins(t *testing.T) {
	resetFlags(t)
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("ESTATE_DB", filepath.Join(tmp, "env.db"))
	t.Chdir(tmp)

	flagConfig = filepath.Join(tmp, "missing.yaml")
	flagDB = filepath.Join(tmp, "flag.db")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != flagDB {
		t.Errorf("db path = %q, want %q", cfg.DBPath, flagDB)
	}
}
