package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Shard.Count != 4 {
		t.Errorf("default shard count = %d, want 4", cfg.Shard.Count)
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("default postgres port = %d, want 5432", cfg.Postgres.Port)
	}
	if cfg.MySQL.Port != 3306 {
		t.Errorf("default mysql port = %d, want 3306", cfg.MySQL.Port)
	}
	if cfg.MongoDB.Port != 27017 {
		t.Errorf("default mongodb port = %d, want 27017", cfg.MongoDB.Port)
	}
	if cfg.Cassandra.Port != 9042 {
		t.Errorf("default cassandra port = %d, want 9042", cfg.Cassandra.Port)
	}
	if cfg.Redis.Port != 6379 {
		t.Errorf("default redis port = %d, want 6379", cfg.Redis.Port)
	}
	if cfg.Storage.Backend != "filesystem" {
		t.Errorf("default storage backend = %q, want %q", cfg.Storage.Backend, "filesystem")
	}
	for _, p := range []Protocol{cfg.Postgres, cfg.MySQL, cfg.MongoDB, cfg.Cassandra, cfg.Redis} {
		if p.MaxConnections != 100 {
			t.Errorf("default max_connections = %d, want 100", p.MaxConnections)
		}
		if !p.Enabled {
			t.Error("every protocol should default to enabled")
		}
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned an error: %v", err)
	}
	if cfg != Default() {
		t.Error("Load(\"\") should return exactly Default()")
	}
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumadb.toml")
	body := `
[general]
data_dir = "/var/lib/lumadb"

[postgres]
port = 15432

[shard]
count = 8
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s): %v", path, err)
	}
	if cfg.General.DataDir != "/var/lib/lumadb" {
		t.Errorf("DataDir = %q, want %q", cfg.General.DataDir, "/var/lib/lumadb")
	}
	if cfg.Postgres.Port != 15432 {
		t.Errorf("Postgres.Port = %d, want 15432", cfg.Postgres.Port)
	}
	if cfg.Shard.Count != 8 {
		t.Errorf("Shard.Count = %d, want 8", cfg.Shard.Count)
	}
	// Untouched fields must keep their Default() values.
	if cfg.MySQL.Port != 3306 {
		t.Errorf("MySQL.Port = %d, want the untouched default 3306", cfg.MySQL.Port)
	}
	if cfg.Shard.TimeColumn != "_ts" {
		t.Errorf("Shard.TimeColumn = %q, want the untouched default %q", cfg.Shard.TimeColumn, "_ts")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml")); err == nil {
		t.Error("Load on a missing file should return an error")
	}
}
