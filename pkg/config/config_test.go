package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Fatalf("addr = %s", cfg.Addr())
	}
	if cfg.Storage.DBPath != "./nodechat-data" {
		t.Fatalf("db path = %s", cfg.Storage.DBPath)
	}
	if cfg.Events.QueueCapacity != 4096 {
		t.Fatalf("queue capacity = %d", cfg.Events.QueueCapacity)
	}
}

func TestMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d, want default", cfg.Server.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  address: "0.0.0.0"
  port: 9090
storage:
  db_path: "/var/lib/nodechat"
limits:
  max_participants: 100
  max_attachment_size: "512 KiB"
snapshot:
  enabled: true
  cron: "*/5 * * * *"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:9090" {
		t.Fatalf("addr = %s", cfg.Addr())
	}
	if cfg.Storage.DBPath != "/var/lib/nodechat" {
		t.Fatalf("db path = %s", cfg.Storage.DBPath)
	}
	if !cfg.Snapshot.Enabled || cfg.Snapshot.Cron != "*/5 * * * *" {
		t.Fatalf("snapshot = %+v", cfg.Snapshot)
	}
	defaults, err := cfg.NodeDefaults()
	if err != nil {
		t.Fatalf("NodeDefaults: %v", err)
	}
	if defaults.MaxParticipants != 100 || defaults.MaxAttachmentSize != 512*1024 {
		t.Fatalf("defaults = %+v", defaults)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NODECHAT_PORT", "7070")
	t.Setenv("NODECHAT_DB_PATH", "/tmp/env-db")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("port = %d, want env override", cfg.Server.Port)
	}
	if cfg.Storage.DBPath != "/tmp/env-db" {
		t.Fatalf("db path = %s, want env override", cfg.Storage.DBPath)
	}
}

func TestValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("out-of-range port should fail validation")
	}
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"1048576", 1048576},
		{"1 MiB", 1048576},
		{"512 KiB", 512 * 1024},
	}
	for _, c := range cases {
		got, err := ParseSize(c.in)
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}
	if _, err := ParseSize("lots"); err == nil {
		t.Fatalf("garbage size should error")
	}
}
