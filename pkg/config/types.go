package config

import (
	"fmt"

	"nodechat/pkg/models"
)

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Limits   LimitsConfig   `yaml:"limits"`
	Events   EventsConfig   `yaml:"events"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// StorageConfig holds the pebble database location.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// SecurityConfig holds transport-level settings.
type SecurityConfig struct {
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LimitsConfig supplies default node settings applied when a create request
// omits its own. MaxAttachmentSize accepts humanized values ("512 KiB").
type LimitsConfig struct {
	MaxParticipants   int    `yaml:"max_participants"`
	SlowModeSeconds   int    `yaml:"slow_mode_seconds"`
	AllowAttachments  bool   `yaml:"allow_attachments"`
	MaxAttachmentSize string `yaml:"max_attachment_size"`
}

// EventsConfig sizes the change-event bus.
type EventsConfig struct {
	QueueCapacity int `yaml:"queue_capacity"`
}

// SnapshotConfig controls the periodic full-state snapshot job.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Server.Address = "127.0.0.1"
	c.Server.Port = 8080
	c.Storage.DBPath = "./nodechat-data"
	c.Security.RateLimit.RPS = 20
	c.Security.RateLimit.Burst = 40
	c.Logging.Level = "info"
	c.Limits.MaxAttachmentSize = "1 MiB"
	c.Events.QueueCapacity = 4096
	c.Snapshot.Cron = "0 * * * *"
	return c
}

// Addr renders the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// NodeDefaults converts the limits block into default node settings.
func (c Config) NodeDefaults() (models.Settings, error) {
	size, err := ParseSize(c.Limits.MaxAttachmentSize)
	if err != nil {
		return models.Settings{}, fmt.Errorf("limits.max_attachment_size: %w", err)
	}
	return models.Settings{
		MaxParticipants:   c.Limits.MaxParticipants,
		SlowModeSeconds:   c.Limits.SlowModeSeconds,
		AllowAttachments:  c.Limits.AllowAttachments,
		MaxAttachmentSize: size,
	}, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Events.QueueCapacity < 0 {
		return fmt.Errorf("events.queue_capacity must be >= 0")
	}
	return nil
}
