package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML config file at path (missing file yields defaults)
// and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv lets environment variables override file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("NODECHAT_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("NODECHAT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("NODECHAT_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("NODECHAT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NODECHAT_SNAPSHOT_CRON"); v != "" {
		cfg.Snapshot.Cron = v
		cfg.Snapshot.Enabled = true
	}
}

// ParseCommandFlags registers and parses the standard command flags.
// Returns the raw values plus which flags the user explicitly set, so
// flags can win over config/env.
func ParseCommandFlags() (addr, db, cfgPath string, set map[string]bool) {
	addrF := flag.String("addr", "", "listen address (host:port)")
	dbF := flag.String("db", "", "pebble database path")
	cfgF := flag.String("config", "", "path to config file")
	flag.Parse()
	set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return *addrF, *dbF, *cfgF, set
}

// ResolveConfigPath picks the config file path: explicit flag wins, then
// NODECHAT_CONFIG, then ./config.yaml.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet && flagVal != "" {
		return flagVal
	}
	if v := os.Getenv("NODECHAT_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}
