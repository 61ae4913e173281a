package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Load reads and parses the Sonicat YAML config at path, applies defaults,
// and validates leniently: a malformed (catalog, app) task entry is dropped
// with a warning rather than failing the whole load, matching the teacher's
// validateLenient policy of disabling one broken task instead of refusing to
// start cronplusd.
func Load(path string, logger *zap.SugaredLogger) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, logger)
}

// Parse parses raw YAML bytes into a Config, applies defaults and validates.
func Parse(raw []byte, logger *zap.SugaredLogger) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	validateLenient(&cfg, logger)
	if err := validateGlobal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML, atomically via renameio so a crash
// mid-write never leaves a half-written config for the next Load.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("save config: path is empty")
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	if err := renameio.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadSecrets reads the sibling secrets YAML file (spec §6).
func LoadSecrets(path string) (Secrets, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secrets: %w", err)
	}
	var s Secrets
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}
	return s, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Runtime.IdleIntervalMs <= 0 {
		cfg.Runtime.IdleIntervalMs = 5000
	}
	if cfg.Runtime.MaxRetries <= 0 {
		cfg.Runtime.MaxRetries = 5
	}
	if cfg.Runtime.QueueAddr == "" {
		cfg.Runtime.QueueAddr = "127.0.0.1:6379"
	}
	if cfg.Runtime.StateDBPath == "" && cfg.Runtime.SonicatPath != "" {
		cfg.Runtime.StateDBPath = filepath.Join(cfg.Runtime.SonicatPath, "data", "tasks", "pending.db")
	}
	for name, cat := range cfg.Catalogs {
		if cat.Moniker == "" {
			cat.Moniker = name
		}
		cfg.Catalogs[name] = cat
	}
}

// validateGlobal enforces the checks that must hold for the process to start
// at all; failures here are ConfigError-class and fatal (spec §7).
func validateGlobal(cfg *Config) error {
	if len(cfg.Catalogs) == 0 {
		return errors.New("at least one catalog must be configured")
	}
	if cfg.Runtime.SonicatPath == "" {
		return errors.New("tasks.sonicat_path is required")
	}
	if !filepath.IsAbs(cfg.Runtime.SonicatPath) {
		return errors.New("tasks.sonicat_path must be absolute")
	}
	return nil
}

// validateLenient validates each catalog's path config, dropping
// (catalog, type, app) task entries that reference an unknown app rather
// than failing the whole config — mirroring the teacher's per-task leniency.
func validateLenient(cfg *Config, logger *zap.SugaredLogger) {
	knownApps := map[string]bool{}
	for _, apps := range cfg.Apps {
		for name := range apps {
			knownApps[name] = true
		}
	}
	// Built-in workers are always known even without an explicit apps entry.
	for _, name := range []string{
		"catalog_intake", "inventory", "librosa", "path_parser",
		"discogs", "lastfm", "rutracker_scraper", "file_mover", "app_data",
	} {
		knownApps[name] = true
	}

	for catName, cat := range cfg.Catalogs {
		if cat.Path.Managed == "" || !filepath.IsAbs(cat.Path.Managed) {
			if logger != nil {
				logger.Warnw("catalog missing/relative managed path; disabling its tasks", "catalog", catName)
			}
			cat.Tasks = nil
			cfg.Catalogs[catName] = cat
			continue
		}
		for typ, apps := range cat.Tasks {
			for app := range apps {
				if !knownApps[app] {
					if logger != nil {
						logger.Warnw("dropping task entry for unknown app", "catalog", catName, "type", typ, "app", app)
					}
					delete(apps, app)
				}
			}
		}
	}
}
