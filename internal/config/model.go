// Package config loads and validates the single Sonicat YAML configuration
// file described in spec §6, plus the sibling secrets file. Shaped after the
// teacher's internal/config/model.go + loader.go (struct-per-section,
// lenient per-entry validation that disables a broken entry rather than
// refusing to start), generalized from cronplus's flat Task list to
// Sonicat's catalogs/apps/tasks nesting.
package config

// PathConfig gives the three filesystem roots a catalog's assets live under.
type PathConfig struct {
	Managed string `yaml:"managed"`
	Intake  string `yaml:"intake"`
	Export  string `yaml:"export"`
}

// ActionSet names the actions of one (type, app) pair enabled for a catalog,
// e.g. tasks.analysis.librosa.actions: [basic].
type ActionSet struct {
	Actions []string `yaml:"actions"`
}

// CatalogConfig is one entry under the top-level `catalogs` map.
type CatalogConfig struct {
	Moniker  string                          `yaml:"moniker"`
	Path     PathConfig                      `yaml:"path"`
	LogLevel string                          `yaml:"log_level"`
	Tasks    map[string]map[string]ActionSet `yaml:"tasks"` // type -> app -> actions
}

// AppConfig is one entry under `apps.<type>.<name>`.
type AppConfig struct {
	Moniker  string `yaml:"moniker"`
	LogLevel string `yaml:"log_level"`
}

// RuntimeConfig holds scheduler- and worker-wide tunables. Not in spec.md's
// literal grammar but implied by §4.1's "optional threshold" and §5's queue
// and rate-limit envelopes — kept here rather than hardcoded so they are
// operator-tunable the way cronplus's RuntimeCfg is.
type RuntimeConfig struct {
	// Threshold bounds how many assets' worth of Tasks make_tasks returns
	// per cycle (0 = unbounded).
	Threshold int `yaml:"threshold"`
	// IdleIntervalMs is how long the scheduler sleeps when a cycle finds no
	// outstanding work (spec §4.1).
	IdleIntervalMs int `yaml:"idle_interval_ms"`
	// MaxRetries is parsed and defaulted but no component reads it; there
	// is no per-asset retry counter (spec §9 open question (b), decided in
	// DESIGN.md).
	MaxRetries int `yaml:"max_retries"`
	// SonicatPath is the root filesystem path for data/log/tmp (§6).
	SonicatPath string `yaml:"sonicat_path"`
	// QueueAddr is the Redis address backing the command/inbound/outbound
	// queues (§5).
	QueueAddr string `yaml:"queue_addr"`
	// StateDBPath is the bbolt file backing the scheduler's PendingCache
	// checkpoint (SPEC_FULL §2).
	StateDBPath string `yaml:"state_db_path"`
}

// Config is the root of the single Sonicat YAML config file.
type Config struct {
	Catalogs map[string]CatalogConfig        `yaml:"catalogs"`
	Apps     map[string]map[string]AppConfig `yaml:"apps"`
	Runtime  RuntimeConfig                    `yaml:"tasks"`
}

// CatalogNames returns the configured catalog names in map-iteration order;
// callers that need deterministic order should sort the result themselves.
func (c *Config) CatalogNames() []string {
	names := make([]string, 0, len(c.Catalogs))
	for name := range c.Catalogs {
		names = append(names, name)
	}
	return names
}

// Secret is one credential entry in the secrets file, shaped to cover every
// variant named in spec §6 (token-based, api_key+shared_secret, uname/passwd).
type Secret struct {
	UserAgent    string `yaml:"user_agent"`
	Token        string `yaml:"token"`
	APIKey       string `yaml:"api_key"`
	SharedSecret string `yaml:"shared_secret"`
	Username     string `yaml:"uname"`
	Password     string `yaml:"passwd"`
}

// Secrets is the root of the sibling secrets YAML file, keyed by API name
// ("discogs", "lastfm", ...).
type Secrets map[string]Secret
