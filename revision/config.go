package revision

import (
	"os"
	"os/user"
	"time"

	"gopkg.in/yaml.v3"
)

// Config configures the revision engine.
type Config struct {
	// StorageDir is where version_state.json lives. Empty disables disk
	// persistence (in-memory engine).
	StorageDir string `yaml:"storage_dir"`

	// MaxSnapshotsPerBranch caps retained snapshots per branch. The oldest
	// incremental snapshot is pruned first; the oldest full snapshot is
	// preserved as an anchor.
	MaxSnapshotsPerBranch int `yaml:"max_snapshots_per_branch"`

	// FullSnapshotInterval is the minimum time between full snapshots on a
	// branch. The first snapshot on a branch is always full.
	FullSnapshotInterval time.Duration `yaml:"full_snapshot_interval"`

	// PositionTolerance is the distance (in host model units) under which
	// two tag positions compare equal.
	PositionTolerance float64 `yaml:"position_tolerance"`

	// DefaultUser attributes operations whose caller passes no identity.
	DefaultUser string `yaml:"default_user"`

	// ChangeLogQueryLimit bounds GetChangeLog results when the caller
	// passes no limit.
	ChangeLogQueryLimit int `yaml:"change_log_query_limit"`
}

func (c *Config) defaults() {
	if c.MaxSnapshotsPerBranch <= 0 {
		c.MaxSnapshotsPerBranch = 50
	}
	if c.FullSnapshotInterval <= 0 {
		c.FullSnapshotInterval = 24 * time.Hour
	}
	if c.PositionTolerance <= 0 {
		c.PositionTolerance = 0.001
	}
	if c.DefaultUser == "" {
		c.DefaultUser = processUser()
	}
	if c.ChangeLogQueryLimit <= 0 {
		c.ChangeLogQueryLimit = 100
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

// processUser resolves the OS user for default attribution.
func processUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "system"
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.defaults()
	return &cfg, nil
}
