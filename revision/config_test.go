package revision

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := defaultConfig()

	if cfg.MaxSnapshotsPerBranch != 50 {
		t.Errorf("MaxSnapshotsPerBranch: got %d, want 50", cfg.MaxSnapshotsPerBranch)
	}
	if cfg.FullSnapshotInterval != 24*time.Hour {
		t.Errorf("FullSnapshotInterval: got %v, want 24h", cfg.FullSnapshotInterval)
	}
	if cfg.PositionTolerance != 0.001 {
		t.Errorf("PositionTolerance: got %g, want 0.001", cfg.PositionTolerance)
	}
	if cfg.DefaultUser == "" {
		t.Error("DefaultUser must never be empty")
	}
	if cfg.ChangeLogQueryLimit != 100 {
		t.Errorf("ChangeLogQueryLimit: got %d, want 100", cfg.ChangeLogQueryLimit)
	}
	if cfg.StorageDir != "" {
		t.Errorf("StorageDir: got %q, want empty (in-memory)", cfg.StorageDir)
	}
}

func TestConfig_DefaultsKeepExplicitValues(t *testing.T) {
	cfg := &Config{
		MaxSnapshotsPerBranch: 5,
		PositionTolerance:     0.5,
		DefaultUser:           "robot",
	}
	cfg.defaults()

	if cfg.MaxSnapshotsPerBranch != 5 {
		t.Errorf("MaxSnapshotsPerBranch: got %d, want 5", cfg.MaxSnapshotsPerBranch)
	}
	if cfg.PositionTolerance != 0.5 {
		t.Errorf("PositionTolerance: got %g, want 0.5", cfg.PositionTolerance)
	}
	if cfg.DefaultUser != "robot" {
		t.Errorf("DefaultUser: got %q, want robot", cfg.DefaultUser)
	}
	if cfg.FullSnapshotInterval != 24*time.Hour {
		t.Errorf("FullSnapshotInterval: got %v, want default 24h", cfg.FullSnapshotInterval)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revision.yaml")
	content := `
storage_dir: /var/lib/tagvc
max_snapshots_per_branch: 25
full_snapshot_interval: 3600000000000
position_tolerance: 0.01
default_user: automation
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDir != "/var/lib/tagvc" {
		t.Errorf("StorageDir: got %q", cfg.StorageDir)
	}
	if cfg.MaxSnapshotsPerBranch != 25 {
		t.Errorf("MaxSnapshotsPerBranch: got %d, want 25", cfg.MaxSnapshotsPerBranch)
	}
	if cfg.FullSnapshotInterval != time.Hour {
		t.Errorf("FullSnapshotInterval: got %v, want 1h", cfg.FullSnapshotInterval)
	}
	if cfg.PositionTolerance != 0.01 {
		t.Errorf("PositionTolerance: got %g, want 0.01", cfg.PositionTolerance)
	}
	if cfg.DefaultUser != "automation" {
		t.Errorf("DefaultUser: got %q, want automation", cfg.DefaultUser)
	}
	// Unset fields pick up defaults.
	if cfg.ChangeLogQueryLimit != 100 {
		t.Errorf("ChangeLogQueryLimit: got %d, want default 100", cfg.ChangeLogQueryLimit)
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("max_snapshots_per_branch: [not, an, int]"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfigFile(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
