package revision

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meridianworks/tagvc/observability"
)

// StateFileName is the single JSON document holding the entire engine state.
// The whole file is rewritten on every save, independent of the in-memory
// full/incremental snapshot distinction.
const StateFileName = "version_state.json"

// persistedState is the on-disk layout.
type persistedState struct {
	Snapshots     map[string]*Snapshot             `json:"Snapshots"`
	Branches      map[string]*Branch               `json:"Branches"`
	ChangeLog     []*ChangeLogEntry                `json:"ChangeLog"`
	Profiles      map[string]*ConfigurationProfile `json:"Profiles"`
	CurrentBranch string                           `json:"CurrentBranch"`
}

func (e *Engine) statePath() string {
	return filepath.Join(e.cfg.StorageDir, StateFileName)
}

// SaveToDisk writes the entire engine state to
// <StorageDir>/version_state.json. The in-memory collections are copied
// while holding the lock; marshalling and file I/O happen without it, so an
// in-flight save never blocks engine operations. Cancellation only affects
// the disk write, never an in-memory mutation. The write is atomic
// (temp file + rename), so a failed save never corrupts a previous one.
func (e *Engine) SaveToDisk(ctx context.Context) error {
	if e.cfg.StorageDir == "" {
		return fmt.Errorf("%w: no storage directory configured", ErrInvalidInput)
	}

	e.mu.RLock()
	state := persistedState{
		Snapshots:     make(map[string]*Snapshot, len(e.snapshots)),
		Branches:      make(map[string]*Branch, len(e.branches)),
		ChangeLog:     make([]*ChangeLogEntry, 0, len(e.changeLog)),
		Profiles:      make(map[string]*ConfigurationProfile, len(e.profiles)),
		CurrentBranch: e.currentBranch,
	}
	for id, s := range e.snapshots {
		state.Snapshots[id] = s.Clone()
	}
	for name, b := range e.branches {
		state.Branches[name] = b.Clone()
	}
	for _, c := range e.changeLog {
		cc := *c
		state.ChangeLog = append(state.ChangeLog, &cc)
	}
	for name, p := range e.profiles {
		state.Profiles[name] = p.Clone()
	}
	e.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.MkdirAll(e.cfg.StorageDir, 0o755); err != nil {
		return fmt.Errorf("mkdir storage dir: %w", err)
	}

	path := e.statePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename state: %w", err)
	}

	e.mu.Lock()
	e.lastSaved = e.now()
	e.mu.Unlock()

	e.emitEvent(ctx, observability.Event{
		Operation: "state_save",
		Branch:    state.CurrentBranch,
		Details:   fmt.Sprintf(`{"snapshots":%d,"bytes":%d}`, len(state.Snapshots), len(data)),
		Success:   true,
	})
	e.logger.Debug("state saved", "path", path, "snapshots", len(state.Snapshots), "bytes", len(data))

	return nil
}

// loadFromDisk restores a previously saved state file. It reports whether a
// file was loaded. Called from New before the engine is shared, so no
// locking.
func (e *Engine) loadFromDisk() (bool, error) {
	if e.cfg.StorageDir == "" {
		return false, nil
	}

	data, err := os.ReadFile(e.statePath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read state: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return false, fmt.Errorf("unmarshal state: %w", err)
	}

	if state.Snapshots != nil {
		e.snapshots = state.Snapshots
	}
	if state.Branches != nil {
		e.branches = state.Branches
	}
	e.changeLog = state.ChangeLog
	if state.Profiles != nil {
		e.profiles = state.Profiles
	}

	// The main branch exists at all times, whatever the file says.
	if main, ok := e.branches[MainBranch]; ok {
		main.IsActive = true
	} else {
		e.branches[MainBranch] = &Branch{
			Name:      MainBranch,
			CreatedAt: e.now(),
			CreatedBy: e.cfg.DefaultUser,
			IsActive:  true,
		}
	}
	e.currentBranch = state.CurrentBranch
	if _, ok := e.branches[e.currentBranch]; e.currentBranch == "" || !ok {
		e.currentBranch = MainBranch
	}

	for _, s := range e.snapshots {
		if s.Seq > e.seq {
			e.seq = s.Seq
		}
	}

	e.logger.Info("state loaded", "path", e.statePath(),
		"snapshots", len(e.snapshots), "branches", len(e.branches))
	return true, nil
}
