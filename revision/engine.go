package revision

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/meridianworks/tagvc/idgen"
	"github.com/meridianworks/tagvc/observability"
)

// Engine is the version-control engine. All mutable state is guarded by a
// single reader-writer lock: reads (history, diff, lookups) vastly outnumber
// writes (capture, merge, rollback, branch mutation), so readers share.
// Public methods return deep copies; callers can never mutate stored state.
type Engine struct {
	mu     sync.RWMutex
	cfg    *Config
	logger *slog.Logger

	newSnapshotID idgen.Generator
	newChangeID   idgen.Generator
	now           func() time.Time
	events        *observability.EventLogger

	snapshots     map[string]*Snapshot
	branches      map[string]*Branch
	changeLog     []*ChangeLogEntry
	profiles      map[string]*ConfigurationProfile
	currentBranch string

	seq       uint64
	lastSaved time.Time
}

// EngineOption configures an Engine during creation.
type EngineOption func(*Engine)

// WithEventLogger mirrors engine operations into a durable observability
// store. Sink failures never block the engine.
func WithEventLogger(l *observability.EventLogger) EngineOption {
	return func(e *Engine) { e.events = l }
}

// WithIDGenerator sets the generator for snapshot and change-log ids.
func WithIDGenerator(gen idgen.Generator) EngineOption {
	return func(e *Engine) {
		e.newSnapshotID = gen
		e.newChangeID = gen
	}
}

// WithClock sets the time source. For tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// New creates an engine. When cfg.StorageDir holds a previously saved
// version_state.json the persisted state is loaded; otherwise the engine
// starts with an empty main branch.
func New(cfg *Config, logger *slog.Logger, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:           cfg,
		logger:        logger,
		newSnapshotID: idgen.Prefixed("snap_", idgen.Default),
		newChangeID:   idgen.Prefixed("chg_", idgen.Default),
		now:           time.Now,
		snapshots:     make(map[string]*Snapshot),
		branches:      make(map[string]*Branch),
		profiles:      make(map[string]*ConfigurationProfile),
		currentBranch: MainBranch,
	}
	for _, opt := range opts {
		opt(e)
	}

	loaded, err := e.loadFromDisk()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !loaded {
		e.branches[MainBranch] = &Branch{
			Name:      MainBranch,
			CreatedAt: e.now(),
			CreatedBy: cfg.DefaultUser,
			IsActive:  true,
		}
	}

	return e, nil
}

// CaptureSnapshot persists the live tag map as a new snapshot on the current
// branch, linked to the branch tip. The snapshot is full when the branch has
// no prior snapshot or the configured full-snapshot interval elapsed since
// the last full snapshot; otherwise it is incremental (the flag only drives
// retention priority; both store the complete tag map). Retention is
// applied after insertion.
func (e *Engine) CaptureSnapshot(ctx context.Context, tags map[string]TagState, name, description, user string) (*Snapshot, error) {
	if tags == nil {
		return nil, fmt.Errorf("%w: nil tag map", ErrInvalidInput)
	}

	e.mu.Lock()
	snap := e.captureLocked(tags, name, description, e.resolveUser(user), nil)
	e.appendChangeLocked(&ChangeLogEntry{
		User:          snap.Author,
		OperationType: OpSnapshotCreated,
		Description:   fmt.Sprintf("captured snapshot %q with %d tags on %s", snap.Name, snap.TagCount, snap.BranchName),
		SnapshotID:    snap.ID,
	})
	out := snap.Clone()
	e.mu.Unlock()

	// Sink I/O stays outside the lock.
	e.emitEvent(ctx, observability.Event{
		Operation:  "snapshot_capture",
		Branch:     out.BranchName,
		SnapshotID: out.ID,
		UserID:     out.Author,
		Success:    true,
	})

	return out, nil
}

// captureLocked inserts a snapshot on the current branch. Caller holds the
// write lock. mergeParents is non-nil only for merge snapshots.
func (e *Engine) captureLocked(tags map[string]TagState, name, description, user string, mergeParents []string) *Snapshot {
	branch := e.branches[e.currentBranch]
	now := e.now()

	if name == "" {
		name = "Snapshot " + now.UTC().Format("2006-01-02 15:04:05")
	}

	e.seq++
	snap := &Snapshot{
		ID:               e.newSnapshotID(),
		Seq:              e.seq,
		Name:             name,
		Description:      description,
		Timestamp:        now,
		Author:           user,
		ParentSnapshotID: e.branchTipLocked(branch),
		MergeParents:     mergeParents,
		BranchName:       branch.Name,
		IsFull:           e.shouldCaptureFullLocked(branch, now),
		TagCount:         len(tags),
		Tags:             cloneTags(tags),
	}

	e.snapshots[snap.ID] = snap
	branch.LatestSnapshotID = snap.ID
	branch.SnapshotCount++

	e.applyRetentionLocked(branch)

	e.logger.Debug("snapshot captured",
		"snapshot_id", snap.ID, "branch", branch.Name,
		"tags", snap.TagCount, "full", snap.IsFull)

	return snap
}

// branchTipLocked is the id the next snapshot on branch should link to: the
// branch's latest snapshot, or its fork point while the branch is empty.
func (e *Engine) branchTipLocked(branch *Branch) string {
	if branch.LatestSnapshotID != "" {
		return branch.LatestSnapshotID
	}
	return branch.BranchPointSnapshotID
}

// shouldCaptureFullLocked decides the full/incremental flag: full when the
// branch has no snapshot yet, or no full snapshot remains, or the interval
// since the newest full snapshot elapsed.
func (e *Engine) shouldCaptureFullLocked(branch *Branch, now time.Time) bool {
	if branch.LatestSnapshotID == "" {
		return true
	}
	var lastFull time.Time
	found := false
	for _, s := range e.snapshots {
		if s.BranchName == branch.Name && s.IsFull && s.Timestamp.After(lastFull) {
			lastFull = s.Timestamp
			found = true
		}
	}
	if !found {
		return true
	}
	return now.Sub(lastFull) >= e.cfg.FullSnapshotInterval
}

// GetSnapshot returns a copy of the snapshot with the given id, or nil when
// the id is unknown. Callers must check for nil.
func (e *Engine) GetSnapshot(id string) *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap, ok := e.snapshots[id]
	if !ok {
		return nil
	}
	return snap.Clone()
}

// GetSnapshotHistory returns the retained snapshots of a branch, newest
// first. An empty branch name means the current branch; limit <= 0 means no
// limit.
func (e *Engine) GetSnapshotHistory(branch string, limit int) []*Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if branch == "" {
		branch = e.currentBranch
	}

	var out []*Snapshot
	for _, s := range e.snapshots {
		if s.BranchName == branch {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CurrentBranch returns the name of the branch new snapshots land on.
func (e *Engine) CurrentBranch() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentBranch
}

// GetStorageSummary reports collection sizes and the current branch.
func (e *Engine) GetStorageSummary() StorageSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sum := StorageSummary{
		SnapshotCount:  len(e.snapshots),
		BranchCount:    len(e.branches),
		ChangeLogCount: len(e.changeLog),
		ProfileCount:   len(e.profiles),
		CurrentBranch:  e.currentBranch,
		LastSavedAt:    e.lastSaved,
	}
	for _, s := range e.snapshots {
		if s.IsFull {
			sum.FullSnapshotCount++
		}
	}
	for _, b := range e.branches {
		if b.IsActive {
			sum.ActiveBranchCount++
		}
	}
	return sum
}

func (e *Engine) resolveUser(user string) string {
	if user == "" {
		return e.cfg.DefaultUser
	}
	return user
}

// emitEvent forwards an operation to the optional observability sink.
func (e *Engine) emitEvent(ctx context.Context, ev observability.Event) {
	if e.events == nil {
		return
	}
	e.events.LogEvent(ctx, ev)
}
