package revision

import (
	"fmt"
	"testing"
	"time"
)

func retentionEngine(t *testing.T, maxPerBranch int, fullInterval time.Duration, now *time.Time) *Engine {
	t.Helper()
	cfg := testConfig()
	cfg.MaxSnapshotsPerBranch = maxPerBranch
	cfg.FullSnapshotInterval = fullInterval
	e, err := New(cfg, nil, WithClock(func() time.Time { return *now }))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestRetention_PrunesOldestIncremental(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := retentionEngine(t, 3, time.Hour, &now)

	var snaps []*Snapshot
	for i := 0; i < 5; i++ {
		now = now.Add(time.Minute)
		snaps = append(snaps, capture(t, e, tagMap(tag("A", fmt.Sprintf("v%d", i), 0, 0)), fmt.Sprintf("v%d", i)))
	}

	// v0 is full (first on branch) and anchors; v1 and v2 are the oldest
	// incrementals and go.
	history := e.GetSnapshotHistory(MainBranch, 0)
	if len(history) != 3 {
		t.Fatalf("retained: got %d, want 3", len(history))
	}
	if e.GetSnapshot(snaps[0].ID) == nil {
		t.Error("full anchor was pruned")
	}
	for _, i := range []int{1, 2} {
		if e.GetSnapshot(snaps[i].ID) != nil {
			t.Errorf("snapshot v%d survived pruning", i)
		}
	}
	for _, i := range []int{3, 4} {
		if e.GetSnapshot(snaps[i].ID) == nil {
			t.Errorf("snapshot v%d was pruned", i)
		}
	}

	if b := e.GetBranch(MainBranch); b.SnapshotCount != 3 {
		t.Errorf("SnapshotCount: got %d, want 3", b.SnapshotCount)
	}
}

func TestRetention_PruningIsAudited(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := retentionEngine(t, 2, time.Hour, &now)

	for i := 0; i < 3; i++ {
		now = now.Add(time.Minute)
		capture(t, e, tagMap(tag("A", fmt.Sprintf("v%d", i), 0, 0)), fmt.Sprintf("v%d", i))
	}

	var pruned []*ChangeLogEntry
	for _, entry := range e.GetChangeLog(ChangeLogFilter{Limit: -1}) {
		if entry.OperationType == OpSnapshotPruned {
			pruned = append(pruned, entry)
		}
	}
	if len(pruned) != 1 {
		t.Fatalf("prune entries: got %d, want 1", len(pruned))
	}
	if !pruned[0].IsAutomatic {
		t.Error("prune entry must be marked automatic")
	}
	if pruned[0].SnapshotID == "" {
		t.Error("prune entry must name the pruned snapshot")
	}
}

func TestRetention_AllFullSnapshotsAreKept(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Interval shorter than the capture cadence makes every snapshot full.
	e := retentionEngine(t, 2, time.Nanosecond, &now)

	for i := 0; i < 4; i++ {
		now = now.Add(time.Second)
		snap := capture(t, e, tagMap(tag("A", fmt.Sprintf("v%d", i), 0, 0)), fmt.Sprintf("v%d", i))
		if !snap.IsFull {
			t.Fatalf("v%d: expected full snapshot", i)
		}
	}

	// Over the cap, but with no incremental to remove pruning stands down.
	if got := len(e.GetSnapshotHistory(MainBranch, 0)); got != 4 {
		t.Errorf("retained: got %d, want 4", got)
	}
}
