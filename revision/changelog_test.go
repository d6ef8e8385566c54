package revision

import (
	"fmt"
	"testing"
)

func TestLogChange_ManualEntry(t *testing.T) {
	e := testEngine(t)

	entry := e.LogChange(OpManual, "TAG-1", "adjusted leader by hand", "alice")
	if entry.ID == "" {
		t.Error("entry must get an id")
	}
	if entry.Timestamp.IsZero() {
		t.Error("entry must be timestamped")
	}
	if entry.User != "alice" {
		t.Errorf("user: got %q, want alice", entry.User)
	}

	got := e.GetChangeLog(ChangeLogFilter{TagID: "TAG-1"})
	if len(got) != 1 || got[0].ID != entry.ID {
		t.Fatalf("filtered lookup: got %d entries", len(got))
	}
}

func TestGetChangeLog_NewestFirst(t *testing.T) {
	e := testEngine(t)

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, e.LogChange(OpManual, "", fmt.Sprintf("change %d", i), "").ID)
	}

	entries := e.GetChangeLog(ChangeLogFilter{})
	if len(entries) != 3 {
		t.Fatalf("entries: got %d, want 3", len(entries))
	}
	for i := 0; i < 3; i++ {
		want := ids[len(ids)-1-i]
		if entries[i].ID != want {
			t.Errorf("entries[%d]: got %q, want %q", i, entries[i].ID, want)
		}
	}
}

func TestGetChangeLog_Filters(t *testing.T) {
	e := testEngine(t)

	e.LogChange(OpManual, "TAG-1", "first", "alice")
	e.LogChange(OpManual, "TAG-2", "second", "bob")
	e.LogChange(OpManual, "TAG-1", "third", "bob")

	byTag := e.GetChangeLog(ChangeLogFilter{TagID: "TAG-1"})
	if len(byTag) != 2 {
		t.Errorf("by tag: got %d, want 2", len(byTag))
	}
	byUser := e.GetChangeLog(ChangeLogFilter{User: "bob"})
	if len(byUser) != 2 {
		t.Errorf("by user: got %d, want 2", len(byUser))
	}
	both := e.GetChangeLog(ChangeLogFilter{TagID: "TAG-1", User: "bob"})
	if len(both) != 1 || both[0].Description != "third" {
		t.Errorf("combined filter: got %d entries", len(both))
	}
}

func TestGetChangeLog_Limit(t *testing.T) {
	cfg := testConfig()
	cfg.ChangeLogQueryLimit = 2
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	for i := 0; i < 5; i++ {
		e.LogChange(OpManual, "", fmt.Sprintf("change %d", i), "")
	}

	if got := len(e.GetChangeLog(ChangeLogFilter{})); got != 2 {
		t.Errorf("default limit: got %d, want 2", got)
	}
	if got := len(e.GetChangeLog(ChangeLogFilter{Limit: 4})); got != 4 {
		t.Errorf("explicit limit: got %d, want 4", got)
	}
	if got := len(e.GetChangeLog(ChangeLogFilter{Limit: -1})); got != 5 {
		t.Errorf("negative limit: got %d, want all 5", got)
	}
}

func TestChangeLog_RecordsEngineOperations(t *testing.T) {
	e := testEngine(t)
	snap := capture(t, e, tagMap(tag("A", "a", 0, 0)), "v1")

	entries := e.GetChangeLog(ChangeLogFilter{})
	if len(entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(entries))
	}
	if entries[0].OperationType != OpSnapshotCreated {
		t.Errorf("operation: got %s, want %s", entries[0].OperationType, OpSnapshotCreated)
	}
	if entries[0].SnapshotID != snap.ID {
		t.Errorf("snapshot id: got %q, want %q", entries[0].SnapshotID, snap.ID)
	}
	if entries[0].User != "tester" {
		t.Errorf("user: got %q, want tester", entries[0].User)
	}
}
