package revision

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestRollback_Full(t *testing.T) {
	e := testEngine(t)
	tags := tagMap(tag("A", "a", 1, 1), tag("B", "b", 2, 2))
	snap := capture(t, e, tags, "v1")
	capture(t, e, tagMap(tag("A", "a changed", 1, 1)), "v2")

	restored, err := e.Rollback(context.Background(), snap.ID, false, nil, "")
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if !reflect.DeepEqual(restored, tags) {
		t.Errorf("restored tags: got %+v, want %+v", restored, tags)
	}

	// The returned map is a copy; mutating it must not touch the store.
	mutated := restored["A"]
	mutated.Content = "mutated"
	restored["A"] = mutated
	if e.GetSnapshot(snap.ID).Tags["A"].Content != "a" {
		t.Error("rollback result mutation leaked into the stored snapshot")
	}
}

func TestRollback_Selective(t *testing.T) {
	e := testEngine(t)
	snap := capture(t, e, tagMap(
		tag("A", "a", 1, 1),
		tag("B", "b", 2, 2),
		tag("C", "c", 3, 3),
	), "v1")

	restored, err := e.Rollback(context.Background(), snap.ID, true, []string{"A", "C", "UNKNOWN"}, "")
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if len(restored) != 2 {
		t.Fatalf("restored: got %d tags, want 2", len(restored))
	}
	for _, id := range []string{"A", "C"} {
		if _, ok := restored[id]; !ok {
			t.Errorf("tag %s missing from selective rollback", id)
		}
	}
	if _, ok := restored["B"]; ok {
		t.Error("unselected tag B included")
	}
}

func TestRollback_Unknown(t *testing.T) {
	e := testEngine(t)
	if _, err := e.Rollback(context.Background(), "snap_missing", false, nil, ""); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("got %v, want ErrSnapshotNotFound", err)
	}
}

func TestRollback_IsLogged(t *testing.T) {
	e := testEngine(t)
	snap := capture(t, e, tagMap(tag("A", "a", 0, 0)), "v1")

	if _, err := e.Rollback(context.Background(), snap.ID, false, nil, "alice"); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	entries := e.GetChangeLog(ChangeLogFilter{User: "alice"})
	if len(entries) != 1 {
		t.Fatalf("entries for alice: got %d, want 1", len(entries))
	}
	if entries[0].OperationType != OpRollback {
		t.Errorf("operation: got %s, want %s", entries[0].OperationType, OpRollback)
	}
	if entries[0].SnapshotID != snap.ID {
		t.Errorf("snapshot id: got %q, want %q", entries[0].SnapshotID, snap.ID)
	}
}

func TestPreviewRollback(t *testing.T) {
	e := testEngine(t)
	snap := capture(t, e, tagMap(tag("A", "old", 1, 1), tag("B", "b", 2, 2)), "v1")

	live := tagMap(tag("A", "new", 1, 1), tag("C", "c", 3, 3))

	before := e.GetStorageSummary()
	d, err := e.PreviewRollback(snap.ID, live)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	// B would be reintroduced, C dropped, A reverted.
	if d.AddedCount != 1 || d.RemovedCount != 1 || d.ModifiedCount != 1 {
		t.Errorf("counts: added=%d removed=%d modified=%d, want 1/1/1",
			d.AddedCount, d.RemovedCount, d.ModifiedCount)
	}
	if d.SourceSnapshotID != "live" {
		t.Errorf("source id: got %q, want live", d.SourceSnapshotID)
	}
	if got := entryFor(t, d, "A"); got.After.Content != "old" {
		t.Errorf("A after preview: got %q, want old", got.After.Content)
	}

	// Preview has no side effects: nothing captured, nothing logged.
	after := e.GetStorageSummary()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("preview mutated engine state: before %+v, after %+v", before, after)
	}
}

func TestPreviewRollback_Errors(t *testing.T) {
	e := testEngine(t)
	snap := capture(t, e, tagMap(tag("A", "a", 0, 0)), "v1")

	if _, err := e.PreviewRollback("snap_missing", tagMap()); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("missing target: got %v, want ErrSnapshotNotFound", err)
	}
	if _, err := e.PreviewRollback(snap.ID, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil live map: got %v, want ErrInvalidInput", err)
	}
}
