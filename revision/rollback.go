package revision

import (
	"context"
	"fmt"

	"github.com/meridianworks/tagvc/observability"
)

// Rollback returns a copy of the tag map stored in the given snapshot for
// the caller to apply back to the live document. With selective set, only
// the requested tag ids are included. The stored snapshot is never mutated;
// the operation is always logged.
func (e *Engine) Rollback(ctx context.Context, snapshotID string, selective bool, selectedTagIDs []string, user string) (map[string]TagState, error) {
	e.mu.Lock()

	snap, ok := e.snapshots[snapshotID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, snapshotID)
	}

	var tags map[string]TagState
	if selective {
		tags = make(map[string]TagState, len(selectedTagIDs))
		for _, id := range selectedTagIDs {
			if t, ok := snap.Tags[id]; ok {
				tags[id] = t.Clone()
			}
		}
	} else {
		tags = cloneTags(snap.Tags)
	}

	user = e.resolveUser(user)
	scope := "full"
	if selective {
		scope = fmt.Sprintf("selective (%d tags)", len(tags))
	}
	e.appendChangeLocked(&ChangeLogEntry{
		User:          user,
		OperationType: OpRollback,
		Description:   fmt.Sprintf("%s rollback to snapshot %s", scope, snapshotID),
		SnapshotID:    snapshotID,
	})
	branch := snap.BranchName
	e.mu.Unlock()

	e.emitEvent(ctx, observability.Event{
		Operation:  "rollback",
		Branch:     branch,
		SnapshotID: snapshotID,
		UserID:     user,
		Details:    fmt.Sprintf(`{"scope":%q,"tags":%d}`, scope, len(tags)),
		Success:    true,
	})

	return tags, nil
}

// PreviewRollback diffs the caller-supplied live tag state against the
// target snapshot without persisting anything: the live state is
// materialized as a throwaway snapshot that is discarded after the diff.
// Added entries are tags the rollback would reintroduce, Removed entries
// tags it would drop.
func (e *Engine) PreviewRollback(targetSnapshotID string, currentTags map[string]TagState) (*DiffResult, error) {
	if currentTags == nil {
		return nil, fmt.Errorf("%w: nil tag map", ErrInvalidInput)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	target, ok := e.snapshots[targetSnapshotID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, targetSnapshotID)
	}

	result := e.diffTagMaps(currentTags, target.Tags)
	result.SourceSnapshotID = "live"
	result.TargetSnapshotID = targetSnapshotID
	return result, nil
}
