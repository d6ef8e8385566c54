package revision

import (
	"fmt"
	"sort"
)

// applyRetentionLocked enforces the per-branch snapshot cap. Pruning removes
// the oldest incremental snapshot; when the oldest snapshot is full it is
// preserved as an anchor and the next incremental after it goes instead.
// When no incremental remains to remove, pruning stops for this round even
// if the branch is over the cap. Caller holds the write lock.
func (e *Engine) applyRetentionLocked(branch *Branch) {
	for {
		retained := e.branchSnapshotsOldestFirstLocked(branch.Name)
		if len(retained) <= e.cfg.MaxSnapshotsPerBranch {
			return
		}

		victim := oldestIncremental(retained)
		if victim == nil {
			return
		}

		delete(e.snapshots, victim.ID)
		branch.SnapshotCount--

		e.appendChangeLocked(&ChangeLogEntry{
			User:          e.cfg.DefaultUser,
			OperationType: OpSnapshotPruned,
			Description:   fmt.Sprintf("retention pruned snapshot %q from %s", victim.Name, branch.Name),
			SnapshotID:    victim.ID,
			IsAutomatic:   true,
		})
		e.logger.Debug("snapshot pruned", "snapshot_id", victim.ID, "branch", branch.Name)
	}
}

func (e *Engine) branchSnapshotsOldestFirstLocked(branch string) []*Snapshot {
	var out []*Snapshot
	for _, s := range e.snapshots {
		if s.BranchName == branch {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func oldestIncremental(oldestFirst []*Snapshot) *Snapshot {
	for _, s := range oldestFirst {
		if !s.IsFull {
			return s
		}
	}
	return nil
}
