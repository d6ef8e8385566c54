package revision

import (
	"context"
	"fmt"
	"sort"

	"github.com/meridianworks/tagvc/observability"
)

// Merge reconciles two snapshots under the given strategy and captures the
// merged tag map as a brand-new snapshot on the current branch (auditable
// and itself subject to retention). Missing inputs and unknown strategies
// are reported through the result's Success/Message, never as a panic.
// Success is true iff no conflict remains unresolved.
func (e *Engine) Merge(ctx context.Context, sourceID, targetID string, strategy MergeStrategy, user string) *MergeResult {
	result := &MergeResult{
		Strategy:         strategy,
		SourceSnapshotID: sourceID,
		TargetSnapshotID: targetID,
	}

	e.mu.Lock()

	source, ok := e.snapshots[sourceID]
	if !ok {
		e.mu.Unlock()
		result.Message = fmt.Sprintf("source snapshot %s not found", sourceID)
		return result
	}
	target, ok := e.snapshots[targetID]
	if !ok {
		e.mu.Unlock()
		result.Message = fmt.Sprintf("target snapshot %s not found", targetID)
		return result
	}
	switch strategy {
	case SourceWins, TargetWins, ThreeWayMerge, ManualResolve:
	default:
		e.mu.Unlock()
		result.Message = fmt.Sprintf("unknown merge strategy %q", strategy)
		return result
	}

	var ancestor *Snapshot
	if strategy == ThreeWayMerge {
		ancestor = e.commonAncestorLocked(source, target)
		if ancestor != nil {
			result.AncestorSnapshotID = ancestor.ID
		}
	}

	merged := make(map[string]TagState)
	for _, id := range unionTagIDs(source.Tags, target.Tags) {
		e.mergeTag(id, source, target, ancestor, strategy, merged, result)
	}

	unresolved := 0
	for _, c := range result.Conflicts {
		if !c.IsResolved {
			unresolved++
		}
	}
	result.Success = unresolved == 0

	user = e.resolveUser(user)
	snap := e.captureLocked(merged,
		fmt.Sprintf("Merge of %s into %s", sourceID, targetID),
		fmt.Sprintf("strategy=%s auto_merged=%d conflicts=%d", strategy, result.AutoMergedCount, len(result.Conflicts)),
		user,
		[]string{sourceID, targetID})
	result.MergedSnapshotID = snap.ID
	result.MergedTags = cloneTags(merged)

	if result.Success {
		result.Message = fmt.Sprintf("merged %d tags (%d auto-merged, %d conflicts resolved)",
			len(merged), result.AutoMergedCount, len(result.Conflicts))
	} else {
		result.Message = fmt.Sprintf("merge left %d of %d conflicts unresolved", unresolved, len(result.Conflicts))
	}

	e.appendChangeLocked(&ChangeLogEntry{
		User:          user,
		OperationType: OpMerge,
		Description:   fmt.Sprintf("merge %s into %s: %s", sourceID, targetID, result.Message),
		SnapshotID:    snap.ID,
		IsAutomatic:   true,
	})
	branch := snap.BranchName
	e.mu.Unlock()

	e.emitEvent(ctx, observability.Event{
		Operation:  "merge",
		Branch:     branch,
		SnapshotID: snap.ID,
		UserID:     user,
		Details:    fmt.Sprintf(`{"strategy":%q,"conflicts":%d}`, strategy, len(result.Conflicts)),
		Success:    result.Success,
	})

	return result
}

// mergeTag applies the per-tag presence and strategy rules for one tag id,
// mutating merged and result.
func (e *Engine) mergeTag(id string, source, target, ancestor *Snapshot, strategy MergeStrategy, merged map[string]TagState, result *MergeResult) {
	src, inSource := source.Tags[id]
	tgt, inTarget := target.Tags[id]

	var anc *TagState
	if ancestor != nil {
		if a, ok := ancestor.Tags[id]; ok {
			ac := a.Clone()
			anc = &ac
		}
	}

	switch {
	case inSource && inTarget:
		if e.statesEqual(src, tgt) {
			merged[id] = src
			result.AutoMergedCount++
			return
		}
		e.mergeDiverging(id, src, tgt, anc, strategy, merged, result)

	case inSource:
		// Present in the ancestor means the target deliberately deleted
		// it; respect the deletion. Otherwise the tag is new in source.
		if anc == nil {
			merged[id] = src
		}

	case inTarget:
		if anc == nil {
			merged[id] = tgt
		}
	}
}

// mergeDiverging handles a tag that differs between source and target.
func (e *Engine) mergeDiverging(id string, src, tgt TagState, anc *TagState, strategy MergeStrategy, merged map[string]TagState, result *MergeResult) {
	switch strategy {
	case SourceWins:
		merged[id] = src
		result.AutoMergedCount++

	case TargetWins:
		merged[id] = tgt
		result.AutoMergedCount++

	case ManualResolve:
		// No default resolution; the target state stays in place until a
		// human resolves the conflict.
		merged[id] = tgt
		sc, tc := src.Clone(), tgt.Clone()
		result.Conflicts = append(result.Conflicts, MergeConflict{
			TagID:         id,
			Description:   fmt.Sprintf("tag %s requires manual resolution", id),
			SourceState:   &sc,
			TargetState:   &tc,
			AncestorState: anc,
		})

	case ThreeWayMerge:
		if anc == nil {
			// No common-ancestor state for this tag: prefer source. An
			// arbitrary tie-break, so surface it in the log.
			merged[id] = src
			result.AutoMergedCount++
			e.logger.Warn("three-way merge tie-break without ancestor state, taking source", "tag_id", id)
			return
		}
		sourceChanged := !e.statesEqual(*anc, src)
		targetChanged := !e.statesEqual(*anc, tgt)
		switch {
		case !sourceChanged:
			// Source matches the base; target's change is authoritative.
			merged[id] = tgt
			result.AutoMergedCount++
		case !targetChanged:
			merged[id] = src
			result.AutoMergedCount++
		default:
			// Both sides diverged from the base: a real conflict. The
			// default resolution takes source but stays marked unresolved
			// so callers can intervene.
			merged[id] = src
			sc, tc, rc := src.Clone(), tgt.Clone(), src.Clone()
			result.Conflicts = append(result.Conflicts, MergeConflict{
				TagID:         id,
				Description:   fmt.Sprintf("tag %s changed on both sides relative to ancestor", id),
				SourceState:   &sc,
				TargetState:   &tc,
				AncestorState: anc,
				ResolvedState: &rc,
			})
		}
	}
}

// commonAncestorLocked walks the source's single-parent chain collecting
// visited ids, then walks the target's chain until a visited id is found.
// Chains are linear, so this is a chain intersection, not a DAG LCA.
func (e *Engine) commonAncestorLocked(source, target *Snapshot) *Snapshot {
	visited := make(map[string]struct{})
	for s := source; s != nil; s = e.snapshots[s.ParentSnapshotID] {
		visited[s.ID] = struct{}{}
		if s.ParentSnapshotID == "" {
			break
		}
	}
	for t := target; t != nil; t = e.snapshots[t.ParentSnapshotID] {
		if _, ok := visited[t.ID]; ok {
			return t
		}
		if t.ParentSnapshotID == "" {
			break
		}
	}
	return nil
}

// statesEqual reports whether two tag states compare unchanged under the
// diff engine's field rules (position tolerance included).
func (e *Engine) statesEqual(a, b TagState) bool {
	return e.diffTagStates(a.ID, a, b).DiffType == DiffUnchanged
}

func unionTagIDs(a, b map[string]TagState) []string {
	ids := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for id := range a {
		ids = append(ids, id)
		seen[id] = struct{}{}
	}
	for id := range b {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
