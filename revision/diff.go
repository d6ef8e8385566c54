package revision

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ComputeDiff compares two snapshots' tag maps and classifies each tag's
// change. Tags only in the source are Removed, only in the target Added.
// Tags in both are compared per field in a fixed order: position (tolerance
// equality), then content, template, leader presence, custom properties.
// Each matching comparison appends a PropertyChange and overwrites the
// entry's DiffType, so the single label reflects the last-checked changed
// category while PropertyChanges keeps them all.
func (e *Engine) ComputeDiff(sourceID, targetID string) (*DiffResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	source, ok := e.snapshots[sourceID]
	if !ok {
		return nil, fmt.Errorf("%w: source %s", ErrSnapshotNotFound, sourceID)
	}
	target, ok := e.snapshots[targetID]
	if !ok {
		return nil, fmt.Errorf("%w: target %s", ErrSnapshotNotFound, targetID)
	}

	result := e.diffTagMaps(source.Tags, target.Tags)
	result.SourceSnapshotID = sourceID
	result.TargetSnapshotID = targetID
	return result, nil
}

// diffTagMaps diffs two plain tag maps. Entries are sorted by tag id.
func (e *Engine) diffTagMaps(source, target map[string]TagState) *DiffResult {
	ids := make([]string, 0, len(source)+len(target))
	seen := make(map[string]struct{}, len(source)+len(target))
	for id := range source {
		ids = append(ids, id)
		seen[id] = struct{}{}
	}
	for id := range target {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	result := &DiffResult{
		ComputedAt: e.now(),
		Entries:    make([]DiffEntry, 0, len(ids)),
	}

	for _, id := range ids {
		before, inSource := source[id]
		after, inTarget := target[id]

		var entry DiffEntry
		switch {
		case !inTarget:
			b := before.Clone()
			entry = DiffEntry{TagID: id, DiffType: DiffRemoved, Before: &b}
			result.RemovedCount++
		case !inSource:
			a := after.Clone()
			entry = DiffEntry{TagID: id, DiffType: DiffAdded, After: &a}
			result.AddedCount++
		default:
			entry = e.diffTagStates(id, before, after)
			if entry.DiffType == DiffUnchanged {
				result.UnchangedCount++
			} else {
				result.ModifiedCount++
			}
		}
		result.Entries = append(result.Entries, entry)
	}

	return result
}

// diffTagStates compares one tag present on both sides. Evaluation order is
// fixed; later categories overwrite DiffType but never clear accumulated
// PropertyChanges.
func (e *Engine) diffTagStates(id string, before, after TagState) DiffEntry {
	b := before.Clone()
	a := after.Clone()
	entry := DiffEntry{
		TagID:    id,
		DiffType: DiffUnchanged,
		Before:   &b,
		After:    &a,
	}

	if !e.positionsEqual(before.Position, after.Position) {
		entry.DiffType = DiffMoved
		entry.PropertyChanges = append(entry.PropertyChanges, PropertyChange{
			Name:     "position",
			OldValue: formatPosition(before.Position),
			NewValue: formatPosition(after.Position),
		})
	}

	if before.Content != after.Content {
		entry.DiffType = DiffContentChanged
		entry.PropertyChanges = append(entry.PropertyChanges, PropertyChange{
			Name:     "content",
			OldValue: before.Content,
			NewValue: after.Content,
		})
	}

	if before.TemplateName != after.TemplateName {
		entry.DiffType = DiffTemplateChanged
		entry.PropertyChanges = append(entry.PropertyChanges, PropertyChange{
			Name:     "template",
			OldValue: before.TemplateName,
			NewValue: after.TemplateName,
		})
	}

	if before.HasLeader != after.HasLeader {
		entry.DiffType = DiffLeaderChanged
		entry.PropertyChanges = append(entry.PropertyChanges, PropertyChange{
			Name:     "leader",
			OldValue: strconv.FormatBool(before.HasLeader),
			NewValue: strconv.FormatBool(after.HasLeader),
		})
	}

	if changes := diffProperties(before.Properties, after.Properties); len(changes) > 0 {
		entry.DiffType = DiffStyleChanged
		entry.PropertyChanges = append(entry.PropertyChanges, changes...)
	}

	return entry
}

// diffProperties is the symmetric difference of two custom property bags,
// sorted by key.
func diffProperties(before, after map[string]string) []PropertyChange {
	keys := make([]string, 0, len(before)+len(after))
	seen := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys = append(keys, k)
		seen[k] = struct{}{}
	}
	for k := range after {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var changes []PropertyChange
	for _, k := range keys {
		ov, inBefore := before[k]
		nv, inAfter := after[k]
		if inBefore && inAfter && ov == nv {
			continue
		}
		changes = append(changes, PropertyChange{Name: k, OldValue: ov, NewValue: nv})
	}
	return changes
}

func (e *Engine) positionsEqual(a, b Position) bool {
	tol := e.cfg.PositionTolerance
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

func formatPosition(p Position) string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}
