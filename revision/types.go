// Package revision is a version-control engine for collections of structured
// annotation tags. It captures point-in-time snapshots of a tag set, computes
// property-level diffs between snapshots, performs three-way merges with
// conflict detection, supports full and selective rollback, manages named
// branches, and maintains an append-only change log plus reusable
// configuration profiles.
//
// The engine consumes and produces plain maps of tag id to TagState. It never
// inspects host semantics: deciding where a tag is placed, what it displays,
// or whether it is compliant belongs to the host tagging subsystem.
package revision

import "time"

// Position is a 2D point in host model units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TagState is an immutable-at-capture-time projection of a live tag.
// Properties is an open bag for host-specific attributes; the engine only
// compares keys and values, it never interprets them.
type TagState struct {
	ID             string            `json:"id"`
	HostElementID  string            `json:"host_element_id,omitempty"`
	ViewID         string            `json:"view_id,omitempty"`
	Category       string            `json:"category,omitempty"`
	Position       Position          `json:"position"`
	TemplateName   string            `json:"template_name,omitempty"`
	Content        string            `json:"content,omitempty"`
	HasLeader      bool              `json:"has_leader,omitempty"`
	LeaderEndpoint *Position         `json:"leader_endpoint,omitempty"`
	Status         string            `json:"status,omitempty"`
	Properties     map[string]string `json:"properties,omitempty"`
}

// Clone returns a deep copy of the tag state.
func (t TagState) Clone() TagState {
	c := t
	if t.LeaderEndpoint != nil {
		ep := *t.LeaderEndpoint
		c.LeaderEndpoint = &ep
	}
	if t.Properties != nil {
		c.Properties = make(map[string]string, len(t.Properties))
		for k, v := range t.Properties {
			c.Properties[k] = v
		}
	}
	return c
}

func cloneTags(tags map[string]TagState) map[string]TagState {
	out := make(map[string]TagState, len(tags))
	for id, t := range tags {
		out[id] = t.Clone()
	}
	return out
}

// Snapshot is an immutable capture of the entire tag-state map at a point in
// time, linked to one parent snapshot and one branch. Seq is monotonically
// increasing across the engine (gap detection, stable history ordering).
// Merge snapshots additionally record both merge inputs in MergeParents;
// ParentSnapshotID stays a single linear chain for ancestry walking.
type Snapshot struct {
	ID               string              `json:"id"`
	Seq              uint64              `json:"seq"`
	Name             string              `json:"name"`
	Description      string              `json:"description,omitempty"`
	Timestamp        time.Time           `json:"timestamp"`
	Author           string              `json:"author"`
	ParentSnapshotID string              `json:"parent_snapshot_id,omitempty"`
	MergeParents     []string            `json:"merge_parents,omitempty"`
	BranchName       string              `json:"branch_name"`
	IsFull           bool                `json:"is_full"`
	TagCount         int                 `json:"tag_count"`
	Tags             map[string]TagState `json:"tags"`
	Metadata         map[string]string   `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Tags = cloneTags(s.Tags)
	if s.MergeParents != nil {
		c.MergeParents = append([]string(nil), s.MergeParents...)
	}
	if s.Metadata != nil {
		c.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Branch is a named, independently growing chain of snapshots with a
// recorded fork point. Branches are never hard-deleted, only deactivated.
type Branch struct {
	Name                  string    `json:"name"`
	Description           string    `json:"description,omitempty"`
	ParentBranch          string    `json:"parent_branch,omitempty"`
	BranchPointSnapshotID string    `json:"branch_point_snapshot_id,omitempty"`
	LatestSnapshotID      string    `json:"latest_snapshot_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	CreatedBy             string    `json:"created_by"`
	IsActive              bool      `json:"is_active"`
	SnapshotCount         int       `json:"snapshot_count"`
}

// Clone returns a copy of the branch record.
func (b *Branch) Clone() *Branch {
	c := *b
	return &c
}

// MainBranch is the branch that always exists and cannot be deactivated.
const MainBranch = "main"

// DiffType classifies how a tag changed between two snapshots.
type DiffType string

const (
	DiffAdded           DiffType = "added"
	DiffRemoved         DiffType = "removed"
	DiffMoved           DiffType = "moved"
	DiffContentChanged  DiffType = "content_changed"
	DiffTemplateChanged DiffType = "template_changed"
	DiffLeaderChanged   DiffType = "leader_changed"
	DiffStyleChanged    DiffType = "style_changed"
	DiffUnchanged       DiffType = "unchanged"
)

// PropertyChange records a single changed property on a tag.
type PropertyChange struct {
	Name     string `json:"name"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// DiffEntry is the classification of one tag across two snapshots. DiffType
// is single-label: when several property categories changed at once it holds
// the last-checked category in the fixed evaluation order (position, content,
// template, leader, custom properties), while PropertyChanges
// records all of them.
type DiffEntry struct {
	TagID           string           `json:"tag_id"`
	DiffType        DiffType         `json:"diff_type"`
	Before          *TagState        `json:"before,omitempty"`
	After           *TagState        `json:"after,omitempty"`
	PropertyChanges []PropertyChange `json:"property_changes,omitempty"`
}

// DiffResult is the property-level comparison of two snapshots.
type DiffResult struct {
	SourceSnapshotID string      `json:"source_snapshot_id"`
	TargetSnapshotID string      `json:"target_snapshot_id"`
	ComputedAt       time.Time   `json:"computed_at"`
	Entries          []DiffEntry `json:"entries"`
	AddedCount       int         `json:"added_count"`
	RemovedCount     int         `json:"removed_count"`
	ModifiedCount    int         `json:"modified_count"`
	UnchangedCount   int         `json:"unchanged_count"`
}

// MergeStrategy selects how diverging tags are reconciled.
type MergeStrategy string

const (
	// SourceWins takes the source side for every diverging tag.
	SourceWins MergeStrategy = "source_wins"

	// TargetWins takes the target side for every diverging tag.
	TargetWins MergeStrategy = "target_wins"

	// ThreeWayMerge resolves against the common ancestor: the side that
	// changed relative to the ancestor wins; both-changed is a conflict.
	ThreeWayMerge MergeStrategy = "three_way"

	// ManualResolve records every diverging tag as an unresolved conflict.
	ManualResolve MergeStrategy = "manual"
)

// MergeConflict is a tag whose state diverged on both sides of a merge
// relative to the common ancestor. ResolvedState holds the default
// resolution when one was applied; IsResolved reports whether the conflict
// needs no further attention.
type MergeConflict struct {
	TagID         string    `json:"tag_id"`
	Description   string    `json:"description"`
	SourceState   *TagState `json:"source_state,omitempty"`
	TargetState   *TagState `json:"target_state,omitempty"`
	AncestorState *TagState `json:"ancestor_state,omitempty"`
	ResolvedState *TagState `json:"resolved_state,omitempty"`
	IsResolved    bool      `json:"is_resolved"`
}

// MergeResult is the outcome of a merge. Success is true iff no conflict
// remains unresolved. MergedTags is the reconciled tag map; when it was
// captured, MergedSnapshotID names the resulting snapshot.
type MergeResult struct {
	Success            bool                `json:"success"`
	Message            string              `json:"message,omitempty"`
	Strategy           MergeStrategy       `json:"strategy"`
	SourceSnapshotID   string              `json:"source_snapshot_id"`
	TargetSnapshotID   string              `json:"target_snapshot_id"`
	AncestorSnapshotID string              `json:"ancestor_snapshot_id,omitempty"`
	MergedSnapshotID   string              `json:"merged_snapshot_id,omitempty"`
	MergedTags         map[string]TagState `json:"merged_tags,omitempty"`
	Conflicts          []MergeConflict     `json:"conflicts,omitempty"`
	AutoMergedCount    int                 `json:"auto_merged_count"`
}

// OperationType labels a change-log entry.
type OperationType string

const (
	OpSnapshotCreated   OperationType = "snapshot_created"
	OpSnapshotPruned    OperationType = "snapshot_pruned"
	OpMerge             OperationType = "merge"
	OpRollback          OperationType = "rollback"
	OpBranchCreated     OperationType = "branch_created"
	OpBranchSwitched    OperationType = "branch_switched"
	OpBranchDeactivated OperationType = "branch_deactivated"
	OpProfileSaved      OperationType = "profile_saved"
	OpProfileDeleted    OperationType = "profile_deleted"
	OpProfileImported   OperationType = "profile_imported"
	OpStateSaved        OperationType = "state_saved"
	OpManual            OperationType = "manual"
)

// ChangeLogEntry is one record in the append-only audit trail. Entries are
// never mutated or deleted.
type ChangeLogEntry struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	User          string        `json:"user"`
	OperationType OperationType `json:"operation_type"`
	TagID         string        `json:"tag_id,omitempty"`
	Description   string        `json:"description"`
	SnapshotID    string        `json:"snapshot_id,omitempty"`
	IsAutomatic   bool          `json:"is_automatic"`
}

// ChangeLogFilter restricts GetChangeLog results. Zero values match all.
type ChangeLogFilter struct {
	TagID string
	User  string
	Limit int
}

// ConfigurationProfile is a named, versioned, exportable bundle of tag
// states and settings, independent of the snapshot/branch history. Saving
// under an existing name overwrites it and bumps Version.
type ConfigurationProfile struct {
	Name            string              `json:"name"`
	Description     string              `json:"description,omitempty"`
	ProjectType     string              `json:"project_type,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	CreatedBy       string              `json:"created_by"`
	BaseProfileName string              `json:"base_profile_name,omitempty"`
	TagStates       map[string]TagState `json:"tag_states,omitempty"`
	Settings        map[string]string   `json:"settings,omitempty"`
	Version         int                 `json:"version"`
}

// Clone returns a deep copy of the profile.
func (p *ConfigurationProfile) Clone() *ConfigurationProfile {
	c := *p
	if p.TagStates != nil {
		c.TagStates = cloneTags(p.TagStates)
	}
	if p.Settings != nil {
		c.Settings = make(map[string]string, len(p.Settings))
		for k, v := range p.Settings {
			c.Settings[k] = v
		}
	}
	return &c
}

// StorageSummary reports the size of each in-memory collection.
type StorageSummary struct {
	SnapshotCount     int       `json:"snapshot_count"`
	FullSnapshotCount int       `json:"full_snapshot_count"`
	BranchCount       int       `json:"branch_count"`
	ActiveBranchCount int       `json:"active_branch_count"`
	ChangeLogCount    int       `json:"change_log_count"`
	ProfileCount      int       `json:"profile_count"`
	CurrentBranch     string    `json:"current_branch"`
	LastSavedAt       time.Time `json:"last_saved_at,omitzero"`
}
