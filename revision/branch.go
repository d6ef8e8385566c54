package revision

import (
	"context"
	"fmt"
	"sort"

	"github.com/meridianworks/tagvc/observability"
)

// CreateBranch creates a named branch forking from fromSnapshotID, or from
// the current branch's tip when no snapshot id is given. The name must be
// unused.
func (e *Engine) CreateBranch(ctx context.Context, name, description, fromSnapshotID, user string) (*Branch, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty branch name", ErrInvalidInput)
	}

	e.mu.Lock()

	if _, exists := e.branches[name]; exists {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrBranchExists, name)
	}

	branchPoint := fromSnapshotID
	if branchPoint == "" {
		branchPoint = e.branchTipLocked(e.branches[e.currentBranch])
	} else if _, ok := e.snapshots[branchPoint]; !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: branch point %s", ErrSnapshotNotFound, branchPoint)
	}

	user = e.resolveUser(user)
	b := &Branch{
		Name:                  name,
		Description:           description,
		ParentBranch:          e.currentBranch,
		BranchPointSnapshotID: branchPoint,
		CreatedAt:             e.now(),
		CreatedBy:             user,
		IsActive:              true,
	}
	e.branches[name] = b

	e.appendChangeLocked(&ChangeLogEntry{
		User:          user,
		OperationType: OpBranchCreated,
		Description:   fmt.Sprintf("created branch %q from %q", name, b.ParentBranch),
		SnapshotID:    branchPoint,
	})
	out := b.Clone()
	e.mu.Unlock()

	e.emitEvent(ctx, observability.Event{
		Operation:  "branch_create",
		Branch:     name,
		SnapshotID: branchPoint,
		UserID:     user,
		Success:    true,
	})

	return out, nil
}

// SwitchBranch makes the named branch current. Missing or inactive branches
// are rejected.
func (e *Engine) SwitchBranch(ctx context.Context, name string) error {
	e.mu.Lock()

	b, ok := e.branches[name]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBranchNotFound, name)
	}
	if !b.IsActive {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBranchInactive, name)
	}

	previous := e.currentBranch
	e.currentBranch = name

	e.appendChangeLocked(&ChangeLogEntry{
		User:          e.cfg.DefaultUser,
		OperationType: OpBranchSwitched,
		Description:   fmt.Sprintf("switched branch %q to %q", previous, name),
	})
	e.mu.Unlock()

	e.emitEvent(ctx, observability.Event{
		Operation: "branch_switch",
		Branch:    name,
		UserID:    e.cfg.DefaultUser,
		Success:   true,
	})

	return nil
}

// GetBranches returns all branches sorted by name, main first.
func (e *Engine) GetBranches() []*Branch {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*Branch, 0, len(e.branches))
	for _, b := range e.branches {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == MainBranch {
			return true
		}
		if out[j].Name == MainBranch {
			return false
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// GetBranch returns a copy of the named branch, or nil when unknown.
func (e *Engine) GetBranch(name string) *Branch {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.branches[name]
	if !ok {
		return nil
	}
	return b.Clone()
}

// DeleteBranch soft-deletes a branch (marks it inactive; snapshots are
// kept). The main branch is protected. Deactivating the current branch
// switches the engine back to main.
func (e *Engine) DeleteBranch(ctx context.Context, name, user string) error {
	if name == MainBranch {
		return ErrMainBranchProtected
	}

	e.mu.Lock()

	b, ok := e.branches[name]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBranchNotFound, name)
	}

	b.IsActive = false
	if e.currentBranch == name {
		e.currentBranch = MainBranch
	}

	user = e.resolveUser(user)
	e.appendChangeLocked(&ChangeLogEntry{
		User:          user,
		OperationType: OpBranchDeactivated,
		Description:   fmt.Sprintf("deactivated branch %q", name),
	})
	e.mu.Unlock()

	e.emitEvent(ctx, observability.Event{
		Operation: "branch_delete",
		Branch:    name,
		UserID:    user,
		Success:   true,
	})

	return nil
}
