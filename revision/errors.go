package revision

import "errors"

// ErrSnapshotNotFound is returned when a snapshot id is unknown.
var ErrSnapshotNotFound = errors.New("revision: snapshot not found")

// ErrBranchNotFound is returned when a branch name is unknown.
var ErrBranchNotFound = errors.New("revision: branch not found")

// ErrBranchExists is returned when creating a branch whose name is taken.
var ErrBranchExists = errors.New("revision: branch already exists")

// ErrBranchInactive is returned when switching to a deactivated branch.
var ErrBranchInactive = errors.New("revision: branch is inactive")

// ErrMainBranchProtected is returned when deactivating the main branch.
var ErrMainBranchProtected = errors.New("revision: main branch cannot be deactivated")

// ErrInvalidInput is returned when a request fails validation.
var ErrInvalidInput = errors.New("revision: invalid input")

// ErrProfileNotFound is returned when a profile name is unknown.
var ErrProfileNotFound = errors.New("revision: profile not found")
