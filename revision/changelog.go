package revision

// LogChange appends a caller-supplied entry to the audit trail. The change
// log is append-only: entries are never mutated or deleted, and unlike
// snapshots no retention pruning applies.
func (e *Engine) LogChange(op OperationType, tagID, description, user string) *ChangeLogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.appendChangeLocked(&ChangeLogEntry{
		User:          e.resolveUser(user),
		OperationType: op,
		TagID:         tagID,
		Description:   description,
	})
	c := *entry
	return &c
}

// GetChangeLog returns entries newest-first, optionally filtered by tag id
// and user. A zero limit falls back to the configured query limit; a
// negative limit returns everything.
func (e *Engine) GetChangeLog(filter ChangeLogFilter) []*ChangeLogEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	limit := filter.Limit
	if limit == 0 {
		limit = e.cfg.ChangeLogQueryLimit
	}

	var out []*ChangeLogEntry
	for i := len(e.changeLog) - 1; i >= 0; i-- {
		entry := e.changeLog[i]
		if filter.TagID != "" && entry.TagID != filter.TagID {
			continue
		}
		if filter.User != "" && entry.User != filter.User {
			continue
		}
		c := *entry
		out = append(out, &c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// appendChangeLocked stamps and stores an entry. Caller holds the write
// lock and fills everything except ID and Timestamp.
func (e *Engine) appendChangeLocked(entry *ChangeLogEntry) *ChangeLogEntry {
	entry.ID = e.newChangeID()
	entry.Timestamp = e.now()
	e.changeLog = append(e.changeLog, entry)
	return entry
}
