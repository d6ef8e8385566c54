package revision

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/meridianworks/tagvc/observability"
)

// SaveProfile stores a named configuration bundle. Saving under an existing
// name overwrites it in place and bumps Version; profiles are never silently
// merged.
func (e *Engine) SaveProfile(ctx context.Context, p ConfigurationProfile) (*ConfigurationProfile, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: empty profile name", ErrInvalidInput)
	}

	e.mu.Lock()

	stored := p.Clone()
	stored.CreatedAt = e.now()
	stored.CreatedBy = e.resolveUser(p.CreatedBy)
	stored.Version = 1
	if prev, ok := e.profiles[p.Name]; ok {
		stored.Version = prev.Version + 1
	}
	e.profiles[p.Name] = stored

	e.appendChangeLocked(&ChangeLogEntry{
		User:          stored.CreatedBy,
		OperationType: OpProfileSaved,
		Description:   fmt.Sprintf("saved profile %q (version %d)", stored.Name, stored.Version),
	})
	out := stored.Clone()
	e.mu.Unlock()

	e.emitEvent(ctx, observability.Event{
		Operation: "profile_save",
		UserID:    out.CreatedBy,
		Details:   fmt.Sprintf(`{"profile":%q,"version":%d}`, out.Name, out.Version),
		Success:   true,
	})

	return out, nil
}

// LoadProfile returns a copy of the named profile, or nil when unknown.
func (e *Engine) LoadProfile(name string) *ConfigurationProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.profiles[name]
	if !ok {
		return nil
	}
	return p.Clone()
}

// GetProfiles returns all profiles sorted by name.
func (e *Engine) GetProfiles() []*ConfigurationProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*ConfigurationProfile, 0, len(e.profiles))
	for _, p := range e.profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DeleteProfile removes a profile by name.
func (e *Engine) DeleteProfile(ctx context.Context, name, user string) error {
	e.mu.Lock()

	if _, ok := e.profiles[name]; !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	delete(e.profiles, name)

	user = e.resolveUser(user)
	e.appendChangeLocked(&ChangeLogEntry{
		User:          user,
		OperationType: OpProfileDeleted,
		Description:   fmt.Sprintf("deleted profile %q", name),
	})
	e.mu.Unlock()

	e.emitEvent(ctx, observability.Event{
		Operation: "profile_delete",
		UserID:    user,
		Details:   fmt.Sprintf(`{"profile":%q}`, name),
		Success:   true,
	})

	return nil
}

// ExportProfile serializes a single profile to JSON.
func (e *Engine) ExportProfile(name string) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return json.MarshalIndent(p, "", "  ")
}

// ImportProfile deserializes a profile and saves it under its own name
// (version-bumping any existing profile). Import failures are logged and
// reported as a nil result, never as an error: a malformed profile file must
// not take down host automation.
func (e *Engine) ImportProfile(ctx context.Context, data []byte, user string) *ConfigurationProfile {
	var p ConfigurationProfile
	if err := json.Unmarshal(data, &p); err != nil {
		e.logger.Warn("profile import failed", "error", err)
		return nil
	}
	if p.Name == "" {
		e.logger.Warn("profile import failed", "error", "missing profile name")
		return nil
	}

	p.CreatedBy = e.resolveUser(user)
	saved, err := e.SaveProfile(ctx, p)
	if err != nil {
		e.logger.Warn("profile import failed", "error", err, "profile", p.Name)
		return nil
	}

	e.mu.Lock()
	e.appendChangeLocked(&ChangeLogEntry{
		User:          p.CreatedBy,
		OperationType: OpProfileImported,
		Description:   fmt.Sprintf("imported profile %q (version %d)", saved.Name, saved.Version),
		IsAutomatic:   true,
	})
	e.mu.Unlock()

	return saved
}
