package revision

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/meridianworks/tagvc/kit"
)

// RegisterMCP registers the engine's tools on an MCP server so host
// automation can drive snapshots, diffs, merges and rollbacks.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerCaptureSnapshotTool(srv)
	e.registerHistoryTool(srv)
	e.registerDiffTool(srv)
	e.registerMergeTool(srv)
	e.registerRollbackTool(srv)
	e.registerBranchesTool(srv)
	e.registerCreateBranchTool(srv)
	e.registerSwitchBranchTool(srv)
	e.registerChangeLogTool(srv)
	e.registerProfilesTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- capture_snapshot ---

type captureSnapshotRequest struct {
	Tags        map[string]TagState `json:"tags"`
	Name        string              `json:"name,omitempty"`
	Description string              `json:"description,omitempty"`
	User        string              `json:"user,omitempty"`
}

func (e *Engine) registerCaptureSnapshotTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tagvc_capture_snapshot",
		Description: "Capture the supplied tag-state map as a new snapshot on the current branch.",
		InputSchema: inputSchema(map[string]any{
			"tags":        map[string]any{"type": "object", "description": "Map of tag id to tag state"},
			"name":        map[string]any{"type": "string", "description": "Snapshot name (defaults to a timestamped name)"},
			"description": map[string]any{"type": "string", "description": "Free-form description"},
			"user":        map[string]any{"type": "string", "description": "Caller identity (defaults to the configured user)"},
		}, []string{"tags"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*captureSnapshotRequest)
		return e.CaptureSnapshot(ctx, rr.Tags, rr.Name, rr.Description, rr.User)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[captureSnapshotRequest])
}

// --- history ---

type historyRequest struct {
	Branch string `json:"branch,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (e *Engine) registerHistoryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tagvc_history",
		Description: "List retained snapshots of a branch, newest first.",
		InputSchema: inputSchema(map[string]any{
			"branch": map[string]any{"type": "string", "description": "Branch name (defaults to the current branch)"},
			"limit":  map[string]any{"type": "integer", "description": "Max results (0 = all)"},
		}, nil),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		rr := req.(*historyRequest)
		return e.GetSnapshotHistory(rr.Branch, rr.Limit), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[historyRequest])
}

// --- diff ---

type diffRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

func (e *Engine) registerDiffTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tagvc_diff",
		Description: "Compute the property-level diff between two snapshots.",
		InputSchema: inputSchema(map[string]any{
			"source_id": map[string]any{"type": "string", "description": "Source snapshot id"},
			"target_id": map[string]any{"type": "string", "description": "Target snapshot id"},
		}, []string{"source_id", "target_id"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		rr := req.(*diffRequest)
		return e.ComputeDiff(rr.SourceID, rr.TargetID)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[diffRequest])
}

// --- merge ---

type mergeRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Strategy string `json:"strategy"`
	User     string `json:"user,omitempty"`
}

func (e *Engine) registerMergeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tagvc_merge",
		Description: "Merge two snapshots under a strategy. The merged map is captured as a new snapshot; conflicts are reported in the result.",
		InputSchema: inputSchema(map[string]any{
			"source_id": map[string]any{"type": "string", "description": "Source snapshot id"},
			"target_id": map[string]any{"type": "string", "description": "Target snapshot id"},
			"strategy":  map[string]any{"type": "string", "enum": []any{"source_wins", "target_wins", "three_way", "manual"}, "description": "Merge strategy"},
			"user":      map[string]any{"type": "string", "description": "Caller identity"},
		}, []string{"source_id", "target_id", "strategy"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*mergeRequest)
		return e.Merge(ctx, rr.SourceID, rr.TargetID, MergeStrategy(rr.Strategy), rr.User), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[mergeRequest])
}

// --- rollback ---

type rollbackRequest struct {
	SnapshotID string   `json:"snapshot_id"`
	Selective  bool     `json:"selective,omitempty"`
	TagIDs     []string `json:"tag_ids,omitempty"`
	User       string   `json:"user,omitempty"`
}

func (e *Engine) registerRollbackTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tagvc_rollback",
		Description: "Return the tag-state map stored in a snapshot, for the host to apply back to the live document. Selective rollback filters to the given tag ids.",
		InputSchema: inputSchema(map[string]any{
			"snapshot_id": map[string]any{"type": "string", "description": "Snapshot to roll back to"},
			"selective":   map[string]any{"type": "boolean", "description": "Restrict to tag_ids"},
			"tag_ids":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Tag ids for selective rollback"},
			"user":        map[string]any{"type": "string", "description": "Caller identity"},
		}, []string{"snapshot_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*rollbackRequest)
		return e.Rollback(ctx, rr.SnapshotID, rr.Selective, rr.TagIDs, rr.User)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[rollbackRequest])
}

// --- branches ---

type branchesRequest struct{}

func (e *Engine) registerBranchesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tagvc_branches",
		Description: "List all branches with their fork points and latest snapshots.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return e.GetBranches(), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[branchesRequest])
}

// --- create_branch ---

type createBranchRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	FromSnapshotID string `json:"from_snapshot_id,omitempty"`
	User           string `json:"user,omitempty"`
}

func (e *Engine) registerCreateBranchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tagvc_create_branch",
		Description: "Create a named branch forking from a snapshot (defaults to the current branch tip).",
		InputSchema: inputSchema(map[string]any{
			"name":             map[string]any{"type": "string", "description": "Branch name (must be unused)"},
			"description":      map[string]any{"type": "string", "description": "Branch purpose"},
			"from_snapshot_id": map[string]any{"type": "string", "description": "Fork point snapshot id"},
			"user":             map[string]any{"type": "string", "description": "Caller identity"},
		}, []string{"name"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*createBranchRequest)
		return e.CreateBranch(ctx, rr.Name, rr.Description, rr.FromSnapshotID, rr.User)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[createBranchRequest])
}

// --- switch_branch ---

type switchBranchRequest struct {
	Name string `json:"name"`
}

func (e *Engine) registerSwitchBranchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tagvc_switch_branch",
		Description: "Make the named branch current. Fails for missing or inactive branches.",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Branch name"},
		}, []string{"name"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		rr := req.(*switchBranchRequest)
		if err := e.SwitchBranch(ctx, rr.Name); err != nil {
			return nil, err
		}
		return map[string]string{"current_branch": rr.Name}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[switchBranchRequest])
}

// --- changelog ---

type changeLogRequest struct {
	TagID string `json:"tag_id,omitempty"`
	User  string `json:"user,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

func (e *Engine) registerChangeLogTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tagvc_changelog",
		Description: "Query the audit trail, newest first, optionally filtered by tag id or user.",
		InputSchema: inputSchema(map[string]any{
			"tag_id": map[string]any{"type": "string", "description": "Filter by tag id"},
			"user":   map[string]any{"type": "string", "description": "Filter by user"},
			"limit":  map[string]any{"type": "integer", "description": "Max results"},
		}, nil),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		rr := req.(*changeLogRequest)
		return e.GetChangeLog(ChangeLogFilter{TagID: rr.TagID, User: rr.User, Limit: rr.Limit}), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[changeLogRequest])
}

// --- profiles ---

type profilesRequest struct {
	Name string `json:"name,omitempty"`
}

func (e *Engine) registerProfilesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "tagvc_profiles",
		Description: "List configuration profiles, or fetch one by name.",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Profile name (empty lists all)"},
		}, nil),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		rr := req.(*profilesRequest)
		if rr.Name == "" {
			return e.GetProfiles(), nil
		}
		p := e.LoadProfile(rr.Name)
		if p == nil {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, rr.Name)
		}
		return p, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[profilesRequest])
}

// decodeInto unmarshals MCP arguments into a typed request.
func decodeInto[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var rr T
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &rr); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &rr}, nil
}
