package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/huangsam/gitnote/core"
	"github.com/huangsam/gitnote/core/trigger"
	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/internal/outwriter"
	"github.com/huangsam/gitnote/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager

	// compactMu serializes compact_history calls.
	compactMu sync.Mutex
}

// quarterInfo is the answer of quarter_label.
type quarterInfo struct {
	Quarter  string    `json:"quarter"`
	TagName  string    `json:"tag_name"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Previous string    `json:"previous"`
}

// storeStatus is the answer of store_status. A nil part means the store is disabled.
type storeStatus struct {
	Entries *schema.EntryStatus   `json:"entries"`
	Archive *schema.ArchiveStatus `json:"archive"`
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

func (h *toolHandler) handleExtractChanges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if p := request.GetString("repo_path", ""); p != "" {
		cfg.RepoPath = p
	}
	cfg.Snapshot = request.GetBool("snapshot", false)
	from := request.GetString("from", "")
	to := request.GetString("to", "")
	if to == "" {
		return mcp.NewToolResultError("'to' is required"), nil
	}

	changes, err := core.GetExtractResults(ctx, cfg, from, to)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("extraction failed: %v", err)), nil
	}
	if request.GetBool("paths_only", false) {
		return jsonResult(changes.Paths()), nil
	}
	return jsonResult(outwriter.ToChangeRows(changes)), nil
}

func (h *toolHandler) handleCompactHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if p := request.GetString("repo_path", ""); p != "" {
		cfg.RepoPath = p
	}
	if b := request.GetString("bucket", ""); b != "" {
		cfg.Bucket = schema.BucketGranularity(b)
		if _, ok := schema.ValidBucketGranularities[cfg.Bucket]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid bucket '%s'. must be hour, day, month", b)), nil
		}
	}
	boundary := request.GetString("boundary", "")
	label := request.GetString("label", "")
	if boundary == "" || label == "" {
		return mcp.NewToolResultError("'boundary' and 'label' are required"), nil
	}

	h.compactMu.Lock()
	info, err := core.GetArchiveResults(ctx, cfg, h.mgr, boundary, label)
	h.compactMu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("compaction failed: %v", err)), nil
	}
	return jsonResult(info), nil
}

func (h *toolHandler) handleQuarterLabel(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := trigger.QuarterOf(time.Now())
	if raw := request.GetString("date", ""); raw != "" {
		parsed, err := parseQuarter(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		q = parsed
	}

	return jsonResult(quarterInfo{
		Quarter:  q.Label(),
		TagName:  q.TagName(),
		Start:    q.Start(),
		End:      q.End(),
		Previous: q.Previous().Label(),
	}), nil
}

func (h *toolHandler) handleStoreStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var out storeStatus
	if h.mgr == nil {
		return jsonResult(out), nil
	}
	if store := h.mgr.GetEntryStore(); store != nil {
		status, err := store.GetStatus()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read entry status: %v", err)), nil
		}
		out.Entries = &status
	}
	if store := h.mgr.GetArchiveStore(); store != nil {
		status, err := store.GetStatus()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read archive status: %v", err)), nil
		}
		out.Archive = &status
	}
	return jsonResult(out), nil
}

func (h *toolHandler) handleListArticles(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var store contract.EntryStore
	if h.mgr != nil {
		store = h.mgr.GetEntryStore()
	}
	if store == nil {
		return mcp.NewToolResultError("entry store is disabled. set entry-backend and run 'gitnote sync'"), nil
	}

	if !request.GetBool("all", false) && request.GetString("group", "") == "" {
		groups, err := store.ListGroups()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list groups: %v", err)), nil
		}
		return jsonResult(groups), nil
	}

	var articles []schema.ArticleRecord
	var err error
	if request.GetBool("all", false) {
		articles, err = store.ListAllArticles()
	} else {
		articles, err = store.ListArticles(request.GetString("group", ""))
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list articles: %v", err)), nil
	}
	return jsonResult(articles), nil
}

// parseQuarter accepts a quarter label, a date or an RFC3339 time.
func parseQuarter(raw string) (trigger.Quarter, error) {
	if q, err := trigger.ParseQuarter(raw); err == nil {
		return q, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return trigger.QuarterOf(t), nil
		}
	}
	return trigger.Quarter{}, fmt.Errorf("invalid date %q. use YYYY-MM-DD, RFC3339 or YYYY-QN", raw)
}
