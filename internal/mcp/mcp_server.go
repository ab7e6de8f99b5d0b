// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/gitnote/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the gitnote MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"gitnote Archive Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: extract_changes ---
	s.AddTool(mcp.NewTool("extract_changes",
		mcp.WithDescription("List the article and group config changes between two revisions of a notes repository."),
		mcp.WithString("to", mcp.Description("The newest revision (branch, tag or commit)."), mcp.Required()),
		mcp.WithString("from", mcp.Description("The oldest revision, exclusive. Without it only the changes of 'to' are listed.")),
		mcp.WithBoolean("snapshot", mcp.Description("Diff the trees directly instead of replaying every commit.")),
		mcp.WithBoolean("paths_only", mcp.Description("Return only the changed paths in order, without kinds or content.")),
		mcp.WithString("repo_path", mcp.Description("Path to the Git repository (defaults to current directory if not specified).")),
	), h.handleExtractChanges)

	// --- 2. Tool: compact_history ---
	s.AddTool(mcp.NewTool("compact_history",
		mcp.WithDescription("Compact the history up to a boundary into one commit per time bucket and publish it under an archive branch."),
		mcp.WithString("boundary", mcp.Description("The last revision to archive, inclusive."), mcp.Required()),
		mcp.WithString("label", mcp.Description("Name of the archive branch, e.g. '2025-Q1'."), mcp.Required()),
		mcp.WithString("bucket", mcp.Description("Time bucket size. Defaults to the configured bucket."), mcp.Enum("hour", "day", "month")),
		mcp.WithString("repo_path", mcp.Description("Path to the Git repository.")),
	), h.handleCompactHistory)

	// --- 3. Tool: quarter_label ---
	s.AddTool(mcp.NewTool("quarter_label",
		mcp.WithDescription("Return the calendar quarter of a date with its archive label, tag name and bounds."),
		mcp.WithString("date", mcp.Description("A date as YYYY-MM-DD or RFC3339, or a quarter label such as 2025-Q2. Defaults to now.")),
	), h.handleQuarterLabel)

	// --- 4. Tool: store_status ---
	s.AddTool(mcp.NewTool("store_status",
		mcp.WithDescription("Report the status of the entry store and the archive run store."),
	), h.handleStoreStatus)

	// --- 5. Tool: list_articles ---
	s.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List synced groups, or the articles of one group, from the entry store."),
		mcp.WithString("group", mcp.Description("Group path whose articles to list. Without it the groups are listed.")),
		mcp.WithBoolean("all", mcp.Description("List every article of every group.")),
	), h.handleListArticles)

	return s
}

// StartMCPServer starts the gitnote MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
