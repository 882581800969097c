// Package mcpserver exposes the class navigator as MCP tools. Every tool
// names an HTML file and a cursor; the file is re-read on each call.
package mcpserver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/agentic-research/classnav/internal/classtree"
	"github.com/agentic-research/classnav/internal/config"
	"github.com/agentic-research/classnav/internal/controller"
	"github.com/agentic-research/classnav/internal/host"
	"github.com/agentic-research/classnav/internal/ingest"
	"github.com/agentic-research/classnav/internal/linter"
)

const (
	Name    = "classnav"
	Version = "0.1.0"
)

// Server holds the configuration shared by all tool calls.
type Server struct {
	cfg config.Config
	log *logrus.Logger
	mcp *server.MCPServer
}

// New registers every tool on a fresh MCP server.
func New(cfg config.Config, log *logrus.Logger) *Server {
	s := &Server{
		cfg: cfg,
		log: log,
		mcp: server.NewMCPServer(Name, Version, server.WithToolCapabilities(false)),
	}

	fileArg := mcp.WithString("file", mcp.Required(), mcp.Description("Path of the HTML file"))
	cursorArg := mcp.WithString("cursor", mcp.Required(), mcp.Description(`Cursor as a byte offset ("42") or 1-based "line:col"`))
	pathArg := mcp.WithString("path", mcp.Required(), mcp.Description(`Class path, segments joined by ":" (e.g. "nav:item")`))

	s.mcp.AddTool(mcp.NewTool("class_tree",
		mcp.WithDescription("Show the class hierarchy of the class attribute at the cursor"),
		fileArg, cursorArg,
	), s.handleTree)

	s.mcp.AddTool(mcp.NewTool("class_add",
		mcp.WithDescription("Add a root class to the class attribute at the cursor"),
		fileArg, cursorArg,
		mcp.WithString("name", mcp.Required(), mcp.Description("Class name")),
	), s.handleAdd)

	s.mcp.AddTool(mcp.NewTool("class_add_child",
		mcp.WithDescription("Add a class below an existing class"),
		fileArg, cursorArg, pathArg,
		mcp.WithString("name", mcp.Required(), mcp.Description("Child segment name")),
	), s.handleAddChild)

	s.mcp.AddTool(mcp.NewTool("class_remove",
		mcp.WithDescription("Remove every token at the cursor whose last segment matches the class"),
		fileArg, cursorArg, pathArg,
	), s.handleRemove)

	s.mcp.AddTool(mcp.NewTool("class_rename",
		mcp.WithDescription("Rename the last segment of a class everywhere in the document"),
		fileArg, cursorArg, pathArg,
		mcp.WithString("name", mcp.Required(), mcp.Description("New segment name")),
	), s.handleRename)

	s.mcp.AddTool(mcp.NewTool("class_move",
		mcp.WithDescription("Move a class, with its subtree, below another class or to the root"),
		fileArg, cursorArg, pathArg,
		mcp.WithString("target", mcp.Description("Path of the new parent; empty moves to the root")),
	), s.handleMove)

	s.mcp.AddTool(mcp.NewTool("class_query",
		mcp.WithDescription("Evaluate a JSONPath selector against the class tree at the cursor"),
		fileArg, cursorArg,
		mcp.WithString("selector", mcp.Required(), mcp.Description(`JSONPath, e.g. "$.classes[*].name"`)),
	), s.handleQuery)

	s.mcp.AddTool(mcp.NewTool("class_lint",
		mcp.WithDescription("Report malformed class paths in an HTML file"),
		fileArg,
	), s.handleLint)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// open builds a controller over the file and cursor named in req.
func (s *Server) open(req mcp.CallToolRequest) (*controller.Controller, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return nil, err
	}
	cursor, err := req.RequireString("cursor")
	if err != nil {
		return nil, err
	}
	f, err := host.OpenFileAt(file, cursor, s.cfg.Extensions)
	if err != nil {
		return nil, err
	}
	return controller.New(f, s.cfg.ControllerOptions(s.log)...), nil
}

// node resolves the "path" argument against the current forest.
func node(c *controller.Controller, req mcp.CallToolRequest, key string) (*classtree.Node, error) {
	p, err := req.RequireString(key)
	if err != nil {
		return nil, err
	}
	forest, err := c.Resolve()
	if err != nil {
		return nil, err
	}
	n := forest.Find(p)
	if n == nil {
		return nil, fmt.Errorf("class %q: %w", p, classtree.ErrNoMatch)
	}
	return n, nil
}

// outline renders the forest at the cursor after an edit.
func outline(c *controller.Controller) *mcp.CallToolResult {
	return mcp.NewToolResultText(classtree.Outline(c.RootNodes()))
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(controller.Message(err)), nil
}

func (s *Server) handleTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.open(req)
	if err != nil {
		return toolError(err)
	}
	return outline(c), nil
}

func (s *Server) handleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.open(req)
	if err != nil {
		return toolError(err)
	}
	name := req.GetString("name", "")
	if err := c.AddRootClass(ctx, name); err != nil {
		return toolError(err)
	}
	return outline(c), nil
}

func (s *Server) handleAddChild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.open(req)
	if err != nil {
		return toolError(err)
	}
	parent, err := node(c, req, "path")
	if err != nil {
		return toolError(err)
	}
	if err := c.AddChildClass(ctx, parent, req.GetString("name", "")); err != nil {
		return toolError(err)
	}
	return outline(c), nil
}

func (s *Server) handleRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.open(req)
	if err != nil {
		return toolError(err)
	}
	n, err := node(c, req, "path")
	if err != nil {
		return toolError(err)
	}
	if err := c.RemoveClass(ctx, n); err != nil {
		return toolError(err)
	}
	return outline(c), nil
}

func (s *Server) handleRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.open(req)
	if err != nil {
		return toolError(err)
	}
	n, err := node(c, req, "path")
	if err != nil {
		return toolError(err)
	}
	if err := c.RenameClass(ctx, n, req.GetString("name", "")); err != nil {
		return toolError(err)
	}
	return outline(c), nil
}

func (s *Server) handleMove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.open(req)
	if err != nil {
		return toolError(err)
	}
	n, err := node(c, req, "path")
	if err != nil {
		return toolError(err)
	}
	var target *classtree.Node
	if req.GetString("target", "") != "" {
		if target, err = node(c, req, "target"); err != nil {
			return toolError(err)
		}
	}
	if err := c.MoveClass(ctx, n, target); err != nil {
		return toolError(err)
	}
	return outline(c), nil
}

func (s *Server) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.open(req)
	if err != nil {
		return toolError(err)
	}
	selector, err := req.RequireString("selector")
	if err != nil {
		return toolError(err)
	}
	forest, err := c.Resolve()
	if err != nil {
		return toolError(err)
	}
	matches, err := ingest.QueryForest(forest, selector)
	if err != nil {
		return toolError(err)
	}
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintln(&b, ingest.FormatMatch(m))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleLint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return toolError(err)
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return toolError(err)
	}
	diags, err := linter.Lint(content)
	if err != nil {
		return toolError(err)
	}
	if len(diags) == 0 {
		return mcp.NewToolResultText("no problems found\n"), nil
	}
	var b strings.Builder
	for _, d := range diags {
		fmt.Fprintf(&b, "%s: %s\n", file, d)
	}
	return mcp.NewToolResultText(b.String()), nil
}
