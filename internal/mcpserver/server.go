// Package mcpserver exposes vault operations as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/tree"
)

const structureURI = "quire://structure"

// Server wraps the MCP server with the note tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates an MCP server with every tool registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"quire",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List note paths, optionally only those inside a folder."),
		mcp.WithString("folder", mcp.Description("Folder path such as work/2024; empty for all notes")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_structure",
		mcp.WithDescription("Return the folder tree as nested JSON. Folders are objects, notes are null."),
	), s.getStructure)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the body of a note. HTML notes return HTML, document notes return JSON."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path without extension, e.g. work/plan")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Fails if the path is taken. Read the quire://note-format resource first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path; folders are created implicitly")),
		mcp.WithString("content", mcp.Required(), mcp.Description("HTML fragment or a JSON document object")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("save_note",
		mcp.WithDescription("Replace the body of a note, creating it when missing."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New body")),
	), s.saveNote)

	s.mcp.AddTool(mcp.NewTool("rename_note",
		mcp.WithDescription("Move a note to a new path. The target must not exist."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Current note path")),
		mcp.WithString("to", mcp.Required(), mcp.Description("New note path")),
	), s.renameNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note. Folders left empty disappear with it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("storage_usage",
		mcp.WithDescription("Report total bytes and note count held by the vault."),
	), s.storageUsage)

	s.mcp.AddTool(mcp.NewTool("get_note_format",
		mcp.WithDescription("Return the note path and content rules."),
	), s.getNoteFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Format",
			mcp.WithResourceDescription("Rules for note paths and bodies."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(structureURI, "Folder Structure",
			mcp.WithResourceDescription("Current folder tree as nested JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readStructureResource,
	)

	return s
}

// ServeStdio runs the server on stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns service errors into short tool messages.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("note not found")
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError("note already exists")
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("target already exists")
	}
	return mcp.NewToolResultError(apperr.Message(err))
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = strings.Trim(f, "/")
	}
	paths, err := s.svc.Paths(ctx)
	if err != nil {
		return toolError(err), nil
	}
	var out []string
	for _, p := range paths {
		if folder == "" || strings.HasPrefix(p, folder+"/") {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return mcp.NewToolResultText(strings.Join(out, "\n")), nil
}

func (s *Server) structureJSON(ctx context.Context) ([]byte, error) {
	paths, err := s.svc.Paths(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(tree.Build(paths), "", "  ")
}

func (s *Server) getStructure(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.structureJSON(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Read(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(note.Data)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Create(ctx, path, []byte(body)); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) saveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, err := s.svc.Save(ctx, path, []byte(body))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s (%d bytes)", path, meta.Size)), nil
}

func (s *Server) renameNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Rename(ctx, from, to); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("renamed: %s -> %s", from, to)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, path); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil
}

func (s *Server) storageUsage(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	u, err := s.svc.Usage(ctx)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.Marshal(u)
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNoteFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormat), nil
}

func (s *Server) readFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: formatURI, MIMEType: "text/markdown", Text: NoteFormat},
	}, nil
}

func (s *Server) readStructureResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := s.structureJSON(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: structureURI, MIMEType: "application/json", Text: string(out)},
	}, nil
}
