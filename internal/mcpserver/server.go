// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the cold cases catalog to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/coldcases/internal/apperr"
	"github.com/starford/coldcases/internal/caseservice"
	"github.com/starford/coldcases/internal/catalog"
)

// CaseFormatURI is the resource URI of the case format contract.
const CaseFormatURI = "coldcases://case-format"

// Server wraps the MCP server with the case tools.
type Server struct {
	mcp *server.MCPServer
	svc *caseservice.Service
}

// New creates a new MCP server with all case tools registered.
func New(svc *caseservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Cold Cases",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_cases",
		mcp.WithDescription("Full-text search through case names, locations and narratives."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchCases)

	s.mcp.AddTool(mcp.NewTool("list_cases",
		mcp.WithDescription("List cases oldest first, optionally filtered by a substring of name or location."),
		mcp.WithString("filter", mcp.Description("Optional case-insensitive substring of name or location")),
	), s.listCases)

	s.mcp.AddTool(mcp.NewTool("read_case",
		mcp.WithDescription("Read the full record of one case, including its narrative."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Case id")),
	), s.readCase)

	s.mcp.AddTool(mcp.NewTool("save_case",
		mcp.WithDescription("Create or update a case in the in-memory catalog. "+
			"The record MUST follow the case format contract. Read it first via "+
			"the get_case_contract tool or the "+CaseFormatURI+" resource. "+
			"Saves are not written to disk."),
		mcp.WithString("case", mcp.Required(), mcp.Description("Case record as a JSON object; an empty id creates a new case")),
	), s.saveCase)

	s.mcp.AddTool(mcp.NewTool("get_case_contract",
		mcp.WithDescription("Returns the case record format contract. "+
			"Call this before saving cases to ensure correct structure."),
	), s.getCaseContract)

	s.mcp.AddResource(
		mcp.NewResource(CaseFormatURI, "Case Format Contract",
			mcp.WithResourceDescription("Format of case folders and case records."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCaseFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchCases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) listCases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := ""
	if f, err := req.RequireString("filter"); err == nil {
		filter = f
	}
	items := s.svc.ListCases(ctx, filter)
	if len(items) == 0 {
		return mcp.NewToolResultText("no cases found"), nil
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s\t%s\t%s", it.ID, it.DateLabel, it.Name, it.Location, it.Status))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readCase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.GetCase(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c)
}

func (s *Server) saveCase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("case")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var body caseservice.SaveRequest
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid case JSON: %v", err)), nil
	}

	c, created, err := s.svc.SaveCase(ctx, body)
	if err != nil {
		var vf *catalog.ValidationFailure
		if errors.As(err, &vf) {
			return mcp.NewToolResultError(validationText(vf)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", verb, c.ID)), nil
}

func validationText(vf *catalog.ValidationFailure) string {
	keys := make([]string, 0, len(vf.Fields))
	for k := range vf.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s: %s", k, vf.Fields[k])
	}
	return b.String()
}

func (s *Server) getCaseContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CaseFormatContract), nil
}

func (s *Server) readCaseFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CaseFormatURI,
			MIMEType: "text/markdown",
			Text:     CaseFormatContract,
		},
	}, nil
}
