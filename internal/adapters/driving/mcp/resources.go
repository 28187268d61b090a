package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for docrag resources.
	uriScheme = "docrag://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "files",
		Name:        "files",
		Description: "Files that have been embedded, with their vector counts",
		MIMEType:    "application/json",
	}, s.handleFilesResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "The running or most recent update pass",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "files/{fileId}",
		Name:        "file",
		Description: "Ledger entry for a single file",
		MIMEType:    "application/json",
	}, s.handleFileResource)
}

// handleFilesResource returns every ledger entry.
func (s *Server) handleFilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Updater == nil {
		return jsonResult(req.Params.URI, []any{})
	}

	files, err := s.ports.Updater.ProcessedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	out := make([]FileOutput, len(files))
	for i, f := range files {
		out[i] = FileOutput{ID: f.ID, Name: f.Name, Modified: f.Modified, Vectors: len(f.VectorIDs)}
	}
	return jsonResult(req.Params.URI, out)
}

// handleFileResource returns the ledger entry for one file, including its vector IDs.
func (s *Server) handleFileResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Updater == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// URI: docrag://files/{fileId}
	fileID := strings.TrimPrefix(req.Params.URI, uriScheme+"files/")
	if fileID == "" || fileID == req.Params.URI {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	files, err := s.ports.Updater.ProcessedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	for _, f := range files {
		if f.ID == fileID {
			return jsonResult(req.Params.URI, struct {
				FileOutput
				VectorIDs []string `json:"vector_ids"`
			}{
				FileOutput: FileOutput{ID: f.ID, Name: f.Name, Modified: f.Modified, Vectors: len(f.VectorIDs)},
				VectorIDs:  f.VectorIDs,
			})
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

// handleStatusResource returns the current update report, or null.
func (s *Server) handleStatusResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Updater == nil {
		return jsonResult(req.Params.URI, nil)
	}
	return jsonResult(req.Params.URI, s.ports.Updater.Status())
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
