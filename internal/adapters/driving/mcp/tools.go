package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// errUpdatesUnavailable is returned by tools that need the updater.
var errUpdatesUnavailable = errors.New("updates are not available in this session")

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string        `json:"answer"`
	Sources  []string      `json:"sources,omitempty"`
	Grounded bool          `json:"grounded"`
	Matches  []MatchOutput `json:"matches,omitempty"`
}

// MatchOutput represents a single retrieved chunk.
type MatchOutput struct {
	FileName   string  `json:"file_name"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Text       string  `json:"text"`
}

// UpdateInput is the input schema for the update tool.
type UpdateInput struct{}

// UpdateOutput is the output schema for the update tool.
type UpdateOutput struct {
	RunID          string   `json:"run_id"`
	Listed         int      `json:"listed"`
	Added          int      `json:"added"`
	Modified       int      `json:"modified"`
	Deleted        int      `json:"deleted"`
	Skipped        int      `json:"skipped"`
	ChunksUpserted int      `json:"chunks_upserted"`
	Errors         []string `json:"errors,omitempty"`
	DurationMS     int64    `json:"duration_ms"`
}

// ListFilesInput is the input schema for the list_files tool.
type ListFilesInput struct{}

// ListFilesOutput is the output schema for the list_files tool.
type ListFilesOutput struct {
	Files []FileOutput `json:"files"`
	Count int          `json:"count"`
}

// FileOutput represents a single ledger entry.
type FileOutput struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Modified time.Time `json:"modified"`
	Vectors  int       `json:"vectors"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the indexed documents",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update",
		Description: "Re-scan the document source and embed new or changed files",
	}, s.handleUpdate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_files",
		Description: "List the files that have been embedded",
	}, s.handleListFiles)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Chat.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:   answer.Text,
		Sources:  answer.Sources,
		Grounded: answer.Grounded,
		Matches:  make([]MatchOutput, len(answer.Matches)),
	}
	for i, m := range answer.Matches {
		output.Matches[i] = MatchOutput{
			FileName:   m.FileName,
			ChunkIndex: m.ChunkIndex,
			Score:      m.Score,
			Text:       m.Text,
		}
	}

	return nil, output, nil
}

// handleUpdate handles the update tool invocation.
func (s *Server) handleUpdate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ UpdateInput,
) (*mcp.CallToolResult, UpdateOutput, error) {
	if s.ports.Updater == nil {
		return nil, UpdateOutput{}, errUpdatesUnavailable
	}

	report, err := s.ports.Updater.Update(ctx)
	if err != nil {
		return nil, UpdateOutput{}, err
	}

	return nil, UpdateOutput{
		RunID:          report.RunID,
		Listed:         report.Listed,
		Added:          report.Added,
		Modified:       report.Modified,
		Deleted:        report.Deleted,
		Skipped:        report.Skipped,
		ChunksUpserted: report.ChunksUpserted,
		Errors:         report.Errors,
		DurationMS:     report.Duration.Milliseconds(),
	}, nil
}

// handleListFiles handles the list_files tool invocation.
func (s *Server) handleListFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListFilesInput,
) (*mcp.CallToolResult, ListFilesOutput, error) {
	if s.ports.Updater == nil {
		return nil, ListFilesOutput{}, errUpdatesUnavailable
	}

	files, err := s.ports.Updater.ProcessedFiles(ctx)
	if err != nil {
		return nil, ListFilesOutput{}, err
	}

	output := ListFilesOutput{
		Files: make([]FileOutput, len(files)),
		Count: len(files),
	}
	for i, f := range files {
		output.Files[i] = FileOutput{
			ID:       f.ID,
			Name:     f.Name,
			Modified: f.Modified,
			Vectors:  len(f.VectorIDs),
		}
	}

	return nil, output, nil
}
