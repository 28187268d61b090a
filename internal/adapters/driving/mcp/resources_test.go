package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestServer_handleFilesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists files", func(t *testing.T) {
		updater := &mockUpdater{files: []domain.ProcessedFile{
			{ID: "f1", Name: "leave.pdf", VectorIDs: []string{"f1_0"}},
		}}
		server, err := NewServer(&Ports{Chat: &mockChatService{}, Updater: updater})
		require.NoError(t, err)

		res, err := server.handleFilesResource(ctx, readRequest("docrag://files"))
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)

		var files []FileOutput
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &files))
		require.Len(t, files, 1)
		assert.Equal(t, "f1", files[0].ID)
		assert.Equal(t, 1, files[0].Vectors)
	})

	t.Run("empty without updater", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}})
		require.NoError(t, err)

		res, err := server.handleFilesResource(ctx, readRequest("docrag://files"))
		require.NoError(t, err)
		assert.Equal(t, "[]", res.Contents[0].Text)
	})
}

func TestServer_handleFileResource(t *testing.T) {
	ctx := context.Background()
	updater := &mockUpdater{files: []domain.ProcessedFile{
		{ID: "f1", Name: "leave.pdf", VectorIDs: []string{"f1_0", "f1_1"}},
	}}
	server, err := NewServer(&Ports{Chat: &mockChatService{}, Updater: updater})
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		res, err := server.handleFileResource(ctx, readRequest("docrag://files/f1"))
		require.NoError(t, err)
		assert.Contains(t, res.Contents[0].Text, `"vector_ids"`)
		assert.Contains(t, res.Contents[0].Text, "f1_1")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := server.handleFileResource(ctx, readRequest("docrag://files/nope"))
		assert.Error(t, err)
	})
}

func TestServer_handleStatusResource(t *testing.T) {
	updater := &mockUpdater{report: &domain.UpdateReport{RunID: "run-7", Added: 2}}
	server, err := NewServer(&Ports{Chat: &mockChatService{}, Updater: updater})
	require.NoError(t, err)

	res, err := server.handleStatusResource(context.Background(), readRequest("docrag://status"))
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "run-7")
}
