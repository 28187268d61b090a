package pinecone

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

type fakeConn struct {
	upserts   [][]*pinecone.Vector
	queried   *pinecone.QueryByVectorValuesRequest
	response  *pinecone.QueryVectorsResponse
	deleted   []string
	filter    map[string]any
	stats     *pinecone.DescribeIndexStatsResponse
	err       error
	closed    bool
}

func (f *fakeConn) UpsertVectors(_ context.Context, in []*pinecone.Vector) (uint32, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.upserts = append(f.upserts, in)
	return uint32(len(in)), nil
}

func (f *fakeConn) QueryByVectorValues(_ context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	f.queried = in
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeConn) DeleteVectorsById(_ context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return f.err
}

func (f *fakeConn) DeleteVectorsByFilter(_ context.Context, filter *pinecone.MetadataFilter) error {
	f.filter = filter.AsMap()
	return f.err
}

func (f *fakeConn) DescribeIndexStats(context.Context) (*pinecone.DescribeIndexStatsResponse, error) {
	return f.stats, f.err
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func records(n int) []domain.VectorRecord {
	file := domain.SourceFile{ID: "f1", Name: "policy.txt"}
	out := make([]domain.VectorRecord, n)
	for i := range out {
		out[i] = domain.NewVectorRecord(file, i, fmt.Sprintf("chunk %d", i), []float32{0.1, 0.2})
	}
	return out
}

func TestNew_MissingConfig(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.ErrorIs(t, err, domain.ErrConfigMissing)
	assert.Contains(t, err.Error(), domain.EnvPineconeAPIKey)
	assert.Contains(t, err.Error(), domain.EnvPineconeIndex)
}

func TestStore_UpsertBatches(t *testing.T) {
	conn := &fakeConn{}
	s := newStore(conn, "default")

	require.NoError(t, s.Upsert(context.Background(), records(UpsertBatchSize+5)))

	require.Len(t, conn.upserts, 2)
	assert.Len(t, conn.upserts[0], UpsertBatchSize)
	assert.Len(t, conn.upserts[1], 5)

	first := conn.upserts[0][0]
	assert.Equal(t, "f1_0", first.Id)
	assert.Equal(t, []float32{0.1, 0.2}, *first.Values)
	meta := first.Metadata.AsMap()
	assert.Equal(t, "f1", meta[domain.MetaFileID])
	assert.Equal(t, "policy.txt", meta[domain.MetaFileName])
	assert.Equal(t, "chunk 0", meta[domain.MetaText])
	assert.Equal(t, float64(0), meta[domain.MetaChunkIndex])
}

func TestStore_UpsertRejectsEmptyVector(t *testing.T) {
	s := newStore(&fakeConn{}, "default")
	err := s.Upsert(context.Background(), []domain.VectorRecord{{ID: "x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_Query(t *testing.T) {
	rec := records(1)[0]
	v, err := toVector(rec)
	require.NoError(t, err)

	conn := &fakeConn{response: &pinecone.QueryVectorsResponse{
		Matches: []*pinecone.ScoredVector{{Vector: v, Score: 0.87}, nil},
	}}
	s := newStore(conn, "default")

	matches, err := s.Query(context.Background(), []float32{0.1, 0.2}, 3)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), conn.queried.TopK)
	assert.True(t, conn.queried.IncludeMetadata)
	require.Len(t, matches, 1)
	assert.Equal(t, "f1_0", matches[0].ID)
	assert.Equal(t, "chunk 0", matches[0].Text)
	assert.Equal(t, "policy.txt", matches[0].FileName)
	assert.Equal(t, 0, matches[0].ChunkIndex)
	assert.InDelta(t, 0.87, matches[0].Score, 1e-6)
}

func TestStore_QueryZeroTopK(t *testing.T) {
	conn := &fakeConn{}
	matches, err := newStore(conn, "default").Query(context.Background(), []float32{1}, 0)
	require.NoError(t, err)
	assert.Nil(t, matches)
	assert.Nil(t, conn.queried)
}

func TestStore_Delete(t *testing.T) {
	conn := &fakeConn{}
	s := newStore(conn, "default")
	ctx := context.Background()

	require.NoError(t, s.DeleteByIDs(ctx, nil))
	assert.Empty(t, conn.deleted)

	require.NoError(t, s.DeleteByIDs(ctx, []string{"a_0", "a_1"}))
	assert.Equal(t, []string{"a_0", "a_1"}, conn.deleted)

	require.NoError(t, s.DeleteByFile(ctx, "a"))
	assert.Equal(t, map[string]any{domain.MetaFileID: map[string]any{"$eq": "a"}}, conn.filter)
}

func TestStore_Count(t *testing.T) {
	conn := &fakeConn{stats: &pinecone.DescribeIndexStatsResponse{
		Namespaces: map[string]*pinecone.NamespaceSummary{
			"default": {VectorCount: 42},
			"other":   {VectorCount: 7},
		},
	}}

	n, err := newStore(conn, "default").Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = newStore(conn, "missing").Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_Close(t *testing.T) {
	conn := &fakeConn{}
	require.NoError(t, newStore(conn, "default").Close())
	assert.True(t, conn.closed)
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"auth", errors.New("401 Unauthorized: invalid api key"), domain.ErrAuthInvalid},
		{"rate", errors.New("429 Too Many Requests"), domain.ErrRateLimited},
		{"dims", errors.New("Vector dimension 3 does not match the dimension of the index 768"), domain.ErrDimensionMismatch},
		{"other", errors.New("connection reset"), domain.ErrVectorStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError("op", tt.err)
			assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(errors.New("failed to describe index: 404 Not Found")))
	assert.False(t, isNotFound(errors.New("500 internal")))
}
