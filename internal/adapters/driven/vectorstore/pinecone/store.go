// Package pinecone provides a vector store backed by a Pinecone
// serverless index.
package pinecone

import (
	"context"
	"fmt"
	"strings"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// UpsertBatchSize is the number of vectors sent per upsert request.
const UpsertBatchSize = 100

// DefaultCloud is the cloud used when creating a missing index.
const DefaultCloud = pinecone.Aws

// Config holds the settings needed to reach an index.
type Config struct {
	APIKey string

	// Environment is the serverless region, e.g. "us-east-1".
	Environment string

	IndexName string
	Namespace string

	// Dimensions is used only when the index has to be created.
	Dimensions int
}

// indexConn is the subset of *pinecone.IndexConnection the store uses.
type indexConn interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DeleteVectorsById(ctx context.Context, ids []string) error
	DeleteVectorsByFilter(ctx context.Context, filter *pinecone.MetadataFilter) error
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

// Store implements driven.VectorStore over one index namespace.
type Store struct {
	conn      indexConn
	namespace string
}

// New connects to the configured index, creating it with cosine metric
// when it does not exist.
func New(ctx context.Context, cfg Config) (*Store, error) {
	var missing []string
	if cfg.APIKey == "" {
		missing = append(missing, domain.EnvPineconeAPIKey)
	}
	if cfg.IndexName == "" {
		missing = append(missing, domain.EnvPineconeIndex)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigMissing, strings.Join(missing, ", "))
	}
	if cfg.Namespace == "" {
		cfg.Namespace = domain.DefaultNamespace
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}

	idx, err := pc.DescribeIndex(ctx, cfg.IndexName)
	if err != nil {
		if !isNotFound(err) {
			return nil, wrapError("describe index", err)
		}
		idx, err = createIndex(ctx, pc, cfg)
		if err != nil {
			return nil, err
		}
	}

	conn, err := pc.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: cfg.Namespace})
	if err != nil {
		return nil, wrapError("connect", err)
	}

	logger.Debug("pinecone: connected to %s (namespace %s)", cfg.IndexName, cfg.Namespace)
	return newStore(conn, cfg.Namespace), nil
}

func newStore(conn indexConn, namespace string) *Store {
	return &Store{conn: conn, namespace: namespace}
}

func createIndex(ctx context.Context, pc *pinecone.Client, cfg Config) (*pinecone.Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: index %s does not exist and embedding dimensions are unknown",
			domain.ErrConfigMissing, cfg.IndexName)
	}
	if cfg.Environment == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigMissing, domain.EnvPineconeEnv)
	}

	logger.Info("pinecone: creating index %s (%d dims, %s)", cfg.IndexName, cfg.Dimensions, cfg.Environment)
	dims := int32(cfg.Dimensions) //nolint:gosec // embedding sizes are small
	metric := pinecone.Cosine
	idx, err := pc.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      cfg.IndexName,
		Cloud:     DefaultCloud,
		Region:    cfg.Environment,
		Dimension: &dims,
		Metric:    &metric,
	})
	if err != nil {
		return nil, wrapError("create index", err)
	}
	return idx, nil
}

// Upsert writes records in batches of UpsertBatchSize.
func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	for start := 0; start < len(records); start += UpsertBatchSize {
		end := min(start+UpsertBatchSize, len(records))

		batch := make([]*pinecone.Vector, 0, end-start)
		for _, r := range records[start:end] {
			v, err := toVector(r)
			if err != nil {
				return err
			}
			batch = append(batch, v)
		}

		if _, err := s.conn.UpsertVectors(ctx, batch); err != nil {
			return wrapError("upsert", err)
		}
	}
	return nil
}

func toVector(r domain.VectorRecord) (*pinecone.Vector, error) {
	if len(r.Values) == 0 {
		return nil, fmt.Errorf("%w: record %s has no values", domain.ErrInvalidInput, r.ID)
	}
	meta, err := structpb.NewStruct(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata for %s: %v", domain.ErrInvalidInput, r.ID, err)
	}
	values := r.Values
	return &pinecone.Vector{Id: r.ID, Values: &values, Metadata: meta}, nil
}

// Query returns up to topK matches with metadata. Match text is the
// truncated text held in metadata.
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	res, err := s.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK), //nolint:gosec // topK is positive
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, wrapError("query", err)
	}

	matches := make([]domain.Match, 0, len(res.Matches))
	for _, sv := range res.Matches {
		if sv == nil || sv.Vector == nil {
			continue
		}
		var meta map[string]any
		if sv.Vector.Metadata != nil {
			meta = sv.Vector.Metadata.AsMap()
		}
		matches = append(matches, domain.MatchFromMetadata(sv.Vector.Id, sv.Score, meta))
	}
	return matches, nil
}

// DeleteByIDs removes records by ID.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.conn.DeleteVectorsById(ctx, ids); err != nil {
		return wrapError("delete", err)
	}
	return nil
}

// DeleteByFile removes every record whose file_id metadata equals fileID.
func (s *Store) DeleteByFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("%w: empty file id", domain.ErrInvalidInput)
	}
	filter, err := structpb.NewStruct(map[string]any{
		domain.MetaFileID: map[string]any{"$eq": fileID},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := s.conn.DeleteVectorsByFilter(ctx, filter); err != nil {
		return wrapError("delete file "+fileID, err)
	}
	return nil
}

// Count returns the vector count of the store's namespace.
func (s *Store) Count(ctx context.Context) (int, error) {
	stats, err := s.conn.DescribeIndexStats(ctx)
	if err != nil {
		return 0, wrapError("stats", err)
	}
	if ns, ok := stats.Namespaces[s.namespace]; ok && ns != nil {
		return int(ns.VectorCount), nil
	}
	return 0, nil
}

// Close releases the index connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}

func wrapError(op string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key"):
		return fmt.Errorf("%w: pinecone %s: %w: %v", domain.ErrVectorStoreUnavailable, op, domain.ErrAuthInvalid, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		return fmt.Errorf("%w: pinecone %s: %w: %v", domain.ErrVectorStoreUnavailable, op, domain.ErrRateLimited, err)
	case strings.Contains(msg, "dimension"):
		return fmt.Errorf("%w: pinecone %s: %w: %v", domain.ErrVectorStoreUnavailable, op, domain.ErrDimensionMismatch, err)
	default:
		return fmt.Errorf("%w: pinecone %s: %v", domain.ErrVectorStoreUnavailable, op, err)
	}
}
