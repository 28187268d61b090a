package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure UpdateService implements the interface.
var _ driving.Updater = (*UpdateService)(nil)

// DefaultUpsertBatch is the number of vectors sent per paced upsert call.
const DefaultUpsertBatch = 32

// UpdateService keeps the vector store in step with the document source.
// The ledger is the record of what has been embedded; the vector store is
// never listed.
type UpdateService struct {
	connector driven.Connector
	registry  driven.NormaliserRegistry
	pipeline  driven.PostProcessorPipeline
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	ledger    driven.LedgerStore

	limiter     *rate.Limiter
	upsertBatch int
	now         func() time.Time

	runMu    sync.Mutex
	statusMu sync.RWMutex
	status   *domain.UpdateReport
}

// UpdateOption configures an UpdateService.
type UpdateOption func(*UpdateService)

// WithUpsertRate caps upsert calls per second. Zero or less disables pacing.
func WithUpsertRate(perSecond float64) UpdateOption {
	return func(s *UpdateService) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithUpsertBatch sets how many vectors go in one upsert call.
func WithUpsertBatch(n int) UpdateOption {
	return func(s *UpdateService) {
		if n > 0 {
			s.upsertBatch = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) UpdateOption {
	return func(s *UpdateService) {
		s.now = now
	}
}

// NewUpdateService creates an update service.
func NewUpdateService(
	connector driven.Connector,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	ledger driven.LedgerStore,
	opts ...UpdateOption,
) *UpdateService {
	s := &UpdateService{
		connector:   connector,
		registry:    registry,
		pipeline:    pipeline,
		embedder:    embedder,
		store:       store,
		ledger:      ledger,
		limiter:     rate.NewLimiter(rate.Limit(domain.DefaultUpsertRate), 1),
		upsertBatch: DefaultUpsertBatch,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update runs one pass. Per-file failures are collected in the report;
// only a listing or ledger failure aborts the pass.
func (s *UpdateService) Update(ctx context.Context) (*domain.UpdateReport, error) {
	if !s.runMu.TryLock() {
		return nil, domain.ErrUpdateInProgress
	}
	defer s.runMu.Unlock()

	report := &domain.UpdateReport{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		Running:   true,
	}
	s.setStatus(report)
	finish := func() *domain.UpdateReport {
		s.mutate(func(r *domain.UpdateReport) {
			r.Running = false
			r.Duration = s.now().Sub(r.StartedAt)
		})
		return s.snapshot()
	}

	logger.Section("Update " + report.RunID)

	files, err := s.connector.List(ctx)
	if err != nil {
		return finish(), fmt.Errorf("list source: %w", err)
	}
	s.mutate(func(r *domain.UpdateReport) { r.Listed = len(files) })

	processed, err := s.ledger.List(ctx)
	if err != nil {
		return finish(), fmt.Errorf("read ledger: %w", err)
	}

	listed := make(map[string]bool, len(files))
	for _, f := range files {
		listed[f.ID] = true
	}

	s.removeDeleted(ctx, processed, listed)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}

		entry, known := processed[file.ID]
		var prev *domain.ProcessedFile
		if known {
			prev = &entry
		}
		if !prev.NeedsUpdate(file) {
			s.mutate(func(r *domain.UpdateReport) { r.Skipped++ })
			continue
		}

		n, err := s.processFile(ctx, file, prev)
		if err != nil {
			logger.Warn("update: %s: %v", file.Name, err)
			s.recordError(file.Name, err)
			continue
		}

		s.mutate(func(r *domain.UpdateReport) {
			r.ChunksUpserted += n
			if known {
				r.Modified++
			} else {
				r.Added++
			}
		})
	}

	final := finish()
	logger.Info("update: %d added, %d modified, %d deleted, %d skipped, %d errors",
		final.Added, final.Modified, final.Deleted, final.Skipped, len(final.Errors))
	return final, nil
}

// removeDeleted drops vectors and ledger entries for files no longer listed.
// An entry is kept when its vectors could not be removed, so the next pass
// retries.
func (s *UpdateService) removeDeleted(ctx context.Context, processed map[string]domain.ProcessedFile, listed map[string]bool) {
	for id, entry := range processed {
		if listed[id] {
			continue
		}
		logger.Debug("update: removing vectors for deleted file %s", entry.Name)

		if err := s.deleteVectors(ctx, id, entry.VectorIDs); err != nil {
			s.recordError(entry.Name, fmt.Errorf("delete vectors: %w", err))
			continue
		}
		if err := s.ledger.Delete(ctx, id); err != nil {
			s.recordError(entry.Name, fmt.Errorf("ledger: %w", err))
			continue
		}
		s.mutate(func(r *domain.UpdateReport) { r.Deleted++ })
	}
}

// deleteVectors removes a file's vectors by ID, falling back to the
// file_id metadata filter.
func (s *UpdateService) deleteVectors(ctx context.Context, fileID string, ids []string) error {
	var byIDErr error
	if len(ids) > 0 {
		if byIDErr = s.store.DeleteByIDs(ctx, ids); byIDErr == nil {
			return nil
		}
		logger.Debug("update: delete by id failed for %s, trying filter: %v", fileID, byIDErr)
	}
	if err := s.store.DeleteByFile(ctx, fileID); err != nil {
		return errors.Join(byIDErr, err)
	}
	return nil
}

// processFile fetches, normalises, chunks, embeds and upserts one file,
// then records it in the ledger. It returns the number of vectors written.
func (s *UpdateService) processFile(ctx context.Context, file domain.SourceFile, prev *domain.ProcessedFile) (int, error) {
	if prev != nil {
		if err := s.deleteVectors(ctx, file.ID, prev.VectorIDs); err != nil {
			return 0, fmt.Errorf("delete old vectors: %w", err)
		}
	}

	raw, err := s.connector.Fetch(ctx, file)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	doc, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return 0, fmt.Errorf("normalise: %w", err)
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	var vectors [][]float32
	if len(texts) > 0 {
		vectors, err = s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed: %w", err)
		}
		if len(vectors) != len(texts) {
			return 0, fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(texts))
		}
	}

	records := make([]domain.VectorRecord, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		records[i] = domain.NewVectorRecord(file, c.Position, c.Content, vectors[i])
		ids[i] = records[i].ID
	}

	if err := s.upsert(ctx, records); err != nil {
		return 0, err
	}

	entry := domain.ProcessedFile{
		ID:          file.ID,
		Name:        file.Name,
		Modified:    file.ModifiedTime,
		VectorIDs:   ids,
		ProcessedAt: s.now(),
	}
	if err := s.ledger.Put(ctx, entry); err != nil {
		return 0, fmt.Errorf("ledger: %w", err)
	}

	logger.Debug("update: %s: %d chunks upserted", file.Name, len(records))
	return len(records), nil
}

// upsert writes records in paced batches. On failure it removes whatever
// part of the file was already written.
func (s *UpdateService) upsert(ctx context.Context, records []domain.VectorRecord) error {
	for start := 0; start < len(records); start += s.upsertBatch {
		end := min(start+s.upsertBatch, len(records))

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.store.Upsert(ctx, records[start:end]); err != nil {
			if start > 0 {
				written := make([]string, 0, start)
				for _, r := range records[:start] {
					written = append(written, r.ID)
				}
				if cleanupErr := s.store.DeleteByIDs(ctx, written); cleanupErr != nil {
					logger.Warn("update: could not remove partial upsert: %v", cleanupErr)
				}
			}
			return fmt.Errorf("upsert: %w", err)
		}
	}
	return nil
}

// Status returns a copy of the running or last report.
func (s *UpdateService) Status() *domain.UpdateReport {
	return s.snapshot()
}

// ProcessedFiles returns the ledger entries sorted by name, then ID.
func (s *UpdateService) ProcessedFiles(ctx context.Context) ([]domain.ProcessedFile, error) {
	entries, err := s.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProcessedFile, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Reset deletes every vector the ledger knows about, then clears the ledger.
func (s *UpdateService) Reset(ctx context.Context) error {
	if !s.runMu.TryLock() {
		return domain.ErrUpdateInProgress
	}
	defer s.runMu.Unlock()

	entries, err := s.ledger.List(ctx)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}

	var errs []error
	for id, e := range entries {
		if err := s.deleteVectors(ctx, id, e.VectorIDs); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return s.ledger.Clear(ctx)
}

func (s *UpdateService) setStatus(r *domain.UpdateReport) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = r
}

func (s *UpdateService) mutate(fn func(*domain.UpdateReport)) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if s.status != nil {
		fn(s.status)
	}
}

func (s *UpdateService) recordError(name string, err error) {
	s.mutate(func(r *domain.UpdateReport) {
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", name, err))
	})
}

func (s *UpdateService) snapshot() *domain.UpdateReport {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	if s.status == nil {
		return nil
	}
	c := *s.status
	c.Errors = append([]string(nil), s.status.Errors...)
	return &c
}
