package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	vecmemory "github.com/custodia-labs/docrag/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type updateFixture struct {
	connector *mockConnector
	embedder  *mockEmbedder
	vectors   *vecmemory.Store
	store     *failingStore
	ledger    *memory.LedgerStore
	svc       *UpdateService
}

func newUpdateFixture(t *testing.T, opts ...UpdateOption) *updateFixture {
	t.Helper()
	f := &updateFixture{
		connector: newMockConnector(),
		embedder:  &mockEmbedder{},
		vectors:   vecmemory.New(),
		ledger:    memory.NewLedgerStore(),
	}
	f.store = &failingStore{VectorStore: f.vectors}
	opts = append([]UpdateOption{WithUpsertRate(0), WithClock(func() time.Time { return baseTime })}, opts...)
	f.svc = NewUpdateService(f.connector, mockRegistry{}, mockPipeline{}, f.embedder, f.store, f.ledger, opts...)
	return f
}

func (f *updateFixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.vectors.Count(context.Background())
	require.NoError(t, err)
	return n
}

func srcFile(id, name string, modified time.Time) domain.SourceFile {
	return domain.SourceFile{ID: id, Name: name, MIMEType: "text/plain", ModifiedTime: modified}
}

func TestUpdateService_NewFiles(t *testing.T) {
	f := newUpdateFixture(t)
	ctx := context.Background()

	f.connector.add(srcFile("a", "leave.txt", baseTime), "annual leave | sick leave")
	f.connector.add(srcFile("b", "pay.txt", baseTime), "payroll runs monthly")

	report, err := f.svc.Update(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Listed)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 0, report.Modified)
	assert.Equal(t, 3, report.ChunksUpserted)
	assert.False(t, report.Running)
	assert.NotEmpty(t, report.RunID)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 3, f.count(t))

	entry, err := f.ledger.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "leave.txt", entry.Name)
	assert.Equal(t, []string{"a_0", "a_1"}, entry.VectorIDs)
	assert.True(t, entry.Modified.Equal(baseTime))
	assert.True(t, entry.ProcessedAt.Equal(baseTime))
}

func TestUpdateService_UnchangedSkipped(t *testing.T) {
	f := newUpdateFixture(t)
	ctx := context.Background()

	f.connector.add(srcFile("a", "leave.txt", baseTime), "annual leave")
	_, err := f.svc.Update(ctx)
	require.NoError(t, err)

	report, err := f.svc.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Added)
	assert.False(t, report.Changed())
	assert.Equal(t, 1, f.connector.fetchCount())
}

func TestUpdateService_ModifiedFileReplacesVectors(t *testing.T) {
	f := newUpdateFixture(t)
	ctx := context.Background()

	f.connector.add(srcFile("a", "leave.txt", baseTime), "one | two | three")
	_, err := f.svc.Update(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, f.count(t))

	f.connector.add(srcFile("a", "leave.txt", baseTime.Add(time.Hour)), "only one now")
	report, err := f.svc.Update(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Modified)
	assert.Equal(t, 1, report.ChunksUpserted)
	assert.Equal(t, 1, f.count(t))

	entry, err := f.ledger.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_0"}, entry.VectorIDs)
	assert.True(t, entry.Modified.Equal(baseTime.Add(time.Hour)))
}

func TestUpdateService_OlderModifiedTimeIgnored(t *testing.T) {
	f := newUpdateFixture(t)
	ctx := context.Background()

	f.connector.add(srcFile("a", "leave.txt", baseTime), "leave")
	_, err := f.svc.Update(ctx)
	require.NoError(t, err)

	f.connector.add(srcFile("a", "leave.txt", baseTime.Add(-time.Hour)), "leave")
	report, err := f.svc.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
}

func TestUpdateService_DeletedFile(t *testing.T) {
	t.Run("removes vectors by id", func(t *testing.T) {
		f := newUpdateFixture(t)
		ctx := context.Background()

		f.connector.add(srcFile("a", "leave.txt", baseTime), "one | two")
		f.connector.add(srcFile("b", "pay.txt", baseTime), "pay")
		_, err := f.svc.Update(ctx)
		require.NoError(t, err)

		f.connector.remove("a")
		report, err := f.svc.Update(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Deleted)
		assert.Equal(t, 1, f.count(t))
		assert.Empty(t, f.store.deleteFileIDs)

		_, err = f.ledger.Get(ctx, "a")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("falls back to file filter", func(t *testing.T) {
		f := newUpdateFixture(t)
		ctx := context.Background()

		f.connector.add(srcFile("a", "leave.txt", baseTime), "one | two")
		_, err := f.svc.Update(ctx)
		require.NoError(t, err)

		f.store.deleteIDsErr = errors.New("delete by id unsupported")
		f.connector.remove("a")
		report, err := f.svc.Update(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Deleted)
		assert.Equal(t, []string{"a"}, f.store.deleteFileIDs)
		assert.Equal(t, 0, f.count(t))
	})

	t.Run("keeps entry when vectors cannot be removed", func(t *testing.T) {
		f := newUpdateFixture(t)
		ctx := context.Background()

		f.connector.add(srcFile("a", "leave.txt", baseTime), "one")
		_, err := f.svc.Update(ctx)
		require.NoError(t, err)

		f.store.deleteIDsErr = errors.New("index offline")
		f.store.deleteFileErr = errors.New("index offline")
		f.connector.remove("a")
		report, err := f.svc.Update(ctx)
		require.NoError(t, err)

		assert.Equal(t, 0, report.Deleted)
		require.Len(t, report.Errors, 1)
		assert.Contains(t, report.Errors[0], "leave.txt")

		entry, err := f.ledger.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"a_0"}, entry.VectorIDs)
	})
}

func TestUpdateService_FileErrorsDoNotAbort(t *testing.T) {
	f := newUpdateFixture(t)
	ctx := context.Background()

	f.connector.add(srcFile("a", "broken.txt", baseTime), "x")
	f.connector.add(srcFile("b", "pay.txt", baseTime), "pay")
	f.connector.fetchErr["a"] = errors.New("download failed")

	report, err := f.svc.Update(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Added)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "broken.txt")
	assert.Contains(t, report.Errors[0], "download failed")
	assert.True(t, report.Failed())

	_, err = f.ledger.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The failed file is retried on the next pass.
	delete(f.connector.fetchErr, "a")
	report, err = f.svc.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Skipped)
}

func TestUpdateService_EmbedError(t *testing.T) {
	f := newUpdateFixture(t)
	f.embedder.err = domain.ErrEmbeddingUnavailable
	f.connector.add(srcFile("a", "leave.txt", baseTime), "leave")

	report, err := f.svc.Update(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "embed")
	assert.Equal(t, 0, f.count(t))
}

func TestUpdateService_EmptyDocument(t *testing.T) {
	f := newUpdateFixture(t)
	ctx := context.Background()
	f.connector.add(srcFile("a", "blank.txt", baseTime), "   ")

	report, err := f.svc.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 0, report.ChunksUpserted)
	assert.Equal(t, 0, f.embedder.calls)

	entry, err := f.ledger.Get(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, entry.VectorIDs)
}

func TestUpdateService_PartialUpsertRemoved(t *testing.T) {
	f := newUpdateFixture(t, WithUpsertBatch(2))
	f.store.upsertErr = errors.New("quota exceeded")
	f.store.upsertAfter = 1

	f.connector.add(srcFile("a", "leave.txt", baseTime), "one | two | three | four")

	report, err := f.svc.Update(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "quota exceeded")
	assert.Equal(t, 0, f.count(t))
}

func TestUpdateService_UpsertBatches(t *testing.T) {
	f := newUpdateFixture(t, WithUpsertBatch(2))
	f.connector.add(srcFile("a", "leave.txt", baseTime), "one | two | three | four | five")

	report, err := f.svc.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.ChunksUpserted)
	assert.Equal(t, 3, f.store.upserts)
}

func TestUpdateService_ListError(t *testing.T) {
	f := newUpdateFixture(t)
	f.connector.listErr = errors.New("folder not found")

	report, err := f.svc.Update(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "folder not found")
	require.NotNil(t, report)
	assert.False(t, report.Running)
}

func TestUpdateService_ConcurrentUpdate(t *testing.T) {
	f := newUpdateFixture(t)
	f.connector.add(srcFile("a", "leave.txt", baseTime), "leave")

	blocking := &blockingConnector{mockConnector: f.connector, release: make(chan struct{}), entered: make(chan struct{})}
	svc := NewUpdateService(blocking, mockRegistry{}, mockPipeline{}, f.embedder, f.store, f.ledger, WithUpsertRate(0))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = svc.Update(context.Background())
	}()

	<-blocking.entered
	status := svc.Status()
	require.NotNil(t, status)
	assert.True(t, status.Running)

	_, err := svc.Update(context.Background())
	assert.ErrorIs(t, err, domain.ErrUpdateInProgress)
	assert.ErrorIs(t, svc.Reset(context.Background()), domain.ErrUpdateInProgress)

	close(blocking.release)
	wg.Wait()

	status = svc.Status()
	require.NotNil(t, status)
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.Added)
}

func TestUpdateService_StatusBeforeFirstRun(t *testing.T) {
	f := newUpdateFixture(t)
	assert.Nil(t, f.svc.Status())
}

func TestUpdateService_ProcessedFiles(t *testing.T) {
	f := newUpdateFixture(t)
	ctx := context.Background()

	f.connector.add(srcFile("z", "b.txt", baseTime), "b")
	f.connector.add(srcFile("y", "a.txt", baseTime), "a")
	f.connector.add(srcFile("x", "b.txt", baseTime), "b")
	_, err := f.svc.Update(ctx)
	require.NoError(t, err)

	files, err := f.svc.ProcessedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "y", files[0].ID)
	assert.Equal(t, "x", files[1].ID)
	assert.Equal(t, "z", files[2].ID)
}

func TestUpdateService_Reset(t *testing.T) {
	f := newUpdateFixture(t)
	ctx := context.Background()

	f.connector.add(srcFile("a", "leave.txt", baseTime), "one | two")
	f.connector.add(srcFile("b", "pay.txt", baseTime), "pay")
	_, err := f.svc.Update(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.Reset(ctx))
	assert.Equal(t, 0, f.count(t))

	entries, err := f.ledger.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Everything is re-embedded on the next pass.
	report, err := f.svc.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Added)
}

func TestUpdateService_ResetKeepsLedgerOnFailure(t *testing.T) {
	f := newUpdateFixture(t)
	ctx := context.Background()

	f.connector.add(srcFile("a", "leave.txt", baseTime), "one")
	_, err := f.svc.Update(ctx)
	require.NoError(t, err)

	f.store.deleteIDsErr = errors.New("offline")
	f.store.deleteFileErr = errors.New("offline")
	require.Error(t, f.svc.Reset(ctx))

	entries, err := f.ledger.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// blockingConnector holds List open until released.
type blockingConnector struct {
	*mockConnector
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingConnector) List(ctx context.Context) ([]domain.SourceFile, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.mockConnector.List(ctx)
}

var _ driven.Connector = (*blockingConnector)(nil)
