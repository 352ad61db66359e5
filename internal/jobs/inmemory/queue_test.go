package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{BufferSize: 8, Workers: 2, MaxRetries: 2, Backoff: time.Millisecond}
}

func runQueue(t *testing.T, handler jobs.JobHandler, uris ...string) (*Store, []*jobs.ValidateDocumentJob) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := NewStore()
	q := NewQueue(testOptions(), store)
	require.NoError(t, q.Start(ctx, handler))

	var published []*jobs.ValidateDocumentJob
	for _, uri := range uris {
		job := &jobs.ValidateDocumentJob{UserID: "u1", URI: uri}
		require.NoError(t, q.PublishValidateDocument(ctx, job))
		published = append(published, job)
	}

	require.NoError(t, q.Wait(ctx))
	require.NoError(t, q.Stop(ctx))
	return store, published
}

func TestQueue_ProcessesJobs(t *testing.T) {
	handler := func(ctx context.Context, job *jobs.ValidateDocumentJob) (*domain.BatchResult, error) {
		return &domain.BatchResult{Source: job.URI}, nil
	}

	store, published := runQueue(t, handler, "a.csv", "b.csv", "c.pdf")

	for _, p := range published {
		got, err := store.GetJob(context.Background(), p.JobID)
		require.NoError(t, err)
		assert.Equal(t, jobs.JobStatusCompleted, got.Status)
		require.NotNil(t, got.Result)
		assert.Equal(t, p.URI, got.Result.Source)
		assert.NotNil(t, got.StartedAt)
		assert.NotNil(t, got.CompletedAt)
		assert.Equal(t, 2, got.MaxRetries)
	}
}

func TestQueue_RetriesRetryableErrors(t *testing.T) {
	var calls int32
	handler := func(ctx context.Context, job *jobs.ValidateDocumentJob) (*domain.BatchResult, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, &domain.ExternalReadError{Op: "ListCategories", Err: errors.New("timeout")}
		}
		return &domain.BatchResult{}, nil
	}

	store, published := runQueue(t, handler, "a.csv")

	got, err := store.GetJob(context.Background(), published[0].JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusCompleted, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Empty(t, got.Error)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestQueue_DoesNotRetryStructuralErrors(t *testing.T) {
	var calls int32
	handler := func(ctx context.Context, job *jobs.ValidateDocumentJob) (*domain.BatchResult, error) {
		atomic.AddInt32(&calls, 1)
		return nil, &domain.StructuralError{Source: job.URI, Reason: "missing required headers: Date"}
	}

	store, published := runQueue(t, handler, "bad.csv")

	got, err := store.GetJob(context.Background(), published[0].JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, 0, got.RetryCount)
	assert.Contains(t, got.Error, "missing required headers")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestQueue_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	handler := func(ctx context.Context, job *jobs.ValidateDocumentJob) (*domain.BatchResult, error) {
		atomic.AddInt32(&calls, 1)
		return nil, &domain.ExternalReadError{Op: "HasTransaction", Err: errors.New("unavailable")}
	}

	store, published := runQueue(t, handler, "a.csv")

	got, err := store.GetJob(context.Background(), published[0].JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, 2, got.RetryCount)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestQueue_PublishAfterStop(t *testing.T) {
	q := NewQueue(testOptions(), nil)
	require.NoError(t, q.Stop(context.Background()))

	err := q.PublishValidateDocument(context.Background(), &jobs.ValidateDocumentJob{URI: "a.csv"})

	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.ErrorIs(t, q.Start(context.Background(), nil), ErrQueueClosed)
	assert.NoError(t, q.Close(), "stopping twice is a no-op")
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, j := range []jobs.ValidateDocumentJob{
		{JobID: "j3", UserID: "u1", Status: jobs.JobStatusFailed, CreatedAt: base.Add(2 * time.Minute)},
		{JobID: "j1", UserID: "u1", Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "j2", UserID: "u2", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(time.Minute)},
	} {
		job := j
		require.NoError(t, s.SaveJob(ctx, &job), "job %d", i)
	}

	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "j1", all[0].JobID)
	assert.Equal(t, "j3", all[2].JobID)

	mine, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "u1", Status: jobs.JobStatusCompleted})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "j1", mine[0].JobID)

	page, err := s.ListJobs(ctx, jobs.JobFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "j2", page[0].JobID)

	empty, err := s.ListJobs(ctx, jobs.JobFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.GetJob(ctx, "missing")
	assert.Error(t, err)
	assert.Error(t, s.SaveJob(ctx, &jobs.ValidateDocumentJob{}))
}
