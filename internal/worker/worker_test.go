package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityabisht-lab/reddit-video-generator/internal/config"
	"github.com/adityabisht-lab/reddit-video-generator/internal/fetch"
	"github.com/adityabisht-lab/reddit-video-generator/internal/store"
	"github.com/adityabisht-lab/reddit-video-generator/internal/types"
)

// fakeFetcher returns the queued errors first, then the snapshot.
type fakeFetcher struct {
	mu       sync.Mutex
	errs     []error
	snapshot *types.ThreadSnapshot
	calls    int
}

func (f *fakeFetcher) Fetch(ctx context.Context, sourceRef string) (*types.ThreadSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.snapshot, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeRenderer returns a unique artifact reference per job, or its error.
type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(ctx context.Context, jobID string, script *types.Script) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("%s_%s.mp4", jobID, uuid.NewString()[:8]), nil
}

func testSnapshot() *types.ThreadSnapshot {
	return &types.ThreadSnapshot{
		Title: "A fine thread",
		Comments: []types.Comment{
			{ID: "c1", Body: "first comment body", Score: 3},
			{ID: "c2", Body: "second comment body", Score: 7},
		},
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Jobs.Workers = 1
	cfg.Jobs.PollIntervalSec = 1
	cfg.Jobs.FetchAttempts = 3
	cfg.Jobs.FetchTimeoutSec = 5
	cfg.Jobs.RenderTimeoutSec = 5
	cfg.Jobs.StaleAfterSec = 900
	// FetchBackoffSec stays zero so retries run instantly in tests
	return cfg
}

func newPool(t *testing.T, fetcher fetch.Fetcher, renderer *fakeRenderer) (*Pool, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewPool(st, fetcher, renderer, testConfig()), st
}

func claimedJob(t *testing.T, st *store.Store, maxComments int) *types.Job {
	t.Helper()
	owner, err := st.CreateUser(uuid.NewString()+"@example.com", "hash")
	require.NoError(t, err)
	job := &types.Job{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		SourceRef:   "https://www.reddit.com/r/golang/comments/abc123/thread/",
		MaxComments: maxComments,
	}
	require.NoError(t, st.CreateJob(job))
	claimed, err := st.TryClaim(job.ID)
	require.NoError(t, err)
	return claimed
}

func TestProcessSuccess(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: testSnapshot()}
	pool, st := newPool(t, fetcher, &fakeRenderer{})
	job := claimedJob(t, st, 5)

	pool.Process(context.Background(), job)

	got, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.NotEmpty(t, got.ArtifactRef)
	assert.Empty(t, got.ErrorDetail)
	assert.Equal(t, "A fine thread", got.Title)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestProcessNotFoundNoRetries(t *testing.T) {
	fetcher := &fakeFetcher{errs: []error{
		fmt.Errorf("%w: no such thread", fetch.ErrNotFound),
		fmt.Errorf("%w: no such thread", fetch.ErrNotFound),
	}}
	pool, st := newPool(t, fetcher, &fakeRenderer{})
	job := claimedJob(t, st, 5)

	pool.Process(context.Background(), job)

	got, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, got.Status)
	assert.Contains(t, got.ErrorDetail, "not found")
	assert.Empty(t, got.ArtifactRef)
	assert.Equal(t, 1, fetcher.callCount(), "permanent failures must not be retried")
}

func TestProcessRateLimitedRetriesToCap(t *testing.T) {
	fetcher := &fakeFetcher{errs: []error{
		fetch.ErrRateLimited, fetch.ErrRateLimited, fetch.ErrRateLimited, fetch.ErrRateLimited,
	}}
	pool, st := newPool(t, fetcher, &fakeRenderer{})
	job := claimedJob(t, st, 5)

	pool.Process(context.Background(), job)

	got, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, got.Status)
	assert.Contains(t, got.ErrorDetail, "rate limited")
	assert.Contains(t, got.ErrorDetail, "after 3 attempts")
	assert.Equal(t, 3, fetcher.callCount())
}

func TestProcessTransientThenSuccess(t *testing.T) {
	fetcher := &fakeFetcher{
		errs:     []error{fetch.ErrNetwork},
		snapshot: testSnapshot(),
	}
	pool, st := newPool(t, fetcher, &fakeRenderer{})
	job := claimedJob(t, st, 5)

	pool.Process(context.Background(), job)

	got, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestProcessEmptyContent(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: &types.ThreadSnapshot{Title: "deserted thread"}}
	pool, st := newPool(t, fetcher, &fakeRenderer{})
	job := claimedJob(t, st, 5)

	pool.Process(context.Background(), job)

	got, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, got.Status)
	assert.Contains(t, got.ErrorDetail, "no eligible comments")
}

func TestProcessRenderFailureTerminal(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: testSnapshot()}
	pool, st := newPool(t, fetcher, &fakeRenderer{err: fmt.Errorf("%w: ffmpeg exploded", assert.AnError)})
	job := claimedJob(t, st, 5)

	pool.Process(context.Background(), job)

	got, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, got.Status)
	assert.Contains(t, got.ErrorDetail, "render")
	assert.Empty(t, got.ArtifactRef)
}

func TestConcurrentJobsStayIsolated(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: testSnapshot()}
	pool, st := newPool(t, fetcher, &fakeRenderer{})

	first := claimedJob(t, st, 3)
	second := claimedJob(t, st, 3)

	var wg sync.WaitGroup
	for _, job := range []*types.Job{first, second} {
		wg.Add(1)
		go func(j *types.Job) {
			defer wg.Done()
			pool.Process(context.Background(), j)
		}(job)
	}
	wg.Wait()

	a, err := st.GetJob(first.ID)
	require.NoError(t, err)
	b, err := st.GetJob(second.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, a.Status)
	assert.Equal(t, types.StatusCompleted, b.Status)
	assert.NotEmpty(t, a.ArtifactRef)
	assert.NotEqual(t, a.ArtifactRef, b.ArtifactRef)
}

func TestProcessStopsBetweenStagesOnShutdown(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: testSnapshot()}
	pool, st := newPool(t, fetcher, &fakeRenderer{})
	job := claimedJob(t, st, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pool.Process(ctx, job)

	// the job is left in-flight for stale-claim reclamation, never failed
	got, err := st.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFetching, got.Status)
	assert.Empty(t, got.ErrorDetail)
}
