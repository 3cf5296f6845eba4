package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/adityabisht-lab/reddit-video-generator/internal/compose"
	"github.com/adityabisht-lab/reddit-video-generator/internal/config"
	"github.com/adityabisht-lab/reddit-video-generator/internal/fetch"
	"github.com/adityabisht-lab/reddit-video-generator/internal/render"
	"github.com/adityabisht-lab/reddit-video-generator/internal/store"
	"github.com/adityabisht-lab/reddit-video-generator/internal/types"
)

// Pool drives claimed jobs through fetch → compose → render. Each worker
// processes one job end to end; concurrency comes from running several
// workers, and the store's claim is the only serialization point between
// them.
type Pool struct {
	store    *store.Store
	fetcher  fetch.Fetcher
	renderer render.Renderer
	cfg      *config.Config
}

func NewPool(st *store.Store, fetcher fetch.Fetcher, renderer render.Renderer, cfg *config.Config) *Pool {
	return &Pool{store: st, fetcher: fetcher, renderer: renderer, cfg: cfg}
}

// Run starts the configured number of workers plus the stale-claim janitor
// and blocks until ctx is cancelled and all workers have drained.
func (p *Pool) Run(ctx context.Context) {
	log.Printf("[worker] starting %d worker(s)", p.cfg.Jobs.Workers)

	var wg sync.WaitGroup
	for i := 1; i <= p.cfg.Jobs.Workers; i++ {
		wg.Add(1)
		go p.runWorker(ctx, i, &wg)
	}
	wg.Add(1)
	go p.runJanitor(ctx, &wg)
	wg.Wait()

	log.Println("[worker] all workers stopped")
}

func (p *Pool) runWorker(ctx context.Context, id int, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(time.Duration(p.cfg.Jobs.PollIntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[worker] worker %d: shutting down", id)
			return
		case <-ticker.C:
			job, err := p.store.ClaimNext()
			if err != nil {
				log.Printf("[worker] worker %d: claim error: %v", id, err)
				continue
			}
			if job == nil {
				continue
			}
			log.Printf("[worker] worker %d: claimed job %s (%s)", id, job.ID, job.SourceRef)
			p.Process(ctx, job)
		}
	}
}

// runJanitor re-queues jobs whose claim went stale, e.g. after a crash
// mid-pipeline, so no job is ever stranded in a non-terminal status.
func (p *Pool) runJanitor(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	staleAfter := time.Duration(p.cfg.Jobs.StaleAfterSec) * time.Second
	ticker := time.NewTicker(staleAfter / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.store.ReclaimStale(time.Now().Add(-staleAfter))
			if err != nil {
				log.Printf("[worker] janitor: reclaim error: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[worker] janitor: re-queued %d stale job(s)", n)
			}
		}
	}
}

// Process runs the pipeline for one already-claimed job. The job is in
// fetching when this is called; every stage boundary is written through the
// store before the next stage begins. On shutdown it returns between stages
// and leaves the job for stale-claim reclamation.
func (p *Pool) Process(ctx context.Context, job *types.Job) {
	snapshot, err := p.fetchWithRetry(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.fail(job.ID, fmt.Sprintf("fetch %s: %v", job.SourceRef, err))
		return
	}

	if ctx.Err() != nil {
		return
	}
	if _, err := p.store.Advance(job.ID, types.StatusComposing, store.Update{Title: snapshot.Title}); err != nil {
		log.Printf("[worker] job %s: advance to composing: %v", job.ID, err)
		return
	}

	script, err := compose.Build(snapshot, job.MaxComments)
	if err != nil {
		p.fail(job.ID, fmt.Sprintf("compose: %v", err))
		return
	}

	if ctx.Err() != nil {
		return
	}
	if _, err := p.store.Advance(job.ID, types.StatusRendering, store.Update{}); err != nil {
		log.Printf("[worker] job %s: advance to rendering: %v", job.ID, err)
		return
	}

	renderCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Jobs.RenderTimeoutSec)*time.Second)
	ref, err := p.renderer.Render(renderCtx, job.ID, script)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.fail(job.ID, fmt.Sprintf("render: %v", err))
		return
	}

	if _, err := p.store.Advance(job.ID, types.StatusCompleted, store.Update{ArtifactRef: ref}); err != nil {
		log.Printf("[worker] job %s: advance to completed: %v", job.ID, err)
		return
	}
	log.Printf("[worker] job %s: completed (%s)", job.ID, ref)
}

// fetchWithRetry retries transient fetch failures with exponential backoff.
// NotFound and Unauthorized fail immediately with zero retries.
func (p *Pool) fetchWithRetry(ctx context.Context, job *types.Job) (*types.ThreadSnapshot, error) {
	attempts := p.cfg.Jobs.FetchAttempts
	delay := time.Duration(p.cfg.Jobs.FetchBackoffSec) * time.Second
	timeout := time.Duration(p.cfg.Jobs.FetchTimeoutSec) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		snapshot, err := p.fetcher.Fetch(fetchCtx, job.SourceRef)
		cancel()
		if err == nil {
			return snapshot, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// a stage timeout counts as a transient failure of that stage
		if !fetch.Retryable(err) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		log.Printf("[worker] job %s: fetch attempt %d/%d failed: %v, retrying in %s",
			job.ID, attempt, attempts, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
	}
	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func (p *Pool) fail(jobID, detail string) {
	log.Printf("[worker] job %s: failed: %s", jobID, detail)
	if _, err := p.store.Advance(jobID, types.StatusError, store.Update{ErrorDetail: detail}); err != nil {
		log.Printf("[worker] job %s: could not record failure: %v", jobID, err)
	}
}
