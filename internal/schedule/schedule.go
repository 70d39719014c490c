package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MOYARU/driftwatch/internal/pipeline"
	"github.com/MOYARU/driftwatch/internal/report"
	"github.com/MOYARU/driftwatch/internal/store"
)

// TargetFailure is one failed target in a batch, with its reason already
// scrubbed for external consumption.
type TargetFailure struct {
	TargetID uint   `json:"target_id"`
	URL      string `json:"url"`
	Reason   string `json:"reason"`
}

// BatchResult summarizes one scheduler invocation. Claimed can be lower
// than Due when a concurrent scheduler wins some of the claims.
type BatchResult struct {
	RunID     string          `json:"run_id"`
	Due       int             `json:"due"`
	Claimed   int             `json:"claimed"`
	Succeeded int             `json:"succeeded"`
	Failures  []TargetFailure `json:"failures,omitempty"`
}

// Scheduler finds due recurring targets and runs the scan pipeline for
// each over a bounded worker pool.
type Scheduler struct {
	store    *store.Store
	pipeline *pipeline.Pipeline
	workers  int
	poll     time.Duration

	now func() time.Time
}

func New(s *store.Store, p *pipeline.Pipeline, workers, pollSeconds int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if pollSeconds < 1 {
		pollSeconds = 60
	}
	return &Scheduler{
		store:    s,
		pipeline: p,
		workers:  workers,
		poll:     time.Duration(pollSeconds) * time.Second,
		now:      time.Now,
	}
}

// RunDue claims and scans every target whose next run is due. Each claim
// advances the target's next run from the current instant, so a missed
// window never causes a catch-up burst, and a second invocation right after
// the first finds nothing due. Failures are recorded per target; one bad
// target never stops the rest of the batch.
func (s *Scheduler) RunDue(ctx context.Context) (*BatchResult, error) {
	result := &BatchResult{RunID: uuid.NewString()}
	now := s.now()

	due, err := s.store.Targets().Due(now, 0)
	if err != nil {
		return nil, err
	}
	result.Due = len(due)
	if len(due) == 0 {
		return result, nil
	}

	claimed := make([]*store.Target, 0, len(due))
	for _, t := range due {
		won, err := s.store.Targets().ClaimDue(t, now)
		if err != nil {
			result.Failures = append(result.Failures, failure(t, err))
			continue
		}
		if won {
			claimed = append(claimed, t)
		}
	}
	result.Claimed = len(claimed)
	if len(claimed) == 0 {
		return result, nil
	}

	workerCount := s.workers
	if workerCount > len(claimed) {
		workerCount = len(claimed)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	queue := make(chan *store.Target)

	worker := func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-queue:
				if !ok {
					return
				}
				_, err := s.pipeline.Run(ctx, t)
				mu.Lock()
				if err != nil {
					result.Failures = append(result.Failures, failure(t, err))
				} else {
					result.Succeeded++
				}
				mu.Unlock()
			}
		}
	}

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go worker()
	}
	for _, t := range claimed {
		select {
		case <-ctx.Done():
		case queue <- t:
		}
	}
	close(queue)
	wg.Wait()

	log.Info().
		Str("run", result.RunID).
		Int("due", result.Due).
		Int("claimed", result.Claimed).
		Int("succeeded", result.Succeeded).
		Int("failed", len(result.Failures)).
		Msg("scheduler batch finished")
	return result, nil
}

// Loop runs batches at the polling interval until the context ends.
func (s *Scheduler) Loop(ctx context.Context) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		if _, err := s.RunDue(ctx); err != nil {
			log.Error().Err(err).Msg("scheduler batch failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func failure(t *store.Target, err error) TargetFailure {
	return TargetFailure{
		TargetID: t.ID,
		URL:      report.ScrubURL(t.URL),
		Reason:   report.ScrubError(err),
	}
}
