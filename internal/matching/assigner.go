package matching

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"stopmatcher.onebusaway.org/internal/logging"
)

// Assigner picks, for each source stop independently, the feed candidate
// with the highest self rating plus pairwise rating.
//
// The assignment is greedy and local: two source stops may select the same
// candidate and earlier choices are never revisited.
type Assigner struct {
	index   Index[Candidate]
	scorer  *Scorer
	k       int
	workers int
	logger  *slog.Logger
	metrics *Metrics
}

// NewAssigner returns an Assigner over index. logger and metrics may be nil.
func NewAssigner(index Index[Candidate], scorer *Scorer, cfg Config, logger *slog.Logger, metrics *Metrics) *Assigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assigner{
		index:   index,
		scorer:  scorer,
		k:       cfg.CandidateK,
		workers: cfg.workers(),
		logger:  logger.With(slog.String("component", "match_assigner")),
		metrics: metrics,
	}
}

// Assign matches one source stop.
func (a *Assigner) Assign(source Stop) MatchResult {
	return SelectBest(a.scorer, source, a.index.Nearest(source.Lat, source.Lon, a.k))
}

// SelectBest returns the candidate maximizing SelfRating + cross rating.
// The first candidate wins ties and the winning sum must exceed 0.
func SelectBest(scorer *Scorer, source Stop, candidates []Candidate) MatchResult {
	var best *Candidate
	bestSelf, bestCross := 0.0, 0.0

	for i := range candidates {
		c := &candidates[i]
		cross := scorer.Rate(source, *c)
		if c.SelfRating+cross > bestSelf+bestCross {
			best = c
			bestSelf = c.SelfRating
			bestCross = cross
		}
	}

	if best == nil {
		return unmatched(source.ID)
	}
	return matched(source.ID, *best, bestCross)
}

// AssignAll matches every source stop using a worker pool. Results keep the
// order of sources. Cancellation is checked between source stops; on
// cancellation the context error is returned with no results.
func (a *Assigner) AssignAll(ctx context.Context, sources []Stop) ([]MatchResult, error) {
	startTime := time.Now()
	results := make([]MatchResult, len(sources))
	if len(sources) == 0 {
		return results, nil
	}

	logging.LogOperation(a.logger, "matching_started",
		slog.Int("sources", len(sources)),
		slog.Int("candidates", a.index.Len()),
		slog.Int("workers", a.workers))

	jobs := make(chan int, a.workers)
	progress := rate.Sometimes{Interval: 5 * time.Second}
	var done atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < a.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					// Drain remaining jobs so the feeder can finish
					continue
				}
				results[i] = a.Assign(sources[i])
				a.metrics.observe(results[i])

				processed := done.Add(1)
				progress.Do(func() {
					logging.LogOperation(a.logger, "matching_progress",
						slog.Int64("processed", processed),
						slog.Int("total", len(sources)))
				})
			}
		}()
	}

feed:
	for i := range sources {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matchedCount := 0
	for _, r := range results {
		if r.Matched() {
			matchedCount++
		}
	}
	logging.LogOperation(a.logger, "matching_completed",
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("sources", len(sources)),
		slog.Int("matched", matchedCount),
		slog.Int("unmatched", len(sources)-matchedCount))

	return results, nil
}

// SelfConsistency emits one result per feed candidate carrying only its self rating.
func SelfConsistency(candidates []Candidate, metrics *Metrics) []MatchResult {
	results := make([]MatchResult, len(candidates))
	for i, c := range candidates {
		self := c.SelfRating
		results[i] = MatchResult{SourceID: c.ID, FeedConfidence: &self}
		metrics.observe(results[i])
	}
	return results
}
