package matching

import (
	"context"
	"log/slog"
	"time"

	"stopmatcher.onebusaway.org/internal/logging"
)

// Engine ranks the feed population once, indexes it once, and then matches
// source stops against it. It is read-only after construction.
type Engine struct {
	config     Config
	candidates []Candidate
	index      *RTreeIndex[Candidate]
	assigner   *Assigner
	metrics    *Metrics
	logger     *slog.Logger
}

// NewEngine prepares an engine for the given feed population.
func NewEngine(feed []Stop, cfg Config, logger *slog.Logger, metrics *Metrics) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	engineLogger := logger.With(slog.String("component", "matching_engine"))

	startTime := time.Now()
	ranker, err := NewRanker(cfg.InternalParams(), cfg.CandidateK)
	if err != nil {
		return nil, err
	}
	candidates := ranker.Rank(feed)

	entries := make([]IndexEntry[Candidate], len(candidates))
	for i, c := range candidates {
		entries[i] = IndexEntry[Candidate]{Lat: c.Lat, Lon: c.Lon, Value: c}
	}
	index := BuildIndex(entries)
	metrics.setCandidates(index.Len())

	scorer, err := NewScorer(cfg.CrossParams())
	if err != nil {
		return nil, err
	}

	logging.LogOperation(engineLogger, "feed_candidates_ranked",
		slog.Int("candidates", len(candidates)),
		slog.Duration("duration", time.Since(startTime)))

	return &Engine{
		config:     cfg,
		candidates: candidates,
		index:      index,
		assigner:   NewAssigner(index, scorer, cfg, logger, metrics),
		metrics:    metrics,
		logger:     engineLogger,
	}, nil
}

// Candidates returns a copy of the ranked feed population.
func (e *Engine) Candidates() []Candidate {
	return append([]Candidate(nil), e.candidates...)
}

// Assigner exposes the per-stop assigner, e.g. to explain a single decision.
func (e *Engine) Assigner() *Assigner {
	return e.assigner
}

// Run produces one MatchResult per source stop, or one per feed stop when
// the engine is configured for self-consistency only.
func (e *Engine) Run(ctx context.Context, sources []Stop) ([]MatchResult, error) {
	if e.config.SelfConsistencyOnly {
		logging.LogOperation(e.logger, "self_consistency_only_run",
			slog.Int("candidates", len(e.candidates)))
		return SelfConsistency(e.candidates, e.metrics), nil
	}
	return e.assigner.AssignAll(ctx, sources)
}

// Explain returns the nearest candidates for source with their score breakdowns, in index order.
func (a *Assigner) Explain(source Stop) []CandidateExplanation {
	candidates := a.index.Nearest(source.Lat, source.Lon, a.k)
	out := make([]CandidateExplanation, len(candidates))
	for i, c := range candidates {
		b := a.scorer.Explain(source, c)
		out[i] = CandidateExplanation{Candidate: c, Breakdown: b, Combined: c.SelfRating + b.Rating}
	}
	return out
}

// CandidateExplanation pairs a candidate with the breakdown of its rating.
type CandidateExplanation struct {
	Candidate Candidate
	Breakdown Breakdown
	Combined  float64
}
