package stopdb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"stopmatcher.onebusaway.org/internal/logging"
	"stopmatcher.onebusaway.org/internal/matching"
)

// ReplaceStops swaps the contents of a population for stops in one transaction.
func (c *Client) ReplaceStops(ctx context.Context, pop Population, stops []matching.Stop) error {
	params := make([]CreateStopParams, len(stops))
	for i, s := range stops {
		params[i] = StopParams(s)
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "replace_stops")

	if err := c.Queries.WithTx(tx).ClearPopulation(ctx, pop); err != nil {
		return fmt.Errorf("failed to clear %s stops: %w", pop, err)
	}
	if err := c.bulkInsertStops(ctx, tx, pop, params); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stops: %w", err)
	}

	logging.LogOperation(c.logger, "stops_replaced",
		slog.String("population", string(pop)),
		slog.Int("count", len(stops)))
	return nil
}

// LoadStops reads a population back as engine stops, in insertion order.
func (c *Client) LoadStops(ctx context.Context, pop Population) ([]matching.Stop, error) {
	rows, err := c.Queries.ListStops(ctx, pop)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s stops: %w", pop, err)
	}
	stops := make([]matching.Stop, len(rows))
	for i, row := range rows {
		stops[i] = row.ToMatching()
	}
	return stops, nil
}

// SaveMatchRun stores results under a fresh run id and returns it.
func (c *Client) SaveMatchRun(ctx context.Context, cfg matching.Config, startedAt time.Time, results []matching.MatchResult) (string, error) {
	runID := uuid.NewString()

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "save_match_run")

	q := c.Queries.WithTx(tx)

	var selfOnly int64
	if cfg.SelfConsistencyOnly {
		selfOnly = 1
	}
	if _, err := q.CreateMatchRun(ctx, CreateMatchRunParams{
		ID:                  runID,
		StartedAt:           startedAt.Unix(),
		SelfConsistencyOnly: selfOnly,
		CandidateK:          int64(cfg.CandidateK),
	}); err != nil {
		return "", fmt.Errorf("failed to create match run: %w", err)
	}

	// Self-consistency records never carry a match; count them apart from
	// unmatched sources.
	var matched, unmatched, selfRated int64
	for i, r := range results {
		if err := q.InsertMatch(ctx, matchParams(runID, i, r)); err != nil {
			return "", fmt.Errorf("failed to insert match for %s: %w", r.SourceID, err)
		}
		switch {
		case cfg.SelfConsistencyOnly:
			selfRated++
		case r.Matched():
			matched++
		default:
			unmatched++
		}
	}

	if err := q.FinishMatchRun(ctx, FinishMatchRunParams{
		ID:             runID,
		FinishedAt:     time.Now().Unix(),
		MatchedCount:   matched,
		UnmatchedCount: unmatched,
		SelfRatedCount: selfRated,
	}); err != nil {
		return "", fmt.Errorf("failed to finish match run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit match run: %w", err)
	}

	logging.LogOperation(c.logger, "match_run_saved",
		slog.String("run_id", runID),
		slog.Int("results", len(results)),
		slog.Int64("matched", matched),
		slog.Int64("self_rated", selfRated))
	return runID, nil
}

// LoadMatchResults returns the results of a run in their original order.
func (c *Client) LoadMatchResults(ctx context.Context, runID string) ([]matching.MatchResult, error) {
	rows, err := c.Queries.ListMatchResults(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for run %s: %w", runID, err)
	}
	results := make([]matching.MatchResult, len(rows))
	for i, row := range rows {
		results[i] = row.ToMatching()
	}
	return results, nil
}

// LatestRunID returns the most recent finished run, or sql.ErrNoRows.
func (c *Client) LatestRunID(ctx context.Context) (string, error) {
	run, err := c.Queries.LatestFinishedMatchRun(ctx)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}
