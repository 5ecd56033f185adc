package stopdb

import (
	"context"
)

const createMatchRun = `
INSERT INTO match_runs (id, started_at, self_consistency_only, candidate_k)
VALUES (?, ?, ?, ?)
RETURNING id, started_at, finished_at, self_consistency_only, candidate_k, matched_count, unmatched_count, self_rated_count
`

func (q *Queries) CreateMatchRun(ctx context.Context, arg CreateMatchRunParams) (MatchRun, error) {
	row := q.db.QueryRowContext(ctx, createMatchRun,
		arg.ID,
		arg.StartedAt,
		arg.SelfConsistencyOnly,
		arg.CandidateK,
	)
	var i MatchRun
	err := row.Scan(
		&i.ID,
		&i.StartedAt,
		&i.FinishedAt,
		&i.SelfConsistencyOnly,
		&i.CandidateK,
		&i.MatchedCount,
		&i.UnmatchedCount,
		&i.SelfRatedCount,
	)
	return i, err
}

const finishMatchRun = `
UPDATE match_runs
SET finished_at = ?, matched_count = ?, unmatched_count = ?, self_rated_count = ?
WHERE id = ?
`

func (q *Queries) FinishMatchRun(ctx context.Context, arg FinishMatchRunParams) error {
	_, err := q.db.ExecContext(ctx, finishMatchRun,
		arg.FinishedAt,
		arg.MatchedCount,
		arg.UnmatchedCount,
		arg.SelfRatedCount,
		arg.ID,
	)
	return err
}

const getMatchRun = `
SELECT id, started_at, finished_at, self_consistency_only, candidate_k, matched_count, unmatched_count, self_rated_count
FROM match_runs
WHERE id = ?
`

func (q *Queries) GetMatchRun(ctx context.Context, id string) (MatchRun, error) {
	row := q.db.QueryRowContext(ctx, getMatchRun, id)
	var i MatchRun
	err := row.Scan(
		&i.ID,
		&i.StartedAt,
		&i.FinishedAt,
		&i.SelfConsistencyOnly,
		&i.CandidateK,
		&i.MatchedCount,
		&i.UnmatchedCount,
		&i.SelfRatedCount,
	)
	return i, err
}

const latestFinishedMatchRun = `
SELECT id, started_at, finished_at, self_consistency_only, candidate_k, matched_count, unmatched_count, self_rated_count
FROM match_runs
WHERE finished_at IS NOT NULL
ORDER BY started_at DESC, rowid DESC
LIMIT 1
`

func (q *Queries) LatestFinishedMatchRun(ctx context.Context) (MatchRun, error) {
	row := q.db.QueryRowContext(ctx, latestFinishedMatchRun)
	var i MatchRun
	err := row.Scan(
		&i.ID,
		&i.StartedAt,
		&i.FinishedAt,
		&i.SelfConsistencyOnly,
		&i.CandidateK,
		&i.MatchedCount,
		&i.UnmatchedCount,
		&i.SelfRatedCount,
	)
	return i, err
}

const insertMatch = `
INSERT INTO matches (run_id, seq, source_id, matched_id, feed_confidence, cross_confidence)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertMatch(ctx context.Context, arg InsertMatchParams) error {
	_, err := q.db.ExecContext(ctx, insertMatch,
		arg.RunID,
		arg.Seq,
		arg.SourceID,
		arg.MatchedID,
		arg.FeedConfidence,
		arg.CrossConfidence,
	)
	return err
}

const listMatchResults = `
SELECT run_id, seq, source_id, matched_id, feed_confidence, cross_confidence
FROM matches
WHERE run_id = ?
ORDER BY seq
`

func (q *Queries) ListMatchResults(ctx context.Context, runID string) ([]Match, error) {
	rows, err := q.db.QueryContext(ctx, listMatchResults, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Match
	for rows.Next() {
		var i Match
		if err := rows.Scan(
			&i.RunID,
			&i.Seq,
			&i.SourceID,
			&i.MatchedID,
			&i.FeedConfidence,
			&i.CrossConfidence,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const findMatch = `
SELECT run_id, seq, source_id, matched_id, feed_confidence, cross_confidence
FROM matches
WHERE run_id = ? AND source_id = ?
ORDER BY seq
LIMIT 1
`

func (q *Queries) FindMatch(ctx context.Context, runID, sourceID string) (Match, error) {
	row := q.db.QueryRowContext(ctx, findMatch, runID, sourceID)
	var i Match
	err := row.Scan(
		&i.RunID,
		&i.Seq,
		&i.SourceID,
		&i.MatchedID,
		&i.FeedConfidence,
		&i.CrossConfidence,
	)
	return i, err
}
