package stopdb

import (
	"context"
	"fmt"
)

// Queries are constant per population so table names never come from input.

const (
	createFeedStop = `
INSERT INTO feed_stops (id, name, lat, lon, mode, reference_code, served_lines)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`
	createSourceStop = `
INSERT INTO source_stops (id, name, lat, lon, mode, reference_code, served_lines)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING
`
	listFeedStops = `
SELECT id, name, lat, lon, mode, reference_code, served_lines
FROM feed_stops
ORDER BY rowid
`
	listSourceStops = `
SELECT id, name, lat, lon, mode, reference_code, served_lines
FROM source_stops
ORDER BY rowid
`
	getFeedStop = `
SELECT id, name, lat, lon, mode, reference_code, served_lines
FROM feed_stops
WHERE id = ?
`
	getSourceStop = `
SELECT id, name, lat, lon, mode, reference_code, served_lines
FROM source_stops
WHERE id = ?
`
	countFeedStops   = `SELECT COUNT(*) FROM feed_stops`
	countSourceStops = `SELECT COUNT(*) FROM source_stops`
	clearFeedStops   = `DELETE FROM feed_stops`
	clearSourceStops = `DELETE FROM source_stops`
)

func pick(pop Population, feed, source string) (string, error) {
	switch pop {
	case PopulationFeed:
		return feed, nil
	case PopulationSource:
		return source, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPopulation, pop)
	}
}

// CreateStop inserts one stop. A stop whose id already exists is left untouched.
func (q *Queries) CreateStop(ctx context.Context, pop Population, arg CreateStopParams) error {
	query, err := pick(pop, createFeedStop, createSourceStop)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, query,
		arg.ID,
		arg.Name,
		arg.Lat,
		arg.Lon,
		arg.Mode,
		arg.ReferenceCode,
		arg.ServedLines,
	)
	return err
}

// ListStops returns a population in insertion order.
func (q *Queries) ListStops(ctx context.Context, pop Population) ([]Stop, error) {
	query, err := pick(pop, listFeedStops, listSourceStops)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Stop
	for rows.Next() {
		var i Stop
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Lat,
			&i.Lon,
			&i.Mode,
			&i.ReferenceCode,
			&i.ServedLines,
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

func (q *Queries) GetStop(ctx context.Context, pop Population, id string) (Stop, error) {
	query, err := pick(pop, getFeedStop, getSourceStop)
	if err != nil {
		return Stop{}, err
	}
	row := q.db.QueryRowContext(ctx, query, id)
	var i Stop
	err = row.Scan(
		&i.ID,
		&i.Name,
		&i.Lat,
		&i.Lon,
		&i.Mode,
		&i.ReferenceCode,
		&i.ServedLines,
	)
	return i, err
}

func (q *Queries) CountStops(ctx context.Context, pop Population) (int64, error) {
	query, err := pick(pop, countFeedStops, countSourceStops)
	if err != nil {
		return 0, err
	}
	var count int64
	err = q.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

func (q *Queries) ClearPopulation(ctx context.Context, pop Population) error {
	query, err := pick(pop, clearFeedStops, clearSourceStops)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, query)
	return err
}
