package stopdb

import (
	"context"
	"fmt"
	"strings"
)

func insertPrefix(pop Population) (string, error) {
	return pick(pop,
		"INSERT INTO feed_stops (id, name, lat, lon, mode, reference_code, served_lines) VALUES ",
		"INSERT INTO source_stops (id, name, lat, lon, mode, reference_code, served_lines) VALUES ",
	)
}

// bulkInsertStops writes stops with multi-row INSERT statements, one per
// batch. Rows whose id already exists are skipped so the first occurrence wins.
func (c *Client) bulkInsertStops(ctx context.Context, q DBTX, pop Population, stops []CreateStopParams) error {
	if len(stops) == 0 {
		return nil
	}

	prefix, err := insertPrefix(pop)
	if err != nil {
		return err
	}

	batchSize := c.config.GetBulkInsertBatchSize()
	for start := 0; start < len(stops); start += batchSize {
		end := min(start+batchSize, len(stops))
		batch := stops[start:end]

		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]interface{}, 0, len(batch)*7)
		for i, s := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, s.ID, s.Name, s.Lat, s.Lon, s.Mode, s.ReferenceCode, s.ServedLines)
		}
		sb.WriteString(" ON CONFLICT (id) DO NOTHING")

		if _, err := q.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("failed to insert stops %d-%d: %w", start, end, err)
		}
	}
	return nil
}
