package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"stopmatcher.onebusaway.org/internal/logging"
	"stopmatcher.onebusaway.org/internal/matching"
)

const maxFPTFLineSize = 4 << 20

type fptfLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type fptfLine struct {
	Name string `json:"name"`
}

type fptfStation struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Location *fptfLocation   `json:"location"`
	Products map[string]bool `json:"products"`
	Lines    []fptfLine      `json:"lines"`
}

// FPTFImporter reads newline-delimited FPTF stations, one JSON object per
// line. Stations without a location are skipped. The station id doubles as
// reference code.
type FPTFImporter struct{}

func (FPTFImporter) Import(ctx context.Context, r io.Reader) ([]matching.Stop, error) {
	logger := logging.FromContext(ctx).With(slog.String("component", "fptf_importer"))

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFPTFLineSize)

	var stops []matching.Stop
	lineNo, skipped := 0, 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var station fptfStation
		if err := json.Unmarshal(raw, &station); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if station.Location == nil || station.Location.Latitude == nil || station.Location.Longitude == nil {
			skipped++
			continue
		}

		labels := make([]string, len(station.Lines))
		for i, l := range station.Lines {
			labels[i] = l.Name
		}

		stops = append(stops, matching.Stop{
			ID:            station.ID,
			Name:          station.Name,
			Lat:           *station.Location.Latitude,
			Lon:           *station.Location.Longitude,
			Mode:          fptfMode(station.Products),
			ReferenceCode: station.ID,
			Lines:         normalizeLines(labels),
		})

		if len(stops)%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			logger.Info("fptf import progress", slog.Int("stops", len(stops)))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if skipped > 0 {
		logger.Debug("skipped stations without location", slog.Int("count", skipped))
	}
	return stops, nil
}
