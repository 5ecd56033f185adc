package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"stopmatcher.onebusaway.org/internal/logging"
	"stopmatcher.onebusaway.org/internal/matching"
)

// GeoJSONImporter reads OSM stops exported as a GeoJSON FeatureCollection,
// as produced by overpass turbo or osmtogeojson. Tags are read either from
// the flat properties or from a nested "tags" object.
type GeoJSONImporter struct{}

func (GeoJSONImporter) Import(ctx context.Context, r io.Reader) ([]matching.Stop, error) {
	logger := logging.FromContext(ctx).With(slog.String("component", "geojson_importer"))

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	stops := make([]matching.Stop, 0, len(fc.Features))
	for i, feature := range fc.Features {
		lat, lon, ok := featureCentre(feature.Geometry)
		if !ok {
			logger.Debug("skipping feature without coordinates", slog.Int("index", i))
			continue
		}

		tags := featureTags(feature.Properties)
		id := featureID(feature, tags)
		if id == "" {
			logger.Debug("skipping feature without id", slog.Int("index", i))
			continue
		}

		ref := tags["ref:IFOPT"]
		if ref == "" {
			ref = tags["ref:IBNR"]
		}

		var labels []string
		if routeRef := tags["route_ref"]; routeRef != "" {
			labels = strings.Split(routeRef, ";")
		}

		stops = append(stops, matching.Stop{
			ID:            id,
			Name:          tags["name"],
			Lat:           lat,
			Lon:           lon,
			Mode:          osmMode(tags),
			ReferenceCode: ref,
			Lines:         normalizeLines(labels),
		})
	}
	return stops, nil
}

func featureTags(props map[string]interface{}) map[string]string {
	tags := make(map[string]string, len(props))
	collect := func(m map[string]interface{}) {
		for k, v := range m {
			if s, ok := v.(string); ok {
				tags[k] = s
			}
		}
	}
	collect(props)
	if nested, ok := props["tags"].(map[string]interface{}); ok {
		collect(nested)
	}
	return tags
}

func featureID(feature *geojson.Feature, tags map[string]string) string {
	switch id := feature.ID.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return fmt.Sprintf("%.0f", id)
	}
	if id := tags["@id"]; id != "" {
		return id
	}
	return tags["id"]
}

// featureCentre returns a point geometry as is and the bounding box centre
// of anything else.
func featureCentre(g *geojson.Geometry) (lat, lon float64, ok bool) {
	if g == nil {
		return 0, 0, false
	}
	if g.IsPoint() {
		if len(g.Point) < 2 {
			return 0, 0, false
		}
		return g.Point[1], g.Point[0], true
	}

	var coords [][]float64
	switch {
	case g.IsMultiPoint():
		coords = g.MultiPoint
	case g.IsLineString():
		coords = g.LineString
	case g.IsMultiLineString():
		for _, line := range g.MultiLineString {
			coords = append(coords, line...)
		}
	case g.IsPolygon():
		for _, ring := range g.Polygon {
			coords = append(coords, ring...)
		}
	case g.IsMultiPolygon():
		for _, poly := range g.MultiPolygon {
			for _, ring := range poly {
				coords = append(coords, ring...)
			}
		}
	}

	first := true
	var minLat, minLon, maxLat, maxLon float64
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		if first {
			minLon, maxLon, minLat, maxLat = c[0], c[0], c[1], c[1]
			first = false
			continue
		}
		minLon, maxLon = min(minLon, c[0]), max(maxLon, c[0])
		minLat, maxLat = min(minLat, c[1]), max(maxLat, c[1])
	}
	if first {
		return 0, 0, false
	}
	return (minLat + maxLat) / 2, (minLon + maxLon) / 2, true
}
