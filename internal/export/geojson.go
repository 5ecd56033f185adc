// Package export renders match results for review in GIS tools.
package export

import (
	"fmt"
	"io"
	"math"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/twpayne/go-polyline"
	"stopmatcher.onebusaway.org/internal/matching"
)

// FeatureCollection links every matched source stop to its feed stop with a
// LineString. Unmatched sources become Points. Sources are looked up among
// sources first and then among feed stops, which covers self-consistency
// runs where results are keyed by feed id.
func FeatureCollection(results []matching.MatchResult, sources, feed []matching.Stop) (*geojson.FeatureCollection, error) {
	sourceByID := indexByID(sources)
	feedByID := indexByID(feed)

	fc := geojson.NewFeatureCollection()
	for _, r := range results {
		src, ok := sourceByID[r.SourceID]
		if !ok {
			src, ok = feedByID[r.SourceID]
		}
		if !ok {
			return nil, fmt.Errorf("unknown source stop %q", r.SourceID)
		}

		var f *geojson.Feature
		if r.Matched() {
			dst, ok := feedByID[r.MatchedID]
			if !ok {
				return nil, fmt.Errorf("unknown feed stop %q", r.MatchedID)
			}
			f = geojson.NewLineStringFeature([][]float64{{src.Lon, src.Lat}, {dst.Lon, dst.Lat}})
			f.SetProperty("matched_id", r.MatchedID)
			f.SetProperty("matched_name", dst.Name)
			f.SetProperty("distance_m", math.Round(matching.Distance(src, dst)*10)/10)
			f.SetProperty("polyline", string(polyline.EncodeCoords([][]float64{{src.Lat, src.Lon}, {dst.Lat, dst.Lon}})))
		} else {
			f = geojson.NewPointFeature([]float64{src.Lon, src.Lat})
		}

		f.ID = r.SourceID
		f.SetProperty("source_id", r.SourceID)
		f.SetProperty("source_name", src.Name)
		if r.FeedConfidence != nil {
			f.SetProperty("feed_confidence", *r.FeedConfidence)
		}
		if r.CrossConfidence != nil {
			f.SetProperty("cross_confidence", *r.CrossConfidence)
		}
		fc.AddFeature(f)
	}
	return fc, nil
}

// Write encodes the collection as GeoJSON.
func Write(w io.Writer, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile builds the collection and writes it to path.
func WriteFile(path string, results []matching.MatchResult, sources, feed []matching.Stop) error {
	fc, err := FeatureCollection(results, sources, feed)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, fc); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func indexByID(stops []matching.Stop) map[string]matching.Stop {
	m := make(map[string]matching.Stop, len(stops))
	for _, s := range stops {
		m[s.ID] = s
	}
	return m
}
