package stopdb

import (
	"database/sql"
	"strings"

	"stopmatcher.onebusaway.org/internal/matching"
)

const lineSeparator = ";"

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// StopParams converts an engine stop into insert parameters.
func StopParams(s matching.Stop) CreateStopParams {
	var mode sql.NullString
	if s.Mode.Known() {
		mode = nullString(string(s.Mode))
	}
	return CreateStopParams{
		ID:            s.ID,
		Name:          nullString(s.Name),
		Lat:           s.Lat,
		Lon:           s.Lon,
		Mode:          mode,
		ReferenceCode: nullString(s.ReferenceCode),
		ServedLines:   nullString(strings.Join(s.Lines, lineSeparator)),
	}
}

// ToMatching converts a stored row back into an engine stop.
func (s Stop) ToMatching() matching.Stop {
	var lines []string
	if s.ServedLines.Valid && s.ServedLines.String != "" {
		lines = strings.Split(s.ServedLines.String, lineSeparator)
	}
	return matching.Stop{
		ID:            s.ID,
		Name:          s.Name.String,
		Lat:           s.Lat,
		Lon:           s.Lon,
		Mode:          matching.ParseMode(s.Mode.String),
		ReferenceCode: s.ReferenceCode.String,
		Lines:         lines,
	}
}

func matchParams(runID string, seq int, r matching.MatchResult) InsertMatchParams {
	return InsertMatchParams{
		RunID:           runID,
		Seq:             int64(seq),
		SourceID:        r.SourceID,
		MatchedID:       nullString(r.MatchedID),
		FeedConfidence:  nullFloat(r.FeedConfidence),
		CrossConfidence: nullFloat(r.CrossConfidence),
	}
}

// ToMatching converts a stored row back into a MatchResult.
func (m Match) ToMatching() matching.MatchResult {
	return matching.MatchResult{
		SourceID:        m.SourceID,
		MatchedID:       m.MatchedID.String,
		FeedConfidence:  floatPtr(m.FeedConfidence),
		CrossConfidence: floatPtr(m.CrossConfidence),
	}
}
