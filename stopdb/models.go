package stopdb

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrUnknownPopulation is returned for a population other than feed or source.
var ErrUnknownPopulation = errors.New("unknown stop population")

// Population names one of the two stop catalogs held in the database.
type Population string

const (
	PopulationFeed   Population = "feed"
	PopulationSource Population = "source"
)

func ParsePopulation(s string) (Population, error) {
	switch Population(s) {
	case PopulationFeed, PopulationSource:
		return Population(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPopulation, s)
	}
}

// Stop is a row of feed_stops or source_stops.
type Stop struct {
	ID            string
	Name          sql.NullString
	Lat           float64
	Lon           float64
	Mode          sql.NullString
	ReferenceCode sql.NullString
	ServedLines   sql.NullString
}

type CreateStopParams struct {
	ID            string
	Name          sql.NullString
	Lat           float64
	Lon           float64
	Mode          sql.NullString
	ReferenceCode sql.NullString
	ServedLines   sql.NullString
}

// MatchRun records one execution of the matcher.
type MatchRun struct {
	ID                  string
	StartedAt           int64
	FinishedAt          sql.NullInt64
	SelfConsistencyOnly int64
	CandidateK          int64
	MatchedCount        sql.NullInt64
	UnmatchedCount      sql.NullInt64
	SelfRatedCount      sql.NullInt64
}

type CreateMatchRunParams struct {
	ID                  string
	StartedAt           int64
	SelfConsistencyOnly int64
	CandidateK          int64
}

type FinishMatchRunParams struct {
	ID             string
	FinishedAt     int64
	MatchedCount   int64
	UnmatchedCount int64
	SelfRatedCount int64
}

// Match is one stored MatchResult, ordered by Seq within its run.
type Match struct {
	RunID           string
	Seq             int64
	SourceID        string
	MatchedID       sql.NullString
	FeedConfidence  sql.NullFloat64
	CrossConfidence sql.NullFloat64
}

type InsertMatchParams struct {
	RunID           string
	Seq             int64
	SourceID        string
	MatchedID       sql.NullString
	FeedConfidence  sql.NullFloat64
	CrossConfidence sql.NullFloat64
}
