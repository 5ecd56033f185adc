package matching

import (
	"strings"
)

// Mode is the coarse vehicle mode of a stop. The zero value means unknown.
type Mode string

const (
	ModeUnknown  Mode = ""
	ModeBus      Mode = "bus"
	ModeFerry    Mode = "ferry"
	ModeTrainish Mode = "trainish"
	ModeTram     Mode = "tram"
)

// ParseMode maps a stored mode label to a Mode. Anything outside the known set is unknown.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeBus:
		return ModeBus
	case ModeFerry:
		return ModeFerry
	case ModeTrainish, "train":
		return ModeTrainish
	case ModeTram:
		return ModeTram
	default:
		return ModeUnknown
	}
}

// Known reports whether the mode carries information.
func (m Mode) Known() bool {
	return m != ModeUnknown
}

// Stop is a point-like transit location from either catalog.
// Empty Name and ReferenceCode mean absent; so does an empty Lines slice.
type Stop struct {
	ID            string
	Name          string
	Lat           float64
	Lon           float64
	Mode          Mode
	ReferenceCode string
	Lines         []string
}

// Candidate is a feed stop annotated with its self-consistency rating.
type Candidate struct {
	Stop
	SelfRating float64
}

// MatchResult is the outcome of matching one source stop.
// MatchedID is empty and both confidences are nil when nothing qualified.
type MatchResult struct {
	SourceID        string
	MatchedID       string
	FeedConfidence  *float64
	CrossConfidence *float64
}

// Matched reports whether the result references a feed stop.
func (r MatchResult) Matched() bool {
	return r.MatchedID != ""
}

func unmatched(sourceID string) MatchResult {
	return MatchResult{SourceID: sourceID}
}

func matched(sourceID string, c Candidate, cross float64) MatchResult {
	self := c.SelfRating
	return MatchResult{
		SourceID:        sourceID,
		MatchedID:       c.ID,
		FeedConfidence:  &self,
		CrossConfidence: &cross,
	}
}

// ParentStation coarsens a reference code to the station complex it belongs to.
//
// Hierarchical codes such as "de:08111:6015:0:3" keep their first three
// components ("de:08111:6015"), a trailing "_G" group marker is dropped, and
// codes without hierarchy are their own parent.
func ParentStation(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	parts := strings.Split(code, ":")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	parent := strings.Join(parts, ":")
	return strings.TrimSuffix(parent, "_G")
}
