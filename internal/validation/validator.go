package validation

import (
	"fmt"
	"log/slog"

	"stopmatcher.onebusaway.org/internal/matching"
)

// Discrepancy is an expectation the run did not meet.
type Discrepancy struct {
	Expectation Expectation
	Message     string
}

func (d Discrepancy) String() string {
	if d.Expectation.Note == "" {
		return d.Message
	}
	return fmt.Sprintf("%s (%s)", d.Message, d.Expectation.Note)
}

// Validator compares match results against expectations. Failed expectations
// are logged as warnings; they never fail a run.
type Validator struct {
	expectations []Expectation
	feed         map[string]matching.Stop
	logger       *slog.Logger
}

// NewValidator creates a Validator. Feed stops are only used to locate
// expected feed stops in warnings and may be nil.
func NewValidator(expectations []Expectation, feed []matching.Stop, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	byID := make(map[string]matching.Stop, len(feed))
	for _, s := range feed {
		byID[s.ID] = s
	}
	return &Validator{
		expectations: expectations,
		feed:         byID,
		logger:       logger.With(slog.String("component", "match_validator")),
	}
}

// Check evaluates every expectation and returns those that failed, in file order.
func (v *Validator) Check(results []matching.MatchResult, sources []matching.Stop) []Discrepancy {
	pairs := make(map[[2]string]struct{}, len(results))
	for _, r := range results {
		if r.Matched() {
			pairs[[2]string{r.SourceID, r.MatchedID}] = struct{}{}
		}
	}
	sourceByID := make(map[string]matching.Stop, len(sources))
	for _, s := range sources {
		sourceByID[s.ID] = s
	}

	var discrepancies []Discrepancy
	report := func(e Expectation, format string, args ...any) {
		d := Discrepancy{Expectation: e, Message: fmt.Sprintf(format, args...)}
		discrepancies = append(discrepancies, d)

		attrs := []any{slog.String("source_id", e.SourceID)}
		if e.MatchedID != "" {
			attrs = append(attrs, slog.String("matched_id", e.MatchedID))
			if stop, ok := v.feed[e.MatchedID]; ok {
				attrs = append(attrs, slog.Float64("lat", stop.Lat), slog.Float64("lon", stop.Lon))
			}
		}
		if e.Note != "" {
			attrs = append(attrs, slog.String("note", e.Note))
		}
		v.logger.Warn(d.Message, attrs...)
	}

	for _, e := range v.expectations {
		switch e.Expect {
		case KindMatched:
			if _, ok := pairs[[2]string{e.SourceID, e.MatchedID}]; !ok {
				report(e, "expected match is missing: %s->%s", e.SourceID, e.MatchedID)
			}
		case KindNotMatched:
			if _, ok := pairs[[2]string{e.SourceID, e.MatchedID}]; ok {
				report(e, "got unexpected match: %s->%s", e.SourceID, e.MatchedID)
			}
		case KindAbsent:
			if _, ok := sourceByID[e.SourceID]; ok {
				report(e, "got unexpected source stop: %s", e.SourceID)
			}
		case KindName:
			stop, ok := sourceByID[e.SourceID]
			switch {
			case !ok:
				report(e, "no source stop: %s", e.SourceID)
			case stop.Name != e.Name:
				report(e, "source stop %s had unexpected name %q", e.SourceID, stop.Name)
			}
		}
	}

	v.logger.Info("match validation finished",
		slog.Int("expectations", len(v.expectations)),
		slog.Int("discrepancies", len(discrepancies)))
	return discrepancies
}
