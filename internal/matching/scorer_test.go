package matching

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crossScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultScoringParams())
	require.NoError(t, err)
	return s
}

// offsetNorth returns a point roughly meters north of lat/lon.
func offsetNorth(lat, lon, meters float64) (float64, float64) {
	return lat + meters/111_195.0, lon
}

func TestRateSameLocationSameName(t *testing.T) {
	s := crossScorer(t)
	source := Stop{ID: "osm-1", Name: "Central", Mode: ModeBus, Lat: 48.0, Lon: 9.0}
	candidate := Candidate{Stop: Stop{ID: "X", Name: "Central", Mode: ModeBus, Lat: 48.0, Lon: 9.0, ReferenceCode: "X"}}

	b := s.Explain(source, candidate)

	assert.False(t, b.Identity)
	assert.Equal(t, NoOverride, b.Override)
	assert.Equal(t, 0.0, b.DistanceMeters)
	assert.Equal(t, 1.0, b.NameSimilarity)
	assert.Equal(t, 1.0, b.ModeCompatibility)
	assert.Equal(t, 0.0, b.LineOverlap)
	assert.InDelta(t, math.Pow(0.95, 0.8), b.Rating, 1e-12)
	assert.Greater(t, b.Rating, 0.95)
}

func TestRateIdentityShortCircuit(t *testing.T) {
	s := crossScorer(t)
	source := Stop{ID: "osm-1", Name: "Somewhere", Mode: ModeBus, Lat: 48.0, Lon: 9.0, ReferenceCode: "de:08111:6015:0:3"}
	candidate := Candidate{Stop: Stop{ID: "f-1", Name: "Elsewhere", Mode: ModeFerry, Lat: 49.0, Lon: 10.0, ReferenceCode: "de:08111:6015:0:3"}}

	b := s.Explain(source, candidate)

	assert.True(t, b.Identity)
	assert.Equal(t, 1.0, b.Rating)
}

func TestRateEmptyReferenceCodesAreNotIdentical(t *testing.T) {
	s := crossScorer(t)
	source := Stop{ID: "a", Name: "Nord", Lat: 48.0, Lon: 9.0}
	candidate := Candidate{Stop: Stop{ID: "b", Name: "Süd", Lat: 48.0, Lon: 9.0}}

	b := s.Explain(source, candidate)

	assert.False(t, b.Identity)
	assert.Less(t, b.Rating, 1.0)
}

func TestRateStaysWithinUnitInterval(t *testing.T) {
	s := crossScorer(t)
	names := []string{"", "Hauptbahnhof", "Hbf", "Marktplatz", "Rathaus Süd"}
	modes := []Mode{ModeUnknown, ModeBus, ModeTram, ModeTrainish}
	lines := [][]string{nil, {"s1"}, {"s1", "s2"}, {"42"}}
	distances := []float64{0, 3, 40, 250, 5000}
	codes := []string{"", "de:08111:6015:0:1", "de:08111:7000:0:1"}

	for i, name := range names {
		for _, mode := range modes {
			for j, l := range lines {
				for _, d := range distances {
					for _, code := range codes {
						lat, lon := offsetNorth(48.0, 9.0, d)
						o := Stop{ID: "o", Name: name, Mode: mode, Lat: 48.0, Lon: 9.0, Lines: l, ReferenceCode: code}
						f := Candidate{Stop: Stop{
							ID: "f", Name: names[(i+1)%len(names)], Mode: modes[j%len(modes)],
							Lat: lat, Lon: lon, Lines: lines[(j+1)%len(lines)], ReferenceCode: codes[1],
						}}
						r := s.Rate(o, f)
						assert.GreaterOrEqual(t, r, 0.0)
						assert.LessOrEqual(t, r, 1.0)
					}
				}
			}
		}
	}
}

func TestRateStrictlyDecreasesWithDistance(t *testing.T) {
	s := crossScorer(t)
	source := Stop{ID: "o", Name: "Marktplatz", Mode: ModeTram, Lat: 48.0, Lon: 9.0, Lines: []string{"1", "2"}}

	previous := 2.0
	for _, d := range []float64{0, 1, 10, 50, 100, 500, 2000, 10000} {
		lat, lon := offsetNorth(48.0, 9.0, d)
		candidate := Candidate{Stop: Stop{ID: "f", Name: "Marktplatz Nord", Mode: ModeTram, Lat: lat, Lon: lon, Lines: []string{"1"}}}
		r := s.Rate(source, candidate)
		assert.Less(t, r, previous, "rating at %vm should be lower than closer candidates", d)
		previous = r
	}
}

func TestRateModeMismatchLowersRating(t *testing.T) {
	s := crossScorer(t)
	lat, lon := offsetNorth(48.0, 9.0, 30)
	source := Stop{ID: "o", Name: "Rathaus", Mode: ModeBus, Lat: 48.0, Lon: 9.0}
	same := Candidate{Stop: Stop{ID: "f", Name: "Rathaus", Mode: ModeBus, Lat: lat, Lon: lon}}
	unknown := Candidate{Stop: Stop{ID: "f", Name: "Rathaus", Lat: lat, Lon: lon}}
	other := Candidate{Stop: Stop{ID: "f", Name: "Rathaus", Mode: ModeTram, Lat: lat, Lon: lon}}

	rSame := s.Rate(source, same)
	rUnknown := s.Rate(source, unknown)
	rOther := s.Rate(source, other)

	assert.Less(t, rOther, rSame)
	assert.Less(t, rOther, rUnknown)
	assert.Less(t, rUnknown, rSame)
	assert.Equal(t, 0.7, s.Explain(source, unknown).ModeCompatibility)
	assert.Equal(t, 0.7, s.Explain(Stop{Name: "Rathaus"}, unknown).ModeCompatibility)
	assert.Equal(t, 0.0, s.Explain(source, other).ModeCompatibility)
}

func TestRateMissingNameUsesFixedSubstitute(t *testing.T) {
	s := crossScorer(t)
	lat, lon := offsetNorth(48.0, 9.0, 20)

	pairs := []struct {
		source    Stop
		candidate Candidate
	}{
		{Stop{ID: "o1", Mode: ModeBus, Lat: 48.0, Lon: 9.0}, Candidate{Stop: Stop{ID: "f1", Name: "Rathaus", Mode: ModeBus, Lat: lat, Lon: lon}}},
		{Stop{ID: "o2", Name: "Schule", Mode: ModeBus, Lat: 48.0, Lon: 9.0}, Candidate{Stop: Stop{ID: "f2", Mode: ModeBus, Lat: lat, Lon: lon}}},
		{Stop{ID: "o3", Mode: ModeBus, Lat: 48.0, Lon: 9.0}, Candidate{Stop: Stop{ID: "f3", Mode: ModeBus, Lat: lat, Lon: lon}}},
	}

	first := s.Explain(pairs[0].source, pairs[0].candidate)
	assert.Equal(t, DefaultMissingNameScore, first.NameSimilarity)
	assert.Greater(t, first.Rating, 0.0)
	for _, p := range pairs[1:] {
		assert.Equal(t, first.Rating, s.Rate(p.source, p.candidate))
	}

	// Disjoint names are real evidence against a match and score lower.
	disjoint := s.Rate(
		Stop{ID: "o", Name: "xyz", Mode: ModeBus, Lat: 48.0, Lon: 9.0},
		Candidate{Stop: Stop{ID: "f", Name: "abc", Mode: ModeBus, Lat: lat, Lon: lon}},
	)
	assert.Equal(t, 0.0, disjoint)
}

func TestRateLineOverlapRaisesRating(t *testing.T) {
	s := crossScorer(t)
	lat, lon := offsetNorth(48.0, 9.0, 60)
	source := Stop{ID: "o", Name: "Berliner Platz", Mode: ModeTram, Lat: 48.0, Lon: 9.0, Lines: []string{"u4", "u14"}}
	noLines := Candidate{Stop: Stop{ID: "f", Name: "Berliner Platz", Mode: ModeTram, Lat: lat, Lon: lon}}
	someLines := Candidate{Stop: Stop{ID: "f", Name: "Berliner Platz", Mode: ModeTram, Lat: lat, Lon: lon, Lines: []string{"u4"}}}
	allLines := Candidate{Stop: Stop{ID: "f", Name: "Berliner Platz", Mode: ModeTram, Lat: lat, Lon: lon, Lines: []string{"u14", "u4"}}}

	assert.Less(t, s.Rate(source, noLines), s.Rate(source, someLines))
	assert.Less(t, s.Rate(source, someLines), s.Rate(source, allLines))
}

func TestRateParentStationOverride(t *testing.T) {
	s := crossScorer(t)
	lat, lon := offsetNorth(48.0, 9.0, 400)

	tests := []struct {
		name     string
		source   Stop
		expected float64
		override ParentOverride
	}{
		{
			name:     "same parent, train",
			source:   Stop{ID: "o", Name: "Feuerbach", Mode: ModeTrainish, Lat: 48.0, Lon: 9.0, ReferenceCode: "de:08111:6157:4:2"},
			expected: 1,
			override: SameStation,
		},
		{
			name:     "different parent",
			source:   Stop{ID: "o", Name: "Stadtbahn Feuerbach", Mode: ModeTrainish, Lat: 48.0, Lon: 9.0, ReferenceCode: "de:08111:6001:1:1"},
			expected: 0,
			override: DifferentStation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := Candidate{Stop: Stop{ID: "f", Name: "Stuttgart-Feuerbach Bf", Mode: ModeBus, Lat: lat, Lon: lon, ReferenceCode: "de:08111:6157:1:1"}}
			b := s.Explain(tt.source, candidate)
			assert.Equal(t, tt.expected, b.Rating)
			assert.Equal(t, tt.override, b.Override)
		})
	}
}

func TestRateSameParentBusUsesFormula(t *testing.T) {
	s := crossScorer(t)
	lat, lon := offsetNorth(48.0, 9.0, 40)
	source := Stop{ID: "o", Name: "Pestalozzischule", Mode: ModeBus, Lat: 48.0, Lon: 9.0, ReferenceCode: "de:08111:6015:0:3"}
	candidate := Candidate{Stop: Stop{ID: "f", Name: "Pestalozzischule", Mode: ModeBus, Lat: lat, Lon: lon, ReferenceCode: "de:08111:6015:0:4"}}

	b := s.Explain(source, candidate)

	assert.Equal(t, NoOverride, b.Override)
	assert.Greater(t, b.Rating, 0.0)
	assert.Less(t, b.Rating, 1.0)
}

func TestRateMissingSourceCodeSkipsParentRule(t *testing.T) {
	s := crossScorer(t)
	source := Stop{ID: "o", Name: "Albblick", Mode: ModeBus, Lat: 48.0, Lon: 9.0}
	candidate := Candidate{Stop: Stop{ID: "f", Name: "Albblick", Mode: ModeBus, Lat: 48.0, Lon: 9.0, ReferenceCode: "de:08111:6015:0:3"}}

	b := s.Explain(source, candidate)

	assert.Equal(t, NoOverride, b.Override)
	assert.Greater(t, b.Rating, 0.9)
}

func TestRateIsDeterministic(t *testing.T) {
	s := crossScorer(t)
	source := Stop{ID: "o", Name: "Ostkreuz", Mode: ModeTrainish, Lat: 52.503, Lon: 13.469, Lines: []string{"s3", "s5", "s7"}}
	candidate := Candidate{Stop: Stop{ID: "8011162", Name: "Berlin Ostkreuz", Mode: ModeTrainish, Lat: 52.5029, Lon: 13.4693, Lines: []string{"s5", "s7", "s75"}}, SelfRating: 0.8}

	first := s.Explain(source, candidate)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Explain(source, candidate))
	}
}

func TestRateIgnoresSelfRating(t *testing.T) {
	s := crossScorer(t)
	source := Stop{ID: "o", Name: "Hbf", Lat: 48.0, Lon: 9.0}
	low := Candidate{Stop: Stop{ID: "f", Name: "Hbf", Lat: 48.0, Lon: 9.0}, SelfRating: 0.1}
	high := Candidate{Stop: Stop{ID: "f", Name: "Hbf", Lat: 48.0, Lon: 9.0}, SelfRating: 0.9}

	assert.Equal(t, s.Rate(source, low), s.Rate(source, high))
}

func TestNewScorerRejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *ScoringParams)
	}{
		{"zero decay", func(p *ScoringParams) { p.DecayScale = 0 }},
		{"ngram size", func(p *ScoringParams) { p.NgramSize = 0 }},
		{"platform rating above one", func(p *ScoringParams) { p.PlatformRating = 1.5 }},
		{"negative missing name score", func(p *ScoringParams) { p.MissingNameScore = -0.1 }},
		{"weights too large", func(p *ScoringParams) { p.SuccessorWeight = 0.6 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultScoringParams()
			tt.mutate(&p)
			s, err := NewScorer(p)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, s)
		})
	}
}

func TestLineOverlap(t *testing.T) {
	assert.Equal(t, 0.0, LineOverlap(nil, []string{"1"}))
	assert.Equal(t, 0.0, LineOverlap([]string{"1"}, nil))
	assert.Equal(t, 1.0, LineOverlap([]string{"1", "2"}, []string{"2", "1"}))
	assert.InDelta(t, 1.0/3.0, LineOverlap([]string{"1", "2"}, []string{"2", "3"}), 1e-12)
	assert.Equal(t, 0.5, LineOverlap([]string{"1", "1", "2"}, []string{"1"}))
}

func TestNgramSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		n        int
		expected float64
	}{
		{"identical", "Hauptbahnhof", "Hauptbahnhof", 2, 1},
		{"unigram", "abc", "abd", 1, 0.5},
		{"bigram with padding", "abc", "abd", 2, 1.0 / 3.0},
		{"disjoint", "abc", "xyz", 2, 0},
		{"one empty", "", "ab", 1, 0},
		{"repeated characters count", "aa", "a", 1, 0.5},
		{"multibyte runes", "Süd", "Sud", 1, 0.5},
		{"size below one treated as unigram", "abc", "abd", 0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, NgramSimilarity(tt.a, tt.b, tt.n), 1e-12)
		})
	}
}

func TestDistance(t *testing.T) {
	a := Stop{Lat: 40.7589, Lon: -73.9851}
	b := Stop{Lat: 40.7678, Lon: -73.9812}

	assert.InDelta(t, 1040, Distance(a, b), 60)
	assert.Equal(t, 0.0, Distance(a, a))
}
