package matching

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// ParentOverride records whether the parent-station rule replaced the formula result.
type ParentOverride int

const (
	NoOverride ParentOverride = iota
	SameStation
	DifferentStation
)

func (o ParentOverride) String() string {
	switch o {
	case SameStation:
		return "same_station"
	case DifferentStation:
		return "different_station"
	default:
		return "none"
	}
}

// Breakdown holds every intermediate value of one rating.
type Breakdown struct {
	Identity          bool
	DistanceMeters    float64
	NameSimilarity    float64
	ModeCompatibility float64
	LineOverlap       float64
	Base              float64
	Exponent          float64
	Override          ParentOverride
	Rating            float64
}

// Scorer rates how likely two stops describe the same place. It holds no
// mutable state and is safe for concurrent use.
type Scorer struct {
	params ScoringParams
}

// NewScorer validates params and returns a Scorer.
func NewScorer(params ScoringParams) (*Scorer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{params: params}, nil
}

// MustScorer is NewScorer for parameters known to be valid.
func MustScorer(params ScoringParams) *Scorer {
	s, err := NewScorer(params)
	if err != nil {
		panic(fmt.Sprintf("matching: %v", err))
	}
	return s
}

func (s *Scorer) Params() ScoringParams {
	return s.params
}

// Rate returns the similarity of probe o and candidate f, within [0,1].
func (s *Scorer) Rate(o Stop, f Candidate) float64 {
	return s.Explain(o, f).Rating
}

// Explain computes the rating of o against f and every sub-score behind it.
func (s *Scorer) Explain(o Stop, f Candidate) Breakdown {
	p := s.params
	var b Breakdown

	if p.IdentityShortCircuit && o.ReferenceCode != "" && o.ReferenceCode == f.ReferenceCode {
		b.Identity = true
		b.Rating = 1
		return b
	}

	b.DistanceMeters = Distance(o, f.Stop)
	b.NameSimilarity = s.nameSimilarity(o.Name, f.Name)
	b.ModeCompatibility = s.modeCompatibility(o.Mode, f.Mode)
	b.LineOverlap = LineOverlap(o.Lines, f.Lines)

	b.Base = b.NameSimilarity / (1 + b.DistanceMeters/p.DecayScale)
	platformFactor := 0.5 + 0.5*p.PlatformRating
	b.Exponent = 1 - b.LineOverlap*p.LineWeight - b.ModeCompatibility*p.ModeWeight - p.SuccessorRating*p.SuccessorWeight
	b.Rating = math.Pow(b.Base*platformFactor, b.Exponent)

	// Parents can only be compared when both sides carry a code.
	if o.ReferenceCode != "" && f.ReferenceCode != "" {
		if ParentStation(o.ReferenceCode) == ParentStation(f.ReferenceCode) {
			if o.Mode == ModeTrainish {
				b.Override = SameStation
				b.Rating = 1
			}
		} else {
			b.Override = DifferentStation
			b.Rating = 0
		}
	}

	b.Rating = clamp01(b.Rating)
	return b
}

func (s *Scorer) nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return s.params.MissingNameScore
	}
	return NgramSimilarity(a, b, s.params.NgramSize)
}

func (s *Scorer) modeCompatibility(a, b Mode) float64 {
	switch {
	case !a.Known() || !b.Known():
		return s.params.UnknownModeScore
	case a == b:
		return 1
	default:
		return 0
	}
}

// Distance is the great-circle distance between two stops in meters.
func Distance(a, b Stop) float64 {
	return geo.DistanceHaversine(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})
}

// LineOverlap is the Jaccard index of two line sets. Missing lines on either
// side give 0.
func LineOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, l := range a {
		setA[l] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, l := range b {
		setB[l] = struct{}{}
	}
	shared := 0
	for l := range setB {
		if _, ok := setA[l]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
