package matching

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrInvalidConfig is returned when matching parameters cannot produce ratings in [0,1].
var ErrInvalidConfig = errors.New("invalid matching configuration")

const (
	DefaultCandidateK         = 10
	DefaultDistanceDecayScale = 100.0
	DefaultInternalDecayScale = 25.0
	DefaultNameNgramSize      = 2

	// DefaultMissingNameScore stands in for name similarity when either name is absent.
	DefaultMissingNameScore = 0.3
	// DefaultUnknownModeScore is the mode compatibility when either mode is unknown.
	DefaultUnknownModeScore = 0.7
	// DefaultPlatformRating has no live signal behind it yet.
	DefaultPlatformRating = 0.9
	// DefaultSuccessorRating has no live signal behind it yet.
	DefaultSuccessorRating = 0.0

	DefaultLineWeight      = 0.3
	DefaultModeWeight      = 0.2
	DefaultSuccessorWeight = 0.3
)

// Config controls one matching run.
type Config struct {
	SelfConsistencyOnly bool
	CandidateK          int
	DistanceDecayScale  float64
	InternalDecayScale  float64
	NameNgramSize       int
	PlatformRating      float64
	SuccessorRating     float64
	Workers             int
}

// DefaultConfig returns the tuning used by the reference datasets.
func DefaultConfig() Config {
	return Config{
		CandidateK:         DefaultCandidateK,
		DistanceDecayScale: DefaultDistanceDecayScale,
		InternalDecayScale: DefaultInternalDecayScale,
		NameNgramSize:      DefaultNameNgramSize,
		PlatformRating:     DefaultPlatformRating,
		SuccessorRating:    DefaultSuccessorRating,
		Workers:            runtime.NumCPU(),
	}
}

// Validate checks the configuration and the scoring parameters derived from it.
func (c Config) Validate() error {
	if c.CandidateK < 1 {
		return fmt.Errorf("%w: candidate k must be at least 1, got %d", ErrInvalidConfig, c.CandidateK)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if err := c.CrossParams().Validate(); err != nil {
		return err
	}
	return c.InternalParams().Validate()
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// CrossParams are the scoring parameters for source-to-feed comparisons.
func (c Config) CrossParams() ScoringParams {
	p := DefaultScoringParams()
	p.DecayScale = c.DistanceDecayScale
	p.NgramSize = c.NameNgramSize
	p.PlatformRating = c.PlatformRating
	p.SuccessorRating = c.SuccessorRating
	return p
}

// InternalParams are the scoring parameters for feed self-consistency.
func (c Config) InternalParams() ScoringParams {
	p := c.CrossParams()
	p.DecayScale = c.InternalDecayScale
	p.IdentityShortCircuit = false
	return p
}

// ScoringParams tune the similarity formula.
type ScoringParams struct {
	DecayScale           float64
	NgramSize            int
	MissingNameScore     float64
	UnknownModeScore     float64
	PlatformRating       float64
	SuccessorRating      float64
	LineWeight           float64
	ModeWeight           float64
	SuccessorWeight      float64
	IdentityShortCircuit bool
}

// DefaultScoringParams returns the cross-population defaults.
func DefaultScoringParams() ScoringParams {
	return ScoringParams{
		DecayScale:           DefaultDistanceDecayScale,
		NgramSize:            DefaultNameNgramSize,
		MissingNameScore:     DefaultMissingNameScore,
		UnknownModeScore:     DefaultUnknownModeScore,
		PlatformRating:       DefaultPlatformRating,
		SuccessorRating:      DefaultSuccessorRating,
		LineWeight:           DefaultLineWeight,
		ModeWeight:           DefaultModeWeight,
		SuccessorWeight:      DefaultSuccessorWeight,
		IdentityShortCircuit: true,
	}
}

// Validate rejects parameters that would push a rating outside [0,1].
func (p ScoringParams) Validate() error {
	if p.DecayScale <= 0 {
		return fmt.Errorf("%w: distance decay scale must be positive, got %v", ErrInvalidConfig, p.DecayScale)
	}
	if p.NgramSize < 1 {
		return fmt.Errorf("%w: name ngram size must be at least 1, got %d", ErrInvalidConfig, p.NgramSize)
	}
	bounded := []struct {
		name  string
		value float64
	}{
		{"missing name score", p.MissingNameScore},
		{"unknown mode score", p.UnknownModeScore},
		{"platform rating", p.PlatformRating},
		{"successor rating", p.SuccessorRating},
		{"line weight", p.LineWeight},
		{"mode weight", p.ModeWeight},
		{"successor weight", p.SuccessorWeight},
	}
	for _, b := range bounded {
		if b.value < 0 || b.value > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, b.name, b.value)
		}
	}
	if p.LineWeight+p.ModeWeight+p.SuccessorWeight >= 1 {
		return fmt.Errorf("%w: line, mode and successor weights must sum below 1", ErrInvalidConfig)
	}
	return nil
}
