// Package validation checks a matching run against hand-curated expectations.
package validation

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Kind is the type of an expectation.
type Kind string

const (
	// KindMatched expects the source stop to be matched to MatchedID.
	KindMatched Kind = "matched"
	// KindNotMatched expects the source stop not to be matched to MatchedID.
	KindNotMatched Kind = "not_matched"
	// KindAbsent expects the source stop not to be part of the source catalog.
	KindAbsent Kind = "absent"
	// KindName expects the source stop to carry Name.
	KindName Kind = "name"
)

// Expectation is one curated assertion about a run.
type Expectation struct {
	Expect    Kind   `yaml:"expect" validate:"required,oneof=matched not_matched absent name"`
	SourceID  string `yaml:"source_id" validate:"required"`
	MatchedID string `yaml:"matched_id"`
	Name      string `yaml:"name"`
	Note      string `yaml:"note"`
}

type expectationsFile struct {
	Expectations []Expectation `yaml:"expectations" validate:"dive"`
}

var validate = validator.New()

// LoadExpectations reads a YAML expectations file.
func LoadExpectations(path string) ([]Expectation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read expectations file: %w", err)
	}

	var file expectationsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse expectations file: %w", err)
	}

	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid expectations: %w", err)
	}
	for i, e := range file.Expectations {
		if err := e.check(); err != nil {
			return nil, fmt.Errorf("invalid expectation %d: %w", i, err)
		}
	}

	return file.Expectations, nil
}

func (e Expectation) check() error {
	switch e.Expect {
	case KindMatched, KindNotMatched:
		if e.MatchedID == "" {
			return errors.New("matched_id is required for " + string(e.Expect))
		}
	case KindName:
		if e.Name == "" {
			return errors.New("name is required for name expectations")
		}
	}
	return nil
}
