package appconf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	"stopmatcher.onebusaway.org/internal/matching"
)

// InputFile points at a stop catalog to import.
type InputFile struct {
	Path   string `json:"path" yaml:"path"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=fptf gtfs geojson"`
}

// MatchingSection mirrors matching.Config on disk. Zero values take the engine defaults.
type MatchingSection struct {
	SelfConsistencyOnly bool     `json:"self-consistency-only" yaml:"self-consistency-only"`
	CandidateK          int      `json:"candidate-k" yaml:"candidate-k" validate:"gte=0"`
	DistanceDecayScale  float64  `json:"distance-decay-scale" yaml:"distance-decay-scale" validate:"gte=0"`
	InternalDecayScale  float64  `json:"internal-decay-scale" yaml:"internal-decay-scale" validate:"gte=0"`
	NameNgramSize       int      `json:"name-ngram-size" yaml:"name-ngram-size" validate:"gte=0"`
	PlatformRating      *float64 `json:"platform-rating" yaml:"platform-rating" validate:"omitempty,gte=0,lte=1"`
	SuccessorRating     *float64 `json:"successor-rating" yaml:"successor-rating" validate:"omitempty,gte=0,lte=1"`
	Workers             int      `json:"workers" yaml:"workers" validate:"gte=0"`
}

// FileConfig is the configuration file layout, in JSON or YAML.
type FileConfig struct {
	Env              string          `json:"env" yaml:"env" validate:"oneof=development test production"`
	LogFormat        string          `json:"log-format" yaml:"log-format" validate:"oneof=text json"`
	DataPath         string          `json:"data-path" yaml:"data-path" validate:"required"`
	Feed             InputFile       `json:"feed" yaml:"feed"`
	Source           InputFile       `json:"source" yaml:"source"`
	Matching         MatchingSection `json:"matching" yaml:"matching"`
	ExpectationsPath string          `json:"expectations-path" yaml:"expectations-path"`
	GeoJSONOutput    string          `json:"geojson-output" yaml:"geojson-output"`
	MetricsPath      string          `json:"metrics-path" yaml:"metrics-path"`
}

const (
	defaultEnv          = "development"
	defaultLogFormat    = "text"
	defaultDataPath     = "./stops.db"
	defaultFeedFormat   = "fptf"
	defaultSourceFormat = "geojson"
)

var validate = validator.New()

// LoadFromFile reads, defaults and validates a configuration file. Files
// ending in .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadFromFile(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultFileConfig is the configuration used when no file is given.
func DefaultFileConfig() *FileConfig {
	config := &FileConfig{}
	config.applyDefaults()
	return config
}

func (c *FileConfig) applyDefaults() {
	if c.Env == "" {
		c.Env = defaultEnv
	}
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
	if c.DataPath == "" {
		c.DataPath = defaultDataPath
	}
	if c.Feed.Format == "" {
		c.Feed.Format = defaultFeedFormat
	}
	if c.Source.Format == "" {
		c.Source.Format = defaultSourceFormat
	}
}

func (c *FileConfig) validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s failed the %q check", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	if c.Feed.Format == "geojson" {
		return errors.New("feed format must be one of fptf, gtfs")
	}
	if c.Source.Format == "fptf" {
		return errors.New("source format must be one of geojson, gtfs")
	}
	if c.Env == "test" && c.DataPath != ":memory:" {
		return errors.New("test environment requires data-path :memory:")
	}
	return nil
}

// ToAppConfig converts the file layout into the runtime Config.
func (c *FileConfig) ToAppConfig() Config {
	return Config{
		Env:              EnvFlagToEnvironment(c.Env),
		Verbose:          true,
		LogFormat:        c.LogFormat,
		DataPath:         c.DataPath,
		FeedPath:         c.Feed.Path,
		FeedFormat:       c.Feed.Format,
		SourcePath:       c.Source.Path,
		SourceFormat:     c.Source.Format,
		ExpectationsPath: c.ExpectationsPath,
		GeoJSONOutput:    c.GeoJSONOutput,
		MetricsPath:      c.MetricsPath,
	}
}

// ToMatchingConfig converts the matching section, filling unset values with engine defaults.
func (c *FileConfig) ToMatchingConfig() matching.Config {
	m := matching.DefaultConfig()
	s := c.Matching

	m.SelfConsistencyOnly = s.SelfConsistencyOnly
	if s.CandidateK > 0 {
		m.CandidateK = s.CandidateK
	}
	if s.DistanceDecayScale > 0 {
		m.DistanceDecayScale = s.DistanceDecayScale
	}
	if s.InternalDecayScale > 0 {
		m.InternalDecayScale = s.InternalDecayScale
	}
	if s.NameNgramSize > 0 {
		m.NameNgramSize = s.NameNgramSize
	}
	if s.PlatformRating != nil {
		m.PlatformRating = *s.PlatformRating
	}
	if s.SuccessorRating != nil {
		m.SuccessorRating = *s.SuccessorRating
	}
	if s.Workers > 0 {
		m.Workers = s.Workers
	}
	return m
}
