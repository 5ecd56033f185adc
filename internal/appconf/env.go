package appconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix marks environment variables that override file configuration.
const EnvPrefix = "STOPMATCHER_"

// LoadEnvOverrides collects STOPMATCHER_* settings from a dotenv file and
// the process environment. Process variables win over the file. A missing
// file is not an error.
func LoadEnvOverrides(path string) (map[string]string, error) {
	overrides := make(map[string]string)

	if path != "" {
		values, err := godotenv.Read(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read env file: %w", err)
		}
		for k, v := range values {
			if strings.HasPrefix(k, EnvPrefix) {
				overrides[k] = v
			}
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			overrides[k] = v
		}
	}

	return overrides, nil
}

// ApplyOverrides applies STOPMATCHER_* values on top of the file configuration
// and validates the result.
func (c *FileConfig) ApplyOverrides(overrides map[string]string) error {
	for key, value := range overrides {
		switch strings.TrimPrefix(key, EnvPrefix) {
		case "ENV":
			c.Env = value
		case "LOG_FORMAT":
			c.LogFormat = value
		case "DATA_PATH":
			c.DataPath = value
		case "FEED_PATH":
			c.Feed.Path = value
		case "FEED_FORMAT":
			c.Feed.Format = value
		case "SOURCE_PATH":
			c.Source.Path = value
		case "SOURCE_FORMAT":
			c.Source.Format = value
		case "METRICS_PATH":
			c.MetricsPath = value
		case "CANDIDATE_K":
			k, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			c.Matching.CandidateK = k
		case "SELF_CONSISTENCY_ONLY":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			c.Matching.SelfConsistencyOnly = b
		}
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
