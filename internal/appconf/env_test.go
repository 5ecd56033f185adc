package appconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STOPMATCHER_CANDIDATE_K", "7")

	overrides, err := LoadEnvOverrides("../../testdata/stopmatcher.env")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", overrides["STOPMATCHER_DATA_PATH"])
	assert.Equal(t, "7", overrides["STOPMATCHER_CANDIDATE_K"], "process environment wins over the file")
	assert.NotContains(t, overrides, "UNRELATED_SETTING")
}

func TestLoadEnvOverrides_MissingFile(t *testing.T) {
	_, err := LoadEnvOverrides("../../testdata/does-not-exist.env")
	assert.NoError(t, err)
}

func TestApplyOverrides(t *testing.T) {
	config := DefaultFileConfig()
	err := config.ApplyOverrides(map[string]string{
		"STOPMATCHER_DATA_PATH":             "/tmp/override.db",
		"STOPMATCHER_CANDIDATE_K":           "5",
		"STOPMATCHER_SELF_CONSISTENCY_ONLY": "true",
		"STOPMATCHER_FEED_FORMAT":           "gtfs",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", config.DataPath)
	assert.Equal(t, 5, config.Matching.CandidateK)
	assert.True(t, config.Matching.SelfConsistencyOnly)
	assert.Equal(t, "gtfs", config.Feed.Format)
}

func TestApplyOverrides_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		wantErr   string
	}{
		{"non-numeric k", map[string]string{"STOPMATCHER_CANDIDATE_K": "many"}, "invalid STOPMATCHER_CANDIDATE_K"},
		{"non-boolean flag", map[string]string{"STOPMATCHER_SELF_CONSISTENCY_ONLY": "maybe"}, "invalid STOPMATCHER_SELF_CONSISTENCY_ONLY"},
		{"bad env", map[string]string{"STOPMATCHER_ENV": "staging"}, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DefaultFileConfig().ApplyOverrides(tt.overrides)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
