package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/safetab/config"
	"hermannm.dev/safetab/disclosure"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	conf, err := config.ReadFromEnv()
	require.NoError(t, err)

	assert.False(t, conf.IsProduction)
	assert.Equal(t, slog.LevelInfo, conf.LogLevel)
	assert.Equal(t, "8000", conf.API.Port)
	assert.Equal(t, int64(1<<30), conf.API.MaxUploadBytes)
	assert.Equal(t, 5, conf.Query.SuppressionThreshold)
	assert.Equal(t, disclosure.ModeSuppression, conf.Query.PrivacyMode)
	assert.Equal(t, 1.0, conf.Query.BaseEpsilon)
	assert.Equal(t, time.Hour, conf.Store.DatasetTTL)
	assert.Equal(t, config.DatasetSourceNone, conf.DatasetSource)
}

func TestOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRODUCTION", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SUPPRESSION_THRESHOLD", "10")
	t.Setenv("PRIVACY_MODE", "differential_privacy")
	t.Setenv("DP_BASE_EPSILON", "0.5")
	t.Setenv("DATASET_TTL", "15m")
	t.Setenv("DATASET_SOURCE", "duckdb")
	t.Setenv("SQL_DSN", "analytics.duckdb")

	conf, err := config.ReadFromEnv()
	require.NoError(t, err)

	assert.True(t, conf.IsProduction)
	assert.Equal(t, slog.LevelDebug, conf.LogLevel)
	assert.Equal(t, 10, conf.Query.SuppressionThreshold)
	assert.Equal(t, disclosure.ModeDifferentialPrivacy, conf.Query.PrivacyMode)
	assert.Equal(t, 0.5, conf.Query.BaseEpsilon)
	assert.Equal(t, 15*time.Minute, conf.Store.DatasetTTL)
	assert.Equal(t, config.DatasetSourceDuckDB, conf.DatasetSource)
	assert.Equal(t, "analytics.duckdb", conf.SQL.DSN)
}

func TestSelectedSourceConfigIsRequired(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATASET_SOURCE", "clickhouse")
	t.Setenv("CLICKHOUSE_ADDRESS", "localhost:9000")

	_, err := config.ReadFromEnv()
	assert.Error(t, err)
}

func TestInvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown source", "DATASET_SOURCE", "postgres"},
		{"unknown privacy mode", "PRIVACY_MODE", "noise"},
		{"zero threshold", "SUPPRESSION_THRESHOLD", "0"},
		{"negative epsilon", "DP_BASE_EPSILON", "-1"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(testCase.key, testCase.value)

			_, err := config.ReadFromEnv()
			assert.Error(t, err)
		})
	}
}
