package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techresidents/indexsvc/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
	assert.Equal(t, 1, cfg.IndexerThreads)
	assert.Equal(t, 1, cfg.IndexerPoolSize)
	assert.Equal(t, 60*time.Second, cfg.IndexerPollInterval)
	assert.Equal(t, 300*time.Second, cfg.IndexerJobRetryDelay)
	assert.Equal(t, 3, cfg.IndexerJobMaxRetryAttempts)
	assert.Equal(t, 20, cfg.ESBulkFlushThreshold)
	assert.Equal(t, 4, cfg.ESPoolSize)
	assert.Equal(t, 10, cfg.QueueFetchLimit)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("INDEXER_THREADS", "8")
	t.Setenv("INDEXER_POLL_INTERVAL", "5s")
	t.Setenv("INDEXER_JOB_MAX_RETRY_ATTEMPTS", "5")
	t.Setenv("ES_POOL_SIZE", "16")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, 8, cfg.IndexerThreads)
	assert.Equal(t, 5*time.Second, cfg.IndexerPollInterval)
	assert.Equal(t, 5, cfg.IndexerJobMaxRetryAttempts)
	assert.Equal(t, 16, cfg.ESPoolSize)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("INDEXER_THREADS", "lots")
	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=config.Load")
}
