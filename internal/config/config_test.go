package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.CacheDriver)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 14, cfg.UsageRetentionDays)
}

func TestLoadReadsDotenvAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("EUREKA_WORKERS=9\nEUREKA_REDIS_PREFIX=test:\n"), 0o600))
	t.Setenv("EUREKA_CACHE_DRIVER", "redis")
	t.Cleanup(func() {
		_ = os.Unsetenv("EUREKA_WORKERS")
		_ = os.Unsetenv("EUREKA_REDIS_PREFIX")
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Workers)
	assert.Equal(t, "redis", cfg.CacheDriver)
	assert.Equal(t, "test:", cfg.RedisPrefix)
}

func TestValidateRejectsBadDrivers(t *testing.T) {
	cfg := Config{CacheDriver: "memcached", BlobDriver: "fs", Workers: 1, QueueSize: 1}
	assert.Error(t, cfg.Validate())

	cfg = Config{CacheDriver: "memory", BlobDriver: "s3", Workers: 1, QueueSize: 1}
	assert.Error(t, cfg.Validate(), "s3 needs a bucket")

	cfg.S3Bucket = "avatars"
	assert.NoError(t, cfg.Validate())
}
