package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Lists.NumRepeats)
	assert.Equal(t, 10, cfg.Bench.Runs)
	assert.Equal(t, "bench-runs", cfg.Kafka.Topics.BenchRuns)
	assert.Len(t, cfg.Bench.Algorithms, 4)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte(`
lists:
  dir: /data/lists
  numRepeats: 100
  offset: 200000
bench:
  runs: 3
redis:
  cacheTTL: 30s
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/lists", cfg.Lists.Dir)
	assert.Equal(t, 100, cfg.Lists.NumRepeats)
	assert.Equal(t, 200000, cfg.Lists.Offset)
	assert.Equal(t, 3, cfg.Bench.Runs)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	// untouched sections keep defaults
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PI_SERVER_PORT", "9999")
	t.Setenv("PI_LISTS_REPEATS", "7")
	t.Setenv("PI_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("PI_REDIS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Lists.NumRepeats)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PI_LISTS_REPEATS", "0")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", p.DSN())
}

func TestObjectsRequiresBucket(t *testing.T) {
	t.Setenv("PI_OBJECTS_ENABLED", "true")
	t.Setenv("PI_OBJECTS_ENDPOINT", "minio:9000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "minio:9000", cfg.Objects.Endpoint)
	assert.Equal(t, "posting-segments", cfg.Objects.Bucket)

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("objects:\n  bucket: \"\"\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}
