package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gocrud/logkit/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logging.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	opts, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, logging.LogLevelInfo, opts.Level())
	assert.True(t, opts.Console.Enabled)
	assert.Empty(t, opts.File.Path)
	assert.Empty(t, opts.Redis.Addr)
}

func TestLoad_YamlKeepsUnspecifiedDefaults(t *testing.T) {
	path := writeConfig(t, `
minimum_level: debug
console:
  format: json
  filter: level >= 3
pebble:
  dir: /var/lib/logkit
file:
  path: /var/log/app.log
  compress: true
mongodb:
  uri: mongodb://localhost:27017
  timeout: 3s
etcd:
  endpoints: ["localhost:2379"]
`)

	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, logging.LogLevelDebug, opts.Level())
	assert.Equal(t, "json", opts.Console.Format)
	assert.True(t, opts.Console.Enabled)
	assert.Equal(t, "level >= 3", opts.Console.Filter)
	assert.Equal(t, "/var/lib/logkit", opts.Pebble.Dir)
	assert.Equal(t, "/var/log/app.log", opts.File.Path)
	assert.True(t, opts.File.Compress)
	assert.Equal(t, 100, opts.File.MaxSizeMB)
	assert.Equal(t, 3*time.Second, opts.MongoDB.Timeout)
	assert.Equal(t, "entries", opts.MongoDB.Collection)
	assert.Equal(t, []string{"localhost:2379"}, opts.Etcd.Endpoints)
	assert.Equal(t, "/logkit/minimum_level", opts.Etcd.Key)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "minimum_level: debug\n")

	t.Setenv("LOGKIT_MINIMUM_LEVEL", "error")
	t.Setenv("LOGKIT_CONSOLE_ENABLED", "false")
	t.Setenv("LOGKIT_REDIS_ADDR", "redis:6379")
	t.Setenv("LOGKIT_ETCD_ENDPOINTS", "a:2379,b:2379")

	opts, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, logging.LogLevelError, opts.Level())
	assert.False(t, opts.Console.Enabled)
	assert.Equal(t, "redis:6379", opts.Redis.Addr)
	assert.Equal(t, "logs", opts.Redis.Stream)
	assert.Equal(t, []string{"a:2379", "b:2379"}, opts.Etcd.Endpoints)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read")

	_, err = Load(writeConfig(t, "minimum_level: [broken"))
	assert.ErrorContains(t, err, "failed to parse YAML")

	_, err = Load(writeConfig(t, "minimum_level: loud\n"))
	assert.ErrorContains(t, err, "minimum_level")
}

func TestValidate(t *testing.T) {
	opts := Default()
	require.NoError(t, opts.Validate())

	opts.Console.Format = "xml"
	assert.Error(t, opts.Validate())

	opts = Default()
	opts.File.MaxAgeDays = -1
	assert.Error(t, opts.Validate())

	opts = Default()
	opts.Console.Output = "file"
	assert.Error(t, opts.Validate())

	opts = Default()
	opts.Database.DSN = "postgres://"
	opts.Database.Driver = "postgres"
	assert.Error(t, opts.Validate())

	opts = Default()
	opts.Etcd.Endpoints = []string{"localhost:2379"}
	opts.Etcd.Key = ""
	assert.Error(t, opts.Validate())
}
