package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefaults(t *testing.T) {
	c, err := Load("", zerolog.Nop())
	require.NoError(t, err)

	s := c.Store()
	assert.Equal(t, "redis", s.Engine)
	assert.Equal(t, "localhost", s.Host)
	assert.Equal(t, 6379, s.Port)
	assert.Equal(t, 0, s.DB)
	assert.Equal(t, 10, s.MaxConnections)
	assert.Equal(t, 5*time.Second, s.DialTimeout)
	assert.Equal(t, "localhost:6379", s.Addr())

	l := c.Logging()
	assert.Equal(t, "info", l.Level)
	assert.Equal(t, "console", l.Format)
	assert.Equal(t, "bountycatch.log", l.File)

	a := c.API()
	assert.Equal(t, "127.0.0.1:8080", a.Listen)
	assert.Equal(t, 10.0, a.RPS)
}

func TestJSONFileOverlay(t *testing.T) {
	p := writeFile(t, "config.json", `{"redis_extra": {"a": 1}, "store": {"host": "test-redis", "port": 6380, "db": 1}}`)
	c, err := Load(p, zerolog.Nop())
	require.NoError(t, err)

	s := c.Store()
	assert.Equal(t, "test-redis", s.Host)
	assert.Equal(t, 6380, s.Port)
	assert.Equal(t, 1, s.DB)
	// keys absent from the file keep their defaults
	assert.Equal(t, 10, s.MaxConnections)
	assert.Equal(t, "redis", s.Engine)

	// unknown sections are kept verbatim
	assert.EqualValues(t, 1, c.Section("redis_extra")["a"])
}

func TestYAMLFileOverlay(t *testing.T) {
	p := writeFile(t, "config.yaml", "logging:\n  level: warn\nstore:\n  engine: pebble\n  path: /tmp/bc.db\n")
	c, err := Load(p, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "warn", c.Logging().Level)
	assert.Equal(t, "console", c.Logging().Format)
	assert.Equal(t, "pebble", c.Store().Engine)
	assert.Equal(t, "/tmp/bc.db", c.Store().Path)
	assert.Equal(t, "localhost", c.Store().Host)
}

func TestInvalidFileKeepsDefaults(t *testing.T) {
	var buf bytes.Buffer
	p := writeFile(t, "config.json", `{"store": {"host": "half`)
	c, err := Load(p, zerolog.New(&buf))
	require.NoError(t, err)

	assert.Equal(t, "localhost", c.Store().Host)
	assert.Contains(t, buf.String(), "failed to load config file")
}

func TestMissingFileKeepsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 6379, c.Store().Port)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv(EnvRedisHost, "env-redis")
	t.Setenv(EnvRedisPort, "6381")

	p := writeFile(t, "config.json", `{"store": {"host": "file-redis", "port": 6380}}`)
	c, err := Load(p, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "env-redis", c.Store().Host)
	assert.Equal(t, 6381, c.Store().Port)
}

func TestInvalidPortIgnored(t *testing.T) {
	var buf bytes.Buffer
	t.Setenv(EnvRedisPort, "not-a-port")

	c, err := Load("", zerolog.New(&buf))
	require.NoError(t, err)

	assert.Equal(t, 6379, c.Store().Port)
	assert.Contains(t, buf.String(), "invalid REDIS_PORT value")
}

func TestSetLevel(t *testing.T) {
	c, err := Load("", zerolog.Nop())
	require.NoError(t, err)
	c.SetLevel("debug")
	assert.Equal(t, "debug", c.Logging().Level)
	assert.Equal(t, "console", c.Logging().Format)
}
