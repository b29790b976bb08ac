package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/mosajjal/bountycatch/pkg/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	mr      *miniredis.Miniredis
	dir     string
	config  string
	logFile string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv(config.EnvRedisHost, mr.Host())
	t.Setenv(config.EnvRedisPort, mr.Port())

	dir := t.TempDir()
	logFile := filepath.Join(dir, "bountycatch.log")
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("logging:\n  file: "+logFile+"\n"), 0o644))
	return &testEnv{mr: mr, dir: dir, config: cfg, logFile: logFile}
}

// run executes bountycatch with the test config and returns stdout and stderr.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"-c", e.config}, args...)
	err := execute(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (e *testEnv) writeDomains(t *testing.T, lines ...string) string {
	t.Helper()
	p := filepath.Join(e.dir, "domains.txt")
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return p
}

func TestAddCountPrint(t *testing.T) {
	e := newTestEnv(t)
	file := e.writeDomains(t, "b.example.com", "a.example.com", "a.example.com", "bad_domain", "")

	out, _, err := e.run(t, "", "add", "-p", "p1", "-f", file)
	require.NoError(t, err)
	assert.Equal(t, "3 domains processed: 2 new, 1 duplicates (33.33%), 1 invalid\n", out)

	out, _, err = e.run(t, "", "count", "-p", "p1")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, _, err = e.run(t, "", "print", "-p", "p1")
	require.NoError(t, err)
	assert.Equal(t, "a.example.com\nb.example.com\n", out)

	// the log file keeps the history of both runs
	b, err := os.ReadFile(e.logFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), "processed 3 domains")
	assert.Contains(t, string(b), "contains 2 domains")
}

func TestAddNoValidate(t *testing.T) {
	e := newTestEnv(t)
	file := e.writeDomains(t, "bad_domain")

	_, _, err := e.run(t, "", "add", "-p", "p1", "-f", file, "--no-validate")
	require.NoError(t, err)
	assert.True(t, e.mr.Exists("p1"))
}

func TestAddMissingFile(t *testing.T) {
	e := newTestEnv(t)
	_, stderr, err := e.run(t, "", "add", "-p", "p1", "-f", filepath.Join(e.dir, "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, stderr, "file does not exist")
	assert.False(t, e.mr.Exists("p1"))
}

func TestCountMissingProject(t *testing.T) {
	e := newTestEnv(t)
	out, _, err := e.run(t, "", "count", "-p", "ghost")
	require.Error(t, err)
	assert.Empty(t, out)
}

func TestPrintEmptyProject(t *testing.T) {
	e := newTestEnv(t)
	out, stderr, err := e.run(t, "", "print", "-p", "ghost")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "no domains found")
}

func TestExport(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.mr.SetAdd("p1", "b.com", "a.com")
	require.NoError(t, err)

	out := filepath.Join(e.dir, "out.json")
	_, _, err = e.run(t, "", "export", "-p", "p1", "-f", out, "--format", "json")
	require.NoError(t, err)
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"domain_count": 2`)

	out = filepath.Join(e.dir, "out.txt")
	_, _, err = e.run(t, "", "export", "-p", "p1", "-f", out)
	require.NoError(t, err)
	b, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a.com\nb.com\n", string(b))
}

func TestExportFailures(t *testing.T) {
	e := newTestEnv(t)
	out := filepath.Join(e.dir, "out.txt")

	_, _, err := e.run(t, "", "export", "-p", "empty", "-f", out)
	require.Error(t, err)
	assert.NoFileExists(t, out)

	_, err = e.mr.SetAdd("p1", "a.com")
	require.NoError(t, err)
	_, _, err = e.run(t, "", "export", "-p", "p1", "-f", out, "--format", "csv")
	require.Error(t, err)
	assert.NoFileExists(t, out)
}

func TestDeleteConfirm(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.mr.SetAdd("p1", "a.com")
	require.NoError(t, err)

	out, _, err := e.run(t, "n\n", "delete", "-p", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, "Are you sure you want to delete project 'p1'? (y/N): ")
	assert.True(t, e.mr.Exists("p1"))

	out, _, err = e.run(t, "yes\n", "delete", "-p", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, "Project 'p1' deleted successfully")
	assert.False(t, e.mr.Exists("p1"))
}

func TestDeleteSkipPrompt(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.mr.SetAdd("p1", "a.com")
	require.NoError(t, err)

	out, _, err := e.run(t, "", "delete", "-p", "p1", "--confirm")
	require.NoError(t, err)
	assert.Equal(t, "Project 'p1' deleted successfully\n", out)

	_, _, err = e.run(t, "", "delete", "-p", "p1", "--confirm")
	require.Error(t, err)
}

func TestStoreUnreachable(t *testing.T) {
	e := newTestEnv(t)
	e.mr.Close()

	_, stderr, err := e.run(t, "", "count", "-p", "p1")
	require.Error(t, err)
	assert.Contains(t, stderr, "failed to connect to redis")
}

func TestPebbleEngine(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"store": {"engine": "pebble", "path": "`+filepath.Join(dir, "db")+`"}, "logging": {"file": ""}}`), 0o644))
	domains := filepath.Join(dir, "domains.txt")
	require.NoError(t, os.WriteFile(domains, []byte("a.com\nb.com\n"), 0o644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, execute([]string{"-c", cfg, "add", "-p", "p1", "-f", domains}, strings.NewReader(""), &stdout, &stderr))

	stdout.Reset()
	require.NoError(t, execute([]string{"-c", cfg, "count", "-p", "p1"}, strings.NewReader(""), &stdout, &stderr))
	assert.Equal(t, "2\n", stdout.String())
}

func TestRequiredFlags(t *testing.T) {
	e := newTestEnv(t)
	_, _, err := e.run(t, "", "add", "-p", "p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestVersionAndDefaultConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, execute([]string{"-V"}, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "bountycatch version")

	path := filepath.Join(t.TempDir(), "written.yaml")
	require.NoError(t, execute([]string{"-c", path, "-d"}, strings.NewReader(""), &stdout, &stderr))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Defaults, b)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "run.log")

	logger, closeFn, err := newLogger(config.LoggingConfig{Level: "WARNING", Format: "json", File: logFile}, &buf)
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	require.NoError(t, closeFn())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
	b, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(b))

	_, _, err = newLogger(config.LoggingConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
	_, _, err = newLogger(config.LoggingConfig{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := parseLevel("INFO")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)
	lvl, err = parseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)
}
