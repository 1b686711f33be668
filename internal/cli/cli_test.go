package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoknoesis/wap-go/internal/config"
)

func run(t *testing.T, args ...string) (*CLI, string, error) {
	t.Helper()
	var out bytes.Buffer
	c := New(&out)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return c, out.String(), err
}

func TestVersion(t *testing.T) {
	SetVersion("v1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })

	_, out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "wapsrv v1.2.3\ncommit: abc123\nbuilt: 2026-01-01\n", out)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "wap.toml")
	require.NoError(t, os.WriteFile(file, []byte("PageSize = 7\nLogLevel = \"warn\"\nLogFormat = \"json\"\n"), 0o644))

	c, _, err := run(t, "--config", file, "version")
	require.NoError(t, err)
	assert.Equal(t, 7, c.Config.PageSize)
	assert.Equal(t, logrus.WarnLevel, c.Logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, c.Logger.Formatter)

	c, _, err = run(t, "--config", file, "-v", "version")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, c.Logger.GetLevel())
}

func TestConfigErrors(t *testing.T) {
	_, _, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
	assert.Error(t, err)

	t.Setenv("WAP_PAGESIZE", "0")
	_, _, err = run(t, "version")
	assert.ErrorContains(t, err, config.KeyPageSize)
}

func TestConfigureLogger(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "loud"
	assert.Error(t, configureLogger(logrus.New(), cfg, false))

	cfg.LogLevel = "error"
	logger := logrus.New()
	require.NoError(t, configureLogger(logger, cfg, false))
	assert.Equal(t, logrus.ErrorLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestProfilesList(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WAP_JSONLDPROFILEFOLDER", dir)
	t.Setenv("WAP_JSONLDPROFILEFILE", filepath.Join(dir, "profiles.toml"))

	_, out, err := run(t, "profiles", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, out)
	assert.Regexp(t, `^URL\s+CACHED\s+LAST SUCCESS\s+FAILURES$`, lines[0])
	assert.Regexp(t, `^http://www.w3.org/ns/anno.jsonld\s+false\s+-\s+0$`, lines[1])
	assert.Regexp(t, `^http://www.w3.org/ns/ldp.jsonld\s+false\s+-\s+0$`, lines[2])
}
