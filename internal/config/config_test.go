package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "localhost", cfg.Hostname)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 24*time.Hour, cfg.JSONLDCacheValidity)
	assert.True(t, cfg.JSONLDKeepExpiredProfiles)
	assert.True(t, cfg.MultipleAnnotationPost)
	assert.True(t, cfg.ContentNegotiation)
	assert.False(t, cfg.MandatoryLabelInContainers)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL())
	assert.Equal(t, "http://localhost:8080/wap/", cfg.RootContainerIRI())
	assert.True(t, cfg.IsRootContainer("http://localhost:8080/wap/"))
	assert.False(t, cfg.IsRootContainer("http://localhost:8080/wap/c/"))
}

func TestBaseURLOmitsDefaultPorts(t *testing.T) {
	cfg := Default()
	cfg.Port = 80
	assert.Equal(t, "http://localhost", cfg.BaseURL())
	cfg.EnableHTTPS = true
	assert.Equal(t, "https://localhost:80", cfg.BaseURL())
	cfg.Port = 443
	assert.Equal(t, "https://localhost", cfg.BaseURL())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "wap.yaml")
	content := "Hostname: example.org\nPageSize: 5\nJsonLdCacheValidity: 90m\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	t.Setenv("WAP_PORT", "9090")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "example.org", cfg.Hostname)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, 90*time.Minute, cfg.JSONLDCacheValidity)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "http://example.org:9090/wap/", cfg.RootContainerIRI())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "wap.toml")
	require.NoError(t, os.WriteFile(file, []byte("PageSize = 0\n"), 0o644))
	_, err := Load(file)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
