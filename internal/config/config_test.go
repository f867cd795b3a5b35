package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"pages_dir": "pages",
		"templates_dir": "templates",
		"static_dir": "static",
		"assets_dir": "assets",
		"output_dir": "out",
		"base_url": "https://example.com",
		"collections": {"posts": {"path": "posts"}}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "My Static Site", cfg.SiteTitle)
	require.Equal(t, "posts", cfg.Collections["posts"].Output)
	require.Zero(t, cfg.RebuildInterval())
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestLoad_MalformedJSON_ReturnsError(t *testing.T) {
	path := writeConfig(t, `{"pages_dir": `)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingRequiredKey_ReturnsError(t *testing.T) {
	path := writeConfig(t, `{
		"pages_dir": "pages",
		"templates_dir": "templates",
		"static_dir": "static",
		"assets_dir": "assets",
		"output_dir": "out"
	}`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "base_url")
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("SITEGEN_TEST_BASE", "https://env.example.com")
	path := writeConfig(t, `{
		"pages_dir": "pages",
		"templates_dir": "templates",
		"static_dir": "static",
		"assets_dir": "assets",
		"output_dir": "out",
		"base_url": "${SITEGEN_TEST_BASE}"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com", cfg.BaseURL)
}

func TestRebuildInterval_Configured_ReturnsDuration(t *testing.T) {
	cfg := &Config{RebuildIntervalSeconds: 30}
	require.Equal(t, 30*time.Second, cfg.RebuildInterval())
}
