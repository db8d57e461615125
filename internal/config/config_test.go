package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsAndExpansion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SITE_TITLE_TEST", "Expanded")
	p := writeFile(t, dir, "config.yaml", "site:\n  title: ${SITE_TITLE_TEST}\ntaxonomies: [tags]\n")

	cfg, err := Load(p, "")
	require.NoError(t, err)

	assert.Equal(t, "Expanded", cfg.Site.Title)
	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, "content", cfg.Paths.Content)
	assert.Equal(t, filepath.Join(dir, "public"), cfg.OutputDir())
	assert.Equal(t, 64, cfg.Build.MaxPasses)
	assert.Equal(t, "_default", cfg.Build.DefaultLayout)
	assert.Equal(t, 1313, cfg.Serve.Port)
	assert.Equal(t, 150*time.Millisecond, cfg.Serve.QuietWindow)
	assert.True(t, cfg.Serve.LiveReloadEnabled())
	assert.Equal(t, []string{"tags"}, cfg.Taxonomies)
	assert.True(t, cfg.IsConfigFile(p))
}

func TestLoad_EnvironmentOverlay(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "site:\n  title: Base\nbuild:\n  minify: false\n  drafts: true\n")
	writeFile(t, dir, "config.production.yaml", "build:\n  minify: true\n  drafts: false\nserve:\n  quiet_window: 50ms\n")

	cfg, err := Load(p, "production")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "Base", cfg.Site.Title)
	assert.True(t, cfg.Build.Minify)
	assert.False(t, cfg.Build.Drafts)
	assert.Equal(t, 50*time.Millisecond, cfg.Serve.QuietWindow)
	assert.Len(t, cfg.Files, 2)
}

func TestLoad_DotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SB_TEST_BASE", "from-process")
	t.Setenv("SB_TEST_URL", "")
	require.NoError(t, os.Unsetenv("SB_TEST_URL"))
	writeFile(t, dir, ".env", "SB_TEST_BASE=from-dotenv\nSB_TEST_URL=https://example.org\n")
	p := writeFile(t, dir, "config.yaml", "site:\n  title: ${SB_TEST_BASE}\n  base_url: ${SB_TEST_URL}\n")

	cfg, err := Load(p, "")
	require.NoError(t, err)

	assert.Equal(t, "from-process", cfg.Site.Title)
	assert.Equal(t, "https://example.org", cfg.Site.BaseURL)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("unknown field", func(t *testing.T) {
		dir := t.TempDir()
		p := writeFile(t, dir, "config.yaml", "sitee:\n  title: x\n")
		_, err := Load(p, "")
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	})

	t.Run("invalid value", func(t *testing.T) {
		dir := t.TempDir()
		p := writeFile(t, dir, "config.yaml", "serve:\n  port: 70000\n")
		_, err := Load(p, "")
		require.Error(t, err)
		ce, ok := errors.AsClassified(err)
		require.True(t, ok)
		field, _ := ce.Context().GetString("field")
		assert.Equal(t, "serve.port", field)
	})
}

func TestValidateConfig(t *testing.T) {
	base := func(t *testing.T) *Config {
		cfg, err := Default(t.TempDir())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"output is root", func(c *Config) { c.Paths.Output = "." }, "paths.output"},
		{"content escapes root", func(c *Config) { c.Paths.Content = "../elsewhere" }, "paths.content"},
		{"max passes", func(c *Config) { c.Build.MaxPasses = 0 }, "build.max_passes"},
		{"layout name", func(c *Config) { c.Build.DefaultLayout = "a/b" }, "build.default_layout"},
		{"duplicate taxonomy", func(c *Config) { c.Taxonomies = []string{"tags", "tags"} }, "taxonomies"},
		{"max delay", func(c *Config) { c.Serve.MaxDelay = time.Millisecond }, "serve.max_delay"},
		{"wildcard subject", func(c *Config) { c.Events = EventsConfig{NATSURL: "nats://x", Subject: "a.*"} }, "events.subject"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.edit(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			ce, ok := errors.AsClassified(err)
			require.True(t, ok)
			field, _ := ce.Context().GetString("field")
			assert.Equal(t, tt.field, field)
		})
	}
}
