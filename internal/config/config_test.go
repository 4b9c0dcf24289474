package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hashview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, 30*time.Minute, cfg.MaxInactiveInterval)
	assert.Equal(t, DefaultWhitelist, cfg.Policy().Names())
}

func TestDefaultWhitelist_CounterFields(t *testing.T) {
	p := Default().Policy()
	assert.True(t, p.Contains("sessionAttr:updatedDate"))
	assert.True(t, p.Contains("sessionAttr:increment"))
	assert.False(t, p.Contains("sessionAttr:lastUpdatedDate"))
	assert.False(t, p.Contains("sessionAttr:uuid"))
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
backend: bolt
path: /tmp/sessions.bolt
namespace: shop
whitelist:
  - creationTime
  - sessionAttr:cart
maxInactiveInterval: 10m
logLevel: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Backend:             BackendBolt,
		Path:                "/tmp/sessions.bolt",
		Namespace:           "shop",
		Whitelist:           []string{"creationTime", "sessionAttr:cart"},
		MaxInactiveInterval: 10 * time.Minute,
		LogLevel:            "debug",
	}, cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "namespace: shop\n"))
	require.NoError(t, err)

	assert.Equal(t, "shop", cfg.Namespace)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, DefaultWhitelist, cfg.Whitelist)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EmptyWhitelistIsValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, "whitelist: []\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Whitelist)
	assert.Zero(t, cfg.Policy().Len())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "backend: bolt\nnamespace: shop\n")
	t.Setenv("HASHVIEW_BACKEND", "sqlite")
	t.Setenv("HASHVIEW_DB", "env.db")
	t.Setenv("HASHVIEW_WHITELIST", "a, b ,c")
	t.Setenv("HASHVIEW_MAX_INACTIVE_INTERVAL", "1h")
	t.Setenv("HASHVIEW_LOG_LEVEL", "WARN")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "env.db", cfg.Path)
	assert.Equal(t, "shop", cfg.Namespace)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Whitelist)
	assert.Equal(t, time.Hour, cfg.MaxInactiveInterval)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_EnvError(t *testing.T) {
	t.Setenv("HASHVIEW_MAX_INACTIVE_INTERVAL", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoad_NormalizesNFC(t *testing.T) {
	// Decomposed "e" plus combining acute accent, padded with spaces.
	cfg, err := Load(writeConfig(t, "whitelist: [\"  sessionAttr:cafe\u0301  \"]\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"sessionAttr:caf\u00e9"}, cfg.Whitelist)
	assert.True(t, cfg.Policy().Contains("sessionAttr:caf\u00e9"))
	assert.False(t, cfg.Policy().Contains("sessionAttr:cafe\u0301"))
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "backnd: bolt\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backnd")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"backend", "backend: redis\n", "backend"},
		{"empty path", "path: \"\"\n", "path"},
		{"namespace", "namespace: \"a:b\"\n", "namespace"},
		{"blank whitelist entry", "whitelist: [a, \"  \"]\n", "whitelist"},
		{"negative interval", "maxInactiveInterval: -1m\n", "maxInactiveInterval"},
		{"log level", "logLevel: loud\n", "logLevel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_Default(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}
