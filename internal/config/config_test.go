package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"POSTGRES_URL", "OPENGOST_POSTGRES_URL", "OPENGOST_LISTEN_ADDR", "OPENGOST_CURVE",
		"OPENGOST_OPERATORS", "OPENGOST_SESSION_LIFETIME", "OPENGOST_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_URL", "postgres://localhost/opengost")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3001", c.ListenAddr)
	assert.Equal(t, "postgres://localhost/opengost", c.PostgresURL)
	assert.Equal(t, "cryptopro-a", c.Curve)
	assert.Equal(t, 12*time.Hour, c.SessionLifetime)
	assert.Equal(t, "sign.key", c.SignKeyPath)
	assert.Empty(t, c.Operators)
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_URL", "postgres://legacy")
	t.Setenv("OPENGOST_POSTGRES_URL", "postgres://prefixed")
	t.Setenv("OPENGOST_LISTEN_ADDR", "127.0.0.1:8443")
	t.Setenv("OPENGOST_CURVE", "tc26-512-b")
	t.Setenv("OPENGOST_OPERATORS", "alice, bob ,,carol")
	t.Setenv("OPENGOST_SESSION_LIFETIME", "30m")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://prefixed", c.PostgresURL)
	assert.Equal(t, "127.0.0.1:8443", c.ListenAddr)
	assert.Equal(t, "tc26-512-b", c.Curve)
	assert.Equal(t, 30*time.Minute, c.SessionLifetime)
	assert.Equal(t, []string{"alice", "bob", "carol"}, c.Operators)
	assert.True(t, c.IsOperator("bob"))
	assert.False(t, c.IsOperator("mallory"))
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "opengost.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":8080"
postgres_url: "postgres://from-file"
curve: tc26-512-a
session_lifetime: 1h
operators:
  - alice
  - bob
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.ListenAddr)
	assert.Equal(t, "postgres://from-file", c.PostgresURL)
	assert.Equal(t, time.Hour, c.SessionLifetime)
	assert.Equal(t, []string{"alice", "bob"}, c.Operators)

	// The environment wins over the file.
	t.Setenv("OPENGOST_CURVE", "test")
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", c.Curve)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	_, err := Load("")
	assert.ErrorContains(t, err, "postgres_url")

	t.Setenv("POSTGRES_URL", "postgres://x")
	t.Setenv("OPENGOST_CURVE", "P-256")
	_, err = Load("")
	assert.ErrorContains(t, err, "curve")

	t.Setenv("OPENGOST_CURVE", "")
	t.Setenv("OPENGOST_SESSION_LIFETIME", "-1s")
	_, err = Load("")
	assert.ErrorContains(t, err, "session_lifetime")
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))

	const key = "OPENGOST_DOTENV_TEST"
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv(key) })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv(key))
}
