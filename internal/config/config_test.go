package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeINI(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "romfilter.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAuthFromFile(t *testing.T) {
	t.Setenv(EnvUsername, "")
	t.Setenv(EnvAPIKey, "")
	path := writeINI(t, "[retroachievements]\nusername = alice\napi_key = secret\n")

	auth, err := LoadAuth(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", auth.Username)
	assert.Equal(t, "secret", auth.APIKey)
	assert.True(t, auth.Valid())
}

func TestLoadAuthEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvUsername, "bob")
	t.Setenv(EnvAPIKey, "")
	path := writeINI(t, "[retroachievements]\nusername = alice\napi_key = secret\n")

	auth, err := LoadAuth(path)
	require.NoError(t, err)
	assert.Equal(t, "bob", auth.Username)
	assert.Equal(t, "secret", auth.APIKey)
}

func TestLoadAuthMissingFileUsesEnv(t *testing.T) {
	t.Setenv(EnvUsername, "carol")
	t.Setenv(EnvAPIKey, "k")

	auth, err := LoadAuth(filepath.Join(t.TempDir(), "absent.ini"))
	require.NoError(t, err)
	assert.Equal(t, "carol", auth.Username)
	assert.Equal(t, "k", auth.APIKey)
}

func TestLoadAuthNothingConfigured(t *testing.T) {
	t.Setenv(EnvUsername, "")
	t.Setenv(EnvAPIKey, "")

	auth, err := LoadAuth("")
	require.NoError(t, err)
	assert.False(t, auth.Valid())
}

func TestGuidanceNamesEnvironment(t *testing.T) {
	g := Guidance()
	assert.Contains(t, g, EnvUsername)
	assert.Contains(t, g, EnvAPIKey)
}
