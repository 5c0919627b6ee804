package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureEnvironmentWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, EnsureEnvironment(dir))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().BaseURL, cfg.BaseURL)
	assert.Zero(t, cfg.Timeout(), "no timeout by default")
}

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()

	saved := Config{BaseURL: "https://chat.example", TimeoutSeconds: 30, LoginURL: "https://chat.example/login"}
	require.NoError(t, SaveConfig(dir, saved))

	loaded, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestCredentialStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewCredentialStore(dir)
	require.NoError(t, err)
	assert.Empty(t, store.Token())

	require.NoError(t, store.Set("tok-123"))

	reopened, err := NewCredentialStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", reopened.Token())
}

func TestCredentialStoreClear(t *testing.T) {
	dir := t.TempDir()

	store, err := NewCredentialStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("tok-123"))

	require.NoError(t, store.Clear())
	assert.Empty(t, store.Token())
	require.NoError(t, store.Clear(), "clearing twice is fine")

	reopened, err := NewCredentialStore(dir)
	require.NoError(t, err)
	assert.Empty(t, reopened.Token(), "cleared token must not survive a restart")
}
