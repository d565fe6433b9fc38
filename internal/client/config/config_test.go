package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := &Config{
		VaultDir:            "/tmp/vault",
		ServerURL:           "https://example.test",
		Token:               "secret",
		ClientAddr:          "localhost:9999",
		PushIntervalSeconds: 60,
		ConfirmDestructive:  true,
	}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.VaultDir, got.VaultDir)
	assert.Equal(t, cfg.Token, got.Token)
	assert.Equal(t, cfg.ClientAddr, got.ClientAddr)
	assert.True(t, got.ConfirmDestructive)
	assert.Equal(t, path, got.Path)
	assert.Equal(t, time.Minute, got.PushInterval())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"vault_dir":"/tmp/v"}`), 0o600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, got.ServerURL)
	assert.Equal(t, DefaultClientAddr, got.ClientAddr)
	assert.Equal(t, DefaultPushInterval, got.PushInterval())
}

func TestLoadRejectsMissingVaultDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestPushIntervalDisabled(t *testing.T) {
	cfg := &Config{PushIntervalSeconds: -1}
	assert.Zero(t, cfg.PushInterval())
}
