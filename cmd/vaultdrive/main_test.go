package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("VAULTDRIVE_VAULT_DIR", "/tmp/vaultdrive-test")
	t.Setenv("VAULTDRIVE_SERVER_URL", "https://test.vaultdrive.io")
	t.Setenv("VAULTDRIVE_TOKEN", "test-token")
	t.Setenv("VAULTDRIVE_CLIENT_ADDR", "localhost:7001")
	t.Setenv("VAULTDRIVE_PUSH_INTERVAL_SECONDS", "15")

	require.NoError(t, loadConfig(rootCmd))
	cfg := configFromViper()

	assert.Equal(t, "/tmp/vaultdrive-test", cfg.VaultDir)
	assert.Equal(t, "https://test.vaultdrive.io", cfg.ServerURL)
	assert.Equal(t, "test-token", cfg.Token)
	assert.Equal(t, "localhost:7001", cfg.ClientAddr)
	assert.Equal(t, 15, cfg.PushIntervalSeconds)
}

func TestLoadConfigJSON(t *testing.T) {
	viper.Reset()
	dummyConfig := `
{
	"vault_dir": "/tmp/vaultdrive-test-json",
	"server_url": "https://test-json.vaultdrive.io",
	"token": "test-token-json",
	"client_addr": "localhost:7002",
	"confirm_destructive": true
}`

	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(dummyConfig), 0o600))
	require.NoError(t, rootCmd.PersistentFlags().Set("config", configPath))
	t.Cleanup(func() {
		rootCmd.PersistentFlags().Set("config", "")
		rootCmd.Flag("config").Changed = false
	})

	require.NoError(t, loadConfig(rootCmd))
	cfg := configFromViper()

	assert.Equal(t, "/tmp/vaultdrive-test-json", cfg.VaultDir)
	assert.Equal(t, "https://test-json.vaultdrive.io", cfg.ServerURL)
	assert.Equal(t, "test-token-json", cfg.Token)
	assert.Equal(t, "localhost:7002", cfg.ClientAddr)
	assert.True(t, cfg.ConfirmDestructive)
	assert.Equal(t, configPath, cfg.Path)
}

func TestLoadConfigMissingFileIsTolerated(t *testing.T) {
	viper.Reset()
	require.NoError(t, rootCmd.PersistentFlags().Set("config", filepath.Join(t.TempDir(), "nope.json")))
	t.Cleanup(func() {
		rootCmd.PersistentFlags().Set("config", "")
		rootCmd.Flag("config").Changed = false
	})

	assert.NoError(t, loadConfig(rootCmd))
}
