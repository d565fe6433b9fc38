package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vaultdrive/vaultdrive/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".vaultdrive", "config.json")
	DefaultServerURL  = "https://drive.vaultdrive.io"
	DefaultClientAddr = "localhost:7938"

	DefaultPushInterval = 30 * time.Second
)

type Config struct {
	VaultDir  string `json:"vault_dir"`
	ServerURL string `json:"server_url"`
	Token     string `json:"token"`

	// ClientAddr is the control plane bind address.
	ClientAddr string `json:"client_addr"`
	// ClientToken guards the control plane API. Empty disables auth.
	ClientToken string `json:"client_token,omitempty"`

	// PushIntervalSeconds is the periodic push cadence. Zero disables the
	// timer, pushes then only happen on demand.
	PushIntervalSeconds int `json:"push_interval_seconds"`

	// ConfirmDestructive gates remote deletions behind a confirmation.
	ConfirmDestructive bool `json:"confirm_destructive"`

	Path string `json:"-"`
}

func (c *Config) Validate() error {
	if c.VaultDir == "" {
		return errors.New("vault_dir is required")
	}
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	return nil
}

func (c *Config) PushInterval() time.Duration {
	if c.PushIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.PushIntervalSeconds) * time.Second
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	// token material, keep it out of group/other reach
	return os.WriteFile(path, data, 0o600)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.ClientAddr == "" {
		cfg.ClientAddr = DefaultClientAddr
	}
	if cfg.PushIntervalSeconds == 0 {
		cfg.PushIntervalSeconds = int(DefaultPushInterval / time.Second)
	}
	cfg.Path = path

	return &cfg, cfg.Validate()
}

// ResolveVaultDir expands and absolutizes the configured vault directory.
func (c *Config) ResolveVaultDir() (string, error) {
	dir, err := utils.ResolvePath(c.VaultDir)
	if err != nil {
		return "", fmt.Errorf("resolve vault dir: %w", err)
	}
	return filepath.Clean(dir), nil
}
