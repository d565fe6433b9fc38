package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultdrive/vaultdrive/internal/client/config"
)

func init() {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	var vaultDir string
	var serverURL string
	var token string
	var confirm bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a VaultDrive config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = config.DefaultConfigPath
			}

			cfg := &config.Config{
				VaultDir:            vaultDir,
				ServerURL:           serverURL,
				Token:               token,
				ClientAddr:          config.DefaultClientAddr,
				PushIntervalSeconds: int(config.DefaultPushInterval.Seconds()),
				ConfirmDestructive:  confirm,
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(configPath); err != nil {
				return err
			}

			fmt.Println(green.Render("✓ config written to ") + configPath)
			return nil
		},
	}

	initCmd.Flags().StringVarP(&vaultDir, "vault", "d", defaultVaultDir, "vault directory to sync")
	initCmd.Flags().StringVarP(&serverURL, "server", "s", config.DefaultServerURL, "remote drive server URL")
	initCmd.Flags().StringVarP(&token, "token", "t", "", "remote drive auth token")
	initCmd.Flags().BoolVar(&confirm, "confirm-destructive", false, "ask before pushing remote deletions")

	return initCmd
}
