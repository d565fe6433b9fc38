package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaultdrive/vaultdrive/internal/client"
	"github.com/vaultdrive/vaultdrive/internal/version"
)

func init() {
	rootCmd.AddCommand(newDaemonCmd())
}

// runDaemon backs both the bare `vaultdrive` invocation and the explicit
// daemon subcommand.
func runDaemon(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg := configFromViper()
	if err := cfg.Validate(); err != nil {
		return err
	}

	showHeader()
	slog.Info("vaultdrive", "version", version.Version, "revision", version.Revision, "build", version.BuildDate)

	daemon, err := client.NewDaemon(cfg)
	if err != nil {
		return err
	}

	// a tty gets the interactive confirmation for destructive pushes
	if cfg.ConfirmDestructive && isatty.IsTerminal(os.Stdout.Fd()) {
		daemon.Client().SetConfirmer(newTUIConfirmer())
	}

	defer slog.Info("Bye!")
	if err := daemon.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("daemon", "error", err)
		return err
	}
	return nil
}

func newDaemonCmd() *cobra.Command {
	var addr string
	var authToken string

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Start the VaultDrive sync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("http-addr") {
				viper.Set("client_addr", addr)
			}
			if cmd.Flags().Changed("http-token") {
				viper.Set("client_token", authToken)
			}
			return runDaemon(cmd, args)
		},
	}

	daemonCmd.Flags().StringVarP(&addr, "http-addr", "a", "localhost:7938", "address to bind the control plane")
	daemonCmd.Flags().StringVarP(&authToken, "http-token", "t", "", "access token for the control plane")

	return daemonCmd
}
