package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vaultdrive/vaultdrive/internal/client/config"
	"github.com/vaultdrive/vaultdrive/internal/utils"
	"github.com/vaultdrive/vaultdrive/internal/version"
)

var (
	home, _         = os.UserHomeDir()
	defaultVaultDir = filepath.Join(home, "VaultDrive")
	defaultLogFile  = filepath.Join(home, ".vaultdrive", "logs", "daemon.log")
	configFileName  = "config"
)

var rootCmd = &cobra.Command{
	Use:     "vaultdrive",
	Short:   "VaultDrive keeps a local vault in sync with your remote drive",
	Version: version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: runDaemon,
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "VaultDrive config file")
	rootCmd.Flags().StringP("vault", "d", defaultVaultDir, "vault directory to sync")
	rootCmd.Flags().StringP("server", "s", config.DefaultServerURL, "remote drive server URL")
	rootCmd.Flags().StringP("token", "t", "", "remote drive auth token")
}

func main() {
	// .env is optional, used for local development overrides
	_ = godotenv.Load()

	if err := setupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "logging setup: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogging() error {
	if err := os.MkdirAll(filepath.Dir(defaultLogFile), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(defaultLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	slog.SetDefault(slog.New(utils.NewFanoutHandler(stdoutHandler, fileHandler)))
	return nil
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		viper.SetConfigFile(cmd.Flag("config").Value.String())
	} else {
		viper.AddConfigPath(filepath.Join(home, ".vaultdrive"))
		viper.AddConfigPath(filepath.Join(home, ".config/vaultdrive"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read %q: %w", viper.ConfigFileUsed(), err)
		}
	}

	if f := cmd.Flags().Lookup("vault"); f != nil {
		viper.BindPFlag("vault_dir", f)
	}
	if f := cmd.Flags().Lookup("server"); f != nil {
		viper.BindPFlag("server_url", f)
	}
	if f := cmd.Flags().Lookup("token"); f != nil {
		viper.BindPFlag("token", f)
	}

	viper.SetEnvPrefix("VAULTDRIVE")
	viper.AutomaticEnv()

	return nil
}

func configFromViper() *config.Config {
	return &config.Config{
		Path:                viper.ConfigFileUsed(),
		VaultDir:            viper.GetString("vault_dir"),
		ServerURL:           viper.GetString("server_url"),
		Token:               viper.GetString("token"),
		ClientAddr:          viper.GetString("client_addr"),
		ClientToken:         viper.GetString("client_token"),
		PushIntervalSeconds: viper.GetInt("push_interval_seconds"),
		ConfirmDestructive:  viper.GetBool("confirm_destructive"),
	}
}
