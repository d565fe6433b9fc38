package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vaultdrive/vaultdrive/internal/client/sync"
)

func init() {
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newPushCmd())
	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newUndoCmd())
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon sync status and pending operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cp := newCPClient()

			var snap sync.StatusSnapshot
			if err := cp.get(cmd.Context(), "/v1/status", &snap); err != nil {
				return err
			}

			fmt.Println(cyan.Render("state:   ") + string(snap.State))
			if snap.Message != "" {
				fmt.Println(cyan.Render("message: ") + snap.Message)
			}
			fmt.Println(cyan.Render("pending: ") + fmt.Sprintf("%d operation(s)", snap.Pending))
			if !snap.LastPushAt.IsZero() {
				fmt.Println(cyan.Render("pushed:  ") + humanize.Time(snap.LastPushAt))
			}
			if snap.LastError != "" {
				fmt.Println(red.Render("error:   ") + snap.LastError)
			}

			var journal struct {
				Operations []struct {
					Path string `json:"path"`
					Kind string `json:"kind"`
				} `json:"operations"`
			}
			if err := cp.get(cmd.Context(), "/v1/sync/journal", &journal); err != nil {
				return err
			}
			for _, op := range journal.Operations {
				fmt.Printf("  %s %s\n", gray.Render(op.Kind), op.Path)
			}
			return nil
		},
	}
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push pending local changes to the remote drive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cp := newCPClient()

			var snap sync.StatusSnapshot
			err := runWithSpinner(cmd.Context(), "pushing changes...", func(ctx context.Context) error {
				return cp.post(ctx, "/v1/sync/push", nil, &snap)
			})
			if err != nil {
				return err
			}
			fmt.Println(green.Render("✓ ") + snap.Message)
			return nil
		},
	}
}

func newPullCmd() *cobra.Command {
	var force bool

	pullCmd := &cobra.Command{
		Use:   "pull",
		Short: "Merge remote drive changes into the vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cp := newCPClient()

			body := map[string]bool{"forceRemoteWins": force}
			var snap sync.StatusSnapshot
			err := runWithSpinner(cmd.Context(), "pulling remote changes...", func(ctx context.Context) error {
				return cp.post(ctx, "/v1/sync/pull", body, &snap)
			})
			if err != nil {
				return err
			}
			fmt.Println(green.Render("✓ pull complete"))
			return nil
		},
	}
	pullCmd.Flags().BoolVar(&force, "force", false, "let the remote side win over pending local changes")

	return pullCmd
}

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo [path ...]",
		Short: "Reverse pending local changes, restoring remote state",
		Long:  "Reverse pending operations for the given vault paths, or all pending operations when no path is given. Paths may be glob patterns such as 'notes/**'. Local state is restored from the remote drive.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cp := newCPClient()

			body := map[string][]string{"paths": args}
			var result struct {
				Reversed []struct {
					Path  string `json:"path"`
					Kind  string `json:"kind"`
					Error string `json:"error,omitempty"`
				} `json:"reversed"`
				Failed int `json:"failed"`
			}
			if err := cp.post(cmd.Context(), "/v1/sync/undo", body, &result); err != nil {
				return err
			}

			for _, r := range result.Reversed {
				if r.Error != "" {
					fmt.Println(red.Render("✗ ") + fmt.Sprintf("%s (%s): %s", r.Path, r.Kind, r.Error))
				} else {
					fmt.Println(green.Render("✓ ") + fmt.Sprintf("%s (%s)", r.Path, r.Kind))
				}
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d operation(s) could not be reversed", result.Failed)
			}
			return nil
		},
	}
}
