package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vaultdrive/vaultdrive/internal/client/config"
)

// Daemon runs the client and its control plane together.
type Daemon struct {
	client *Client
	cps    *ControlPlaneServer
}

func NewDaemon(cfg *config.Config) (*Daemon, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}

	cps, err := NewControlPlaneServer(&ControlPlaneConfig{
		Addr:      cfg.ClientAddr,
		AuthToken: cfg.ClientToken,
	}, c)
	if err != nil {
		return nil, err
	}

	return &Daemon{client: c, cps: cps}, nil
}

// Client exposes the daemon's underlying client.
func (d *Daemon) Client() *Client {
	return d.client
}

func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("daemon start")

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := d.client.Start(egCtx); err != nil {
			return fmt.Errorf("client: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		if err := d.cps.Start(egCtx); err != nil {
			return fmt.Errorf("control plane: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("shutting down daemon")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return d.cps.Stop(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("daemon failure", "error", err)
		return err
	}

	slog.Info("daemon stopped")
	return nil
}
