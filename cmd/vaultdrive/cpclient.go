package main

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
	"github.com/spf13/viper"

	"github.com/vaultdrive/vaultdrive/internal/client/config"
)

// cpClient talks to a running daemon's control plane. The daemon holds the
// vault lock, so one-shot commands go through it instead of opening the
// engine a second time.
type cpClient struct {
	client *req.Client
}

func newCPClient() *cpClient {
	addr := viper.GetString("client_addr")
	if addr == "" {
		addr = config.DefaultClientAddr
	}

	client := req.C().
		SetBaseURL(fmt.Sprintf("http://%s", addr)).
		SetTimeout(5 * time.Minute)
	if token := viper.GetString("client_token"); token != "" {
		client.SetCommonBearerAuthToken(token)
	}

	return &cpClient{client: client}
}

type apiErr struct {
	Error string `json:"error"`
}

func (c *cpClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, c.client.Get(path), out)
}

func (c *cpClient) post(ctx context.Context, path string, body, out any) error {
	r := c.client.Post(path)
	if body != nil {
		r.SetBodyJsonMarshal(body)
	}
	return c.do(ctx, r, out)
}

func (c *cpClient) do(ctx context.Context, r *req.Request, out any) error {
	var e apiErr
	resp := r.SetContext(ctx).SetErrorResult(&e).SetSuccessResult(out).Do()
	if resp.Err != nil {
		return fmt.Errorf("is the daemon running? %w", resp.Err)
	}
	if resp.IsErrorState() {
		if e.Error != "" {
			return fmt.Errorf("%s", e.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	return nil
}
