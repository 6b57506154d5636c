package walletclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/uct-network/uct-ledger/internal/clients/client"
	"github.com/uct-network/uct-ledger/internal/config"
	"github.com/uct-network/uct-ledger/internal/types"
)

const primaryWalletPath = "/v1/users/{user_id}/wallets/primary"

type Client struct {
	httpClient *http.Client
	cfg        *config.WalletDirectoryConfig
}

func NewClient(cfg *config.WalletDirectoryConfig) *Client {
	return &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
	}
}

func (c *Client) GetBaseURL() string {
	return c.cfg.URL
}

func (c *Client) GetDefaultRequestTimeout() time.Duration {
	return c.cfg.Timeout
}

func (c *Client) GetHttpClient() *http.Client {
	return c.httpClient
}

type primaryWalletResponse struct {
	WalletAddress string `json:"wallet_address"`
}

func (c *Client) GetPrimaryWallet(ctx context.Context, userID string) (string, error) {
	callPrimaryWallet := func() (string, error) {
		opts := &client.HttpClientOptions{
			Path:         "/v1/users/" + url.PathEscape(userID) + "/wallets/primary",
			TemplatePath: primaryWalletPath,
		}
		if c.cfg.APIKey != "" {
			opts.Headers = map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
		}

		resp, err := client.SendRequest[any, primaryWalletResponse](ctx, c, http.MethodGet, opts, nil)
		if err != nil {
			// no verified wallet is an answer, not a failure
			if types.IsErrorCode(err, types.NotFound) {
				return "", nil
			}
			return "", err
		}
		return resp.WalletAddress, nil
	}

	result, err := retry.DoWithData(callPrimaryWallet,
		retry.Context(ctx),
		retry.Attempts(c.cfg.MaxRetryTimes),
		retry.Delay(c.cfg.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(client.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Str("user_id", userID).
				Err(err).
				Msg("wallet lookup failed, retrying")
		}))
	if err != nil {
		return "", fmt.Errorf("failed to get primary wallet of %s: %w", userID, err)
	}

	return result, nil
}
