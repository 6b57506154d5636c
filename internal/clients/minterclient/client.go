package minterclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/clients/client"
	"github.com/uct-network/uct-ledger/internal/config"
)

const (
	mintPath      = "/v1/mint"
	batchMintPath = "/v1/batch-mint"
)

type Client struct {
	httpClient *http.Client
	cfg        *config.MinterConfig
}

func NewClient(cfg *config.MinterConfig) *Client {
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

type mintRequest struct {
	WalletAddress string          `json:"wallet_address"`
	Amount        decimal.Decimal `json:"amount"`
	Network       string          `json:"network"`
}

type mintResponse struct {
	TxHash string `json:"tx_hash"`
}

type batchMintRequest struct {
	Items   []MintItem `json:"items"`
	Network string     `json:"network"`
}

func (c *Client) headers(idempotencyKey string) map[string]string {
	headers := map[string]string{
		"Idempotency-Key": idempotencyKey,
	}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.cfg.APIKey
	}
	return headers
}

func (c *Client) Mint(
	ctx context.Context, walletAddress string, amount decimal.Decimal, network, idempotencyKey string,
) (string, error) {
	callMint := func() (string, error) {
		opts := &client.HttpClientOptions{
			Path:         mintPath,
			TemplatePath: mintPath,
			Headers:      c.headers(idempotencyKey),
		}
		resp, err := client.SendRequest[mintRequest, mintResponse](ctx, c, http.MethodPost, opts, &mintRequest{
			WalletAddress: walletAddress,
			Amount:        amount,
			Network:       network,
		})
		if err != nil {
			return "", err
		}
		if resp.TxHash == "" {
			return "", retry.Unrecoverable(errors.New("minter returned an empty tx hash"))
		}
		return resp.TxHash, nil
	}

	txHash, err := clientCallWithRetry(ctx, callMint, &c.cfg.HTTPClientConfig)
	if err != nil {
		return "", fmt.Errorf("failed to mint %s to %s: %w", amount.String(), walletAddress, err)
	}
	return txHash, nil
}

func (c *Client) BatchMint(
	ctx context.Context, items []MintItem, network, idempotencyKey string,
) (*BatchMintResult, error) {
	callBatchMint := func() (*BatchMintResult, error) {
		opts := &client.HttpClientOptions{
			Path:         batchMintPath,
			TemplatePath: batchMintPath,
			Headers:      c.headers(idempotencyKey),
		}
		resp, err := client.SendRequest[batchMintRequest, BatchMintResult](ctx, c, http.MethodPost, opts, &batchMintRequest{
			Items:   items,
			Network: network,
		})
		if err != nil {
			return nil, err
		}
		if resp.TxHash == "" {
			return nil, retry.Unrecoverable(errors.New("minter returned an empty tx hash"))
		}
		return resp, nil
	}

	result, err := clientCallWithRetry(ctx, callBatchMint, &c.cfg.HTTPClientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to batch mint %d items: %w", len(items), err)
	}
	return result, nil
}

// clientCallWithRetry repeats a call on transport errors, timeouts, 429 and 5xx.
// Repeating is safe because every call carries the same idempotency key.
func clientCallWithRetry[T any](
	ctx context.Context,
	call retry.RetryableFuncWithData[T],
	cfg *config.HTTPClientConfig,
) (T, error) {
	result, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(cfg.MaxRetryTimes),
		retry.Delay(cfg.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && client.IsRetryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().
				Uint("attempt", n+1).
				Uint("max_attempts", cfg.MaxRetryTimes).
				Err(err).
				Msg("minter call failed, retrying with exponential backoff")
		}))
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
