package minterclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uct-network/uct-ledger/internal/config"
)

func testConfig(url string) *config.MinterConfig {
	return &config.MinterConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			URL:           url,
			APIKey:        "key",
			Timeout:       time.Second,
			MaxRetryTimes: 3,
			RetryInterval: 5 * time.Millisecond,
		},
	}
}

func TestMint_RetriesWithSameIdempotencyKey(t *testing.T) {
	var requests atomic.Int32
	keys := make(chan string, 3)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get("Idempotency-Key")
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var req mintRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "polygon", req.Network)
		assert.True(t, req.Amount.Equal(decimal.NewFromInt(5)))
		w.Write([]byte(`{"tx_hash":"0xabc"}`)) //nolint:errcheck
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL))
	txHash, err := c.Mint(context.Background(), "0x52908400098527886E0F7030069857D2E4169EE7", decimal.NewFromInt(5), "polygon", "batch-1")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", txHash)
	assert.Equal(t, int32(3), requests.Load())

	close(keys)
	for key := range keys {
		assert.Equal(t, "batch-1", key)
	}
}

func TestMint_ClientErrorIsNotRetried(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL))
	_, err := c.Mint(context.Background(), "0x52908400098527886E0F7030069857D2E4169EE7", decimal.NewFromInt(5), "polygon", "batch-2")
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestBatchMint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, batchMintPath, r.URL.Path)

		var req batchMintRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 2)
		w.Write([]byte(`{"tx_hash":"0xbatch","wallets_processed":2,"total_amount":"70"}`)) //nolint:errcheck
	}))
	defer server.Close()

	c := NewMinterWithMetrics(NewClient(testConfig(server.URL)))
	result, err := c.BatchMint(context.Background(), []MintItem{
		{WalletAddress: "0x52908400098527886E0F7030069857D2E4169EE7", Amount: decimal.NewFromInt(50)},
		{WalletAddress: "0xde709f2102306220921060314715629080e2fb77", Amount: decimal.NewFromInt(20)},
	}, "polygon", "mint-1")
	require.NoError(t, err)
	assert.Equal(t, "0xbatch", result.TxHash)
	assert.Equal(t, 2, result.WalletsProcessed)
	assert.True(t, result.TotalAmount.Equal(decimal.NewFromInt(70)))
}

func TestBatchMint_EmptyTxHash(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{"wallets_processed":2}`)) //nolint:errcheck
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL))
	_, err := c.BatchMint(context.Background(), []MintItem{{WalletAddress: "0x52908400098527886E0F7030069857D2E4169EE7", Amount: decimal.NewFromInt(1)}}, "polygon", "mint-2")
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}
