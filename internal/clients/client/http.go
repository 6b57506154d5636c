package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/uct-network/uct-ledger/internal/observability/metrics"
	"github.com/uct-network/uct-ledger/internal/types"
)

// maxErrorBody bounds how much of an error response is kept in the error message
const maxErrorBody = 512

type HttpClientOptions struct {
	Timeout      time.Duration
	Path         string
	TemplatePath string // Metrics purpose
	Headers      map[string]string
}

type BaseClient interface {
	GetBaseURL() string
	GetDefaultRequestTimeout() time.Duration
	GetHttpClient() *http.Client
}

func isAllowedMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
		return true
	default:
		return false
	}
}

func sendRequest[I any, R any](
	ctx context.Context, client BaseClient, method string, opts *HttpClientOptions, input *I,
) (*R, error) {
	if !isAllowedMethod(method) {
		return nil, types.NewErrorWithMsg(http.StatusMethodNotAllowed, types.InternalServiceError, "method not allowed")
	}
	url := client.GetBaseURL() + opts.Path

	timeout := client.GetDefaultRequestTimeout()
	// If timeout is set, use it instead of the default
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	// Set a timeout for the request
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if input != nil {
		payload, err := json.Marshal(input)
		if err != nil {
			return nil, types.NewErrorWithMsg(
				http.StatusInternalServerError, types.InternalServiceError,
				"failed to marshal request body",
			)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctxWithTimeout, method, url, body)
	if err != nil {
		return nil, types.NewError(http.StatusInternalServerError, types.InternalServiceError, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.GetHttpClient().Do(req)
	if err != nil {
		if ctx.Err() == nil && ctxWithTimeout.Err() != nil {
			return nil, types.NewErrorWithMsg(
				http.StatusGatewayTimeout, types.ExternalServiceError,
				fmt.Sprintf("request to %s timed out after %s", opts.TemplatePath, timeout),
			)
		}
		return nil, types.NewError(http.StatusBadGateway, types.ExternalServiceError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		errorCode := types.ExternalServiceError
		if resp.StatusCode == http.StatusNotFound {
			errorCode = types.NotFound
		}
		return nil, types.NewErrorWithMsg(
			resp.StatusCode, errorCode,
			fmt.Sprintf("unexpected status %d from %s: %s", resp.StatusCode, opts.TemplatePath, string(raw)),
		)
	}

	var output R
	if err := json.NewDecoder(resp.Body).Decode(&output); err != nil {
		return nil, types.NewError(
			http.StatusInternalServerError, types.InternalServiceError,
			fmt.Errorf("failed to decode response from %s: %w", opts.TemplatePath, err),
		)
	}

	return &output, nil
}

// SendRequest sends a json request and decodes a json response, recording the
// request duration by base url, method and templated path.
func SendRequest[I any, R any](
	ctx context.Context, client BaseClient, method string, opts *HttpClientOptions, input *I,
) (*R, error) {
	timer := metrics.StartClientRequestDurationTimer(
		client.GetBaseURL(), method, opts.TemplatePath,
	)

	result, err := sendRequest[I, R](ctx, client, method, opts, input)

	statusCode := http.StatusOK
	if err != nil {
		statusCode = http.StatusInternalServerError
		if apiErr := types.AsError(err); apiErr != nil {
			statusCode = apiErr.StatusCode
		}
		log.Ctx(ctx).Debug().Err(err).Str("path", opts.TemplatePath).Msg("client request failed")
	}
	timer(statusCode)

	return result, err
}

// IsRetryable reports whether a failed call may succeed when repeated:
// transport errors, timeouts, 429 and 5xx responses.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	apiErr := types.AsError(err)
	if apiErr == nil {
		return true
	}
	if apiErr.ErrorCode == types.InternalServiceError {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
}
