package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/uct-network/uct-ledger/internal/types"
)

type errorBody struct {
	Code    types.ErrorCode `json:"code"`
	Message string          `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
	// Result carries the resource the failed operation left behind, e.g. a refunded settlement
	Result any `json:"result,omitempty"`
}

// handlerFunc returns the response body and status of a successful call.
type handlerFunc func(r *http.Request) (int, any, error)

func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body, err := fn(r)
		if err != nil {
			writeErrorWithResult(r.Context(), w, err, body)
			return
		}
		writeJSON(r.Context(), w, status, body)
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to write response")
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	writeErrorWithResult(ctx, w, err, nil)
}

// writeErrorWithResult maps service errors to their status code. Anything
// that is not a *types.Error is reported as an internal error without details.
func writeErrorWithResult(ctx context.Context, w http.ResponseWriter, err error, result any) {
	var apiErr *types.Error
	if !errors.As(err, &apiErr) {
		apiErr = types.NewInternalServiceError(err)
	}

	message := apiErr.Error()
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Ctx(ctx).Error().Err(err).
			Stringer("error_code", apiErr.ErrorCode).
			Msg("request failed")
		if apiErr.ErrorCode == types.InternalServiceError {
			message = "internal service error"
		}
	}

	writeJSON(ctx, w, apiErr.StatusCode, errorResponse{
		Error:  errorBody{Code: apiErr.ErrorCode, Message: message},
		Result: result,
	})
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "invalid request body: "+err.Error())
	}
	return nil
}
