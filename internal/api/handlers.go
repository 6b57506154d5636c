package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/uct-network/uct-ledger/internal/services"
	"github.com/uct-network/uct-ledger/internal/types"
)

type stakeRequest struct {
	Tier string `json:"tier"`
}

type burnRequest struct {
	BurnType      string          `json:"burn_type"`
	Units         int64           `json:"units"`
	BaseCost      decimal.Decimal `json:"base_cost"`
	ActionContext string          `json:"action_context"`
}

func (b burnRequest) context() services.BurnContext {
	return services.BurnContext{
		Units:         b.Units,
		BaseCost:      b.BaseCost,
		ActionContext: b.ActionContext,
	}
}

type burnEstimateResponse struct {
	BurnType string          `json:"burn_type"`
	Cost     decimal.Decimal `json:"cost"`
}

type settlementRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		writeError(r.Context(), w, types.NewErrorWithMsg(
			http.StatusServiceUnavailable, types.InternalServiceError, "storage unavailable",
		))
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func userID(r *http.Request) string {
	return chi.URLParam(r, "userId")
}

func limitParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit < 0 {
		return 0, types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, "limit must be a non negative integer")
	}
	return limit, nil
}

func (s *Server) recordActivity(r *http.Request) (int, any, error) {
	var event services.ActivityEvent
	if err := decodeBody(r, &event); err != nil {
		return 0, nil, err
	}
	result, err := s.service.ComputeAndApplyReward(r.Context(), event)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, result, nil
}

func (s *Server) getStats(r *http.Request) (int, any, error) {
	stats, err := s.service.GetStats(r.Context())
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, stats, nil
}

func (s *Server) getBalance(r *http.Request) (int, any, error) {
	balance, err := s.service.GetBalance(r.Context(), userID(r))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, balance, nil
}

func (s *Server) getLedger(r *http.Request) (int, any, error) {
	limit, err := limitParam(r)
	if err != nil {
		return 0, nil, err
	}
	entries, err := s.service.GetLedger(r.Context(), userID(r), limit)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, entries, nil
}

func (s *Server) getAutonomy(r *http.Request) (int, any, error) {
	level, err := s.service.GetAutonomyLevel(r.Context(), userID(r))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, level, nil
}

func (s *Server) getBurns(r *http.Request) (int, any, error) {
	limit, err := limitParam(r)
	if err != nil {
		return 0, nil, err
	}
	logs, err := s.service.GetBurnHistory(r.Context(), userID(r), limit)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, logs, nil
}

func (s *Server) burn(r *http.Request) (int, any, error) {
	var req burnRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, nil, err
	}
	burnLog, err := s.service.Burn(r.Context(), userID(r), req.BurnType, req.context())
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, burnLog, nil
}

func (s *Server) estimateBurn(r *http.Request) (int, any, error) {
	var req burnRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, nil, err
	}
	cost, err := s.service.EstimateBurn(req.BurnType, req.context())
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, burnEstimateResponse{BurnType: req.BurnType, Cost: cost}, nil
}

func (s *Server) getStakes(r *http.Request) (int, any, error) {
	stakes, err := s.service.GetStakes(r.Context(), userID(r))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, stakes, nil
}

func (s *Server) stake(r *http.Request) (int, any, error) {
	var req stakeRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, nil, err
	}
	stake, err := s.service.Stake(r.Context(), userID(r), req.Tier)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, stake, nil
}

func (s *Server) requestUnstake(r *http.Request) (int, any, error) {
	stake, err := s.service.RequestUnstake(r.Context(), userID(r), chi.URLParam(r, "stakeId"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, stake, nil
}

func (s *Server) completeUnstake(r *http.Request) (int, any, error) {
	stake, err := s.service.CompleteUnstake(r.Context(), userID(r), chi.URLParam(r, "stakeId"))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, stake, nil
}

func (s *Server) claimPending(r *http.Request) (int, any, error) {
	result, err := s.service.ClaimPending(r.Context(), userID(r))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, result, nil
}

func (s *Server) getSettlements(r *http.Request) (int, any, error) {
	batches, err := s.service.GetSettlements(r.Context(), userID(r))
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, batches, nil
}

func (s *Server) requestSettlement(r *http.Request) (int, any, error) {
	var req settlementRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, nil, err
	}
	batch, err := s.service.RequestSettlement(r.Context(), userID(r), req.Amount)
	if err != nil {
		// a refunded batch is returned with the error so the caller sees its final status
		if batch != nil {
			return 0, batch, err
		}
		return 0, nil, err
	}
	return http.StatusCreated, batch, nil
}

func (s *Server) runBatchMint(r *http.Request) (int, any, error) {
	report, err := s.service.RunBatchMint(r.Context())
	if err != nil {
		if report != nil {
			return 0, report, err
		}
		return 0, nil, err
	}
	return http.StatusOK, report, nil
}
