package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mlimwengu/CourseHubGo/internal/repository"
	"github.com/mlimwengu/CourseHubGo/internal/service"
	"github.com/mlimwengu/CourseHubGo/pkg/httputil"
	"github.com/mlimwengu/CourseHubGo/pkg/pagination"
	"github.com/mlimwengu/CourseHubGo/pkg/validator"
)

// PointsHandler handles HTTP requests for the points ledger, redemption
// requests, and the reward catalog.
type PointsHandler struct {
	points *service.PointsService
	logger *slog.Logger
}

// NewPointsHandler creates a new points HTTP handler.
func NewPointsHandler(points *service.PointsService, logger *slog.Logger) *PointsHandler {
	return &PointsHandler{
		points: points,
		logger: logger,
	}
}

// CreditRequest is the JSON request body for crediting points.
type CreditRequest struct {
	Points int64 `json:"points" validate:"required,gt=0"`
}

// DecideRequest is the JSON request body for deciding a redemption request.
type DecideRequest struct {
	Status    string `json:"status" validate:"required,oneof=approved rejected"`
	DecidedBy string `json:"decided_by" validate:"required"`
}

// Redeem handles POST /api/v1/redemptions
func (h *PointsHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req service.RedeemInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	request, err := h.points.Redeem(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: request})
}

// GetRedemption handles GET /api/v1/redemptions/{id}
func (h *PointsHandler) GetRedemption(w http.ResponseWriter, r *http.Request) {
	request, err := h.points.GetRedemption(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: request})
}

// ListRedemptions handles GET /api/v1/redemptions
func (h *PointsHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := repository.RedemptionFilter{
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	requests, total, err := h.points.ListRedemptions(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(requests, total, params))
}

// DecideRedemption handles PUT /api/v1/redemptions/{id}/status
func (h *PointsHandler) DecideRedemption(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req DecideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	request, err := h.points.DecideRedemption(r.Context(), chi.URLParam(r, "id"), req.Status, req.DecidedBy)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: request})
}

// CreditPoints handles POST /api/v1/users/{id}/points/credit
func (h *PointsHandler) CreditPoints(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	balance, err := h.points.CreditPoints(r.Context(), chi.URLParam(r, "id"), req.Points)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]int64{"points_balance": balance}})
}

// CreateReward handles POST /api/v1/rewards
func (h *PointsHandler) CreateReward(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req service.CreateRewardInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	reward, err := h.points.CreateReward(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: reward})
}

// ListRewards handles GET /api/v1/rewards
func (h *PointsHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	activeOnly := r.URL.Query().Get("active") == "true"

	rewards, total, err := h.points.ListRewards(r.Context(), activeOnly, params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(rewards, total, params))
}
