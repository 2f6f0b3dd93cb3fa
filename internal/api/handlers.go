package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/tripcost/internal/common"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/money"
	"github.com/Veraticus/tripcost/internal/predictor"
	"github.com/Veraticus/tripcost/internal/tier"
)

const (
	unavailableMessage = "not enough data yet to estimate trip costs"
	staleModelMessage  = "expense stored, model not updated"
)

// CostService is the subset of predictor.Service the API needs.
type CostService interface {
	Predict(ctx context.Context, f model.Features) (predictor.Prediction, error)
	ForecastTrip(ctx context.Context, origin, dest string, start, end time.Time, participants int) (predictor.Forecast, error)
	SubmitExpense(ctx context.Context, report model.ExpenseReport) (predictor.SubmitResult, error)
	InsertObservation(ctx context.Context, destCity string, distanceKm, durationDays, totalCost float64, userID string) (bool, *float64)
	Retrain(ctx context.Context) (*float64, error)
	Count(ctx context.Context) (int, error)
}

// Handler serves the prediction endpoints.
type Handler struct {
	service CostService
}

// NewHandler creates a handler backed by svc.
func NewHandler(svc CostService) *Handler {
	return &Handler{service: svc}
}

// PredictionRequest is the body of POST /api/v1/predictions.
type PredictionRequest struct {
	Tier         string  `json:"tier" binding:"omitempty,oneof=T1 T2 T3"`
	DestCity     string  `json:"dest_city" binding:"required"`
	DistanceKm   float64 `json:"distance_km" binding:"gte=0"`
	DurationDays float64 `json:"duration_days" binding:"required,gt=0"`
}

// PredictionResponse is returned for predictions.
type PredictionResponse struct {
	Cost      *float64   `json:"cost"`
	Tier      tier.Label `json:"tier"`
	DestCity  string     `json:"dest_city"`
	Available bool       `json:"available"`
}

// Predict handles POST /api/v1/predictions.
func (h *Handler) Predict(c *gin.Context) {
	var req PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	prediction, err := h.service.Predict(c.Request.Context(), model.Features{
		Tier:         tier.Label(req.Tier),
		DestCity:     req.DestCity,
		DistanceKm:   req.DistanceKm,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := PredictionResponse{
		Tier:      prediction.Features.Tier,
		DestCity:  prediction.Features.DestCity,
		Available: prediction.Available,
	}
	if !prediction.Available {
		SuccessMessage(c, unavailableMessage, resp)
		return
	}
	resp.Cost = rounded(prediction.Cost)
	Success(c, resp)
}

// ForecastRequest is the body of POST /api/v1/forecasts.
type ForecastRequest struct {
	Origin       string `json:"origin" binding:"required"`
	Destination  string `json:"destination" binding:"required"`
	StartDate    string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate      string `json:"end_date" binding:"required,datetime=2006-01-02"`
	Participants int    `json:"participants" binding:"required,gte=1"`
}

// ForecastResponse is returned for forecasts.
type ForecastResponse struct {
	PerPerson    *float64   `json:"per_person"`
	Total        *float64   `json:"total"`
	Tier         tier.Label `json:"tier"`
	DistanceKm   float64    `json:"distance_km"`
	DurationDays float64    `json:"duration_days"`
	Participants int        `json:"participants"`
	Available    bool       `json:"available"`
}

// Forecast handles POST /api/v1/forecasts.
func (h *Handler) Forecast(c *gin.Context) {
	var req ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	// Layout already checked by the datetime binding.
	start, _ := time.Parse(time.DateOnly, req.StartDate)
	end, _ := time.Parse(time.DateOnly, req.EndDate)

	forecast, err := h.service.ForecastTrip(c.Request.Context(), req.Origin, req.Destination, start, end, req.Participants)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := ForecastResponse{
		Tier:         forecast.Features.Tier,
		DistanceKm:   money.Round2(forecast.Features.DistanceKm),
		DurationDays: forecast.Features.DurationDays,
		Participants: forecast.Participants,
		Available:    forecast.Available,
	}
	if !forecast.Available {
		SuccessMessage(c, unavailableMessage, resp)
		return
	}
	resp.PerPerson = rounded(forecast.PerPerson)
	resp.Total = rounded(forecast.Total)
	Success(c, resp)
}

// ExpenseRequest is the body of POST /api/v1/expenses.
type ExpenseRequest struct {
	UserID        string  `json:"user_id" binding:"required"`
	OriginCity    string  `json:"origin_city" binding:"required"`
	DestCity      string  `json:"dest_city" binding:"required"`
	StartDate     string  `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate       string  `json:"end_date" binding:"required,datetime=2006-01-02"`
	HotelCost     float64 `json:"hotel_cost" binding:"gte=0"`
	TransportCost float64 `json:"transport_cost" binding:"gte=0"`
	MealsCost     float64 `json:"meals_cost" binding:"gte=0"`
	OtherCost     float64 `json:"other_cost" binding:"gte=0"`
}

// ExpenseResponse is returned after an expense report is stored.
type ExpenseResponse struct {
	MAE          *float64 `json:"mae"`
	ID           int64    `json:"id"`
	Total        float64  `json:"total"`
	DurationDays float64  `json:"duration_days"`
	DistanceKm   float64  `json:"distance_km"`
}

// SubmitExpense handles POST /api/v1/expenses.
func (h *Handler) SubmitExpense(c *gin.Context) {
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	start, _ := time.Parse(time.DateOnly, req.StartDate)
	end, _ := time.Parse(time.DateOnly, req.EndDate)

	result, err := h.service.SubmitExpense(c.Request.Context(), model.ExpenseReport{
		StartDate:     start,
		EndDate:       end,
		UserID:        req.UserID,
		OriginCity:    req.OriginCity,
		DestCity:      req.DestCity,
		HotelCost:     req.HotelCost,
		TransportCost: req.TransportCost,
		MealsCost:     req.MealsCost,
		OtherCost:     req.OtherCost,
	})
	// A stored row with a failed retrain is still a success; retrying would
	// append a duplicate.
	if err != nil && result.ID == 0 {
		h.fail(c, err)
		return
	}

	resp := ExpenseResponse{
		ID:           result.ID,
		Total:        money.Round2(result.Total),
		DurationDays: result.DurationDays,
		DistanceKm:   money.Round2(result.DistanceKm),
	}
	if err != nil {
		_ = c.Error(err)
		SuccessMessage(c, staleModelMessage, resp)
		return
	}
	if result.MAE != nil {
		resp.MAE = rounded(*result.MAE)
	}
	Success(c, resp)
}

// ObservationRequest is the body of POST /api/v1/observations.
type ObservationRequest struct {
	UserID       string  `json:"user_id"`
	DestCity     string  `json:"dest_city" binding:"required"`
	DistanceKm   float64 `json:"distance_km" binding:"gte=0"`
	DurationDays float64 `json:"duration_days" binding:"required,gt=0"`
	TotalCost    float64 `json:"total_cost" binding:"gte=0"`
}

// InsertObservation handles POST /api/v1/observations.
func (h *Handler) InsertObservation(c *gin.Context) {
	var req ObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ok, mae := h.service.InsertObservation(c.Request.Context(), req.DestCity, req.DistanceKm, req.DurationDays, req.TotalCost, req.UserID)
	if !ok {
		InternalError(c, "observation could not be stored")
		return
	}

	var out *float64
	if mae != nil {
		out = rounded(*mae)
	}
	Success(c, gin.H{"ok": true, "mae": out})
}

// Retrain handles POST /api/v1/model/retrain.
func (h *Handler) Retrain(c *gin.Context) {
	mae, err := h.service.Retrain(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	var out *float64
	if mae != nil {
		out = rounded(*mae)
	}
	Success(c, gin.H{"mae": out})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	rows, err := h.service.Count(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		Error(c, http.StatusServiceUnavailable, "training store unavailable")
		return
	}
	Success(c, gin.H{"status": "ok", "training_rows": rows})
}

func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var userErr *common.UserError
	switch {
	case errors.As(err, &userErr):
		BadRequest(c, userErr.UserMessage)
	case errors.Is(err, common.ErrStorageUnavailable):
		Error(c, http.StatusServiceUnavailable, "training store unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		Error(c, http.StatusServiceUnavailable, "request cancelled")
	default:
		InternalError(c, err.Error())
	}
}

func rounded(v float64) *float64 {
	r := money.Round2(v)
	return &r
}
