package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/langchou/tripbook/internal/cost"
	"github.com/langchou/tripbook/internal/models"
)

// tripView 行程及计算字段
type tripView struct {
	*models.Trip
	DistanceKm         float64 `json:"distance_km"`
	BatteryUsed        float64 `json:"battery_used"`
	KwhUsed            float64 `json:"kwh_used"`
	AverageConsumption float64 `json:"average_consumption"`
	DurationSeconds    int64   `json:"duration_seconds"`
	Season             string  `json:"season"`
	Rate               float64 `json:"rate"`
	Cost               float64 `json:"cost"`
}

func (h *Handler) view(t *models.Trip, rates cost.Rates) *tripView {
	if t == nil {
		return nil
	}
	return &tripView{
		Trip:               t,
		DistanceKm:         t.Distance(),
		BatteryUsed:        t.BatteryUsed(),
		KwhUsed:            t.KwhUsed(h.opts.BatteryCapacityKwh),
		AverageConsumption: t.AverageConsumption(h.opts.BatteryCapacityKwh),
		DurationSeconds:    t.DurationSeconds(h.now()),
		Season:             string(rates.Season(t.StartTime)),
		Rate:               rates.RateFor(t.StartTime),
		Cost:               rates.Cost(t),
	}
}

func (h *Handler) views(trips []*models.Trip) []*tripView {
	rates := h.trips.Rates()
	out := make([]*tripView, 0, len(trips))
	for _, t := range trips {
		out = append(out, h.view(t, rates))
	}
	return out
}

type manualBatteryRequest struct {
	BatteryPercent *float64 `json:"battery_percent" binding:"required"`
}

// StartTrip 开始行程 (自动读取车辆数据)
func (h *Handler) StartTrip(c *gin.Context) {
	trip, err := h.trips.StartTrip(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to start trip")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": h.view(trip, h.trips.Rates())})
}

// StartTripManually 手动输入电量开始行程
func (h *Handler) StartTripManually(c *gin.Context) {
	var req manualBatteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	trip, err := h.trips.StartTripManually(c.Request.Context(), *req.BatteryPercent)
	if err != nil {
		h.writeError(c, err, "Failed to start trip")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": h.view(trip, h.trips.Rates())})
}

// EndTrip 结束行程 (自动读取车辆数据)
func (h *Handler) EndTrip(c *gin.Context) {
	trip, err := h.trips.EndTrip(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to end trip")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.view(trip, h.trips.Rates())})
}

// EndTripManually 手动输入电量结束行程
func (h *Handler) EndTripManually(c *gin.Context) {
	var req manualBatteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	trip, err := h.trips.EndTripManually(c.Request.Context(), *req.BatteryPercent)
	if err != nil {
		h.writeError(c, err, "Failed to end trip")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.view(trip, h.trips.Rates())})
}

// GetActiveTrip 获取进行中的行程，没有时 data 为 null
func (h *Handler) GetActiveTrip(c *gin.Context) {
	trip, err := h.trips.ActiveTrip(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to get active trip")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.view(trip, h.trips.Rates())})
}

// ListTrips 已完成的行程 (最新在前)
func (h *Handler) ListTrips(c *gin.Context) {
	trips, err := h.trips.CompletedTrips(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to list trips")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.views(trips)})
}

// GetTrip 获取行程详情
func (h *Handler) GetTrip(c *gin.Context) {
	id, ok := parseTripID(c)
	if !ok {
		return
	}

	trip, err := h.trips.GetTrip(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "Failed to get trip")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.view(trip, h.trips.Rates())})
}

// CreateTrip 补录已完成的行程
func (h *Handler) CreateTrip(c *gin.Context) {
	var fields models.TripFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	trip, err := h.trips.CreateManualTrip(c.Request.Context(), fields)
	if err != nil {
		h.writeError(c, err, "Failed to create trip")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": h.view(trip, h.trips.Rates())})
}

// UpdateTrip 修正行程
func (h *Handler) UpdateTrip(c *gin.Context) {
	id, ok := parseTripID(c)
	if !ok {
		return
	}

	var fields models.TripFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	trip, err := h.trips.UpdateTrip(c.Request.Context(), id, fields)
	if err != nil {
		h.writeError(c, err, "Failed to update trip")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.view(trip, h.trips.Rates())})
}

// DeleteTrip 删除行程
func (h *Handler) DeleteTrip(c *gin.Context) {
	id, ok := parseTripID(c)
	if !ok {
		return
	}

	if err := h.trips.DeleteTrip(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "Failed to delete trip")
		return
	}
	c.Status(http.StatusNoContent)
}

func parseTripID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseMonth(c *gin.Context) (int, time.Month, bool) {
	t, err := time.Parse("2006-01", c.Param("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month, expected YYYY-MM"})
		return 0, 0, false
	}
	return t.Year(), t.Month(), true
}
