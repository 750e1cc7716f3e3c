package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/tripbook/internal/export"
)

// ListMonthTrips 某月开始的全部行程
func (h *Handler) ListMonthTrips(c *gin.Context) {
	year, month, ok := parseMonth(c)
	if !ok {
		return
	}

	trips, err := h.trips.TripsInMonth(c.Request.Context(), year, month)
	if err != nil {
		h.writeError(c, err, "Failed to list trips")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.views(trips)})
}

// GetMonthSummary 月度汇总
func (h *Handler) GetMonthSummary(c *gin.Context) {
	year, month, ok := parseMonth(c)
	if !ok {
		return
	}

	summary, _, err := h.trips.MonthlySummary(c.Request.Context(), year, month)
	if err != nil {
		h.writeError(c, err, "Failed to summarize month")
		return
	}

	rates := h.trips.Rates()
	c.JSON(http.StatusOK, gin.H{
		"data": summary,
		"rates": gin.H{
			"winter": rates.Winter,
			"summer": rates.Summer,
		},
	})
}

// ExportMonthCSV 导出某月行程为 CSV
func (h *Handler) ExportMonthCSV(c *gin.Context) {
	year, month, ok := parseMonth(c)
	if !ok {
		return
	}

	trips, err := h.trips.TripsInMonth(c.Request.Context(), year, month)
	if err != nil {
		h.writeError(c, err, "Failed to export trips")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="trips-%d-%02d.csv"`, year, int(month)))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, trips, h.trips.Rates(), h.now()); err != nil {
		h.logger.Error("Failed to write csv", zap.Error(err))
	}
}

// GetMonthReport 月度文本报告
func (h *Handler) GetMonthReport(c *gin.Context) {
	year, month, ok := parseMonth(c)
	if !ok {
		return
	}

	summary, trips, err := h.trips.MonthlySummary(c.Request.Context(), year, month)
	if err != nil {
		h.writeError(c, err, "Failed to build report")
		return
	}

	report := export.MonthlyReport(year, month, trips, h.trips.Rates(), summary, h.opts.VehicleName)
	c.String(http.StatusOK, report)
}
