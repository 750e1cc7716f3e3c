package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/tripbook/internal/export"
	"github.com/langchou/tripbook/internal/service"
)

const connectionTestTimeout = 15 * time.Second

// GetStatus 当前状态
func (h *Handler) GetStatus(c *gin.Context) {
	active, err := h.trips.ActiveTrip(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to get status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":         h.trips.State(),
		"is_configured": h.trips.Configured(),
		"demo_mode":     h.opts.DemoMode,
		"vehicle_name":  h.opts.VehicleName,
		"active_trip":   h.view(active, h.trips.Rates()),
	})
}

// TestConnection 检查 Home Assistant 连接
func (h *Handler) TestConnection(c *gin.Context) {
	if h.opts.DemoMode {
		c.JSON(http.StatusOK, gin.H{"ok": true, "mode": "demo"})
		return
	}
	if h.conn == nil || !h.trips.Configured() {
		c.JSON(http.StatusPreconditionFailed, gin.H{"ok": false, "error": service.ErrNotConfigured.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), connectionTestTimeout)
	defer cancel()

	if err := h.conn.TestConnection(ctx); err != nil {
		h.logger.Warn("Home Assistant connection test failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"ok":     false,
			"reason": service.AcquisitionReason(err),
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "mode": "home_assistant"})
}

// GetDebugLog 调试轮询日志
func (h *Handler) GetDebugLog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.trips.DebugLog()})
}

// ExportDebugLog 导出调试轮询日志为 CSV
func (h *Handler) ExportDebugLog(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="debug-log.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteDebugLog(c.Writer, h.trips.DebugLog()); err != nil {
		h.logger.Error("Failed to write debug log", zap.Error(err))
	}
}
