package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/tripbook/internal/models"
	"github.com/langchou/tripbook/internal/service"
)

// writeError 把服务层错误转换为 HTTP 响应
// ManualInputRequired 不是失败：返回 202，前端转入手动输入
func (h *Handler) writeError(c *gin.Context, err error, message string) {
	var manual *service.ManualInputRequired
	if errors.As(err, &manual) {
		c.JSON(http.StatusAccepted, gin.H{
			"manual_input_required": gin.H{
				"context":                 manual.Context,
				"default_battery_percent": manual.DefaultBatteryPercent,
				"reason":                  manual.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrInvalidTrip):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTripNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
	case errors.Is(err, service.ErrAlreadyActive), errors.Is(err, service.ErrNoActiveTrip):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotConfigured):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	default:
		h.logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
