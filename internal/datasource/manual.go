package datasource

import (
	"context"
	"time"

	"github.com/langchou/tripbook/internal/models"
)

// Manual 用户手动输入的读数，没有传感器数据时使用
type Manual struct {
	BatteryPercent float64
	OdometerKm     float64
	now            func() time.Time
}

// NewManual 创建手动数据源
func NewManual(batteryPercent, odometerKm float64) *Manual {
	return &Manual{
		BatteryPercent: batteryPercent,
		OdometerKm:     odometerKm,
		now:            time.Now,
	}
}

// Name 数据源名称
func (m *Manual) Name() string {
	return "manual"
}

// Fetch 以当前时间返回手动读数，不会失败
func (m *Manual) Fetch(_ context.Context) (*models.Reading, error) {
	return &models.Reading{
		BatteryPercent: m.BatteryPercent,
		OdometerKm:     m.OdometerKm,
		Timestamp:      m.now(),
	}, nil
}
