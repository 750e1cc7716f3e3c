package datasource

import (
	"context"

	"github.com/langchou/tripbook/internal/api/homeassistant"
	"github.com/langchou/tripbook/internal/models"
)

// Source 车辆数据来源：读取当前电量与里程
type Source interface {
	Fetch(ctx context.Context) (*models.Reading, error)
	Name() string
}

// New 在启动时一次性选择数据来源
// 演示模式下不访问 Home Assistant
func New(demoMode bool, client *homeassistant.Client, batteryEntityID, odometerEntityID string) Source {
	if demoMode {
		return NewDemo()
	}
	return NewLive(client, batteryEntityID, odometerEntityID)
}
