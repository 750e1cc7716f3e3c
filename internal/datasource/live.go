package datasource

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/langchou/tripbook/internal/api/homeassistant"
	"github.com/langchou/tripbook/internal/models"
)

// EntityReader 读取单个实体状态
type EntityReader interface {
	GetEntityState(ctx context.Context, entityID string) (*homeassistant.EntityState, error)
}

// Live 通过 Home Assistant 实时读取车辆数据
type Live struct {
	reader           EntityReader
	batteryEntityID  string
	odometerEntityID string
	now              func() time.Time
}

// NewLive 创建实时数据源
func NewLive(reader EntityReader, batteryEntityID, odometerEntityID string) *Live {
	return &Live{
		reader:           reader,
		batteryEntityID:  batteryEntityID,
		odometerEntityID: odometerEntityID,
		now:              time.Now,
	}
}

// Name 数据源名称
func (l *Live) Name() string {
	return "live"
}

// Fetch 并发读取电量与里程，两者都成功才返回读数
// 任一请求失败会取消另一个请求，不会返回部分结果
func (l *Live) Fetch(ctx context.Context) (*models.Reading, error) {
	var battery, odometer float64

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := l.readFloat(gCtx, l.batteryEntityID)
		if err != nil {
			return err
		}
		battery = v
		return nil
	})
	g.Go(func() error {
		v, err := l.readFloat(gCtx, l.odometerEntityID)
		if err != nil {
			return err
		}
		odometer = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.Reading{
		BatteryPercent: battery,
		OdometerKm:     odometer,
		Timestamp:      l.now(),
	}, nil
}

func (l *Live) readFloat(ctx context.Context, entityID string) (float64, error) {
	state, err := l.reader.GetEntityState(ctx, entityID)
	if err != nil {
		return 0, err
	}
	return state.Float()
}
