package datasource

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/langchou/tripbook/internal/models"
)

// 演示数据基准值
const (
	DemoBaseBatteryPercent = 70.0
	DemoBaseOdometerKm     = 49230.0
	DemoDelay              = 500 * time.Millisecond
)

// Demo 演示模式数据源，返回带随机抖动的固定基准读数
type Demo struct {
	Delay time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

// NewDemo 创建演示数据源
func NewDemo() *Demo {
	return &Demo{
		Delay: DemoDelay,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// Name 数据源名称
func (d *Demo) Name() string {
	return "demo"
}

// Fetch 模拟网络延迟后返回读数：电量 ±5，里程 +0..100 km
func (d *Demo) Fetch(ctx context.Context) (*models.Reading, error) {
	if d.Delay > 0 {
		timer := time.NewTimer(d.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	d.mu.Lock()
	batteryJitter := d.rnd.Float64()*10 - 5
	odometerJitter := d.rnd.Float64() * 100
	d.mu.Unlock()

	return &models.Reading{
		BatteryPercent: DemoBaseBatteryPercent + batteryJitter,
		OdometerKm:     DemoBaseOdometerKm + odometerJitter,
		Timestamp:      d.now(),
	}, nil
}
