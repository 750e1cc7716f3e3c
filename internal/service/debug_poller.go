package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/langchou/tripbook/internal/datasource"
	"github.com/langchou/tripbook/internal/models"
)

// DefaultDebugInterval 调试轮询间隔
const DefaultDebugInterval = 30 * time.Second

// DebugPoller 行程进行中定时采样车辆数据，用于排查传感器更新延迟
type DebugPoller struct {
	logger   *zap.Logger
	source   datasource.Source
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	entries   []models.DebugSample
	tripID    uuid.UUID
	tripStart time.Time
	running   bool
	gen       uint64 // 每次 Start/Stop 递增，用于丢弃过期采样
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewDebugPoller 创建调试轮询器
func NewDebugPoller(logger *zap.Logger, source datasource.Source, interval time.Duration) *DebugPoller {
	if interval <= 0 {
		interval = DefaultDebugInterval
	}
	return &DebugPoller{
		logger:   logger,
		source:   source,
		interval: interval,
		now:      time.Now,
	}
}

// Start 为指定行程开始采样
// 同一行程重复启动时保留已有采样，新行程会清空日志
func (p *DebugPoller) Start(tripID uuid.UUID, tripStart time.Time) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	if tripID != p.tripID {
		p.entries = nil
	}
	p.tripID = tripID
	p.tripStart = tripStart
	p.gen++
	gen := p.gen

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.running = true
	p.mu.Unlock()

	p.logger.Info("Debug logging started",
		zap.String("trip_id", tripID.String()),
		zap.Duration("interval", p.interval))

	go p.loop(ctx, gen, done)
}

// Stop 停止采样并等待轮询协程退出，返回采样数量
// Stop 返回后不会再追加任何采样，包括 Stop 时正在进行的请求
func (p *DebugPoller) Stop() int {
	p.mu.Lock()
	if !p.running {
		n := len(p.entries)
		p.mu.Unlock()
		return n
	}
	p.running = false
	p.gen++
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	n := len(p.entries)
	p.mu.Unlock()

	cancel()
	<-done

	p.logger.Info("Debug logging stopped", zap.Int("entries", n))
	return n
}

// Running 是否正在采样
func (p *DebugPoller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Entries 返回采样副本
func (p *DebugPoller) Entries() []models.DebugSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.DebugSample, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *DebugPoller) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.sample(ctx, gen)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample(ctx, gen)
		}
	}
}

func (p *DebugPoller) sample(ctx context.Context, gen uint64) {
	reading, err := p.source.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("Debug poll failed", zap.Error(err))
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return
	}

	entry := models.DebugSample{
		Timestamp:         reading.Timestamp,
		BatteryPercent:    reading.BatteryPercent,
		OdometerKm:        reading.OdometerKm,
		SecondsSinceStart: int64(p.now().Sub(p.tripStart) / time.Second),
	}
	changed := len(p.entries) == 0 || !p.entries[len(p.entries)-1].SameValues(entry)
	p.entries = append(p.entries, entry)

	// 只在数值变化时输出日志，避免刷屏
	if changed {
		p.logger.Debug("Debug sample",
			zap.Int64("seconds_since_start", entry.SecondsSinceStart),
			zap.Float64("battery_percent", entry.BatteryPercent),
			zap.Float64("odometer_km", entry.OdometerKm))
	}
}
