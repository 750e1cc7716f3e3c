package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/langchou/tripbook/internal/cost"
	"github.com/langchou/tripbook/internal/datasource"
	"github.com/langchou/tripbook/internal/models"
	"github.com/langchou/tripbook/internal/repository"
	"github.com/langchou/tripbook/internal/state"
)

// DefaultStartBattery 没有历史行程时手动开始的默认电量
const DefaultStartBattery = 80.0

const publishTimeout = 5 * time.Second

// TripStore 行程存储
type TripStore interface {
	Insert(ctx context.Context, trip *models.Trip) error
	Update(ctx context.Context, trip *models.Trip) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	FindActive(ctx context.Context) (*models.Trip, error)
	FindCompleted(ctx context.Context) ([]*models.Trip, error)
	FindLastCompleted(ctx context.Context) (*models.Trip, error)
	FindInMonth(ctx context.Context, year int, month time.Month) ([]*models.Trip, error)
}

// LiveStatusSink 接收实时行程状态 (小组件/看板等外部展示)
type LiveStatusSink interface {
	Publish(ctx context.Context, status models.LiveStatus) error
}

// Options 行程服务选项
type Options struct {
	Configured          bool    // 数据来源是否已配置
	DebugLogging        bool    // 行程中是否开启调试轮询
	DefaultStartBattery float64 // 手动开始的默认电量
	BatteryCapacityKwh  float64
}

// TripService 行程生命周期控制器
// 所有状态变更都在 mu 下串行执行，保证同一时间最多一个进行中的行程
type TripService struct {
	logger  *zap.Logger
	store   TripStore
	source  datasource.Source
	rates   cost.Rates
	opts    Options
	sink    LiveStatusSink // 可选
	poller  *DebugPoller   // 可选
	machine *state.Machine
	now     func() time.Time

	mu sync.Mutex
}

// NewTripService 创建行程服务
// sink 与 poller 可以为 nil
func NewTripService(
	logger *zap.Logger,
	store TripStore,
	source datasource.Source,
	rates cost.Rates,
	opts Options,
	sink LiveStatusSink,
	poller *DebugPoller,
) *TripService {
	if opts.DefaultStartBattery <= 0 {
		opts.DefaultStartBattery = DefaultStartBattery
	}
	if opts.BatteryCapacityKwh <= 0 {
		opts.BatteryCapacityKwh = models.DefaultBatteryCapacityKwh
	}

	svc := &TripService{
		logger: logger,
		store:  store,
		source: source,
		rates:  rates,
		opts:   opts,
		sink:   sink,
		poller: poller,
		now:    time.Now,
	}
	svc.machine = state.NewMachine(svc.onStateChange)
	return svc
}

// Restore 进程启动时从存储恢复状态
// 若存在进行中的行程，重新发布实时状态并恢复调试轮询，用于崩溃后恢复
func (s *TripService) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.store.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("restore active trip: %w", err)
	}

	if active != nil {
		id := active.ID
		s.machine.Restore(&id, active.StartTime)
		s.startPoller(active)
		s.logger.Info("Restored active trip",
			zap.String("trip_id", active.ID.String()),
			zap.Time("start_time", active.StartTime))
	} else {
		s.machine.Restore(nil, s.now())
		s.logger.Info("No active trip, starting idle")
	}

	s.publish(ctx, active)
	return nil
}

// StartTrip 读取车辆数据并开始行程
// 读取失败时返回 *ManualInputRequired
func (s *TripService) StartTrip(ctx context.Context) (*models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureIdle(ctx); err != nil {
		return nil, err
	}
	if !s.opts.Configured {
		return nil, ErrNotConfigured
	}

	reading, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.Warn("Vehicle data unavailable at trip start, manual input required",
			zap.String("source", s.source.Name()),
			zap.Error(err))
		return nil, &ManualInputRequired{
			Context:               ContextStart,
			DefaultBatteryPercent: s.defaultStartBattery(ctx),
			Reason:                AcquisitionReason(err),
			Cause:                 err,
		}
	}

	return s.beginTrip(ctx, reading)
}

// StartTripManually 使用手动输入的电量开始行程，里程记为 0
func (s *TripService) StartTripManually(ctx context.Context, batteryPercent float64) (*models.Trip, error) {
	if err := models.ValidateBatteryPercent(batteryPercent); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureIdle(ctx); err != nil {
		return nil, err
	}

	reading, _ := datasource.NewManual(batteryPercent, 0).Fetch(ctx)
	return s.beginTrip(ctx, reading)
}

// EndTrip 读取车辆数据并结束进行中的行程
// 读取失败时返回 *ManualInputRequired
func (s *TripService) EndTrip(ctx context.Context) (*models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.requireActive(ctx)
	if err != nil {
		return nil, err
	}

	reading, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.Warn("Vehicle data unavailable at trip end, manual input required",
			zap.String("source", s.source.Name()),
			zap.String("trip_id", active.ID.String()),
			zap.Error(err))
		return nil, &ManualInputRequired{
			Context:               ContextEnd,
			DefaultBatteryPercent: active.StartBatteryPercent,
			Reason:                AcquisitionReason(err),
			Cause:                 err,
		}
	}

	return s.finishTrip(ctx, active, reading)
}

// EndTripManually 使用手动输入的电量结束行程，结束里程取起始里程
func (s *TripService) EndTripManually(ctx context.Context, batteryPercent float64) (*models.Trip, error) {
	if err := models.ValidateBatteryPercent(batteryPercent); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.requireActive(ctx)
	if err != nil {
		return nil, err
	}

	reading, _ := datasource.NewManual(batteryPercent, active.StartOdometerKm).Fetch(ctx)
	return s.finishTrip(ctx, active, reading)
}

// UpdateTrip 整体覆盖行程字段 (事后修正)
// 如果结果是进行中的行程而另一行程已在进行中，则拒绝
func (s *TripService) UpdateTrip(ctx context.Context, id uuid.UUID, fields models.TripFields) (*models.Trip, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err)
	}

	if fields.EndTime == nil {
		active, err := s.store.FindActive(ctx)
		if err != nil {
			return nil, &PersistenceError{Op: "find active trip", Err: err}
		}
		if active != nil && active.ID != id {
			return nil, ErrAlreadyActive
		}
	}

	updated := *existing
	updated.Apply(fields)
	if err := s.store.Update(ctx, &updated); err != nil {
		return nil, s.writeError("update trip", err)
	}

	s.logger.Info("Trip updated", zap.String("trip_id", id.String()))

	switch {
	case existing.IsActive() && !updated.IsActive():
		s.stopPoller()
		s.transition(state.EventEndTrip, &updated)
		s.publish(ctx, nil)
	case !existing.IsActive() && updated.IsActive():
		s.transition(state.EventStartTrip, &updated)
		s.startPoller(&updated)
		s.publish(ctx, &updated)
	case updated.IsActive():
		// 开始时间变化后重新启动调试轮询，保证 SecondsSinceStart 正确
		if !updated.StartTime.Equal(existing.StartTime) {
			s.stopPoller()
			s.startPoller(&updated)
		}
		s.publish(ctx, &updated)
	}

	return &updated, nil
}

// CreateManualTrip 手动补录一条已完成的行程
func (s *TripService) CreateManualTrip(ctx context.Context, fields models.TripFields) (*models.Trip, error) {
	if fields.EndTime == nil {
		return nil, fmt.Errorf("%w: end time is required for a manual trip", models.ErrInvalidTrip)
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trip := &models.Trip{ID: uuid.New()}
	trip.Apply(fields)
	if err := s.store.Insert(ctx, trip); err != nil {
		return nil, s.writeError("insert manual trip", err)
	}

	s.logger.Info("Manual trip created",
		zap.String("trip_id", trip.ID.String()),
		zap.Time("start_time", trip.StartTime))
	return trip, nil
}

// DeleteTrip 删除行程，删除进行中的行程会回到空闲状态
func (s *TripService) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return s.lookupError(err)
	}

	if existing.IsActive() {
		s.stopPoller()
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if existing.IsActive() {
			s.startPoller(existing)
		}
		return s.writeError("delete trip", err)
	}

	s.logger.Info("Trip deleted", zap.String("trip_id", id.String()), zap.Bool("was_active", existing.IsActive()))

	if existing.IsActive() {
		s.transition(state.EventCancelTrip, existing)
		s.publish(ctx, nil)
	}
	return nil
}

// ActiveTrip 获取进行中的行程，没有时返回 nil
func (s *TripService) ActiveTrip(ctx context.Context) (*models.Trip, error) {
	return s.store.FindActive(ctx)
}

// GetTrip 获取行程
func (s *TripService) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	trip, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err)
	}
	return trip, nil
}

// CompletedTrips 获取已完成的行程 (最新在前)
func (s *TripService) CompletedTrips(ctx context.Context) ([]*models.Trip, error) {
	return s.store.FindCompleted(ctx)
}

// TripsInMonth 获取某月开始的行程
func (s *TripService) TripsInMonth(ctx context.Context, year int, month time.Month) ([]*models.Trip, error) {
	return s.store.FindInMonth(ctx, year, month)
}

// CompletedTripsInMonth 获取某月已完成的行程
func (s *TripService) CompletedTripsInMonth(ctx context.Context, year int, month time.Month) ([]*models.Trip, error) {
	trips, err := s.store.FindInMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	completed := trips[:0]
	for _, t := range trips {
		if !t.IsActive() {
			completed = append(completed, t)
		}
	}
	return completed, nil
}

// MonthlySummary 月度汇总 (只统计已完成的行程)
func (s *TripService) MonthlySummary(ctx context.Context, year int, month time.Month) (cost.Summary, []*models.Trip, error) {
	trips, err := s.CompletedTripsInMonth(ctx, year, month)
	if err != nil {
		return cost.Summary{}, nil, err
	}
	return s.rates.Summarize(year, month, trips, s.opts.BatteryCapacityKwh), trips, nil
}

// Rates 当前电价
func (s *TripService) Rates() cost.Rates {
	return s.rates
}

// State 当前状态机状态
func (s *TripService) State() *state.TripState {
	return s.machine.GetState()
}

// Configured 数据来源是否已配置
func (s *TripService) Configured() bool {
	return s.opts.Configured
}

// DebugLog 调试轮询日志，未启用时为空
func (s *TripService) DebugLog() []models.DebugSample {
	if s.poller == nil {
		return nil
	}
	return s.poller.Entries()
}

// Close 停止后台任务
func (s *TripService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopPoller()
}

// ensureIdle 以存储为准检查没有进行中的行程
func (s *TripService) ensureIdle(ctx context.Context) error {
	active, err := s.store.FindActive(ctx)
	if err != nil {
		return &PersistenceError{Op: "find active trip", Err: err}
	}
	if active != nil {
		return ErrAlreadyActive
	}
	return nil
}

func (s *TripService) requireActive(ctx context.Context) (*models.Trip, error) {
	active, err := s.store.FindActive(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "find active trip", Err: err}
	}
	if active == nil {
		return nil, ErrNoActiveTrip
	}
	return active, nil
}

// beginTrip 持久化新行程并触发副作用
func (s *TripService) beginTrip(ctx context.Context, reading *models.Reading) (*models.Trip, error) {
	trip := models.NewTrip(reading)
	if err := s.store.Insert(ctx, trip); err != nil {
		return nil, s.writeError("insert trip", err)
	}

	s.logger.Info("Trip started",
		zap.String("trip_id", trip.ID.String()),
		zap.Float64("battery_percent", trip.StartBatteryPercent),
		zap.Float64("odometer_km", trip.StartOdometerKm))

	s.transition(state.EventStartTrip, trip)
	s.startPoller(trip)
	s.publish(ctx, trip)
	return trip, nil
}

// finishTrip 写入结束读数
// 先停止调试轮询，保证行程结束后不再有采样；写入失败时恢复轮询
func (s *TripService) finishTrip(ctx context.Context, active *models.Trip, reading *models.Reading) (*models.Trip, error) {
	trip := *active
	trip.Complete(reading)

	s.stopPoller()
	if err := s.store.Update(ctx, &trip); err != nil {
		s.startPoller(active)
		return nil, s.writeError("complete trip", err)
	}

	s.logger.Info("Trip ended",
		zap.String("trip_id", trip.ID.String()),
		zap.Float64("distance_km", trip.Distance()),
		zap.Float64("battery_used", trip.BatteryUsed()),
		zap.Float64("cost", s.rates.Cost(&trip)))

	s.transition(state.EventEndTrip, &trip)
	s.publish(ctx, nil)
	return &trip, nil
}

// transition 推进状态机；内存状态与存储不一致时以存储为准
func (s *TripService) transition(event string, trip *models.Trip) {
	if s.machine.CanTransition(event) {
		if err := s.machine.Trigger(event, trip.ID); err == nil {
			return
		}
	}

	s.logger.Warn("State machine out of sync with store, resyncing",
		zap.String("event", event),
		zap.String("state", s.machine.CurrentState()))
	if trip.IsActive() && event == state.EventStartTrip {
		id := trip.ID
		s.machine.Restore(&id, trip.StartTime)
	} else {
		s.machine.Restore(nil, s.now())
	}
}

func (s *TripService) startPoller(trip *models.Trip) {
	if s.poller == nil || !s.opts.DebugLogging || !s.opts.Configured || trip == nil {
		return
	}
	s.poller.Start(trip.ID, trip.StartTime)
}

func (s *TripService) stopPoller() {
	if s.poller == nil {
		return
	}
	s.poller.Stop()
}

// publish 发布实时状态，失败只记录日志
func (s *TripService) publish(ctx context.Context, active *models.Trip) {
	if s.sink == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	status := models.NewLiveStatus(active, s.opts.Configured, s.now())
	if err := s.sink.Publish(pubCtx, status); err != nil {
		s.logger.Warn("Failed to publish live status", zap.Error(err))
	}
}

// defaultStartBattery 手动开始的默认电量：上一次行程的结束电量
func (s *TripService) defaultStartBattery(ctx context.Context) float64 {
	last, err := s.store.FindLastCompleted(ctx)
	if err != nil || last == nil || last.EndBatteryPercent <= 0 {
		return s.opts.DefaultStartBattery
	}
	return last.EndBatteryPercent
}

func (s *TripService) lookupError(err error) error {
	if errors.Is(err, repository.ErrTripNotFound) {
		return err
	}
	return &PersistenceError{Op: "get trip", Err: err}
}

func (s *TripService) writeError(op string, err error) error {
	if errors.Is(err, repository.ErrActiveTripExists) {
		return ErrAlreadyActive
	}
	if errors.Is(err, repository.ErrTripNotFound) {
		return err
	}
	s.logger.Error("Failed to persist trip", zap.String("op", op), zap.Error(err))
	return &PersistenceError{Op: op, Err: err}
}

// onStateChange 状态变化回调 (在状态机锁内执行，不能回调 Machine)
func (s *TripService) onStateChange(from, to string) {
	s.logger.Info("Trip state changed",
		zap.String("from", from),
		zap.String("to", to))
}
