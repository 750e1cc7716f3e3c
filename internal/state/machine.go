package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
)

// 行程状态常量
const (
	StateIdle       = "idle"
	StateTripActive = "trip_active"
)

// 事件常量
const (
	EventStartTrip  = "start_trip"
	EventEndTrip    = "end_trip"
	EventCancelTrip = "cancel_trip" // 删除进行中的行程
)

// TripState 当前行程状态
type TripState struct {
	CurrentState string     `json:"state"`
	Since        time.Time  `json:"since"`
	TripID       *uuid.UUID `json:"trip_id,omitempty"`
}

// Machine 行程状态机
type Machine struct {
	mu            sync.RWMutex
	fsm           *fsm.FSM
	state         *TripState
	onStateChange func(from, to string)
}

// NewMachine 创建状态机
func NewMachine(onStateChange func(from, to string)) *Machine {
	m := &Machine{
		onStateChange: onStateChange,
		state: &TripState{
			CurrentState: StateIdle,
			Since:        time.Now(),
		},
	}

	m.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventStartTrip, Src: []string{StateIdle}, Dst: StateTripActive},
			{Name: EventEndTrip, Src: []string{StateTripActive}, Dst: StateIdle},
			{Name: EventCancelTrip, Src: []string{StateTripActive}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// CurrentState 获取当前状态
func (m *Machine) CurrentState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// IsActive 是否有进行中的行程
func (m *Machine) IsActive() bool {
	return m.CurrentState() == StateTripActive
}

// GetState 获取完整状态
func (m *Machine) GetState() *TripState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// 返回副本
	stateCopy := *m.state
	stateCopy.CurrentState = m.fsm.Current()
	return &stateCopy
}

// Trigger 触发事件，tripID 记录在 start_trip 后的状态中
func (m *Machine) Trigger(event string, tripID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}

	m.state.CurrentState = m.fsm.Current()
	m.state.Since = time.Now()
	if m.state.CurrentState == StateTripActive {
		id := tripID
		m.state.TripID = &id
	} else {
		m.state.TripID = nil
	}
	return nil
}

// Restore 从存储恢复状态 (进程启动时)，不触发回调
func (m *Machine) Restore(tripID *uuid.UUID, since time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tripID != nil {
		m.fsm.SetState(StateTripActive)
		id := *tripID
		m.state.TripID = &id
	} else {
		m.fsm.SetState(StateIdle)
		m.state.TripID = nil
	}
	m.state.CurrentState = m.fsm.Current()
	m.state.Since = since
}

// CanTransition 检查是否可以转换
func (m *Machine) CanTransition(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}
