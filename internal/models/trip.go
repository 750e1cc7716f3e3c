package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultBatteryCapacityKwh 默认电池容量 (kWh)
const DefaultBatteryCapacityKwh = 77.0

// ErrInvalidTrip 行程数据校验失败
var ErrInvalidTrip = errors.New("invalid trip")

// Trip 行程记录
type Trip struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	StartTime           time.Time  `json:"start_time" db:"start_time"`
	EndTime             *time.Time `json:"end_time,omitempty" db:"end_time"`
	StartBatteryPercent float64    `json:"start_battery_percent" db:"start_battery_percent"`
	EndBatteryPercent   float64    `json:"end_battery_percent" db:"end_battery_percent"`
	StartOdometerKm     float64    `json:"start_odometer_km" db:"start_odometer_km"`
	EndOdometerKm       float64    `json:"end_odometer_km" db:"end_odometer_km"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// NewTrip 根据起始读数创建进行中的行程
func NewTrip(start *Reading) *Trip {
	return &Trip{
		ID:                  uuid.New(),
		StartTime:           start.Timestamp,
		StartBatteryPercent: start.BatteryPercent,
		StartOdometerKm:     start.OdometerKm,
	}
}

// IsActive 行程是否进行中
func (t *Trip) IsActive() bool {
	return t.EndTime == nil
}

// Complete 用结束读数关闭行程
func (t *Trip) Complete(end *Reading) {
	ts := end.Timestamp
	t.EndTime = &ts
	t.EndBatteryPercent = end.BatteryPercent
	t.EndOdometerKm = end.OdometerKm
}

// Distance 行驶里程 (km)，结束里程为 0 视为未记录
func (t *Trip) Distance() float64 {
	if t.EndOdometerKm <= 0 {
		return 0
	}
	return max(0, t.EndOdometerKm-t.StartOdometerKm)
}

// BatteryUsed 电量消耗 (%)，结束电量为 0 视为未记录
func (t *Trip) BatteryUsed() float64 {
	if t.EndBatteryPercent <= 0 {
		return 0
	}
	return max(0, t.StartBatteryPercent-t.EndBatteryPercent)
}

// Duration 行程时长，进行中的行程按 now 计算
func (t *Trip) Duration(now time.Time) time.Duration {
	end := now
	if t.EndTime != nil {
		end = *t.EndTime
	}
	if end.Before(t.StartTime) {
		return 0
	}
	return end.Sub(t.StartTime)
}

// DurationSeconds 行程时长 (秒)
func (t *Trip) DurationSeconds(now time.Time) int64 {
	return int64(t.Duration(now) / time.Second)
}

// KwhUsed 按电池容量换算的耗电量
func (t *Trip) KwhUsed(capacityKwh float64) float64 {
	return t.BatteryUsed() / 100 * capacityKwh
}

// AverageConsumption 平均能耗 (kWh/100km)
func (t *Trip) AverageConsumption(capacityKwh float64) float64 {
	d := t.Distance()
	if d <= 0 {
		return 0
	}
	return t.KwhUsed(capacityKwh) / d * 100
}

// Fields 返回可编辑字段
func (t *Trip) Fields() TripFields {
	return TripFields{
		StartTime:           t.StartTime,
		EndTime:             t.EndTime,
		StartBatteryPercent: t.StartBatteryPercent,
		EndBatteryPercent:   t.EndBatteryPercent,
		StartOdometerKm:     t.StartOdometerKm,
		EndOdometerKm:       t.EndOdometerKm,
	}
}

// Apply 整体覆盖可编辑字段
func (t *Trip) Apply(f TripFields) {
	t.StartTime = f.StartTime
	t.EndTime = f.EndTime
	t.StartBatteryPercent = f.StartBatteryPercent
	t.EndBatteryPercent = f.EndBatteryPercent
	t.StartOdometerKm = f.StartOdometerKm
	t.EndOdometerKm = f.EndOdometerKm
}

// TripFields 手动创建/编辑行程时的六个字段
type TripFields struct {
	StartTime           time.Time  `json:"start_time"`
	EndTime             *time.Time `json:"end_time"`
	StartBatteryPercent float64    `json:"start_battery_percent"`
	EndBatteryPercent   float64    `json:"end_battery_percent"`
	StartOdometerKm     float64    `json:"start_odometer_km"`
	EndOdometerKm       float64    `json:"end_odometer_km"`
}

// Validate 校验字段
// 里程为可选项：只有起止里程都填写时才要求结束里程大于起始里程
func (f TripFields) Validate() error {
	if f.StartTime.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidTrip)
	}
	if f.EndTime != nil && !f.EndTime.After(f.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidTrip)
	}
	if err := ValidateBatteryPercent(f.StartBatteryPercent); err != nil {
		return err
	}
	if f.EndTime != nil {
		if err := ValidateBatteryPercent(f.EndBatteryPercent); err != nil {
			return err
		}
	}
	if f.StartOdometerKm < 0 || f.EndOdometerKm < 0 {
		return fmt.Errorf("%w: odometer must not be negative", ErrInvalidTrip)
	}
	if f.StartOdometerKm > 0 && f.EndOdometerKm > 0 && f.EndOdometerKm <= f.StartOdometerKm {
		return fmt.Errorf("%w: end odometer must be greater than start odometer", ErrInvalidTrip)
	}
	return nil
}

// ValidateBatteryPercent 电量必须在 0-100 之间
func ValidateBatteryPercent(v float64) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: battery percent %.1f out of range 0-100", ErrInvalidTrip, v)
	}
	return nil
}
