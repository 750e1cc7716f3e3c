package models

import (
	"time"

	"github.com/google/uuid"
)

// LiveStatus 实时行程状态快照，供小组件/看板等外部展示读取
// 外部展示自行根据 StartTime 计算已用时长
type LiveStatus struct {
	HasActiveTrip       bool       `json:"has_active_trip"`
	TripID              *uuid.UUID `json:"trip_id,omitempty"`
	StartTime           *time.Time `json:"start_time,omitempty"`
	StartBatteryPercent float64    `json:"start_battery_percent"`
	StartOdometerKm     float64    `json:"start_odometer_km"`
	IsConfigured        bool       `json:"is_configured"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NewLiveStatus 根据当前活动行程构造状态，trip 为 nil 表示空闲
func NewLiveStatus(trip *Trip, configured bool, now time.Time) LiveStatus {
	status := LiveStatus{
		IsConfigured: configured,
		UpdatedAt:    now,
	}
	if trip != nil && trip.IsActive() {
		id := trip.ID
		start := trip.StartTime
		status.HasActiveTrip = true
		status.TripID = &id
		status.StartTime = &start
		status.StartBatteryPercent = trip.StartBatteryPercent
		status.StartOdometerKm = trip.StartOdometerKm
	}
	return status
}
