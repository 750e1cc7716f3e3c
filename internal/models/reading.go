package models

import "time"

// Reading 一次车辆数据读数 (不持久化)
type Reading struct {
	BatteryPercent float64   `json:"battery_percent"`
	OdometerKm     float64   `json:"odometer_km"`
	Timestamp      time.Time `json:"timestamp"`
}

// DebugSample 调试轮询采样
type DebugSample struct {
	Timestamp         time.Time `json:"timestamp"`
	BatteryPercent    float64   `json:"battery_percent"`
	OdometerKm        float64   `json:"odometer_km"`
	SecondsSinceStart int64     `json:"seconds_since_start"`
}

// SameValues 与另一采样的读数是否相同
func (s DebugSample) SameValues(o DebugSample) bool {
	return s.BatteryPercent == o.BatteryPercent && s.OdometerKm == o.OdometerKm
}
