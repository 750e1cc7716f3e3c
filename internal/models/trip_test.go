package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripDerivedValues(t *testing.T) {
	start := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	trip := NewTrip(&Reading{BatteryPercent: 80, OdometerKm: 49000, Timestamp: start})

	require.True(t, trip.IsActive())
	assert.Equal(t, 0.0, trip.Distance())
	assert.Equal(t, 0.0, trip.BatteryUsed())
	assert.Equal(t, 30*time.Minute, trip.Duration(start.Add(30*time.Minute)))

	trip.Complete(&Reading{BatteryPercent: 62, OdometerKm: 49045, Timestamp: start.Add(time.Hour)})

	assert.False(t, trip.IsActive())
	assert.Equal(t, 45.0, trip.Distance())
	assert.Equal(t, 18.0, trip.BatteryUsed())
	assert.Equal(t, int64(3600), trip.DurationSeconds(time.Now()))
	assert.InDelta(t, 13.86, trip.KwhUsed(77), 1e-9)
	assert.InDelta(t, 30.8, trip.AverageConsumption(77), 1e-9)
}

func TestTripClamping(t *testing.T) {
	cases := []struct {
		name           string
		trip           Trip
		distance, used float64
	}{
		{"charged during trip", Trip{StartBatteryPercent: 60, EndBatteryPercent: 75, StartOdometerKm: 100, EndOdometerKm: 150}, 50, 0},
		{"odometer went backwards", Trip{StartBatteryPercent: 80, EndBatteryPercent: 70, StartOdometerKm: 200, EndOdometerKm: 150}, 0, 10},
		{"manual end without odometer", Trip{StartBatteryPercent: 80, EndBatteryPercent: 70, StartOdometerKm: 0, EndOdometerKm: 0}, 0, 10},
		{"end battery not recorded", Trip{StartBatteryPercent: 80, EndBatteryPercent: 0, StartOdometerKm: 10, EndOdometerKm: 20}, 10, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.distance, tc.trip.Distance())
			assert.Equal(t, tc.used, tc.trip.BatteryUsed())
		})
	}
}

func TestTripFieldsValidate(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	before := start.Add(-time.Minute)

	valid := TripFields{StartTime: start, EndTime: &end, StartBatteryPercent: 80, EndBatteryPercent: 70}
	require.NoError(t, valid.Validate())

	cases := map[string]func(f *TripFields){
		"missing start":        func(f *TripFields) { f.StartTime = time.Time{} },
		"end before start":     func(f *TripFields) { f.EndTime = &before },
		"end equals start":     func(f *TripFields) { s := start; f.EndTime = &s },
		"battery above 100":    func(f *TripFields) { f.StartBatteryPercent = 101 },
		"end battery negative": func(f *TripFields) { f.EndBatteryPercent = -1 },
		"odometer negative":    func(f *TripFields) { f.StartOdometerKm = -5 },
		"odometer backwards":   func(f *TripFields) { f.StartOdometerKm = 500; f.EndOdometerKm = 400 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := valid
			mutate(&f)
			assert.ErrorIs(t, f.Validate(), ErrInvalidTrip)
		})
	}

	t.Run("odometer optional", func(t *testing.T) {
		f := valid
		f.StartOdometerKm = 500
		assert.NoError(t, f.Validate())
	})

	t.Run("active trip ignores end battery", func(t *testing.T) {
		f := valid
		f.EndTime = nil
		f.EndBatteryPercent = 0
		assert.NoError(t, f.Validate())
	})
}

func TestFieldsRoundTrip(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	f := TripFields{StartTime: start, EndTime: &end, StartBatteryPercent: 80, EndBatteryPercent: 70, StartOdometerKm: 1, EndOdometerKm: 9}

	var trip Trip
	trip.Apply(f)
	assert.Equal(t, f, trip.Fields())
}

func TestNewLiveStatus(t *testing.T) {
	now := time.Now()
	idle := NewLiveStatus(nil, true, now)
	assert.False(t, idle.HasActiveTrip)
	assert.Nil(t, idle.TripID)
	assert.True(t, idle.IsConfigured)

	trip := NewTrip(&Reading{BatteryPercent: 70, OdometerKm: 10, Timestamp: now})
	active := NewLiveStatus(trip, false, now)
	require.True(t, active.HasActiveTrip)
	assert.Equal(t, trip.ID, *active.TripID)
	assert.Equal(t, 70.0, active.StartBatteryPercent)
}
