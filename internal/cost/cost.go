package cost

import (
	"time"

	"github.com/langchou/tripbook/internal/models"
)

// Season 计价季节
type Season string

const (
	SeasonWinter Season = "winter"
	SeasonSummer Season = "summer"
)

// Short 报表用的简写 (W/S)
func (s Season) Short() string {
	if s == SeasonWinter {
		return "W"
	}
	return "S"
}

// 默认每百分比电量价格 (EUR)
const (
	DefaultWinterRate = 0.40
	DefaultSummerRate = 0.20
)

// Rates 季节电价：冬季 11-3 月，夏季 4-10 月
type Rates struct {
	Winter float64 `json:"winter"`
	Summer float64 `json:"summer"`
}

// Season 返回日期所属季节
func (r Rates) Season(t time.Time) Season {
	switch t.Month() {
	case time.November, time.December, time.January, time.February, time.March:
		return SeasonWinter
	default:
		return SeasonSummer
	}
}

// RateFor 返回日期所在月份的每百分比价格
func (r Rates) RateFor(t time.Time) float64 {
	if r.Season(t) == SeasonWinter {
		return r.Winter
	}
	return r.Summer
}

// Cost 行程费用，按行程开始月份的价格计算，跨季节行程不拆分
func (r Rates) Cost(trip *models.Trip) float64 {
	return trip.BatteryUsed() * r.RateFor(trip.StartTime)
}

// Summary 月度汇总
type Summary struct {
	Year               int        `json:"year"`
	Month              time.Month `json:"month"`
	TripCount          int        `json:"trip_count"`
	TotalBatteryUsed   float64    `json:"total_battery_used"`
	TotalKwh           float64    `json:"total_kwh"`
	TotalDistanceKm    float64    `json:"total_distance_km"`
	TotalCost          float64    `json:"total_cost"`
	AverageConsumption float64    `json:"average_consumption"` // kWh/100km
}

// Summarize 汇总一个月的行程，每个行程使用各自开始月份的价格
func (r Rates) Summarize(year int, month time.Month, trips []*models.Trip, capacityKwh float64) Summary {
	if capacityKwh <= 0 {
		capacityKwh = models.DefaultBatteryCapacityKwh
	}

	s := Summary{
		Year:      year,
		Month:     month,
		TripCount: len(trips),
	}
	for _, t := range trips {
		s.TotalBatteryUsed += t.BatteryUsed()
		s.TotalKwh += t.KwhUsed(capacityKwh)
		s.TotalDistanceKm += t.Distance()
		s.TotalCost += r.Cost(t)
	}
	if s.TotalDistanceKm > 0 {
		s.AverageConsumption = s.TotalKwh / s.TotalDistanceKm * 100
	}
	return s
}
