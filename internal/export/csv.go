package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/langchou/tripbook/internal/cost"
	"github.com/langchou/tripbook/internal/models"
)

const (
	dateLayout     = "02.01.2006"
	timeLayout     = "15:04"
	debugLogLayout = "2006-01-02 15:04:05"

	// RunningLabel 进行中行程的结束时间占位
	RunningLabel = "running"
)

var tripHeader = []string{
	"Date", "StartTime", "EndTime", "Duration", "BatteryStart", "BatteryEnd",
	"BatteryUsed%", "DistanceKm", "Rate", "CostEUR",
}

var debugHeader = []string{"Timestamp", "SecondsSinceStart", "BatteryPercent", "OdometerKm"}

// WriteCSV 导出行程为 CSV
// now 用于计算进行中行程的时长
func WriteCSV(w io.Writer, trips []*models.Trip, rates cost.Rates, now time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tripHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, t := range trips {
		end := RunningLabel
		batteryEnd := ""
		if t.EndTime != nil {
			end = t.EndTime.Format(timeLayout)
			batteryEnd = fmt.Sprintf("%.0f", t.EndBatteryPercent)
		}

		record := []string{
			t.StartTime.Format(dateLayout),
			t.StartTime.Format(timeLayout),
			end,
			FormatDuration(t.Duration(now)),
			fmt.Sprintf("%.0f", t.StartBatteryPercent),
			batteryEnd,
			fmt.Sprintf("%.1f", t.BatteryUsed()),
			fmt.Sprintf("%.1f", t.Distance()),
			fmt.Sprintf("%.2f", rates.RateFor(t.StartTime)),
			fmt.Sprintf("%.2f", rates.Cost(t)),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteDebugLog 导出调试轮询日志为 CSV
func WriteDebugLog(w io.Writer, samples []models.DebugSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(debugHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, s := range samples {
		record := []string{
			s.Timestamp.Format(debugLogLayout),
			fmt.Sprintf("%d", s.SecondsSinceStart),
			fmt.Sprintf("%.1f", s.BatteryPercent),
			fmt.Sprintf("%.1f", s.OdometerKm),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatDuration 时长格式化为 "1h 23min" 或 "23min"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	if h := minutes / 60; h > 0 {
		return fmt.Sprintf("%dh %dmin", h, minutes%60)
	}
	return fmt.Sprintf("%dmin", minutes)
}
