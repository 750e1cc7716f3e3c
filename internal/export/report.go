package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/langchou/tripbook/internal/cost"
	"github.com/langchou/tripbook/internal/models"
)

// MonthlyReport 生成月度文本报告，可直接分享
// trips 应为该月已完成的行程，按开始时间排序
func MonthlyReport(year int, month time.Month, trips []*models.Trip, rates cost.Rates, summary cost.Summary, vehicleName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s trip report %02d/%d\n", vehicleName, int(month), year)
	b.WriteString(strings.Repeat("=", 32))
	b.WriteString("\n\n")

	if len(trips) == 0 {
		b.WriteString("No trips recorded.\n")
	}

	for i, t := range trips {
		fmt.Fprintf(&b, "%d. %s %s | %.1f%% | %.0f km | %s | %.2f €\n",
			i+1,
			t.StartTime.Format("02.01."),
			t.StartTime.Format(timeLayout),
			t.BatteryUsed(),
			t.Distance(),
			rates.Season(t.StartTime).Short(),
			rates.Cost(t),
		)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Trips: %d\n", summary.TripCount)
	fmt.Fprintf(&b, "Distance: %.0f km\n", summary.TotalDistanceKm)
	fmt.Fprintf(&b, "Battery used: %.1f%% (%.1f kWh)\n", summary.TotalBatteryUsed, summary.TotalKwh)
	if summary.AverageConsumption > 0 {
		fmt.Fprintf(&b, "Average consumption: %.1f kWh/100 km\n", summary.AverageConsumption)
	}
	fmt.Fprintf(&b, "Total cost: %.2f €\n", summary.TotalCost)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Tariffs: W = winter %.2f €/%%, S = summer %.2f €/%%\n", rates.Winter, rates.Summer)

	return b.String()
}
