package api

import (
	"time"

	"github.com/ghanalytics/traffic-tracker/common"
)

// Storage defines the read-only interface the dashboard API serves from
type Storage interface {
	// GetDailyRange returns the stored daily metrics inside [start, end], ascending
	GetDailyRange(owner string, repo string, start time.Time, end time.Time) ([]common.DailyMetrics, error)

	// SummaryStatistics aggregates the given range into totals, averages and the peak day
	SummaryStatistics(owner string, repo string, start time.Time, end time.Time) (common.SummaryStatistics, error)

	// MonthlyAggregates sums daily counters grouped by month within one year
	MonthlyAggregates(owner string, repo string, year int) (map[string]common.MonthlyAggregate, error)

	// GetReferrers returns the full referrers document: month -> referrer -> count
	GetReferrers(owner string, repo string) (map[string]map[string]int, error)

	// DashboardData assembles summary, daily map and current-month referrers
	DashboardData(owner string, repo string, days int) (common.DashboardData, error)

	// ExportCSV renders the daily metrics of the given range as CSV
	ExportCSV(owner string, repo string, start time.Time, end time.Time) (string, error)

	IsInterfaceNil() bool
}
