package common

import "time"

// TrafficSnapshot holds the current traffic totals returned by one collection
// cycle. It is produced by the collector and consumed immediately by the store.
type TrafficSnapshot struct {
	Views          int
	UniqueVisitors int
	Clones         int
	UniqueCloners  int
	CollectedAt    time.Time
}

// DailyCount is a single day of a traffic breakdown as reported (or gap-filled)
// for the trailing 14-day window
type DailyCount struct {
	Date    time.Time
	Count   int
	Uniques int
}

// DailyMetrics is one calendar day's stored traffic for one repository
type DailyMetrics struct {
	Date           string `json:"date"`
	Views          int    `json:"views"`
	UniqueVisitors int    `json:"unique_visitors"`
	Clones         int    `json:"clones"`
	UniqueCloners  int    `json:"unique_cloners"`
	CollectedAt    string `json:"collected_at"`
}

// RepositoryMetadata holds the point-in-time repository counters
type RepositoryMetadata struct {
	Stars      int `json:"stars"`
	Forks      int `json:"forks"`
	Watchers   int `json:"watchers"`
	OpenIssues int `json:"open_issues"`
	SizeKB     int `json:"size"`
}

// SummaryStatistics aggregates a daily range into totals, averages and the peak day
type SummaryStatistics struct {
	TotalViews           int     `json:"total_views"`
	TotalUniqueVisitors  int     `json:"total_unique_visitors"`
	TotalClones          int     `json:"total_clones"`
	TotalUniqueCloners   int     `json:"total_unique_cloners"`
	DaysWithData         int     `json:"days_with_data"`
	AverageDailyViews    float64 `json:"average_daily_views"`
	AverageDailyVisitors float64 `json:"average_daily_visitors"`
	PeakViewsDay         string  `json:"peak_views_day,omitempty"`
	PeakViewsCount       int     `json:"peak_views_count"`
}

// MonthlyAggregate sums the daily counters of one calendar month
type MonthlyAggregate struct {
	Views          int `json:"views"`
	UniqueVisitors int `json:"unique_visitors"`
	Clones         int `json:"clones"`
	UniqueCloners  int `json:"unique_cloners"`
	DaysCount      int `json:"days_count"`
}

// DashboardData is the ready-to-serve structure consumed by the dashboard API
type DashboardData struct {
	Repository  string                  `json:"repository"`
	PeriodStart string                  `json:"period_start"`
	PeriodEnd   string                  `json:"period_end"`
	PeriodDays  int                     `json:"period_days"`
	Summary     SummaryStatistics       `json:"summary"`
	DailyData   map[string]DailyMetrics `json:"daily_data"`
	Referrers   map[string]int          `json:"referrers"`
	GeneratedAt string                  `json:"generated_at"`
}

// CollectionReport summarizes one run over the configured repositories
type CollectionReport struct {
	Timestamp              string   `json:"timestamp"`
	TotalRepositories      int      `json:"total_repositories"`
	SuccessfulRepositories int      `json:"successful_repositories"`
	FailedRepositories     int      `json:"failed_repositories"`
	SuccessRate            float64  `json:"success_rate"`
	SuccessfulRepos        []string `json:"successful_repos"`
	FailedRepos            []string `json:"failed_repos"`
}
