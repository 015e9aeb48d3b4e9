package storage

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ghanalytics/traffic-tracker/common"
	"github.com/montanaflynn/stats"
)

// GetDailyRange returns all stored daily metrics inside [start, end]
// (inclusive), sorted ascending by date. Every year bucket overlapping the
// range is scanned; malformed year or day keys are skipped.
func (store *analyticsStore) GetDailyRange(owner string, repo string, start time.Time, end time.Time) ([]common.DailyMetrics, error) {
	store.mutFiles.Lock()
	doc := store.loadDailyDocument(owner, repo)
	store.mutFiles.Unlock()

	var metrics []common.DailyMetrics
	for yearKey, days := range doc {
		year, err := strconv.Atoi(yearKey)
		if err != nil {
			continue
		}
		if year < start.Year() || year > end.Year() {
			continue
		}

		for dateKey, entry := range days {
			date, err := parseDateKey(year, dateKey)
			if err != nil {
				continue
			}
			if date.Before(truncateToDay(start)) || date.After(truncateToDay(end)) {
				continue
			}

			metrics = append(metrics, common.DailyMetrics{
				Date:           date.Format(dayLayout),
				Views:          entry.Views,
				UniqueVisitors: entry.UniqueVisitors,
				Clones:         entry.Clones,
				UniqueCloners:  entry.UniqueCloners,
				CollectedAt:    entry.CollectedAt,
			})
		}
	}

	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].Date < metrics[j].Date
	})

	return metrics, nil
}

// SummaryStatistics derives totals, daily averages and the peak-views day from
// the given range. An empty range yields an all-zero result with no peak day.
func (store *analyticsStore) SummaryStatistics(owner string, repo string, start time.Time, end time.Time) (common.SummaryStatistics, error) {
	metrics, err := store.GetDailyRange(owner, repo, start, end)
	if err != nil {
		return common.SummaryStatistics{}, err
	}
	if len(metrics) == 0 {
		return common.SummaryStatistics{}, nil
	}

	views := make([]float64, 0, len(metrics))
	visitors := make([]float64, 0, len(metrics))
	summary := common.SummaryStatistics{
		DaysWithData: len(metrics),
	}

	for _, m := range metrics {
		views = append(views, float64(m.Views))
		visitors = append(visitors, float64(m.UniqueVisitors))
		summary.TotalClones += m.Clones
		summary.TotalUniqueCloners += m.UniqueCloners

		// metrics are date-ordered, so a strict comparison keeps the first peak on ties
		if m.Views > summary.PeakViewsCount {
			summary.PeakViewsCount = m.Views
			summary.PeakViewsDay = m.Date
		}
	}

	totalViews, err := stats.Sum(views)
	if err != nil {
		return common.SummaryStatistics{}, err
	}
	totalVisitors, err := stats.Sum(visitors)
	if err != nil {
		return common.SummaryStatistics{}, err
	}
	avgViews, err := stats.Mean(views)
	if err != nil {
		return common.SummaryStatistics{}, err
	}
	avgVisitors, err := stats.Mean(visitors)
	if err != nil {
		return common.SummaryStatistics{}, err
	}

	summary.TotalViews = int(totalViews)
	summary.TotalUniqueVisitors = int(totalVisitors)
	summary.AverageDailyViews = avgViews
	summary.AverageDailyVisitors = avgVisitors

	return summary, nil
}

// MonthlyAggregates sums the daily counters grouped by month within one year
func (store *analyticsStore) MonthlyAggregates(owner string, repo string, year int) (map[string]common.MonthlyAggregate, error) {
	store.mutFiles.Lock()
	doc := store.loadDailyDocument(owner, repo)
	store.mutFiles.Unlock()

	aggregates := make(map[string]common.MonthlyAggregate)
	for dateKey, entry := range doc[strconv.Itoa(year)] {
		date, err := parseDateKey(year, dateKey)
		if err != nil {
			continue
		}

		monthKey := date.Format(monthKeyLayout)
		agg := aggregates[monthKey]
		agg.Views += entry.Views
		agg.UniqueVisitors += entry.UniqueVisitors
		agg.Clones += entry.Clones
		agg.UniqueCloners += entry.UniqueCloners
		agg.DaysCount++
		aggregates[monthKey] = agg
	}

	return aggregates, nil
}

// GetReferrers returns the full referrers document: month -> referrer -> count
func (store *analyticsStore) GetReferrers(owner string, repo string) (map[string]map[string]int, error) {
	store.mutFiles.Lock()
	doc := store.loadReferrersDocument(owner, repo)
	store.mutFiles.Unlock()

	return doc, nil
}

// ExportCSV renders the daily metrics of the given range as CSV, one row per day
func (store *analyticsStore) ExportCSV(owner string, repo string, start time.Time, end time.Time) (string, error) {
	metrics, err := store.GetDailyRange(owner, repo, start, end)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	writer := csv.NewWriter(&builder)

	err = writer.Write([]string{"Date", "Views", "Unique Visitors", "Clones", "Unique Cloners"})
	if err != nil {
		return "", err
	}

	for _, m := range metrics {
		err = writer.Write([]string{
			m.Date,
			strconv.Itoa(m.Views),
			strconv.Itoa(m.UniqueVisitors),
			strconv.Itoa(m.Clones),
			strconv.Itoa(m.UniqueCloners),
		})
		if err != nil {
			return "", err
		}
	}

	writer.Flush()

	return builder.String(), writer.Error()
}

// DashboardData assembles the summary, per-day map and current-month referrers
// for the trailing number of days, ready for dashboard consumption
func (store *analyticsStore) DashboardData(owner string, repo string, days int) (common.DashboardData, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	metrics, err := store.GetDailyRange(owner, repo, start, end)
	if err != nil {
		return common.DashboardData{}, err
	}

	summary, err := store.SummaryStatistics(owner, repo, start, end)
	if err != nil {
		return common.DashboardData{}, err
	}

	referrers, err := store.GetReferrers(owner, repo)
	if err != nil {
		return common.DashboardData{}, err
	}

	dailyData := make(map[string]common.DailyMetrics, len(metrics))
	for _, m := range metrics {
		dailyData[m.Date] = m
	}

	currentMonth := end.Format(monthKeyLayout)
	monthReferrers := referrers[currentMonth]
	if monthReferrers == nil {
		monthReferrers = make(map[string]int)
	}

	return common.DashboardData{
		Repository:  owner + "/" + repo,
		PeriodStart: start.Format(dayLayout),
		PeriodEnd:   end.Format(dayLayout),
		PeriodDays:  days,
		Summary:     summary,
		DailyData:   dailyData,
		Referrers:   monthReferrers,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func parseDateKey(year int, dateKey string) (time.Time, error) {
	parts := strings.Split(dateKey, "-")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("malformed date key %s", dateKey)
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, err
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, err
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("date key %s out of range", dateKey)
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
