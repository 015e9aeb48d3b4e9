package testsCommon

import (
	"time"

	"github.com/ghanalytics/traffic-tracker/common"
)

// StorageStub -
type StorageStub struct {
	GetDailyRangeCalled     func(owner string, repo string, start time.Time, end time.Time) ([]common.DailyMetrics, error)
	SummaryStatisticsCalled func(owner string, repo string, start time.Time, end time.Time) (common.SummaryStatistics, error)
	MonthlyAggregatesCalled func(owner string, repo string, year int) (map[string]common.MonthlyAggregate, error)
	GetReferrersCalled      func(owner string, repo string) (map[string]map[string]int, error)
	DashboardDataCalled     func(owner string, repo string, days int) (common.DashboardData, error)
	ExportCSVCalled         func(owner string, repo string, start time.Time, end time.Time) (string, error)
}

// GetDailyRange -
func (stub *StorageStub) GetDailyRange(owner string, repo string, start time.Time, end time.Time) ([]common.DailyMetrics, error) {
	if stub.GetDailyRangeCalled != nil {
		return stub.GetDailyRangeCalled(owner, repo, start, end)
	}

	return nil, nil
}

// SummaryStatistics -
func (stub *StorageStub) SummaryStatistics(owner string, repo string, start time.Time, end time.Time) (common.SummaryStatistics, error) {
	if stub.SummaryStatisticsCalled != nil {
		return stub.SummaryStatisticsCalled(owner, repo, start, end)
	}

	return common.SummaryStatistics{}, nil
}

// MonthlyAggregates -
func (stub *StorageStub) MonthlyAggregates(owner string, repo string, year int) (map[string]common.MonthlyAggregate, error) {
	if stub.MonthlyAggregatesCalled != nil {
		return stub.MonthlyAggregatesCalled(owner, repo, year)
	}

	return make(map[string]common.MonthlyAggregate), nil
}

// GetReferrers -
func (stub *StorageStub) GetReferrers(owner string, repo string) (map[string]map[string]int, error) {
	if stub.GetReferrersCalled != nil {
		return stub.GetReferrersCalled(owner, repo)
	}

	return make(map[string]map[string]int), nil
}

// DashboardData -
func (stub *StorageStub) DashboardData(owner string, repo string, days int) (common.DashboardData, error) {
	if stub.DashboardDataCalled != nil {
		return stub.DashboardDataCalled(owner, repo, days)
	}

	return common.DashboardData{}, nil
}

// ExportCSV -
func (stub *StorageStub) ExportCSV(owner string, repo string, start time.Time, end time.Time) (string, error) {
	if stub.ExportCSVCalled != nil {
		return stub.ExportCSVCalled(owner, repo, start, end)
	}

	return "", nil
}

// IsInterfaceNil -
func (stub *StorageStub) IsInterfaceNil() bool {
	return stub == nil
}
