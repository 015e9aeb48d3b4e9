package testsCommon

import (
	"time"

	"github.com/ghanalytics/traffic-tracker/common"
)

// StoreStub -
type StoreStub struct {
	StoreDailyMetricsCalled func(owner string, repo string, date time.Time,
		views int, uniqueVisitors int, clones int, uniqueCloners int) error
	StoreReferrersCalled  func(owner string, repo string, counts map[string]int, month string) error
	StoreHistoricalCalled func(owner string, repo string,
		viewsDaily []common.DailyCount, clonesDaily []common.DailyCount) (int, error)
	StoreMetadataCalled func(owner string, repo string, metadata common.RepositoryMetadata) error
}

// StoreDailyMetrics -
func (stub *StoreStub) StoreDailyMetrics(owner string, repo string, date time.Time,
	views int, uniqueVisitors int, clones int, uniqueCloners int) error {
	if stub.StoreDailyMetricsCalled != nil {
		return stub.StoreDailyMetricsCalled(owner, repo, date, views, uniqueVisitors, clones, uniqueCloners)
	}

	return nil
}

// StoreReferrers -
func (stub *StoreStub) StoreReferrers(owner string, repo string, counts map[string]int, month string) error {
	if stub.StoreReferrersCalled != nil {
		return stub.StoreReferrersCalled(owner, repo, counts, month)
	}

	return nil
}

// StoreHistorical -
func (stub *StoreStub) StoreHistorical(owner string, repo string,
	viewsDaily []common.DailyCount, clonesDaily []common.DailyCount) (int, error) {
	if stub.StoreHistoricalCalled != nil {
		return stub.StoreHistoricalCalled(owner, repo, viewsDaily, clonesDaily)
	}

	return 0, nil
}

// StoreMetadata -
func (stub *StoreStub) StoreMetadata(owner string, repo string, metadata common.RepositoryMetadata) error {
	if stub.StoreMetadataCalled != nil {
		return stub.StoreMetadataCalled(owner, repo, metadata)
	}

	return nil
}

// IsInterfaceNil -
func (stub *StoreStub) IsInterfaceNil() bool {
	return stub == nil
}
