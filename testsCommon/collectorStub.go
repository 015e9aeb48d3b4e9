package testsCommon

import (
	"context"

	"github.com/ghanalytics/traffic-tracker/common"
)

// CollectorStub -
type CollectorStub struct {
	CollectCurrentCalled    func(ctx context.Context, owner string, repo string) (common.TrafficSnapshot, error)
	CollectHistoricalCalled func(ctx context.Context, owner string, repo string) ([]common.DailyCount, []common.DailyCount, error)
	CollectReferrersCalled  func(ctx context.Context, owner string, repo string) (map[string]int, error)
	CollectMetadataCalled   func(ctx context.Context, owner string, repo string) (common.RepositoryMetadata, error)
}

// CollectCurrent -
func (stub *CollectorStub) CollectCurrent(ctx context.Context, owner string, repo string) (common.TrafficSnapshot, error) {
	if stub.CollectCurrentCalled != nil {
		return stub.CollectCurrentCalled(ctx, owner, repo)
	}

	return common.TrafficSnapshot{}, nil
}

// CollectHistorical -
func (stub *CollectorStub) CollectHistorical(ctx context.Context, owner string, repo string) ([]common.DailyCount, []common.DailyCount, error) {
	if stub.CollectHistoricalCalled != nil {
		return stub.CollectHistoricalCalled(ctx, owner, repo)
	}

	return nil, nil, nil
}

// CollectReferrers -
func (stub *CollectorStub) CollectReferrers(ctx context.Context, owner string, repo string) (map[string]int, error) {
	if stub.CollectReferrersCalled != nil {
		return stub.CollectReferrersCalled(ctx, owner, repo)
	}

	return make(map[string]int), nil
}

// CollectMetadata -
func (stub *CollectorStub) CollectMetadata(ctx context.Context, owner string, repo string) (common.RepositoryMetadata, error) {
	if stub.CollectMetadataCalled != nil {
		return stub.CollectMetadataCalled(ctx, owner, repo)
	}

	return common.RepositoryMetadata{}, nil
}

// IsInterfaceNil -
func (stub *CollectorStub) IsInterfaceNil() bool {
	return stub == nil
}
