package engine

import (
	"context"
	"time"

	"github.com/ghanalytics/traffic-tracker/common"
	"github.com/ghanalytics/traffic-tracker/config"
)

// Collector defines the interface for fetching normalized traffic data from the remote API
type Collector interface {
	// CollectCurrent fetches the current views/clones totals for one repository
	CollectCurrent(ctx context.Context, owner string, repo string) (common.TrafficSnapshot, error)

	// CollectHistorical fetches the gap-filled trailing 14-day views and clones series
	CollectHistorical(ctx context.Context, owner string, repo string) ([]common.DailyCount, []common.DailyCount, error)

	// CollectReferrers fetches the top referrers mapped to their view counts
	CollectReferrers(ctx context.Context, owner string, repo string) (map[string]int, error)

	// CollectMetadata fetches the repository counters (stars, forks, ...)
	CollectMetadata(ctx context.Context, owner string, repo string) (common.RepositoryMetadata, error)

	IsInterfaceNil() bool
}

// Store defines the interface for persisting collected records
type Store interface {
	// StoreDailyMetrics upserts the daily entry for the given date
	StoreDailyMetrics(owner string, repo string, date time.Time,
		views int, uniqueVisitors int, clones int, uniqueCloners int) error

	// StoreReferrers additively merges the referrer counts into the given month
	StoreReferrers(owner string, repo string, counts map[string]int, month string) error

	// StoreHistorical merges the daily breakdowns and returns the days created
	StoreHistorical(owner string, repo string,
		viewsDaily []common.DailyCount, clonesDaily []common.DailyCount) (int, error)

	// StoreMetadata stores a date-keyed repository counters snapshot
	StoreMetadata(owner string, repo string, metadata common.RepositoryMetadata) error

	IsInterfaceNil() bool
}

// Registry defines the interface over the configured repositories list
type Registry interface {
	// EnabledRepositories returns the enabled repositories in configuration order
	EnabledRepositories() []config.RepositoryConfig

	// GetRepository returns the configuration of the given repository, if present
	GetRepository(owner string, name string) (config.RepositoryConfig, bool)

	// UpdateLastUpdated stamps the repository with the given collection time
	UpdateLastUpdated(owner string, name string, timestamp time.Time) error

	IsInterfaceNil() bool
}
