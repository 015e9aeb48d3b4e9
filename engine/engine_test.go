package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ghanalytics/traffic-tracker/common"
	"github.com/ghanalytics/traffic-tracker/config"
	"github.com/ghanalytics/traffic-tracker/testsCommon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMockArgs() ArgsCollectionEngine {
	return ArgsCollectionEngine{
		Collector:  &testsCommon.CollectorStub{},
		Store:      &testsCommon.StoreStub{},
		Registry:   &testsCommon.RegistryStub{},
		NumWorkers: 1,
	}
}

func testRepositories(names ...string) []config.RepositoryConfig {
	repositories := make([]config.RepositoryConfig, 0, len(names))
	for _, name := range names {
		repositories = append(repositories, config.RepositoryConfig{
			Owner:       "owner",
			Name:        name,
			Enabled:     true,
			LastUpdated: "2026-08-01T00:00:00Z",
		})
	}

	return repositories
}

func TestNewCollectionEngine(t *testing.T) {
	t.Parallel()

	t.Run("nil collector should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Collector = nil

		e, err := NewCollectionEngine(args)
		assert.Nil(t, e)
		assert.True(t, e.IsInterfaceNil())
		assert.Equal(t, "nil collector", err.Error())
	})
	t.Run("nil store should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Store = nil

		e, err := NewCollectionEngine(args)
		assert.Nil(t, e)
		assert.Equal(t, "nil store", err.Error())
	})
	t.Run("nil registry should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Registry = nil

		e, err := NewCollectionEngine(args)
		assert.Nil(t, e)
		assert.Equal(t, "nil registry", err.Error())
	})
	t.Run("should work", func(t *testing.T) {
		t.Parallel()

		e, err := NewCollectionEngine(createMockArgs())
		assert.NotNil(t, e)
		assert.False(t, e.IsInterfaceNil())
		assert.Nil(t, err)
	})
}

func TestCollectionEngine_ProcessRepository(t *testing.T) {
	t.Parallel()

	repo := config.RepositoryConfig{
		Owner:       "owner",
		Name:        "repo",
		Enabled:     true,
		LastUpdated: "2026-08-01T00:00:00Z",
	}

	t.Run("current traffic failure is fatal", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("expected error")
		storeCalled := false

		args := createMockArgs()
		args.Collector = &testsCommon.CollectorStub{
			CollectCurrentCalled: func(ctx context.Context, owner string, repo string) (common.TrafficSnapshot, error) {
				return common.TrafficSnapshot{}, expectedErr
			},
		}
		args.Store = &testsCommon.StoreStub{
			StoreDailyMetricsCalled: func(owner string, repo string, date time.Time,
				views int, uniqueVisitors int, clones int, uniqueCloners int) error {
				storeCalled = true
				return nil
			},
		}

		e, _ := NewCollectionEngine(args)
		err := e.ProcessRepository(context.Background(), repo, false)

		assert.Equal(t, expectedErr, err)
		assert.False(t, storeCalled)
	})
	t.Run("store failure is fatal", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("expected error")

		args := createMockArgs()
		args.Store = &testsCommon.StoreStub{
			StoreDailyMetricsCalled: func(owner string, repo string, date time.Time,
				views int, uniqueVisitors int, clones int, uniqueCloners int) error {
				return expectedErr
			},
		}

		e, _ := NewCollectionEngine(args)
		err := e.ProcessRepository(context.Background(), repo, false)

		assert.Equal(t, expectedErr, err)
	})
	t.Run("referrers and metadata failures are best-effort", func(t *testing.T) {
		t.Parallel()

		lastUpdatedStamped := false

		args := createMockArgs()
		args.Collector = &testsCommon.CollectorStub{
			CollectReferrersCalled: func(ctx context.Context, owner string, repo string) (map[string]int, error) {
				return nil, errors.New("referrers down")
			},
			CollectMetadataCalled: func(ctx context.Context, owner string, repo string) (common.RepositoryMetadata, error) {
				return common.RepositoryMetadata{}, errors.New("metadata down")
			},
		}
		args.Registry = &testsCommon.RegistryStub{
			UpdateLastUpdatedCalled: func(owner string, name string, timestamp time.Time) error {
				lastUpdatedStamped = true
				return nil
			},
		}

		e, _ := NewCollectionEngine(args)
		err := e.ProcessRepository(context.Background(), repo, false)

		assert.Nil(t, err)
		assert.True(t, lastUpdatedStamped)
	})
	t.Run("empty referrers map is not stored", func(t *testing.T) {
		t.Parallel()

		storeReferrersCalled := false

		args := createMockArgs()
		args.Store = &testsCommon.StoreStub{
			StoreReferrersCalled: func(owner string, repo string, counts map[string]int, month string) error {
				storeReferrersCalled = true
				return nil
			},
		}

		e, _ := NewCollectionEngine(args)
		err := e.ProcessRepository(context.Background(), repo, false)

		assert.Nil(t, err)
		assert.False(t, storeReferrersCalled)
	})
	t.Run("historical is skipped for known repositories by default", func(t *testing.T) {
		t.Parallel()

		historicalCalled := false

		args := createMockArgs()
		args.Collector = &testsCommon.CollectorStub{
			CollectHistoricalCalled: func(ctx context.Context, owner string, repo string) ([]common.DailyCount, []common.DailyCount, error) {
				historicalCalled = true
				return nil, nil, nil
			},
		}

		e, _ := NewCollectionEngine(args)
		err := e.ProcessRepository(context.Background(), repo, false)

		assert.Nil(t, err)
		assert.False(t, historicalCalled)
	})
	t.Run("historical is forced for a repository never collected before", func(t *testing.T) {
		t.Parallel()

		historicalCalled := false

		args := createMockArgs()
		args.Collector = &testsCommon.CollectorStub{
			CollectHistoricalCalled: func(ctx context.Context, owner string, repo string) ([]common.DailyCount, []common.DailyCount, error) {
				historicalCalled = true
				return nil, nil, nil
			},
		}

		newRepo := repo
		newRepo.LastUpdated = ""

		e, _ := NewCollectionEngine(args)
		err := e.ProcessRepository(context.Background(), newRepo, false)

		assert.Nil(t, err)
		assert.True(t, historicalCalled)
	})
	t.Run("historical runs when explicitly requested", func(t *testing.T) {
		t.Parallel()

		historicalStored := false

		args := createMockArgs()
		args.Store = &testsCommon.StoreStub{
			StoreHistoricalCalled: func(owner string, repo string,
				viewsDaily []common.DailyCount, clonesDaily []common.DailyCount) (int, error) {
				historicalStored = true
				return 14, nil
			},
		}

		e, _ := NewCollectionEngine(args)
		err := e.ProcessRepository(context.Background(), repo, true)

		assert.Nil(t, err)
		assert.True(t, historicalStored)
	})
	t.Run("last_updated stamp failure does not fail the repository", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Registry = &testsCommon.RegistryStub{
			UpdateLastUpdatedCalled: func(owner string, name string, timestamp time.Time) error {
				return errors.New("read-only file")
			},
		}

		e, _ := NewCollectionEngine(args)
		err := e.ProcessRepository(context.Background(), repo, false)

		assert.Nil(t, err)
	})
}

func TestCollectionEngine_ProcessAll(t *testing.T) {
	t.Parallel()

	t.Run("no enabled repositories should return an empty report", func(t *testing.T) {
		t.Parallel()

		e, _ := NewCollectionEngine(createMockArgs())
		report := e.ProcessAll(context.Background(), false)

		assert.Zero(t, report.TotalRepositories)
		assert.Zero(t, report.SuccessfulRepositories)
		assert.Zero(t, report.FailedRepositories)
		assert.Zero(t, report.SuccessRate)
	})
	t.Run("one failing repository should not stop the others", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Registry = &testsCommon.RegistryStub{
			EnabledRepositoriesCalled: func() []config.RepositoryConfig {
				return testRepositories("first", "missing", "third")
			},
		}
		args.Collector = &testsCommon.CollectorStub{
			CollectCurrentCalled: func(ctx context.Context, owner string, repo string) (common.TrafficSnapshot, error) {
				if repo == "missing" {
					return common.TrafficSnapshot{}, errors.New("HTTP 404")
				}
				return common.TrafficSnapshot{Views: 1, CollectedAt: time.Now().UTC()}, nil
			},
		}

		e, _ := NewCollectionEngine(args)
		report := e.ProcessAll(context.Background(), false)

		assert.Equal(t, 3, report.TotalRepositories)
		assert.Equal(t, 2, report.SuccessfulRepositories)
		assert.Equal(t, 1, report.FailedRepositories)
		assert.Equal(t, []string{"owner/first", "owner/third"}, report.SuccessfulRepos)
		assert.Equal(t, []string{"owner/missing"}, report.FailedRepos)
		assert.InDelta(t, 2.0/3.0, report.SuccessRate, 0.0001)
		assert.NotEmpty(t, report.Timestamp)
	})
	t.Run("single worker processes repositories in configuration order", func(t *testing.T) {
		t.Parallel()

		processed := make([]string, 0, 3)

		args := createMockArgs()
		args.Registry = &testsCommon.RegistryStub{
			EnabledRepositoriesCalled: func() []config.RepositoryConfig {
				return testRepositories("first", "second", "third")
			},
		}
		args.Collector = &testsCommon.CollectorStub{
			CollectCurrentCalled: func(ctx context.Context, owner string, repo string) (common.TrafficSnapshot, error) {
				processed = append(processed, repo)
				return common.TrafficSnapshot{CollectedAt: time.Now().UTC()}, nil
			},
		}

		e, _ := NewCollectionEngine(args)
		_ = e.ProcessAll(context.Background(), false)

		assert.Equal(t, []string{"first", "second", "third"}, processed)
	})
	t.Run("multiple workers process every repository exactly once", func(t *testing.T) {
		t.Parallel()

		var numCalls atomic.Uint32
		processedMut := sync.Mutex{}
		processed := make(map[string]int)

		args := createMockArgs()
		args.NumWorkers = 4
		args.Registry = &testsCommon.RegistryStub{
			EnabledRepositoriesCalled: func() []config.RepositoryConfig {
				return testRepositories("r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8")
			},
		}
		args.Collector = &testsCommon.CollectorStub{
			CollectCurrentCalled: func(ctx context.Context, owner string, repo string) (common.TrafficSnapshot, error) {
				numCalls.Add(1)
				processedMut.Lock()
				processed[repo]++
				processedMut.Unlock()
				return common.TrafficSnapshot{CollectedAt: time.Now().UTC()}, nil
			},
		}

		e, _ := NewCollectionEngine(args)
		report := e.ProcessAll(context.Background(), false)

		assert.Equal(t, uint32(8), numCalls.Load())
		assert.Equal(t, 8, report.SuccessfulRepositories)
		assert.Len(t, processed, 8)
		for repo, count := range processed {
			assert.Equal(t, 1, count, "repository %s processed more than once", repo)
		}
	})
}

func TestCollectionEngine_Validate(t *testing.T) {
	t.Parallel()

	t.Run("no enabled repositories should error", func(t *testing.T) {
		t.Parallel()

		e, _ := NewCollectionEngine(createMockArgs())
		err := e.Validate(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no enabled repositories")
	})
	t.Run("at least one accessible repository should pass", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Registry = &testsCommon.RegistryStub{
			EnabledRepositoriesCalled: func() []config.RepositoryConfig {
				return testRepositories("ok", "broken")
			},
		}
		args.Collector = &testsCommon.CollectorStub{
			CollectMetadataCalled: func(ctx context.Context, owner string, repo string) (common.RepositoryMetadata, error) {
				if repo == "broken" {
					return common.RepositoryMetadata{}, errors.New("HTTP 404")
				}
				return common.RepositoryMetadata{}, nil
			},
		}

		e, _ := NewCollectionEngine(args)
		err := e.Validate(context.Background())

		assert.Nil(t, err)
	})
	t.Run("no accessible repository should error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Registry = &testsCommon.RegistryStub{
			EnabledRepositoriesCalled: func() []config.RepositoryConfig {
				return testRepositories("broken")
			},
		}
		args.Collector = &testsCommon.CollectorStub{
			CollectMetadataCalled: func(ctx context.Context, owner string, repo string) (common.RepositoryMetadata, error) {
				return common.RepositoryMetadata{}, errors.New("HTTP 401")
			},
		}

		e, _ := NewCollectionEngine(args)
		err := e.Validate(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no configured repository is accessible")
	})
}
