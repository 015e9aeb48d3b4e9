package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghanalytics/traffic-tracker/common"
	"github.com/ghanalytics/traffic-tracker/config"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"golang.org/x/sync/errgroup"
)

var log = logger.GetOrCreate("engine")

// ArgsCollectionEngine holds the arguments needed to create a collection engine
type ArgsCollectionEngine struct {
	Collector  Collector
	Store      Store
	Registry   Registry
	NumWorkers uint32
}

// collectionEngine drives one collection run over the configured repositories.
// Failures are isolated per repository: a failed repository is recorded in the
// report and the run moves on to the next one.
type collectionEngine struct {
	collector  Collector
	store      Store
	registry   Registry
	numWorkers uint32
}

// NewCollectionEngine creates a new collection engine instance
func NewCollectionEngine(args ArgsCollectionEngine) (*collectionEngine, error) {
	if check.IfNil(args.Collector) {
		return nil, errors.New("nil collector")
	}
	if check.IfNil(args.Store) {
		return nil, errors.New("nil store")
	}
	if check.IfNil(args.Registry) {
		return nil, errors.New("nil registry")
	}

	return &collectionEngine{
		collector:  args.Collector,
		store:      args.Store,
		registry:   args.Registry,
		numWorkers: args.NumWorkers,
	}, nil
}

// ProcessAll collects every enabled repository and returns the run report.
// With a single worker, repositories are processed in configuration order;
// with more, collection fans out over a bounded pool while the shared client
// keeps the upstream quota bookkeeping in one place.
func (e *collectionEngine) ProcessAll(ctx context.Context, includeHistorical bool) common.CollectionReport {
	repositories := e.registry.EnabledRepositories()
	if len(repositories) == 0 {
		log.Warn("no enabled repositories found in configuration")
		return buildReport(repositories, nil)
	}

	log.Info("starting data collection", "repositories", len(repositories))

	outcomes := make([]error, len(repositories))
	if e.numWorkers <= 1 {
		for i, repo := range repositories {
			outcomes[i] = e.ProcessRepository(ctx, repo, includeHistorical)
		}
	} else {
		g := &errgroup.Group{}
		g.SetLimit(int(e.numWorkers))
		for i, repo := range repositories {
			i, repo := i, repo
			g.Go(func() error {
				outcomes[i] = e.ProcessRepository(ctx, repo, includeHistorical)
				return nil
			})
		}
		_ = g.Wait()
	}

	report := buildReport(repositories, outcomes)
	log.Info("collection completed",
		"total", report.TotalRepositories,
		"successful", report.SuccessfulRepositories,
		"failed", report.FailedRepositories,
		"success rate", fmt.Sprintf("%.1f%%", report.SuccessRate*100))
	if len(report.FailedRepos) > 0 {
		log.Warn("failed repositories", "repositories", report.FailedRepos)
	}

	return report
}

// ProcessRepository runs the per-repository collection state machine: the
// current-traffic fetch and store are fatal, referrers/metadata/historical are
// best-effort, and last_updated is stamped on success. Historical backfill is
// forced for repositories that were never collected.
func (e *collectionEngine) ProcessRepository(ctx context.Context, repo config.RepositoryConfig, includeHistorical bool) error {
	fullName := repo.FullName()
	log.Info("starting data collection", "repository", fullName)

	snapshot, err := e.collector.CollectCurrent(ctx, repo.Owner, repo.Name)
	if err != nil {
		log.Error("failed to collect current traffic", "repository", fullName, "error", err)
		return err
	}

	err = e.store.StoreDailyMetrics(repo.Owner, repo.Name, snapshot.CollectedAt,
		snapshot.Views, snapshot.UniqueVisitors, snapshot.Clones, snapshot.UniqueCloners)
	if err != nil {
		log.Error("failed to store daily metrics", "repository", fullName, "error", err)
		return err
	}

	e.collectReferrers(ctx, repo)
	e.collectMetadata(ctx, repo)

	isNewRepository := len(repo.LastUpdated) == 0
	if includeHistorical || isNewRepository {
		e.collectHistorical(ctx, repo)
	}

	err = e.registry.UpdateLastUpdated(repo.Owner, repo.Name, time.Now().UTC())
	if err != nil {
		log.Warn("failed to update last_updated", "repository", fullName, "error", err)
	}

	log.Info("successfully collected data", "repository", fullName)

	return nil
}

func (e *collectionEngine) collectReferrers(ctx context.Context, repo config.RepositoryConfig) {
	referrers, err := e.collector.CollectReferrers(ctx, repo.Owner, repo.Name)
	if err != nil {
		log.Warn("failed to collect referrers", "repository", repo.FullName(), "error", err)
		return
	}
	if len(referrers) == 0 {
		return
	}

	err = e.store.StoreReferrers(repo.Owner, repo.Name, referrers, "")
	if err != nil {
		log.Warn("failed to store referrers", "repository", repo.FullName(), "error", err)
	}
}

func (e *collectionEngine) collectMetadata(ctx context.Context, repo config.RepositoryConfig) {
	metadata, err := e.collector.CollectMetadata(ctx, repo.Owner, repo.Name)
	if err != nil {
		log.Warn("failed to collect repository metadata", "repository", repo.FullName(), "error", err)
		return
	}

	err = e.store.StoreMetadata(repo.Owner, repo.Name, metadata)
	if err != nil {
		log.Warn("failed to store repository metadata", "repository", repo.FullName(), "error", err)
	}
}

func (e *collectionEngine) collectHistorical(ctx context.Context, repo config.RepositoryConfig) {
	viewsDaily, clonesDaily, err := e.collector.CollectHistorical(ctx, repo.Owner, repo.Name)
	if err != nil {
		log.Warn("failed to collect historical data", "repository", repo.FullName(), "error", err)
		return
	}

	daysWritten, err := e.store.StoreHistorical(repo.Owner, repo.Name, viewsDaily, clonesDaily)
	if err != nil {
		log.Warn("failed to store historical data", "repository", repo.FullName(), "error", err)
		return
	}

	log.Info("stored historical data", "repository", repo.FullName(), "days written", daysWritten)
}

// Validate checks that every enabled repository is accessible through the API
// without collecting anything. It fails when none are accessible.
func (e *collectionEngine) Validate(ctx context.Context) error {
	repositories := e.registry.EnabledRepositories()
	if len(repositories) == 0 {
		return errors.New("no enabled repositories configured")
	}

	log.Info("validating repository access", "repositories", len(repositories))

	accessible := 0
	for _, repo := range repositories {
		_, err := e.collector.CollectMetadata(ctx, repo.Owner, repo.Name)
		if err != nil {
			log.Error("✗ repository not accessible", "repository", repo.FullName(), "error", err)
			continue
		}

		log.Info("✓ repository accessible", "repository", repo.FullName())
		accessible++
	}

	log.Info("validation completed", "accessible", accessible, "total", len(repositories))

	if accessible == 0 {
		return errors.New("no configured repository is accessible")
	}

	return nil
}

func buildReport(repositories []config.RepositoryConfig, outcomes []error) common.CollectionReport {
	report := common.CollectionReport{
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		TotalRepositories: len(repositories),
		SuccessfulRepos:   make([]string, 0, len(repositories)),
		FailedRepos:       make([]string, 0),
	}

	for i, repo := range repositories {
		if outcomes[i] != nil {
			report.FailedRepos = append(report.FailedRepos, repo.FullName())
			continue
		}

		report.SuccessfulRepos = append(report.SuccessfulRepos, repo.FullName())
	}

	report.SuccessfulRepositories = len(report.SuccessfulRepos)
	report.FailedRepositories = len(report.FailedRepos)
	if report.TotalRepositories > 0 {
		report.SuccessRate = float64(report.SuccessfulRepositories) / float64(report.TotalRepositories)
	}

	return report
}

// IsInterfaceNil returns true if the value under the interface is nil
func (e *collectionEngine) IsInterfaceNil() bool {
	return e == nil
}
