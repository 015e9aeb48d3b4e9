package factory

import (
	"time"

	"github.com/ghanalytics/traffic-tracker/api"
	"github.com/ghanalytics/traffic-tracker/client"
	"github.com/ghanalytics/traffic-tracker/collector"
	"github.com/ghanalytics/traffic-tracker/config"
	"github.com/ghanalytics/traffic-tracker/engine"
	"github.com/ghanalytics/traffic-tracker/storage"
)

// componentsHandler wires the rate limit tracker, API client, collector, store
// and engine together. All HTTP calls funnel through the single shared client
// so one tracker bounds the token's quota regardless of worker count.
type componentsHandler struct {
	config    config.Config
	registry  engine.Registry
	apiClient APIClient
	collector engine.Collector
	storage   api.Storage
	engine    Engine
}

// NewComponentsHandler creates a new components handler
func NewComponentsHandler(
	githubToken string,
	cfg config.Config,
	registry engine.Registry,
) (*componentsHandler, error) {
	tracker := client.NewRateLimitTracker(int(cfg.API.RateLimitThreshold))

	apiClient, err := client.NewGitHubClient(client.ArgsGitHubClient{
		BaseURL:            cfg.API.BaseURL,
		Token:              githubToken,
		UserAgent:          cfg.API.UserAgent,
		RequestTimeout:     time.Duration(cfg.API.RequestTimeoutInSeconds) * time.Second,
		MaxRetries:         int(cfg.API.MaxRetries),
		MinRequestInterval: time.Duration(cfg.API.MinRequestIntervalInMillis) * time.Millisecond,
		RateLimitHandler:   tracker,
	})
	if err != nil {
		return nil, err
	}

	trafficCollector, err := collector.NewTrafficCollector(apiClient)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewAnalyticsStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	collectionEngine, err := engine.NewCollectionEngine(engine.ArgsCollectionEngine{
		Collector:  trafficCollector,
		Store:      store,
		Registry:   registry,
		NumWorkers: cfg.Collection.NumWorkers,
	})
	if err != nil {
		return nil, err
	}

	return &componentsHandler{
		config:    cfg,
		registry:  registry,
		apiClient: apiClient,
		collector: trafficCollector,
		storage:   store,
		engine:    collectionEngine,
	}, nil
}

// GetConfig returns the loaded configuration value
func (ch *componentsHandler) GetConfig() config.Config {
	return ch.config
}

// GetRegistry returns the repositories registry
func (ch *componentsHandler) GetRegistry() engine.Registry {
	return ch.registry
}

// GetAPIClient returns the API client component
func (ch *componentsHandler) GetAPIClient() APIClient {
	return ch.apiClient
}

// GetCollector returns the collector component
func (ch *componentsHandler) GetCollector() engine.Collector {
	return ch.collector
}

// GetStorage returns the storage component
func (ch *componentsHandler) GetStorage() api.Storage {
	return ch.storage
}

// GetEngine returns the engine component
func (ch *componentsHandler) GetEngine() Engine {
	return ch.engine
}
