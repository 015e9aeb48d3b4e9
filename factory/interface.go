package factory

import (
	"context"
	"net/url"

	"github.com/ghanalytics/traffic-tracker/common"
	"github.com/ghanalytics/traffic-tracker/config"
)

// Engine defines the collection engine behaviour
type Engine interface {
	// ProcessAll collects every enabled repository and returns the run report
	ProcessAll(ctx context.Context, includeHistorical bool) common.CollectionReport

	// ProcessRepository collects one repository; the returned error marks it failed
	ProcessRepository(ctx context.Context, repo config.RepositoryConfig, includeHistorical bool) error

	// Validate checks auth and repository accessibility without collecting
	Validate(ctx context.Context) error

	IsInterfaceNil() bool
}

// APIClient defines the GitHub client surface the application layer needs
type APIClient interface {
	// Get fetches the given API path and returns the raw JSON body
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)

	// TestAuthentication verifies the configured token and returns the login name
	TestAuthentication(ctx context.Context) (string, error)

	IsInterfaceNil() bool
}
