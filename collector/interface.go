package collector

import (
	"context"
	"net/url"
)

// HTTPClient defines the API client used to fetch raw JSON documents
type HTTPClient interface {
	// Get fetches the given API path and returns the raw JSON body
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)

	IsInterfaceNil() bool
}
