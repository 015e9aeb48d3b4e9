package client

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/multiversx/mx-chain-core-go/core/check"
	"github.com/tidwall/gjson"
)

const (
	acceptHeaderValue     = "application/vnd.github.v3+json"
	rateLimitFallbackWait = 60 * time.Second
	authTestPath          = "/user"
)

// ArgsGitHubClient holds the arguments needed to create a GitHub API client
type ArgsGitHubClient struct {
	BaseURL            string
	Token              string
	UserAgent          string
	RequestTimeout     time.Duration
	MaxRetries         int
	MinRequestInterval time.Duration
	RateLimitHandler   RateLimitHandler
}

// githubClient issues authenticated GETs against the GitHub REST API with
// bounded retries, exponential backoff and rate-limit-aware pausing
type githubClient struct {
	baseURL            string
	token              string
	userAgent          string
	httpClient         *http.Client
	maxRetries         int
	minRequestInterval time.Duration
	rateLimitHandler   RateLimitHandler

	mutLastRequest   sync.Mutex
	lastRequestStart time.Time
}

// NewGitHubClient creates a new GitHub API client
func NewGitHubClient(args ArgsGitHubClient) (*githubClient, error) {
	if len(args.Token) == 0 {
		return nil, fmt.Errorf("%w: empty token provided", ErrUnauthorized)
	}
	if check.IfNil(args.RateLimitHandler) {
		return nil, fmt.Errorf("nil rate limit handler")
	}
	if args.MaxRetries < 0 {
		return nil, fmt.Errorf("invalid max retries value %d", args.MaxRetries)
	}

	return &githubClient{
		baseURL:            strings.TrimSuffix(args.BaseURL, "/"),
		token:              args.Token,
		userAgent:          args.UserAgent,
		maxRetries:         args.MaxRetries,
		minRequestInterval: args.MinRequestInterval,
		rateLimitHandler:   args.RateLimitHandler,
		httpClient: &http.Client{
			Timeout: args.RequestTimeout,
		},
	}, nil
}

// Get fetches the given API path and returns the raw JSON body. Transient
// failures (network errors, 5xx) are retried with exponential backoff and
// jitter; rate-limit 403s are waited out without consuming the retry budget;
// 401/403/404 fail fast with the matching sentinel error.
func (c *githubClient) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	attempt := 0
	for {
		err := c.rateLimitHandler.MaybeWait(ctx)
		if err != nil {
			return nil, err
		}

		err = c.pace(ctx)
		if err != nil {
			return nil, err
		}

		log.Trace("issuing request", "url", fullURL, "attempt", attempt+1)

		resp, err := c.doRequest(ctx, fullURL)
		if err != nil {
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("%w: network error: %v", ErrExhaustedRetries, err)
			}

			waitErr := c.backoff(ctx, attempt, err)
			if waitErr != nil {
				return nil, waitErr
			}
			attempt++
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		c.rateLimitHandler.Observe(resp.Header)

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, ErrUnauthorized
		case resp.StatusCode == http.StatusForbidden:
			if !isRateLimitBody(body) {
				return nil, fmt.Errorf("%w: %s", ErrForbidden, string(body))
			}

			// rate-limit events do not consume the retry budget
			err = c.waitForReset(ctx, resp.Header)
			if err != nil {
				return nil, err
			}
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode >= http.StatusInternalServerError:
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("%w: server error %d", ErrExhaustedRetries, resp.StatusCode)
			}

			err = c.backoff(ctx, attempt, fmt.Errorf("server error %d", resp.StatusCode))
			if err != nil {
				return nil, err
			}
			attempt++
		default:
			return nil, errUnexpectedStatus{
				statusCode: resp.StatusCode,
				body:       string(body),
			}
		}
	}
}

// TestAuthentication verifies the configured token by fetching the
// authenticated user and returns the resolved login name
func (c *githubClient) TestAuthentication(ctx context.Context) (string, error) {
	body, err := c.Get(ctx, authTestPath, nil)
	if err != nil {
		return "", err
	}

	return gjson.GetBytes(body, "login").String(), nil
}

func (c *githubClient) doRequest(ctx context.Context, fullURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", acceptHeaderValue)
	req.Header.Set("User-Agent", c.userAgent)

	return c.httpClient.Do(req)
}

// pace enforces the minimum spacing between requests, measured from the
// previous request's start. Sleeping while holding the mutex serializes
// concurrent callers, which is intended: the spacing bounds one token's quota.
func (c *githubClient) pace(ctx context.Context) error {
	c.mutLastRequest.Lock()
	defer c.mutLastRequest.Unlock()

	sinceLast := time.Since(c.lastRequestStart)
	if sinceLast < c.minRequestInterval {
		err := sleepWithContext(ctx, c.minRequestInterval-sinceLast)
		if err != nil {
			return err
		}
	}

	c.lastRequestStart = time.Now()

	return nil
}

func (c *githubClient) backoff(ctx context.Context, attempt int, cause error) error {
	waitTime := time.Duration(1<<uint(attempt))*time.Second +
		time.Duration(rand.Float64()*float64(time.Second))
	log.Warn("transient request failure, retrying", "cause", cause, "wait", waitTime)

	return sleepWithContext(ctx, waitTime)
}

func (c *githubClient) waitForReset(ctx context.Context, headers http.Header) error {
	waitTime := rateLimitFallbackWait
	resetEpoch, err := strconv.ParseInt(headers.Get(resetHeader), 10, 64)
	if err == nil {
		waitTime = time.Until(time.Unix(resetEpoch, 0)) + resetSafetyDelay
		if waitTime < 0 {
			waitTime = 0
		}
	}

	log.Warn("rate limit exceeded, waiting", "wait", waitTime)

	return sleepWithContext(ctx, waitTime)
}

func isRateLimitBody(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "rate limit")
}

// IsInterfaceNil returns true if the value under the interface is nil
func (c *githubClient) IsInterfaceNil() bool {
	return c == nil
}
