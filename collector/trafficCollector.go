package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/ghanalytics/traffic-tracker/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/tidwall/gjson"
)

// historicalWindowDays is the trailing window GitHub reports daily traffic for
const historicalWindowDays = 14

var log = logger.GetOrCreate("collector")

// trafficCollector fetches the traffic endpoints and normalizes the responses
// into typed records. It never touches the disk; failures propagate the
// client's error untransformed so the orchestrator can classify them.
type trafficCollector struct {
	client HTTPClient
}

// NewTrafficCollector creates a new traffic collector on top of the provided API client
func NewTrafficCollector(client HTTPClient) (*trafficCollector, error) {
	if check.IfNil(client) {
		return nil, fmt.Errorf("nil HTTP client")
	}

	return &trafficCollector{
		client: client,
	}, nil
}

// CollectCurrent fetches the views and clones endpoints and returns the
// current totals stamped with the collection time
func (tc *trafficCollector) CollectCurrent(ctx context.Context, owner string, repo string) (common.TrafficSnapshot, error) {
	viewsBody, err := tc.client.Get(ctx, trafficViewsPath(owner, repo), nil)
	if err != nil {
		return common.TrafficSnapshot{}, err
	}

	clonesBody, err := tc.client.Get(ctx, trafficClonesPath(owner, repo), nil)
	if err != nil {
		return common.TrafficSnapshot{}, err
	}

	snapshot := common.TrafficSnapshot{
		Views:          int(gjson.GetBytes(viewsBody, "count").Int()),
		UniqueVisitors: int(gjson.GetBytes(viewsBody, "uniques").Int()),
		Clones:         int(gjson.GetBytes(clonesBody, "count").Int()),
		UniqueCloners:  int(gjson.GetBytes(clonesBody, "uniques").Int()),
		CollectedAt:    time.Now().UTC(),
	}

	log.Debug("collected current traffic", "repository", owner+"/"+repo,
		"views", snapshot.Views, "unique visitors", snapshot.UniqueVisitors,
		"clones", snapshot.Clones, "unique cloners", snapshot.UniqueCloners)

	return snapshot, nil
}

// CollectHistorical fetches the per-day breakdowns of the views and clones
// endpoints and gap-fills them: every series contains exactly one entry per
// calendar day of the trailing 14-day window ending today (UTC), oldest first,
// with zero-valued entries synthesized for days the API omitted.
func (tc *trafficCollector) CollectHistorical(ctx context.Context, owner string, repo string) ([]common.DailyCount, []common.DailyCount, error) {
	viewsBody, err := tc.client.Get(ctx, trafficViewsPath(owner, repo), nil)
	if err != nil {
		return nil, nil, err
	}

	clonesBody, err := tc.client.Get(ctx, trafficClonesPath(owner, repo), nil)
	if err != nil {
		return nil, nil, err
	}

	today := time.Now().UTC()
	viewsDaily := fillMissingDays(parseDailyCounts(viewsBody, "views"), today)
	clonesDaily := fillMissingDays(parseDailyCounts(clonesBody, "clones"), today)

	log.Debug("collected historical traffic", "repository", owner+"/"+repo,
		"views days", len(viewsDaily), "clones days", len(clonesDaily))

	return viewsDaily, clonesDaily, nil
}

// CollectReferrers fetches the top referrers list and maps each referrer name
// to its view count. The per-referrer uniques detail is dropped at this layer.
func (tc *trafficCollector) CollectReferrers(ctx context.Context, owner string, repo string) (map[string]int, error) {
	body, err := tc.client.Get(ctx, referrersPath(owner, repo), nil)
	if err != nil {
		return nil, err
	}

	referrers := make(map[string]int)
	for _, entry := range gjson.ParseBytes(body).Array() {
		name := entry.Get("referrer").String()
		referrers[name] = int(entry.Get("count").Int())
	}

	log.Debug("collected referrers", "repository", owner+"/"+repo, "count", len(referrers))

	return referrers, nil
}

// CollectMetadata fetches the repository info and extracts the counters,
// defaulting missing fields to 0
func (tc *trafficCollector) CollectMetadata(ctx context.Context, owner string, repo string) (common.RepositoryMetadata, error) {
	body, err := tc.client.Get(ctx, repositoryPath(owner, repo), nil)
	if err != nil {
		return common.RepositoryMetadata{}, err
	}

	metadata := common.RepositoryMetadata{
		Stars:      int(gjson.GetBytes(body, "stargazers_count").Int()),
		Forks:      int(gjson.GetBytes(body, "forks_count").Int()),
		Watchers:   int(gjson.GetBytes(body, "watchers_count").Int()),
		OpenIssues: int(gjson.GetBytes(body, "open_issues_count").Int()),
		SizeKB:     int(gjson.GetBytes(body, "size").Int()),
	}

	log.Debug("collected repository metadata", "repository", owner+"/"+repo,
		"stars", metadata.Stars, "forks", metadata.Forks)

	return metadata, nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (tc *trafficCollector) IsInterfaceNil() bool {
	return tc == nil
}

func parseDailyCounts(body []byte, field string) []common.DailyCount {
	entries := gjson.GetBytes(body, field).Array()
	daily := make([]common.DailyCount, 0, len(entries))

	for _, entry := range entries {
		timestamp, err := time.Parse(time.RFC3339, entry.Get("timestamp").String())
		if err != nil {
			log.Warn("skipping daily entry with malformed timestamp",
				"timestamp", entry.Get("timestamp").String(), "error", err)
			continue
		}

		daily = append(daily, common.DailyCount{
			Date:    truncateToDay(timestamp.UTC()),
			Count:   int(entry.Get("count").Int()),
			Uniques: int(entry.Get("uniques").Int()),
		})
	}

	return daily
}

// fillMissingDays synthesizes zero-valued entries for the days absent from the
// API response so the output always covers the full trailing window
func fillMissingDays(daily []common.DailyCount, today time.Time) []common.DailyCount {
	byDate := make(map[time.Time]common.DailyCount, len(daily))
	for _, entry := range daily {
		byDate[entry.Date] = entry
	}

	endDate := truncateToDay(today.UTC())
	startDate := endDate.AddDate(0, 0, -(historicalWindowDays - 1))

	complete := make([]common.DailyCount, 0, historicalWindowDays)
	for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
		entry, found := byDate[date]
		if !found {
			entry = common.DailyCount{Date: date}
		}

		complete = append(complete, entry)
	}

	return complete
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func repositoryPath(owner string, repo string) string {
	return fmt.Sprintf("/repos/%s/%s", owner, repo)
}

func trafficViewsPath(owner string, repo string) string {
	return fmt.Sprintf("/repos/%s/%s/traffic/views", owner, repo)
}

func trafficClonesPath(owner string, repo string) string {
	return fmt.Sprintf("/repos/%s/%s/traffic/clones", owner, repo)
}

func referrersPath(owner string, repo string) string {
	return fmt.Sprintf("/repos/%s/%s/traffic/popular/referrers", owner, repo)
}
