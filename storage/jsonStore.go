package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ghanalytics/traffic-tracker/common"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	dailyMetricsFile   = "daily_metrics.json"
	referrersFile      = "referrers.json"
	repositoryInfoFile = "repository_info.json"

	dateKeyLayout  = "01-02"   // MM-DD keys inside a year-document
	dayLayout      = "2006-01-02"
	monthKeyLayout = "2006-01"
)

var log = logger.GetOrCreate("storage")

type dailyEntry struct {
	Views          int    `json:"views"`
	UniqueVisitors int    `json:"unique_visitors"`
	Clones         int    `json:"clones"`
	UniqueCloners  int    `json:"unique_cloners"`
	CollectedAt    string `json:"collected_at"`
}

type metadataEntry struct {
	common.RepositoryMetadata
	CollectedAt string `json:"collected_at"`
}

// year -> MM-DD -> counters
type dailyDocument map[string]map[string]dailyEntry

// YYYY-MM -> referrer name -> count
type referrersDocument map[string]map[string]int

// YYYY-MM-DD -> repository counters
type metadataDocument map[string]metadataEntry

// analyticsStore persists normalized traffic records into per-repository JSON
// documents under basePath/<owner>/<repo>/. Documents are read-modify-written
// wholesale; the write is atomic through a temp file and rename. A single
// mutex serializes mutations, which keeps concurrent workers from interleaving
// read-modify-write cycles on the same document.
type analyticsStore struct {
	basePath string
	mutFiles sync.Mutex
}

// NewAnalyticsStore creates the store rooted at the provided base path
func NewAnalyticsStore(basePath string) (*analyticsStore, error) {
	if len(basePath) == 0 {
		return nil, fmt.Errorf("empty base path")
	}

	err := os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &analyticsStore{
		basePath: basePath,
	}, nil
}

// StoreDailyMetrics upserts the entry for the given date, overwriting all four
// counters and refreshing the write timestamp. Calling it twice with the same
// arguments leaves a single, identical entry.
func (store *analyticsStore) StoreDailyMetrics(owner string, repo string, date time.Time,
	views int, uniqueVisitors int, clones int, uniqueCloners int) error {
	store.mutFiles.Lock()
	defer store.mutFiles.Unlock()

	doc := store.loadDailyDocument(owner, repo)
	upsertDailyEntry(doc, date, dailyEntry{
		Views:          views,
		UniqueVisitors: uniqueVisitors,
		Clones:         clones,
		UniqueCloners:  uniqueCloners,
		CollectedAt:    time.Now().UTC().Format(time.RFC3339),
	})

	err := store.saveDocument(owner, repo, dailyMetricsFile, doc)
	if err != nil {
		return err
	}

	log.Debug("stored daily metrics", "repository", owner+"/"+repo, "date", date.Format(dayLayout))

	return nil
}

// StoreReferrers adds the incoming counts to any existing counts for the given
// month, creating absent entries at zero. Referrer data represents incremental
// samples across runs within a month, so counts are summed, never overwritten.
// An empty month selects the current UTC month.
func (store *analyticsStore) StoreReferrers(owner string, repo string, counts map[string]int, month string) error {
	if len(month) == 0 {
		month = time.Now().UTC().Format(monthKeyLayout)
	}

	store.mutFiles.Lock()
	defer store.mutFiles.Unlock()

	doc := store.loadReferrersDocument(owner, repo)
	monthCounts, found := doc[month]
	if !found {
		monthCounts = make(map[string]int)
		doc[month] = monthCounts
	}

	for referrer, count := range counts {
		monthCounts[referrer] += count
	}

	err := store.saveDocument(owner, repo, referrersFile, doc)
	if err != nil {
		return err
	}

	log.Debug("stored referrers", "repository", owner+"/"+repo, "month", month, "count", len(counts))

	return nil
}

// StoreHistorical merges the gap-filled daily breakdowns into the daily
// document and returns the number of days it created. Views entries are only
// created where no entry exists yet, so backfill never overwrites data a
// previous run already established. Clones are merged afterwards into whatever
// the views pass left behind: they update the clones fields of existing
// entries and create zero-views entries where needed.
func (store *analyticsStore) StoreHistorical(owner string, repo string,
	viewsDaily []common.DailyCount, clonesDaily []common.DailyCount) (int, error) {
	store.mutFiles.Lock()
	defer store.mutFiles.Unlock()

	doc := store.loadDailyDocument(owner, repo)
	daysWritten := 0
	now := time.Now().UTC().Format(time.RFC3339)

	for _, day := range viewsDaily {
		year, dateKey := documentKeys(day.Date)
		_, exists := doc[year][dateKey]
		if exists {
			continue
		}

		upsertDailyEntry(doc, day.Date, dailyEntry{
			Views:          day.Count,
			UniqueVisitors: day.Uniques,
			CollectedAt:    now,
		})
		daysWritten++
	}

	for _, day := range clonesDaily {
		year, dateKey := documentKeys(day.Date)
		entry, exists := doc[year][dateKey]
		if exists {
			entry.Clones = day.Count
			entry.UniqueCloners = day.Uniques
			doc[year][dateKey] = entry
			continue
		}

		upsertDailyEntry(doc, day.Date, dailyEntry{
			Clones:        day.Count,
			UniqueCloners: day.Uniques,
			CollectedAt:   now,
		})
		daysWritten++
	}

	err := store.saveDocument(owner, repo, dailyMetricsFile, doc)
	if err != nil {
		return 0, err
	}

	log.Debug("stored historical data", "repository", owner+"/"+repo, "days written", daysWritten)

	return daysWritten, nil
}

// StoreMetadata stores a date-keyed snapshot of the repository counters
func (store *analyticsStore) StoreMetadata(owner string, repo string, metadata common.RepositoryMetadata) error {
	store.mutFiles.Lock()
	defer store.mutFiles.Unlock()

	doc := make(metadataDocument)
	store.loadDocument(owner, repo, repositoryInfoFile, &doc)

	now := time.Now().UTC()
	doc[now.Format(dayLayout)] = metadataEntry{
		RepositoryMetadata: metadata,
		CollectedAt:        now.Format(time.RFC3339),
	}

	err := store.saveDocument(owner, repo, repositoryInfoFile, doc)
	if err != nil {
		return err
	}

	log.Debug("stored repository metadata", "repository", owner+"/"+repo, "stars", metadata.Stars)

	return nil
}

func upsertDailyEntry(doc dailyDocument, date time.Time, entry dailyEntry) {
	year, dateKey := documentKeys(date)
	if doc[year] == nil {
		doc[year] = make(map[string]dailyEntry)
	}

	doc[year][dateKey] = entry
}

func documentKeys(date time.Time) (string, string) {
	return strconv.Itoa(date.Year()), date.Format(dateKeyLayout)
}

func (store *analyticsStore) loadDailyDocument(owner string, repo string) dailyDocument {
	doc := make(dailyDocument)
	store.loadDocument(owner, repo, dailyMetricsFile, &doc)

	return doc
}

func (store *analyticsStore) loadReferrersDocument(owner string, repo string) referrersDocument {
	doc := make(referrersDocument)
	store.loadDocument(owner, repo, referrersFile, &doc)

	return doc
}

// loadDocument reads a JSON document into target. A missing or unreadable file
// yields the untouched (empty) target so collection can proceed from scratch.
func (store *analyticsStore) loadDocument(owner string, repo string, filename string, target interface{}) {
	path := store.documentPath(owner, repo, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("failed to read document", "path", path, "error", err)
		}
		return
	}

	err = json.Unmarshal(data, target)
	if err != nil {
		log.Warn("failed to decode document, starting fresh", "path", path, "error", err)
	}
}

// saveDocument writes the whole document through a temp file and an atomic
// rename: either the updated document lands or the prior one stays intact
func (store *analyticsStore) saveDocument(owner string, repo string, filename string, doc interface{}) error {
	path := store.documentPath(owner, repo, filename)
	err := os.MkdirAll(filepath.Dir(path), os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create repository data directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(path), filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	_, err = tmpFile.Write(data)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("failed to write document: %w", err)
	}

	err = tmpFile.Close()
	if err != nil {
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	err = os.Rename(tmpFile.Name(), path)
	if err != nil {
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("failed to replace document: %w", err)
	}

	return nil
}

func (store *analyticsStore) documentPath(owner string, repo string, filename string) string {
	return filepath.Join(store.basePath, owner, repo, filename)
}

// IsInterfaceNil returns true if the value under the interface is nil
func (store *analyticsStore) IsInterfaceNil() bool {
	return store == nil
}
