package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("config")

// RepositoryConfig identifies one tracked repository. LastUpdated is empty for
// repositories that were never collected, which triggers historical backfill.
type RepositoryConfig struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// FullName returns the owner/name identifier of the repository
func (rc RepositoryConfig) FullName() string {
	return rc.Owner + "/" + rc.Name
}

type repositoriesFile struct {
	Repositories []json.RawMessage `json:"repositories"`
}

// repositoriesRegistry owns the JSON repositories file. It is loaded once at
// startup; the orchestrator is the only writer of the last_updated field.
type repositoriesRegistry struct {
	filepath     string
	mut          sync.Mutex
	repositories []RepositoryConfig
}

// NewRepositoriesRegistry loads the repositories file eagerly and returns the registry
func NewRepositoriesRegistry(filepath string) (*repositoriesRegistry, error) {
	registry := &repositoriesRegistry{
		filepath: filepath,
	}

	err := registry.load()
	if err != nil {
		return nil, err
	}

	return registry, nil
}

func (registry *repositoriesRegistry) load() error {
	data, err := os.ReadFile(registry.filepath)
	if err != nil {
		return fmt.Errorf("failed to read repositories file '%s': %w", registry.filepath, err)
	}

	var file repositoriesFile
	err = json.Unmarshal(data, &file)
	if err != nil {
		return fmt.Errorf("failed to decode repositories file: %w", err)
	}

	registry.repositories = make([]RepositoryConfig, 0, len(file.Repositories))
	for _, raw := range file.Repositories {
		repo, err := decodeRepositoryEntry(raw)
		if err != nil {
			log.Warn("skipping invalid repository entry", "entry", string(raw), "error", err)
			continue
		}

		registry.repositories = append(registry.repositories, repo)
	}

	if len(registry.repositories) == 0 {
		return fmt.Errorf("no valid repositories found in '%s'", registry.filepath)
	}

	return nil
}

// decodeRepositoryEntry accepts either the object form or the shorthand
// "owner/name" string form (enabled by default)
func decodeRepositoryEntry(raw json.RawMessage) (RepositoryConfig, error) {
	var shorthand string
	if json.Unmarshal(raw, &shorthand) == nil {
		parts := strings.SplitN(shorthand, "/", 2)
		if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) == 0 {
			return RepositoryConfig{}, fmt.Errorf("expected 'owner/name' format, got '%s'", shorthand)
		}

		return RepositoryConfig{
			Owner:   parts[0],
			Name:    parts[1],
			Enabled: true,
		}, nil
	}

	var repo RepositoryConfig
	err := json.Unmarshal(raw, &repo)
	if err != nil {
		return RepositoryConfig{}, err
	}
	if len(repo.Owner) == 0 || len(repo.Name) == 0 {
		return RepositoryConfig{}, fmt.Errorf("missing owner or name")
	}

	return repo, nil
}

// EnabledRepositories returns the enabled repositories in file order
func (registry *repositoriesRegistry) EnabledRepositories() []RepositoryConfig {
	registry.mut.Lock()
	defer registry.mut.Unlock()

	enabled := make([]RepositoryConfig, 0, len(registry.repositories))
	for _, repo := range registry.repositories {
		if repo.Enabled {
			enabled = append(enabled, repo)
		}
	}

	return enabled
}

// GetRepository returns the configuration of the given repository, if present
func (registry *repositoriesRegistry) GetRepository(owner string, name string) (RepositoryConfig, bool) {
	registry.mut.Lock()
	defer registry.mut.Unlock()

	for _, repo := range registry.repositories {
		if repo.Owner == owner && repo.Name == name {
			return repo, true
		}
	}

	return RepositoryConfig{}, false
}

// UpdateLastUpdated stamps the repository with the given collection time and
// persists the registry file
func (registry *repositoriesRegistry) UpdateLastUpdated(owner string, name string, timestamp time.Time) error {
	registry.mut.Lock()
	defer registry.mut.Unlock()

	found := false
	for i, repo := range registry.repositories {
		if repo.Owner == owner && repo.Name == name {
			registry.repositories[i].LastUpdated = timestamp.UTC().Format(time.RFC3339)
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("repository %s/%s not found in registry", owner, name)
	}

	return registry.save()
}

func (registry *repositoriesRegistry) save() error {
	entries := make([]json.RawMessage, 0, len(registry.repositories))
	for _, repo := range registry.repositories {
		raw, err := json.Marshal(repo)
		if err != nil {
			return err
		}

		entries = append(entries, raw)
	}

	data, err := json.MarshalIndent(repositoriesFile{Repositories: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode repositories file: %w", err)
	}

	err = os.WriteFile(registry.filepath, data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write repositories file: %w", err)
	}

	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (registry *repositoriesRegistry) IsInterfaceNil() bool {
	return registry == nil
}
