package testsCommon

import (
	"time"

	"github.com/ghanalytics/traffic-tracker/config"
)

// RegistryStub -
type RegistryStub struct {
	EnabledRepositoriesCalled func() []config.RepositoryConfig
	GetRepositoryCalled       func(owner string, name string) (config.RepositoryConfig, bool)
	UpdateLastUpdatedCalled   func(owner string, name string, timestamp time.Time) error
}

// EnabledRepositories -
func (stub *RegistryStub) EnabledRepositories() []config.RepositoryConfig {
	if stub.EnabledRepositoriesCalled != nil {
		return stub.EnabledRepositoriesCalled()
	}

	return nil
}

// GetRepository -
func (stub *RegistryStub) GetRepository(owner string, name string) (config.RepositoryConfig, bool) {
	if stub.GetRepositoryCalled != nil {
		return stub.GetRepositoryCalled(owner, name)
	}

	return config.RepositoryConfig{}, false
}

// UpdateLastUpdated -
func (stub *RegistryStub) UpdateLastUpdated(owner string, name string, timestamp time.Time) error {
	if stub.UpdateLastUpdatedCalled != nil {
		return stub.UpdateLastUpdatedCalled(owner, name, timestamp)
	}

	return nil
}

// IsInterfaceNil -
func (stub *RegistryStub) IsInterfaceNil() bool {
	return stub == nil
}
