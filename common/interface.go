package common

import "time"

// FileLoggingHandler defines the behaviour of the component that saves logs to files
type FileLoggingHandler interface {
	ChangeFileLifeSpan(newDuration time.Duration, newSizeInMB uint64) error
	Close() error
	IsInterfaceNil() bool
}
