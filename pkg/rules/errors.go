package rules

import "errors"

var (
	// ErrInvalidRule is returned when an upserted rule fails validation.
	ErrInvalidRule = errors.New("invalid priority rule")

	// ErrRuleNotFound is returned when a rule lookup misses.
	ErrRuleNotFound = errors.New("priority rule not found")

	// ErrStorageNil is returned when a service is constructed without storage.
	ErrStorageNil = errors.New("rule storage cannot be nil")

	// ErrSnapshotFile is returned when a YAML snapshot file cannot be loaded.
	ErrSnapshotFile = errors.New("failed to load rule snapshot file")
)
