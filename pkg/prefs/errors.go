package prefs

import "errors"

var (
	// ErrPreferenceNotFound is returned by storage when no row exists for
	// the given user and scope. The resolver treats this as "use defaults",
	// never as a caller-visible error.
	ErrPreferenceNotFound = errors.New("delivery preference not found")

	// ErrInvalidPreference is returned when an upserted preference patch
	// fails validation.
	ErrInvalidPreference = errors.New("invalid delivery preference")

	// ErrStorageNil is returned when a resolver or service is constructed
	// without storage.
	ErrStorageNil = errors.New("preference storage cannot be nil")
)
