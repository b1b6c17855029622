package scan

import "errors"

var (
	// ErrSyncFailed is returned when the working copy could not be synced.
	ErrSyncFailed = errors.New("checkout or update failed")

	// ErrSealedCredentials is returned when the repository password is
	// age-sealed but no identity is configured to open it.
	ErrSealedCredentials = errors.New("repository password is sealed and no age identity is configured")

	// ErrBuildFailed is returned when building ZAP failed.
	ErrBuildFailed = errors.New("build failed")
)
