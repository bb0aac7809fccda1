// Package dto contains data transfer objects for application layer use cases.
package dto

// InstallOptions tunes a single install request.
type InstallOptions struct {
	// Force bypasses the already-downloaded short-circuit and
	// re-materializes even when the on-disk copy matches.
	Force bool
}
