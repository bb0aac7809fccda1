// Package apperrors defines application-level error types.
package apperrors

import (
	"fmt"
	"time"
)

// InvalidNameError indicates a plugin name failed validation.
// Raised before any I/O or lock acquisition.
type InvalidNameError struct {
	Name   string
	Reason error
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid plugin name %q: %v", e.Name, e.Reason)
}

func (e *InvalidNameError) Unwrap() error {
	return e.Reason
}

// NewInvalidNameError creates a new invalid name error.
func NewInvalidNameError(name string, reason error) *InvalidNameError {
	return &InvalidNameError{Name: name, Reason: reason}
}

// InvalidVersionError indicates a version or version range failed validation.
// Raised before any I/O or lock acquisition.
type InvalidVersionError struct {
	Version string
	Reason  error
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Version, e.Reason)
}

func (e *InvalidVersionError) Unwrap() error {
	return e.Reason
}

// NewInvalidVersionError creates a new invalid version error.
func NewInvalidVersionError(version string, reason error) *InvalidVersionError {
	return &InvalidVersionError{Version: version, Reason: reason}
}

// NotInstalledError indicates an operation referenced a plugin that has no
// descriptor in the inventory.
type NotInstalledError struct {
	Name string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("plugin %q is not installed", e.Name)
}

// NewNotInstalledError creates a new not installed error.
func NewNotInstalledError(name string) *NotInstalledError {
	return &NotInstalledError{Name: name}
}

// InvalidPackageError indicates a package manifest is missing or malformed.
type InvalidPackageError struct {
	Path   string
	Reason error
}

func (e *InvalidPackageError) Error() string {
	return fmt.Sprintf("invalid package at %s: %v", e.Path, e.Reason)
}

func (e *InvalidPackageError) Unwrap() error {
	return e.Reason
}

// NewInvalidPackageError creates a new invalid package error.
func NewInvalidPackageError(path string, reason error) *InvalidPackageError {
	return &InvalidPackageError{Path: path, Reason: reason}
}

// LockAcquireError indicates the store lock could not be acquired.
// The guarded operation was not started; no store mutation happened.
type LockAcquireError struct {
	Path    string
	Waited  time.Duration
	Cause   error
	Timeout bool
}

func (e *LockAcquireError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("could not acquire store lock %s within %s", e.Path, e.Waited)
	}
	return fmt.Sprintf("could not acquire store lock %s: %v", e.Path, e.Cause)
}

func (e *LockAcquireError) Unwrap() error {
	return e.Cause
}

// NewLockAcquireError creates a new lock acquire error.
func NewLockAcquireError(path string, waited time.Duration, cause error, timeout bool) *LockAcquireError {
	return &LockAcquireError{Path: path, Waited: waited, Cause: cause, Timeout: timeout}
}

// LockReleaseError indicates the store lock could not be released.
// Non-fatal: logged, never masks the guarded operation's own result.
type LockReleaseError struct {
	Path  string
	Cause error
}

func (e *LockReleaseError) Error() string {
	return fmt.Sprintf("could not release store lock %s: %v", e.Path, e.Cause)
}

func (e *LockReleaseError) Unwrap() error {
	return e.Cause
}

// NewLockReleaseError creates a new lock release error.
func NewLockReleaseError(path string, cause error) *LockReleaseError {
	return &LockReleaseError{Path: path, Cause: cause}
}

// ResolutionError indicates a package source failed to resolve an
// identifier (network failure, unknown package, no matching version).
type ResolutionError struct {
	Source     string
	Identifier string
	Cause      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: could not resolve %q: %v", e.Source, e.Identifier, e.Cause)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// NewResolutionError creates a new resolution error.
func NewResolutionError(source, identifier string, cause error) *ResolutionError {
	return &ResolutionError{Source: source, Identifier: identifier, Cause: cause}
}

// MaterializeError indicates a package source failed to write package
// files into the store (download, extract or copy failure).
type MaterializeError struct {
	Source string
	Name   string
	Cause  error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("%s: could not materialize %q: %v", e.Source, e.Name, e.Cause)
}

func (e *MaterializeError) Unwrap() error {
	return e.Cause
}

// NewMaterializeError creates a new materialize error.
func NewMaterializeError(source, name string, cause error) *MaterializeError {
	return &MaterializeError{Source: source, Name: name, Cause: cause}
}
