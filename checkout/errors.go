// Package checkout provides sentinel errors for repository materialization
// and tool setup. All errors can be checked using errors.Is() for
// programmatic handling.
package checkout

import (
	"errors"
	"fmt"
)

// Common sentinel errors that can be checked with errors.Is().
// These wrap underlying go-git and exec errors while providing a stable API
// for consumers.

// ErrCloneFailed is returned when the event's repository could not be cloned
// into the job workspace (source missing, transport failure, storage failure).
var ErrCloneFailed = errors.New("clone failed")

// ErrRefMissing is returned when the event's ref does not exist in the
// cloned repository.
var ErrRefMissing = errors.New("ref does not exist")

// ErrInvalidSource is returned when the checkout source is malformed,
// such as an empty repository URL.
var ErrInvalidSource = errors.New("invalid checkout source")

// ErrToolMissing is returned when a setup step's tool cannot be found on PATH.
var ErrToolMissing = errors.New("tool not found")

// ErrVersionMismatch is returned when a tool is present but its reported
// version does not satisfy the requested constraint, or when the version
// cannot be determined from the tool's output.
var ErrVersionMismatch = errors.New("version does not satisfy constraint")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
