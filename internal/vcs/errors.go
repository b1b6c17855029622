package vcs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrInvalidRepositoryURL is returned when the repository URL cannot be parsed.
	ErrInvalidRepositoryURL = errors.New("invalid repository URL")

	// ErrToolNotFound is returned when the version control binary is not installed.
	ErrToolNotFound = errors.New("version control tool not found")

	// ErrRemoteMismatch is returned when an existing working copy belongs to
	// another repository.
	ErrRemoteMismatch = errors.New("working copy tracks a different repository")

	// ErrUnknownClient is returned for an unsupported client name.
	ErrUnknownClient = errors.New("unknown version control client")
)

// ErrorCode classifies a version control failure.
type ErrorCode string

// Working copy corruption codes. These match the Subversion error numbers;
// the git client maps its lock failures onto them.
const (
	CodeCleanupRequired   ErrorCode = "E155037"
	CodeWorkingCopyLocked ErrorCode = "E155004"
	CodePathAlreadyLocked ErrorCode = "E160035"
	CodeUnknown           ErrorCode = ""
)

// recoverableCodes lists the codes a working copy cleanup can repair.
var recoverableCodes = map[ErrorCode]bool{
	CodeCleanupRequired:   true,
	CodeWorkingCopyLocked: true,
	CodePathAlreadyLocked: true,
}

// Error is a detailed error from a checkout, update or cleanup.
type Error struct {
	// Op is the operation that failed: "checkout", "update" or "cleanup".
	Op string

	// RepositoryURL is the redacted repository URL.
	RepositoryURL string

	// Path is the working copy path.
	Path string

	// Code classifies the failure.
	Code ErrorCode

	// Stderr contains the tool's stderr output.
	Stderr string

	// ExitCode is the tool's exit code.
	ExitCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	switch {
	case msg != "":
		return fmt.Sprintf("%s failed (exit %d): %s", e.Op, e.ExitCode, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s failed with exit code %d", e.Op, e.ExitCode)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Recoverable reports whether a working copy cleanup may repair the failure.
func (e *Error) Recoverable() bool {
	return recoverableCodes[e.Code]
}

// AsError attempts to convert an error to a vcs Error.
func AsError(err error) (*Error, bool) {
	var vErr *Error
	ok := errors.As(err, &vErr)
	return vErr, ok
}

// IsRecoverable reports whether err is a vcs Error a cleanup may repair.
func IsRecoverable(err error) bool {
	vErr, ok := AsError(err)
	return ok && vErr.Recoverable()
}
