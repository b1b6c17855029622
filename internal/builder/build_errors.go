package builder

import (
	"errors"
	"fmt"
)

// Error categories for build step failures.
const (
	CategoryEnvironment = "environment"
	CategoryDescriptor  = "descriptor"
	CategoryBuild       = "build"
	CategoryArtifact    = "artifact"
)

// Sentinel errors.
var (
	// ErrRuntimeNotFound is returned when no Java runtime can be executed.
	ErrRuntimeNotFound = errors.New("java runtime not found")

	// ErrRuntimeTooOld is returned when the Java runtime is below the minimum version.
	ErrRuntimeTooOld = errors.New("java runtime below minimum version")

	// ErrBuildToolNotFound is returned when the build tool cannot be executed.
	ErrBuildToolNotFound = errors.New("build tool not found")

	// ErrDescriptorNotFound is returned when the build descriptor is missing.
	ErrDescriptorNotFound = errors.New("build descriptor not found")

	// ErrBuildFailed is returned when the build tool reports a failure.
	ErrBuildFailed = errors.New("build failed")

	// ErrArtifactMissing is returned when a successful build left no launch script.
	ErrArtifactMissing = errors.New("build produced no launchable artifact")
)

// MsgNoSuitableJDK is reported when the runtime check fails.
const MsgNoSuitableJDK = "Zapper cannot find a suitable JDK. You need at least a JDK 7 or above."

// EnvironmentError reports a missing or too old build runtime.
type EnvironmentError struct {
	Required string
	Found    string
	Err      error
}

// Error implements the error interface.
func (e *EnvironmentError) Error() string {
	if e.Found != "" {
		return fmt.Sprintf("%s (found %s, need %s)", MsgNoSuitableJDK, e.Found, e.Required)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%v)", MsgNoSuitableJDK, e.Err)
	}
	return MsgNoSuitableJDK
}

// Unwrap returns the underlying error.
func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// BuildError reports a failed build tool run.
type BuildError struct {
	Category string
	Target   string
	Detail   string
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s target %q failed: %s", e.Category, e.Target, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s target %q failed: %v", e.Category, e.Target, e.Err)
	default:
		return fmt.Sprintf("%s target %q failed with exit code %d", e.Category, e.Target, e.ExitCode)
	}
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// IsEnvironmentError reports whether err is an EnvironmentError.
func IsEnvironmentError(err error) bool {
	var envErr *EnvironmentError
	return errors.As(err, &envErr)
}
