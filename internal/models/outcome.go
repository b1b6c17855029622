package models

import (
	"runtime"
	"time"
)

// SyncAttempt records a single checkout-or-update attempt.
type SyncAttempt struct {
	AttemptNumber int       `json:"attempt_number"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	CleanedUp     bool      `json:"cleaned_up"`
}

// SyncResult is the outcome of a checkout-or-update of the working copy.
type SyncResult struct {
	Succeeded bool          `json:"succeeded"`
	Revision  string        `json:"revision,omitempty"`
	Attempts  []SyncAttempt `json:"attempts,omitempty"`
	Err       error         `json:"-"`
}

// Cleanups returns how many cleanup operations ran during the sync.
func (r SyncResult) Cleanups() int {
	n := 0
	for _, a := range r.Attempts {
		if a.CleanedUp {
			n++
		}
	}
	return n
}

// BuildOutcome is the reduced result of a build tool invocation.
type BuildOutcome struct {
	Succeeded     bool          `json:"succeeded"`
	FailureDetail string        `json:"failure_detail,omitempty"`
	ArtifactRoot  string        `json:"artifact_root,omitempty"`
	Duration      time.Duration `json:"duration"`
	Err           error         `json:"-"`
}

// OSFamily selects the launch shell and script flavour.
type OSFamily string

const (
	OSFamilyPOSIX   OSFamily = "posix"
	OSFamilyWindows OSFamily = "windows"
)

// CurrentOSFamily returns the family of the running platform.
func CurrentOSFamily() OSFamily {
	if runtime.GOOS == "windows" {
		return OSFamilyWindows
	}
	return OSFamilyPOSIX
}

// CommandLine is the composed daemon launch command.
// Line is the single command string handed to the shell launcher.
type CommandLine struct {
	Shell  string     `json:"shell"`
	Script string     `json:"script"`
	Target HostTarget `json:"target"`
	Line   string     `json:"line"`
}

// String returns Line.
func (c CommandLine) String() string {
	return c.Line
}
