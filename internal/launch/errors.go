package launch

import "errors"

var (
	// ErrLaunch wraps every failure to spawn the daemon process.
	ErrLaunch = errors.New("failed to launch ZAP")

	// ErrNoExecutableRoot is returned when no ZAP directory is known for the install mode.
	ErrNoExecutableRoot = errors.New("no ZAP executable root")

	// ErrEmptyCommand is returned when the command line has no words.
	ErrEmptyCommand = errors.New("empty command line")
)
