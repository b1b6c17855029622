// Package vcs checks out or updates the ZAP source working copy.
//
// A Syncer drives a Client (svn or git) through one checkout-or-update to
// HEAD. When the working copy is locked or needs cleanup, the Syncer runs a
// single cleanup and retries once; any further failure is reported.
//
// Concurrent syncs into the same directory are not coordinated.
package vcs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/narvanalabs/zapper/internal/models"
)

// Client names.
const (
	ClientSVN = "svn"
	ClientGit = "git"
)

// EventFunc receives filesystem change events during a sync.
type EventFunc func(Event)

// Client performs working copy operations for one version control system.
type Client interface {
	// Name returns the client name, e.g. "svn".
	Name() string

	// CheckoutOrUpdate brings dest to the HEAD of repositoryURL and returns
	// the resulting revision identifier.
	CheckoutOrUpdate(ctx context.Context, repositoryURL, dest string, creds *models.RepositoryCredentials, onEvent EventFunc) (string, error)

	// Cleanup repairs a locked or interrupted working copy at dest.
	Cleanup(ctx context.Context, dest string, onEvent EventFunc) error
}

// NewClient returns the client registered under name.
func NewClient(name, binary string, logger *slog.Logger) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ClientSVN:
		return NewSVNClient(binary, logger), nil
	case ClientGit:
		return NewGitClient(binary, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownClient, name)
	}
}

// toolRun holds the outcome of one tool invocation.
type toolRun struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
}

// toolInput is process input beyond argv. Secrets travel here so they never
// show up in the process list.
type toolInput struct {
	env   []string
	stdin string
}

// runTool executes binary with args, passing each stdout line to onLine as
// it is produced. Stdout and stderr are also captured.
func runTool(ctx context.Context, binary string, args []string, dir string, in toolInput, onLine func(string)) toolRun {
	if _, err := exec.LookPath(binary); err != nil {
		return toolRun{exitCode: -1, err: fmt.Errorf("%w: %s: %v", ErrToolNotFound, binary, err)}
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	if len(in.env) > 0 {
		cmd.Env = append(os.Environ(), in.env...)
	}
	if in.stdin != "" {
		cmd.Stdin = strings.NewReader(in.stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr

	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return toolRun{exitCode: -1, err: err}
	}
	if err := cmd.Start(); err != nil {
		return toolRun{exitCode: -1, err: err}
	}

	scanner := bufio.NewScanner(io.TeeReader(pipe, &stdout))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	scanErr := scanner.Err()

	err = cmd.Wait()
	run := toolRun{stdout: stdout.String(), stderr: stderr.String(), err: err}
	if err != nil {
		run.exitCode = 1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			run.exitCode = exitErr.ExitCode()
		}
	} else if scanErr != nil {
		run.err = fmt.Errorf("reading output: %w", scanErr)
		run.exitCode = -1
	}
	return run
}
