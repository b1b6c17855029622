package vcs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/narvanalabs/zapper/internal/models"
)

// gitLockPatterns mark stderr output caused by a stale lock file.
var gitLockPatterns = []string{
	".lock': file exists",
	"another git process seems to be running",
}

// GitClient drives the git command line client.
type GitClient struct {
	binary string
	logger *slog.Logger
}

// NewGitClient creates a GitClient. An empty binary uses "git" from PATH.
func NewGitClient(binary string, logger *slog.Logger) *GitClient {
	if binary == "" {
		binary = "git"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitClient{binary: binary, logger: logger}
}

// Name implements Client.
func (c *GitClient) Name() string {
	return ClientGit
}

// gitCredentialHelper answers git's "get" request from the environment.
// The password never reaches argv or the clone's .git/config.
const gitCredentialHelper = `!f() { test "$1" = get || return 0; echo "username=${ZAPPER_GIT_USERNAME}"; if test -n "${ZAPPER_GIT_PASSWORD}"; then echo "password=${ZAPPER_GIT_PASSWORD}"; fi; }; f`

// gitEnv returns the environment for git runs. Credentials are supplied
// through a config-env credential helper (git 2.31 or later) that replaces
// any helper the user has configured.
func gitEnv(creds *models.RepositoryCredentials) []string {
	env := []string{"GIT_TERMINAL_PROMPT=0"}
	if creds == nil || creds.Username == "" {
		return env
	}
	return append(env,
		"GIT_CONFIG_COUNT=2",
		"GIT_CONFIG_KEY_0=credential.helper",
		"GIT_CONFIG_VALUE_0=",
		"GIT_CONFIG_KEY_1=credential.helper",
		"GIT_CONFIG_VALUE_1="+gitCredentialHelper,
		"ZAPPER_GIT_USERNAME="+creds.Username,
		"ZAPPER_GIT_PASSWORD="+creds.Password,
	)
}

// CheckoutOrUpdate clones repositoryURL into dest with submodules, or
// fast-forwards an existing clone of the same remote, and returns the HEAD
// commit SHA.
func (c *GitClient) CheckoutOrUpdate(ctx context.Context, repositoryURL, dest string, creds *models.RepositoryCredentials, onEvent EventFunc) (string, error) {
	onLine := func(line string) {
		if ev, ok := parseGitLine(line); ok && onEvent != nil {
			onEvent(ev)
		}
	}
	in := toolInput{env: gitEnv(creds)}

	op := "checkout"
	var steps [][]string
	if isGitWorkingCopy(dest) {
		op = "update"
		if err := c.checkRemote(ctx, repositoryURL, dest); err != nil {
			return "", err
		}
		steps = [][]string{
			{"-C", dest, "pull", "--ff-only", "--stat"},
			{"-C", dest, "submodule", "update", "--init", "--recursive"},
		}
	} else {
		steps = [][]string{
			{"clone", "--recurse-submodules", repositoryURL, dest},
		}
	}

	c.logger.Debug("running git "+op, "url", redactURL(repositoryURL), "path", dest)

	for _, args := range steps {
		run := runTool(ctx, c.binary, args, "", in, onLine)
		if run.err != nil {
			return "", &Error{
				Op:            op,
				RepositoryURL: redactURL(repositoryURL),
				Path:          dest,
				Code:          classifyGit(run.stderr),
				Stderr:        run.stderr,
				ExitCode:      run.exitCode,
				Err:           run.err,
			}
		}
	}

	run := runTool(ctx, c.binary, []string{"-C", dest, "rev-parse", "HEAD"}, "", toolInput{}, nil)
	if run.err != nil {
		return "", &Error{
			Op:       op,
			Path:     dest,
			Stderr:   run.stderr,
			ExitCode: run.exitCode,
			Err:      fmt.Errorf("git rev-parse failed: %w", run.err),
		}
	}
	sha := strings.TrimSpace(run.stdout)
	if onEvent != nil {
		onEvent(Event{Action: ActionRevision, Revision: sha})
	}
	return sha, nil
}

// checkRemote fails when the clone at dest tracks a different origin than
// repositoryURL. The mismatch is not recoverable by cleanup.
func (c *GitClient) checkRemote(ctx context.Context, repositoryURL, dest string) error {
	run := runTool(ctx, c.binary, []string{"-C", dest, "remote", "get-url", "origin"}, "", toolInput{}, nil)
	if run.err != nil {
		return &Error{
			Op:            "update",
			RepositoryURL: redactURL(repositoryURL),
			Path:          dest,
			Stderr:        run.stderr,
			ExitCode:      run.exitCode,
			Err:           fmt.Errorf("%w: reading origin: %v", ErrRemoteMismatch, run.err),
		}
	}
	origin := strings.TrimSpace(run.stdout)
	if sameRemote(origin, repositoryURL) {
		return nil
	}
	return &Error{
		Op:            "update",
		RepositoryURL: redactURL(repositoryURL),
		Path:          dest,
		Err:           fmt.Errorf("%w: working copy tracks %s", ErrRemoteMismatch, redactURL(origin)),
	}
}

// Cleanup removes stale lock files left in dest/.git by an interrupted git process.
func (c *GitClient) Cleanup(ctx context.Context, dest string, onEvent EventFunc) error {
	gitDir := filepath.Join(dest, ".git")
	if _, err := os.Stat(gitDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &Error{Op: "cleanup", Path: dest, Err: err}
	}

	c.logger.Debug("removing stale git locks", "path", dest)

	err := filepath.WalkDir(gitDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		if onEvent != nil {
			onEvent(Event{Action: ActionCleanedUp, Path: path})
		}
		return nil
	})
	if err != nil {
		return &Error{Op: "cleanup", Path: dest, Err: err}
	}
	return nil
}

func isGitWorkingCopy(dest string) bool {
	info, err := os.Stat(filepath.Join(dest, ".git"))
	return err == nil && info.IsDir()
}

func classifyGit(stderr string) ErrorCode {
	lower := strings.ToLower(stderr)
	for _, p := range gitLockPatterns {
		if strings.Contains(lower, p) {
			return CodeWorkingCopyLocked
		}
	}
	return CodeUnknown
}
