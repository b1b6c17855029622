package vcs

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/narvanalabs/zapper/internal/models"
)

// svnErrorRegex extracts the error number from svn stderr, e.g. "svn: E155004: ...".
var svnErrorRegex = regexp.MustCompile(`svn: (E\d{6}):`)

// SVNClient drives the svn command line client.
type SVNClient struct {
	binary string
	logger *slog.Logger
}

// NewSVNClient creates an SVNClient. An empty binary uses "svn" from PATH.
func NewSVNClient(binary string, logger *slog.Logger) *SVNClient {
	if binary == "" {
		binary = "svn"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SVNClient{binary: binary, logger: logger}
}

// Name implements Client.
func (c *SVNClient) Name() string {
	return ClientSVN
}

// CheckoutOrUpdate runs "svn checkout" at HEAD with infinite depth.
// Checking out over an existing working copy of the same URL updates it.
// Externals are fetched.
func (c *SVNClient) CheckoutOrUpdate(ctx context.Context, repositoryURL, dest string, creds *models.RepositoryCredentials, onEvent EventFunc) (string, error) {
	args := []string{"checkout", "--non-interactive", "--depth", "infinity", "-r", "HEAD"}
	var in toolInput
	if creds != nil && creds.Username != "" {
		args = append(args, "--username", creds.Username, "--no-auth-cache")
		if creds.Password != "" {
			// Needs svn 1.10 or later.
			args = append(args, "--password-from-stdin")
			in.stdin = creds.Password + "\n"
		}
	}
	args = append(args, repositoryURL, dest)

	c.logger.Debug("running svn checkout", "url", redactURL(repositoryURL), "path", dest)

	var revision string
	run := runTool(ctx, c.binary, args, "", in, func(line string) {
		ev, ok := parseSVNLine(line)
		if !ok {
			return
		}
		if ev.Action == ActionRevision {
			revision = ev.Revision
		}
		if onEvent != nil {
			onEvent(ev)
		}
	})
	if run.err != nil {
		return "", &Error{
			Op:            "checkout",
			RepositoryURL: redactURL(repositoryURL),
			Path:          dest,
			Code:          classifySVN(run.stderr),
			Stderr:        run.stderr,
			ExitCode:      run.exitCode,
			Err:           run.err,
		}
	}
	return revision, nil
}

// Cleanup runs "svn cleanup" on dest.
func (c *SVNClient) Cleanup(ctx context.Context, dest string, onEvent EventFunc) error {
	c.logger.Debug("running svn cleanup", "path", dest)

	run := runTool(ctx, c.binary, []string{"cleanup", "--non-interactive", dest}, "", toolInput{}, nil)
	if run.err != nil {
		return &Error{
			Op:       "cleanup",
			Path:     dest,
			Code:     classifySVN(run.stderr),
			Stderr:   run.stderr,
			ExitCode: run.exitCode,
			Err:      run.err,
		}
	}
	if onEvent != nil {
		onEvent(Event{Action: ActionCleanedUp, Path: dest})
	}
	return nil
}

// classifySVN returns the first recoverable error code in stderr, or the
// first code found, or CodeUnknown.
func classifySVN(stderr string) ErrorCode {
	matches := svnErrorRegex.FindAllStringSubmatch(stderr, -1)
	if len(matches) == 0 {
		return CodeUnknown
	}
	for _, m := range matches {
		if code := ErrorCode(m[1]); recoverableCodes[code] {
			return code
		}
	}
	return ErrorCode(matches[0][1])
}
