package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/narvanalabs/zapper/internal/models"
	"github.com/narvanalabs/zapper/internal/progress"
)

// MaxCleanupRetries bounds the cleanup-and-retry cycles of a single Sync.
const MaxCleanupRetries = 1

// Syncer checks out or updates a working copy, repairing it once when it is
// found locked or interrupted.
type Syncer struct {
	client Client
	logger *slog.Logger
}

// NewSyncer creates a Syncer using client.
func NewSyncer(client Client, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{client: client, logger: logger}
}

// Sync brings destinationDir to the HEAD of repositoryURL.
// Each filesystem change is written to sink as one line. A recoverable
// working copy error triggers one cleanup and one retry; a second failure,
// a failed cleanup, or any other error ends the sync unsuccessfully.
func (s *Syncer) Sync(ctx context.Context, repositoryURL, destinationDir string, creds *models.RepositoryCredentials, sink progress.Sink) models.SyncResult {
	if sink == nil {
		sink = progress.Discard
	}
	logger := s.logger.With("client", s.client.Name(), "url", redactURL(repositoryURL), "path", destinationDir)

	progress.Printf(sink, "About to checkout or update ZAP from %s", redactURL(repositoryURL))

	if _, err := parseRepositoryURL(repositoryURL); err != nil {
		sink.Line(err.Error())
		logger.Error("rejecting repository URL", "error", err)
		return models.SyncResult{Err: err}
	}
	if err := os.MkdirAll(destinationDir, 0755); err != nil {
		err = fmt.Errorf("creating checkout directory %s: %w", destinationDir, err)
		sink.Line(err.Error())
		logger.Error("preparing checkout directory", "error", err)
		return models.SyncResult{Err: err}
	}

	onEvent := func(ev Event) {
		sink.Line(ev.Description())
	}

	var result models.SyncResult
	for attempt := 1; attempt <= 1+MaxCleanupRetries; attempt++ {
		record := models.SyncAttempt{AttemptNumber: attempt, StartedAt: time.Now()}

		revision, err := s.client.CheckoutOrUpdate(ctx, repositoryURL, destinationDir, creds, onEvent)
		record.CompletedAt = time.Now()
		if err == nil {
			record.Success = true
			result.Attempts = append(result.Attempts, record)
			result.Succeeded = true
			result.Revision = revision
			progress.Printf(sink, "Finished checkout or update. At revision %s", revision)
			logger.Info("working copy synced", "revision", revision, "attempts", attempt)
			return result
		}

		record.Error = err.Error()
		result.Err = err
		progress.Printf(sink, "%s error:", strings.ToUpper(s.client.Name()))
		sink.Line(err.Error())

		if !IsRecoverable(err) || attempt > MaxCleanupRetries {
			result.Attempts = append(result.Attempts, record)
			logger.Error("sync failed", "attempt", attempt, "error", err)
			return result
		}

		logger.Warn("working copy needs cleanup, retrying once", "error", err)
		sink.Line("Working copy is locked or interrupted, running cleanup")
		record.CleanedUp = true
		result.Attempts = append(result.Attempts, record)
		if cleanupErr := s.client.Cleanup(ctx, destinationDir, onEvent); cleanupErr != nil {
			result.Err = fmt.Errorf("cleanup after %v: %w", err, cleanupErr)
			sink.Line(result.Err.Error())
			logger.Error("cleanup failed", "error", cleanupErr)
			return result
		}
	}
	return result
}
