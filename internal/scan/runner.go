// Package scan runs the ZAP build step: for an auto install it checks the
// Java runtime, syncs the source, builds it and launches the result; for a
// preinstalled ZAP it launches directly.
//
// Runs are sequential. Two auto runs sharing a checkout directory race on
// the same working copy; callers must keep one run per workspace.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/zapper/internal/builder"
	"github.com/narvanalabs/zapper/internal/launch"
	"github.com/narvanalabs/zapper/internal/models"
	"github.com/narvanalabs/zapper/internal/progress"
	"github.com/narvanalabs/zapper/internal/secrets"
	"github.com/narvanalabs/zapper/internal/validation"
	"github.com/narvanalabs/zapper/pkg/logger"
)

// Stage is a state of the step state machine.
type Stage string

const (
	StageStart        Stage = "start"
	StageRuntimeCheck Stage = "runtime_check"
	StageSync         Stage = "sync"
	StageBuild        Stage = "build"
	StageLaunch       Stage = "launch"
	StageDone         Stage = "done"
)

// Syncer brings a working copy to the repository HEAD.
type Syncer interface {
	Sync(ctx context.Context, repositoryURL, destinationDir string, creds *models.RepositoryCredentials, sink progress.Sink) models.SyncResult
}

// Builder checks the build runtime and builds a source tree.
type Builder interface {
	CheckRuntime(ctx context.Context) (*builder.Runtime, error)
	BuildWith(ctx context.Context, rt *builder.Runtime, sourceDir string, sink progress.Sink) models.BuildOutcome
}

// Launcher starts the daemon command.
type Launcher interface {
	Launch(ctx context.Context, cmd models.CommandLine) error
}

// CredentialResolver turns stored credentials into usable ones.
type CredentialResolver interface {
	ResolveCredentials(ctx context.Context, creds *models.RepositoryCredentials) (*models.RepositoryCredentials, error)
}

// Report describes one run of the step.
type Report struct {
	RunID        string             `json:"run_id"`
	Stage        Stage              `json:"stage"`
	Succeeded    bool               `json:"succeeded"`
	Command      models.CommandLine `json:"command"`
	Revision     string             `json:"revision,omitempty"`
	ArtifactRoot string             `json:"artifact_root,omitempty"`
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  time.Time          `json:"completed_at"`
	Message      string             `json:"error,omitempty"`
	Err          error              `json:"-"`
}

// Runner drives the step state machine.
type Runner struct {
	syncer   Syncer
	builder  Builder
	launcher Launcher
	creds    CredentialResolver
	family   models.OSFamily
	workDir  string
	logger   *logger.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithOSFamily overrides the platform used for shell and script selection.
func WithOSFamily(family models.OSFamily) Option {
	return func(r *Runner) { r.family = family }
}

// WithCredentialResolver opens sealed repository passwords before syncing.
func WithCredentialResolver(c CredentialResolver) Option {
	return func(r *Runner) { r.creds = c }
}

// WithWorkDir sets the directory relative checkout paths resolve against.
func WithWorkDir(dir string) Option {
	return func(r *Runner) { r.workDir = dir }
}

// NewRunner creates a Runner.
func NewRunner(s Syncer, b Builder, l Launcher, log *slog.Logger, opts ...Option) *Runner {
	if log == nil {
		log = slog.Default()
	}
	r := &Runner{
		syncer:   s,
		builder:  b,
		launcher: l,
		family:   models.CurrentOSFamily(),
		logger:   (&logger.Logger{Logger: log}).WithComponent("scan"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PerformScan runs the step and reports whether it succeeded.
func (r *Runner) PerformScan(ctx context.Context, cfg *models.ScanStepConfig, sink progress.Sink) bool {
	return r.Run(ctx, cfg, sink).Succeeded
}

// Run executes the step and returns its report. Every failure is written
// to sink with its underlying message; a launch failure fails the step
// like any other stage.
func (r *Runner) Run(ctx context.Context, cfg *models.ScanStepConfig, sink progress.Sink) *Report {
	if sink == nil {
		sink = progress.Discard
	}
	report := &Report{RunID: runIDFor(ctx), Stage: StageStart, StartedAt: time.Now()}
	log := r.logger.WithRunID(report.RunID)

	fail := func(err error) *Report {
		report.Err = err
		report.Message = err.Error()
		report.CompletedAt = time.Now()
		log.Error("scan step failed", "stage", report.Stage, "error", err)
		return report
	}

	if err := validation.ValidateStepConfig(cfg); err != nil {
		sink.Line(err.Error())
		return fail(err)
	}
	log.Info("scan step started", "install", cfg.Install.String(), "host", cfg.HostSpec)

	var artifactRoot string
	if cfg.Install.IsAuto() {
		if r.creds == nil && cfg.Credentials != nil && secrets.IsSealed(cfg.Credentials.Password) {
			err := fmt.Errorf("%w: set ZAPPER_AGE_IDENTITY to open it", ErrSealedCredentials)
			sink.Line(err.Error())
			return fail(err)
		}

		report.Stage = StageRuntimeCheck
		rt, err := r.builder.CheckRuntime(ctx)
		if err != nil {
			sink.Line(err.Error())
			return fail(err)
		}

		report.Stage = StageSync
		creds := cfg.Credentials
		if r.creds != nil {
			if creds, err = r.creds.ResolveCredentials(ctx, cfg.Credentials); err != nil {
				sink.Line(err.Error())
				return fail(err)
			}
		}
		checkoutDir := r.checkoutDir(cfg)
		synced := r.syncer.Sync(ctx, cfg.RepositoryURL, checkoutDir, creds, sink)
		if !synced.Succeeded {
			return fail(syncError(synced))
		}
		report.Revision = synced.Revision

		report.Stage = StageBuild
		outcome := r.builder.BuildWith(ctx, rt, checkoutDir, sink)
		if !outcome.Succeeded {
			return fail(buildError(outcome))
		}
		artifactRoot = outcome.ArtifactRoot
		report.ArtifactRoot = artifactRoot
	}

	report.Stage = StageLaunch
	cmd, err := launch.ResolveCommand(cfg, artifactRoot, r.family)
	if err != nil {
		sink.Line(err.Error())
		return fail(fmt.Errorf("%w: %v", launch.ErrLaunch, err))
	}
	report.Command = cmd

	sink.Line("Launching ZAP: " + cmd.Line)
	if err := r.launcher.Launch(ctx, cmd); err != nil {
		sink.Line(err.Error())
		return fail(err)
	}

	report.Stage = StageDone
	report.Succeeded = true
	report.CompletedAt = time.Now()
	log.Info("scan step completed", "command", cmd.Line, "revision", report.Revision)
	return report
}

func (r *Runner) checkoutDir(cfg *models.ScanStepConfig) string {
	dir := cfg.CheckoutDir()
	if r.workDir != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(r.workDir, dir)
	}
	return dir
}

// runIDFor reuses a run ID carried by ctx, or generates one.
func runIDFor(ctx context.Context) string {
	if id := logger.RunIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func syncError(res models.SyncResult) error {
	if res.Err != nil {
		return fmt.Errorf("%w: %w", ErrSyncFailed, res.Err)
	}
	return ErrSyncFailed
}

func buildError(outcome models.BuildOutcome) error {
	if outcome.Err != nil {
		return fmt.Errorf("%w: %w", ErrBuildFailed, outcome.Err)
	}
	if outcome.FailureDetail != "" {
		return fmt.Errorf("%w: %s", ErrBuildFailed, outcome.FailureDetail)
	}
	return ErrBuildFailed
}
