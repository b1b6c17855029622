package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/narvanalabs/zapper/internal/models"
	"github.com/narvanalabs/zapper/internal/progress"
)

// Build defaults for the ZAP source tree.
const (
	DefaultDescriptor     = "build/build.xml"
	DefaultArtifactDir    = "build/zap"
	DefaultTarget         = "dist"
	DefaultCompiler       = "extJavac"
	DefaultVersionLabel   = "Dev Build"
	DefaultMinJavaVersion = "1.7"
)

// Config configures an Orchestrator.
type Config struct {
	// AntBinary is the build tool executable. Defaults to "ant".
	AntBinary string

	// JavaBinary is the java executable used for the runtime check.
	// Defaults to $JavaHome/bin/java when JavaHome is set, else "java".
	JavaBinary string

	// JavaHome overrides the detected JDK home, usually from JAVA_HOME.
	JavaHome string

	// MinJavaVersion is the lowest accepted runtime, in java notation.
	MinJavaVersion string

	Descriptor   string
	ArtifactDir  string
	Target       string
	Compiler     string
	VersionLabel string

	// VerifyArtifact requires a launch script under ArtifactDir after a
	// successful build.
	VerifyArtifact bool
}

// DefaultConfig returns the configuration for building ZAP with Ant.
func DefaultConfig() *Config {
	return &Config{
		AntBinary:      "ant",
		JavaHome:       os.Getenv("JAVA_HOME"),
		MinJavaVersion: DefaultMinJavaVersion,
		Descriptor:     DefaultDescriptor,
		ArtifactDir:    DefaultArtifactDir,
		Target:         DefaultTarget,
		Compiler:       DefaultCompiler,
		VersionLabel:   DefaultVersionLabel,
		VerifyArtifact: true,
	}
}

// Orchestrator checks the build runtime and drives the Ant build of a
// checked out ZAP source tree.
type Orchestrator struct {
	config *Config
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil config uses DefaultConfig.
func NewOrchestrator(config *Config, logger *slog.Logger) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{config: config, logger: logger}
}

// CheckRuntime detects the Java runtime and verifies it meets the minimum
// version. Any failure is an *EnvironmentError.
func (o *Orchestrator) CheckRuntime(ctx context.Context) (*Runtime, error) {
	minRaw := o.config.MinJavaVersion
	if minRaw == "" {
		minRaw = DefaultMinJavaVersion
	}
	minVersion, err := ParseJavaVersion(minRaw)
	if err != nil {
		return nil, &EnvironmentError{Required: minRaw, Err: err}
	}

	rt, err := detectRuntime(ctx, o.config.JavaBinary, o.config.JavaHome)
	if err != nil {
		o.logger.Error("java runtime check failed", "error", err)
		return nil, &EnvironmentError{Required: minRaw, Err: err}
	}

	c, err := semver.NewConstraint(">= " + minVersion.String())
	if err != nil {
		return nil, &EnvironmentError{Required: minRaw, Err: err}
	}
	if !c.Check(rt.Version) {
		o.logger.Error("java runtime too old", "found", rt.RawVersion, "required", minRaw)
		return nil, &EnvironmentError{Required: minRaw, Found: rt.RawVersion, Err: ErrRuntimeTooOld}
	}

	o.logger.Debug("java runtime accepted", "version", rt.RawVersion, "home", rt.Home)
	return rt, nil
}

// Build checks the runtime and builds sourceDir.
func (o *Orchestrator) Build(ctx context.Context, sourceDir string, sink progress.Sink) models.BuildOutcome {
	if sink == nil {
		sink = progress.Discard
	}
	rt, err := o.CheckRuntime(ctx)
	if err != nil {
		sink.Line(err.Error())
		return models.BuildOutcome{FailureDetail: err.Error(), Err: err}
	}
	return o.BuildWith(ctx, rt, sourceDir, sink)
}

// BuildWith runs the build target of sourceDir with an already checked
// runtime. Every line of build tool output is written to sink verbatim.
func (o *Orchestrator) BuildWith(ctx context.Context, rt *Runtime, sourceDir string, sink progress.Sink) models.BuildOutcome {
	if sink == nil {
		sink = progress.Discard
	}
	start := time.Now()
	outcome := models.BuildOutcome{ArtifactRoot: filepath.Join(sourceDir, filepath.FromSlash(o.artifactDir()))}

	fail := func(err error) models.BuildOutcome {
		outcome.Err = err
		outcome.FailureDetail = err.Error()
		outcome.Duration = time.Since(start)
		sink.Line(outcome.FailureDetail)
		o.logger.Error("build failed", "source", sourceDir, "error", err)
		return outcome
	}

	descriptor := filepath.Join(sourceDir, filepath.FromSlash(o.descriptor()))
	if _, err := os.Stat(descriptor); err != nil {
		return fail(&BuildError{
			Category: CategoryDescriptor,
			Target:   o.target(),
			Detail:   fmt.Sprintf("%s: %v", descriptor, ErrDescriptorNotFound),
			ExitCode: -1,
			Err:      ErrDescriptorNotFound,
		})
	}

	antPath, err := exec.LookPath(o.antBinary())
	if err != nil {
		return fail(&BuildError{
			Category: CategoryEnvironment,
			Target:   o.target(),
			Detail:   fmt.Sprintf("cannot run Ant at %q; install Ant or set ANT_HOME or ZAPPER_ANT_BINARY", o.antBinary()),
			ExitCode: -1,
			Err:      fmt.Errorf("%w: %v", ErrBuildToolNotFound, err),
		})
	}

	args := o.antArgs(descriptor, rt)
	o.logger.Info("starting build", "source", sourceDir, "target", o.target(), "java_home", rt.Home)

	detail := &failureCapture{sink: sink}
	stdout := progress.NewLineWriter(detail)
	stderr := progress.NewLineWriter(detail)

	cmd := exec.CommandContext(ctx, antPath, args...)
	cmd.Dir = filepath.Dir(descriptor)
	cmd.Env = append(os.Environ(), "JAVA_HOME="+rt.Home)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()
	stdout.Flush()
	stderr.Flush()

	if runErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return fail(&BuildError{
			Category: CategoryBuild,
			Target:   o.target(),
			Detail:   detail.Detail(),
			ExitCode: exitCode,
			Err:      fmt.Errorf("%w: %v", ErrBuildFailed, runErr),
		})
	}

	if o.config.VerifyArtifact && !hasLaunchScript(outcome.ArtifactRoot) {
		return fail(&BuildError{
			Category: CategoryArtifact,
			Target:   o.target(),
			Detail:   fmt.Sprintf("no zap.sh or zap.bat in %s", outcome.ArtifactRoot),
			Err:      ErrArtifactMissing,
		})
	}

	outcome.Succeeded = true
	outcome.Duration = time.Since(start)
	o.logger.Info("build completed", "source", sourceDir, "artifact", outcome.ArtifactRoot, "duration", outcome.Duration)
	return outcome
}

func (o *Orchestrator) antArgs(descriptor string, rt *Runtime) []string {
	args := []string{"-f", descriptor}
	if rt != nil && rt.Home != "" {
		args = append(args, "-Djava.home="+rt.Home)
	}
	args = append(args,
		"-Dbuild.compiler="+orDefault(o.config.Compiler, DefaultCompiler),
		"-Dversion="+orDefault(o.config.VersionLabel, DefaultVersionLabel),
		o.target(),
	)
	return args
}

func (o *Orchestrator) antBinary() string  { return orDefault(o.config.AntBinary, "ant") }
func (o *Orchestrator) descriptor() string { return orDefault(o.config.Descriptor, DefaultDescriptor) }
func (o *Orchestrator) artifactDir() string {
	return orDefault(o.config.ArtifactDir, DefaultArtifactDir)
}
func (o *Orchestrator) target() string { return orDefault(o.config.Target, DefaultTarget) }

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func hasLaunchScript(root string) bool {
	for _, name := range []string{"zap.sh", "zap.bat"} {
		if info, err := os.Stat(filepath.Join(root, name)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// failureCapture forwards lines and remembers the message Ant prints
// after BUILD FAILED.
type failureCapture struct {
	mu       sync.Mutex
	sink     progress.Sink
	failed   bool
	detail   string
	lastLine string
}

func (f *failureCapture) Line(line string) {
	f.sink.Line(line)

	f.mu.Lock()
	defer f.mu.Unlock()
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	f.lastLine = trimmed
	switch {
	case strings.HasPrefix(trimmed, "BUILD FAILED"):
		f.failed = true
	case f.failed && f.detail == "":
		f.detail = trimmed
	}
}

// Detail returns the captured failure message, falling back to the last
// output line.
func (f *failureCapture) Detail() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detail != "" {
		return f.detail
	}
	return f.lastLine
}
