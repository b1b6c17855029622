package launch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/narvanalabs/zapper/internal/models"
)

// Launcher starts the ZAP daemon without waiting for it.
type Launcher struct {
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
	env    []string
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithOutput sets where the daemon's output goes. Defaults to the
// current process's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		l.stdout = stdout
		l.stderr = stderr
	}
}

// WithEnv appends environment variables for the daemon.
func WithEnv(env ...string) Option {
	return func(l *Launcher) {
		l.env = append(l.env, env...)
	}
}

// NewLauncher creates a Launcher.
func NewLauncher(logger *slog.Logger, opts ...Option) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Launcher{logger: logger, stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch starts cmd.Line in its own process group and returns once the
// process is spawned. The line is split on whitespace with no quoting
// rules. ctx is only consulted before spawning; cancelling it later does
// not stop the daemon.
func (l *Launcher) Launch(ctx context.Context, cmd models.CommandLine) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	words := strings.Fields(cmd.Line)
	if len(words) == 0 {
		return fmt.Errorf("%w: %v", ErrLaunch, ErrEmptyCommand)
	}

	proc := exec.Command(words[0], words[1:]...)
	proc.Stdout = l.stdout
	proc.Stderr = l.stderr
	proc.Env = append(os.Environ(), l.env...)
	detach(proc)

	if err := proc.Start(); err != nil {
		l.logger.Error("launch failed", "command", cmd.Line, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrLaunch, cmd.Line, err)
	}

	pid := proc.Process.Pid
	l.logger.Info("ZAP daemon started", "pid", pid, "target", cmd.Target.String())

	go func() {
		err := proc.Wait()
		l.logger.Debug("ZAP process exited", "pid", pid, "error", err)
	}()
	return nil
}
