package launch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/narvanalabs/zapper/internal/models"
)

func TestLauncher_StartsDetachedProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	dir := t.TempDir()
	marker := filepath.Join(dir, "args.txt")
	script := filepath.Join(dir, "zap.sh")
	body := "#!/bin/sh\necho \"$@\" > \"" + marker + "\"\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}

	l := NewLauncher(nil, WithOutput(io.Discard, io.Discard))
	cmd := models.CommandLine{Line: "/bin/sh " + script + " -host localhost -port 8090 -daemon"}
	if err := l.Launch(context.Background(), cmd); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		raw, err := os.ReadFile(marker)
		if err == nil && strings.TrimSpace(string(raw)) == "-host localhost -port 8090 -daemon" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("daemon did not run, marker=%q err=%v", raw, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestLauncher_SpawnFailure(t *testing.T) {
	l := NewLauncher(nil, WithOutput(io.Discard, io.Discard))
	missing := filepath.Join(t.TempDir(), "no-such-shell")

	err := l.Launch(context.Background(), models.CommandLine{Line: missing + " zap.sh -daemon"})
	if !errors.Is(err, ErrLaunch) {
		t.Fatalf("got %v, want ErrLaunch", err)
	}
}

func TestLauncher_EmptyLine(t *testing.T) {
	err := NewLauncher(nil).Launch(context.Background(), models.CommandLine{Line: "   "})
	if !errors.Is(err, ErrLaunch) || !strings.Contains(err.Error(), ErrEmptyCommand.Error()) {
		t.Fatalf("got %v, want ErrLaunch for empty command", err)
	}
}

func TestLauncher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewLauncher(nil).Launch(ctx, models.CommandLine{Line: "/bin/true"})
	if !errors.Is(err, ErrLaunch) {
		t.Fatalf("got %v, want ErrLaunch", err)
	}
}
