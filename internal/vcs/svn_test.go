package vcs

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/narvanalabs/zapper/internal/models"
	"github.com/narvanalabs/zapper/internal/progress"
)

// writeFakeSVN writes a shell script standing in for svn. The first checkout
// fails with a locked working copy when lockedOnce is set; cleanup clears
// the lock marker.
func writeFakeSVN(t *testing.T, lockedOnce bool) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake svn script requires a POSIX shell")
	}

	dir := t.TempDir()
	marker := filepath.Join(dir, "locked")
	if lockedOnce {
		if err := os.WriteFile(marker, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	script := `#!/bin/sh
case "$1" in
checkout)
  if [ -f "` + marker + `" ]; then
    echo "svn: E155004: Working copy '/wc' locked." >&2
    exit 1
  fi
  echo "A    wc/build/build.xml"
  echo "A    wc/src/ZAP.java"
  echo "Checked out revision 42."
  ;;
cleanup)
  rm -f "` + marker + `"
  ;;
*)
  echo "svn: E205000: unexpected subcommand $1" >&2
  exit 1
  ;;
esac
`
	path := filepath.Join(dir, "svn")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSVNClient_Checkout(t *testing.T) {
	client := NewSVNClient(writeFakeSVN(t, false), nil)
	var events []Event

	rev, err := client.CheckoutOrUpdate(context.Background(), "https://svn.example.org/zap/trunk", t.TempDir(), nil, func(ev Event) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("CheckoutOrUpdate failed: %v", err)
	}
	if rev != "42" {
		t.Errorf("revision = %q, want 42", rev)
	}
	if len(events) != 3 {
		t.Errorf("events = %+v, want 3", events)
	}
}

func TestSVNClient_LockedIsRecoverable(t *testing.T) {
	client := NewSVNClient(writeFakeSVN(t, true), nil)

	_, err := client.CheckoutOrUpdate(context.Background(), "https://svn.example.org/zap/trunk", t.TempDir(), nil, nil)
	if err == nil {
		t.Fatal("expected locked error")
	}
	vErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if vErr.Code != CodeWorkingCopyLocked || !vErr.Recoverable() {
		t.Errorf("code = %q recoverable = %v", vErr.Code, vErr.Recoverable())
	}
}

func TestSyncer_WithSVNClientRecovers(t *testing.T) {
	client := NewSVNClient(writeFakeSVN(t, true), nil)
	var rec progress.Recorder

	result := NewSyncer(client, nil).Sync(context.Background(), "https://svn.example.org/zap/trunk", filepath.Join(t.TempDir(), "zapSource"), nil, &rec)

	if !result.Succeeded || result.Revision != "42" {
		t.Fatalf("result = %+v, lines = %q", result, rec.Lines())
	}
	if !rec.Contains("SVN error:") || !rec.Contains("Cleaned up") {
		t.Errorf("expected error and cleanup lines, got %q", rec.Lines())
	}
}

func TestSVNClient_MissingBinary(t *testing.T) {
	client := NewSVNClient(filepath.Join(t.TempDir(), "no-such-svn"), nil)

	_, err := client.CheckoutOrUpdate(context.Background(), "https://svn.example.org/zap/trunk", t.TempDir(), nil, nil)
	if err == nil || IsRecoverable(err) {
		t.Fatalf("err = %v, want terminal error", err)
	}
}

func TestSVNClient_PasswordFromStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake svn script requires a POSIX shell")
	}
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	stdinFile := filepath.Join(dir, "stdin.txt")
	svn := filepath.Join(dir, "svn")
	script := `#!/bin/sh
echo "$*" > "` + argsFile + `"
cat > "` + stdinFile + `"
echo "Checked out revision 7."
`
	if err := os.WriteFile(svn, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	creds := &models.RepositoryCredentials{Username: "ci", Password: "s3cret"}
	rev, err := NewSVNClient(svn, nil).CheckoutOrUpdate(context.Background(), "https://svn.example.org/zap/trunk", t.TempDir(), creds, nil)
	if err != nil {
		t.Fatalf("CheckoutOrUpdate failed: %v", err)
	}
	if rev != "7" {
		t.Errorf("revision = %q, want 7", rev)
	}

	args, _ := os.ReadFile(argsFile)
	if strings.Contains(string(args), "s3cret") {
		t.Errorf("password on argv: %s", args)
	}
	if !strings.Contains(string(args), "--username ci") || !strings.Contains(string(args), "--password-from-stdin") {
		t.Errorf("args = %s", args)
	}
	stdin, _ := os.ReadFile(stdinFile)
	if string(stdin) != "s3cret\n" {
		t.Errorf("stdin = %q", stdin)
	}
}
