package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/narvanalabs/zapper/internal/progress"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts require a POSIX shell")
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeFakeJava writes a java stand-in reporting version and home.
func writeFakeJava(t *testing.T, version, home string) string {
	t.Helper()
	skipWithoutShell(t)
	return writeScript(t, t.TempDir(), "java", `cat >&2 <<EOT
Property settings:
    java.home = `+home+`
    java.vendor = Example

java version "`+version+`"
EOT
`)
}

// writeFakeAnt writes an ant stand-in that records its arguments and
// environment into args.txt, then runs body.
func writeFakeAnt(t *testing.T, body string) (path, argsFile string) {
	t.Helper()
	skipWithoutShell(t)
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args.txt")
	path = writeScript(t, dir, "ant", `for a in "$@"; do echo "$a" >> "`+argsFile+`"; done
echo "JAVA_HOME=$JAVA_HOME" >> "`+argsFile+`"
`+body)
	return path, argsFile
}

// newSourceTree creates a checkout with build/build.xml.
func newSourceTree(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "build"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "build", "build.xml"), []byte("<project/>"), 0644); err != nil {
		t.Fatal(err)
	}
	return src
}

func TestParseJavaVersion(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"1.7.0_80", "7.0.0"},
		{"1.8.0_292", "8.0.0"},
		{"11.0.2", "11.0.2"},
		{"17", "17.0.0"},
		{"17.0.2+8", "17.0.2"},
		{"9-ea", "9.0.0"},
		{"1.7", "7.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := ParseJavaVersion(tt.raw)
			if err != nil {
				t.Fatalf("ParseJavaVersion(%q) error: %v", tt.raw, err)
			}
			if v.String() != tt.want {
				t.Errorf("ParseJavaVersion(%q) = %s, want %s", tt.raw, v, tt.want)
			}
		})
	}

	if _, err := ParseJavaVersion("abc"); err == nil {
		t.Error("expected error for non-numeric version")
	}
}

func TestJavaHome(t *testing.T) {
	tests := map[string]string{
		"/usr/lib/jvm/java-8/jre":  "/usr/lib/jvm/java-8",
		"/usr/lib/jvm/java-8/jre/": "/usr/lib/jvm/java-8",
		"/usr/lib/jvm/java-17":     "/usr/lib/jvm/java-17",
		`C:\Java\jdk1.7\jre`:       `C:\Java\jdk1.7`,
		"":                         "",
	}
	for in, want := range tests {
		if got := JavaHome(in); got != want {
			t.Errorf("JavaHome(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJavaBinary(t *testing.T) {
	tests := []struct {
		binary, home, want string
	}{
		{"/usr/local/bin/java", "/opt/jdk", "/usr/local/bin/java"},
		{"", "/opt/jdk", filepath.Join("/opt/jdk", "bin", "java")},
		{"", "", "java"},
	}
	for _, tt := range tests {
		if got := JavaBinary(tt.binary, tt.home); got != tt.want {
			t.Errorf("JavaBinary(%q, %q) = %q, want %q", tt.binary, tt.home, got, tt.want)
		}
	}
}

func TestCheckRuntime(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		wantErr  bool
		wantHome string
	}{
		{name: "java 7", version: "1.7.0_80", wantHome: "/opt/jdk"},
		{name: "java 17", version: "17.0.2", wantHome: "/opt/jdk"},
		{name: "java 6", version: "1.6.0_45", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.JavaHome = ""
			cfg.JavaBinary = writeFakeJava(t, tt.version, "/opt/jdk/jre")
			o := NewOrchestrator(cfg, nil)

			rt, err := o.CheckRuntime(context.Background())
			if tt.wantErr {
				if !IsEnvironmentError(err) {
					t.Fatalf("expected EnvironmentError, got %v", err)
				}
				if !errors.Is(err, ErrRuntimeTooOld) {
					t.Errorf("expected ErrRuntimeTooOld, got %v", err)
				}
				if !strings.Contains(err.Error(), MsgNoSuitableJDK) {
					t.Errorf("error %q does not carry the JDK message", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckRuntime failed: %v", err)
			}
			if rt.Home != tt.wantHome {
				t.Errorf("Home = %q, want %q", rt.Home, tt.wantHome)
			}
		})
	}
}

func TestCheckRuntime_MissingJava(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JavaBinary = filepath.Join(t.TempDir(), "no-java")
	o := NewOrchestrator(cfg, nil)

	_, err := o.CheckRuntime(context.Background())
	if !IsEnvironmentError(err) {
		t.Fatalf("expected EnvironmentError, got %v", err)
	}
	if !errors.Is(err, ErrRuntimeNotFound) {
		t.Errorf("expected ErrRuntimeNotFound, got %v", err)
	}
}

func TestCheckRuntime_JavaHomeOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JavaHome = "/custom/jdk/jre"
	cfg.JavaBinary = writeFakeJava(t, "11.0.2", "/detected/jdk")
	o := NewOrchestrator(cfg, nil)

	rt, err := o.CheckRuntime(context.Background())
	if err != nil {
		t.Fatalf("CheckRuntime failed: %v", err)
	}
	if rt.Home != "/custom/jdk" {
		t.Errorf("Home = %q, want /custom/jdk", rt.Home)
	}
}

func TestBuildWith_Success(t *testing.T) {
	ant, argsFile := writeFakeAnt(t, `mkdir -p zap
touch zap/zap.sh
echo "Buildfile: build.xml"
echo "dist:"
echo "BUILD SUCCESSFUL"
`)
	cfg := DefaultConfig()
	cfg.AntBinary = ant
	o := NewOrchestrator(cfg, nil)
	src := newSourceTree(t)
	rec := &progress.Recorder{}

	outcome := o.BuildWith(context.Background(), &Runtime{Home: "/opt/jdk"}, src, rec)
	if !outcome.Succeeded {
		t.Fatalf("build failed: %s", outcome.FailureDetail)
	}
	if want := filepath.Join(src, "build", "zap"); outcome.ArtifactRoot != want {
		t.Errorf("ArtifactRoot = %q, want %q", outcome.ArtifactRoot, want)
	}
	if !rec.Contains("BUILD SUCCESSFUL") {
		t.Errorf("build output not streamed: %q", rec.String())
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	args := strings.Split(strings.TrimSpace(string(raw)), "\n")
	want := []string{
		"-f", filepath.Join(src, "build", "build.xml"),
		"-Djava.home=/opt/jdk",
		"-Dbuild.compiler=extJavac",
		"-Dversion=Dev Build",
		"dist",
		"JAVA_HOME=/opt/jdk",
	}
	if strings.Join(args, "|") != strings.Join(want, "|") {
		t.Errorf("ant invoked with %q, want %q", args, want)
	}
}

func TestBuildWith_Failure(t *testing.T) {
	ant, _ := writeFakeAnt(t, `echo "compile:"
echo "BUILD FAILED"
echo "/src/build/build.xml:120: Compile failed; see the compiler error output for details."
echo ""
echo "Total time: 3 seconds"
exit 1
`)
	cfg := DefaultConfig()
	cfg.AntBinary = ant
	o := NewOrchestrator(cfg, nil)
	rec := &progress.Recorder{}

	outcome := o.BuildWith(context.Background(), &Runtime{Home: "/opt/jdk"}, newSourceTree(t), rec)
	if outcome.Succeeded {
		t.Fatal("expected failure")
	}
	if !strings.Contains(outcome.FailureDetail, "Compile failed") {
		t.Errorf("FailureDetail = %q, want compile message", outcome.FailureDetail)
	}
	if !errors.Is(outcome.Err, ErrBuildFailed) {
		t.Errorf("Err = %v, want ErrBuildFailed", outcome.Err)
	}
	var buildErr *BuildError
	if !errors.As(outcome.Err, &buildErr) || buildErr.ExitCode != 1 {
		t.Errorf("expected BuildError with exit code 1, got %#v", outcome.Err)
	}
	if !rec.Contains("BUILD FAILED") {
		t.Error("failure output not streamed")
	}
}

func TestBuildWith_MissingDescriptor(t *testing.T) {
	ant, argsFile := writeFakeAnt(t, "")
	cfg := DefaultConfig()
	cfg.AntBinary = ant
	o := NewOrchestrator(cfg, nil)

	outcome := o.BuildWith(context.Background(), &Runtime{Home: "/opt/jdk"}, t.TempDir(), nil)
	if outcome.Succeeded {
		t.Fatal("expected failure")
	}
	if !errors.Is(outcome.Err, ErrDescriptorNotFound) {
		t.Errorf("Err = %v, want ErrDescriptorNotFound", outcome.Err)
	}
	if _, err := os.Stat(argsFile); !os.IsNotExist(err) {
		t.Error("ant should not run without a descriptor")
	}
}

func TestBuildWith_MissingAnt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AntBinary = filepath.Join(t.TempDir(), "no-ant")
	rec := &progress.Recorder{}

	outcome := NewOrchestrator(cfg, nil).BuildWith(context.Background(), &Runtime{Home: "/opt/jdk"}, newSourceTree(t), rec)
	if outcome.Succeeded {
		t.Fatal("expected failure")
	}
	if !errors.Is(outcome.Err, ErrBuildToolNotFound) {
		t.Errorf("Err = %v, want ErrBuildToolNotFound", outcome.Err)
	}
	if IsEnvironmentError(outcome.Err) {
		t.Error("a missing Ant must not be reported as a JDK problem")
	}
	if strings.Contains(outcome.FailureDetail, MsgNoSuitableJDK) {
		t.Errorf("detail mentions the JDK: %q", outcome.FailureDetail)
	}
	if !strings.Contains(outcome.FailureDetail, "no-ant") {
		t.Errorf("detail should name the Ant binary: %q", outcome.FailureDetail)
	}
	if !rec.Contains("cannot run Ant") {
		t.Error("failure not written to sink")
	}
}

func TestBuildWith_ArtifactCheck(t *testing.T) {
	ant, _ := writeFakeAnt(t, `echo "BUILD SUCCESSFUL"
`)

	cfg := DefaultConfig()
	cfg.AntBinary = ant
	outcome := NewOrchestrator(cfg, nil).BuildWith(context.Background(), &Runtime{}, newSourceTree(t), nil)
	if outcome.Succeeded || !errors.Is(outcome.Err, ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing, got succeeded=%v err=%v", outcome.Succeeded, outcome.Err)
	}

	cfg.VerifyArtifact = false
	outcome = NewOrchestrator(cfg, nil).BuildWith(context.Background(), &Runtime{}, newSourceTree(t), nil)
	if !outcome.Succeeded {
		t.Errorf("expected success with verification disabled: %v", outcome.Err)
	}
}

func TestBuild_RuntimeFailureSkipsAnt(t *testing.T) {
	ant, argsFile := writeFakeAnt(t, "")
	cfg := DefaultConfig()
	cfg.AntBinary = ant
	cfg.JavaHome = ""
	cfg.JavaBinary = writeFakeJava(t, "1.5.0", "/old")
	rec := &progress.Recorder{}

	outcome := NewOrchestrator(cfg, nil).Build(context.Background(), newSourceTree(t), rec)
	if outcome.Succeeded {
		t.Fatal("expected failure")
	}
	if !rec.Contains(MsgNoSuitableJDK) {
		t.Errorf("sink missing JDK message: %q", rec.String())
	}
	if _, err := os.Stat(argsFile); !os.IsNotExist(err) {
		t.Error("ant should not run when the runtime check fails")
	}
}
