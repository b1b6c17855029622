package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	javaVersionRegex = regexp.MustCompile(`version "([^"]+)"`)
	javaHomeRegex    = regexp.MustCompile(`(?m)^\s*java\.home = (.+?)\s*$`)
)

// Runtime describes the detected Java runtime.
type Runtime struct {
	// Binary is the java executable used for detection.
	Binary string

	// RawVersion is the version string as printed by java.
	RawVersion string

	// Version is RawVersion normalised to feature.interim.update.
	Version *semver.Version

	// Home is the JDK home handed to the build tool.
	Home string
}

// ParseJavaVersion normalises a Java version string to a semantic version.
// Legacy "1.x" versions map to major x: "1.7.0_80" becomes 7.0.0 and
// "17.0.2+8" becomes 17.0.2.
func ParseJavaVersion(raw string) (*semver.Version, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "_-+ "); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) > 1 && parts[0] == "1" {
		parts = parts[1:]
	}

	nums := [3]uint64{}
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.ParseUint(parts[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing java version %q: %w", raw, err)
		}
		nums[i] = n
	}
	return semver.NewVersion(fmt.Sprintf("%d.%d.%d", nums[0], nums[1], nums[2]))
}

// JavaHome strips a trailing jre directory from a java.home property,
// yielding the JDK home.
func JavaHome(home string) string {
	home = strings.TrimRight(home, `/\`)
	if strings.HasSuffix(home, "/jre") || strings.HasSuffix(home, `\jre`) {
		return home[:len(home)-4]
	}
	return home
}

// JavaBinary returns the java executable to run: javaBinary when set, else
// javaHome/bin/java when javaHome is set, else "java" from PATH.
func JavaBinary(javaBinary, javaHome string) string {
	switch {
	case javaBinary != "":
		return javaBinary
	case javaHome != "":
		return filepath.Join(javaHome, "bin", "java")
	default:
		return "java"
	}
}

// detectRuntime runs java to obtain its version and home directory.
func detectRuntime(ctx context.Context, javaBinary, javaHome string) (*Runtime, error) {
	path, err := exec.LookPath(JavaBinary(javaBinary, javaHome))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRuntimeNotFound, err)
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-XshowSettings:properties", "-version")
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRuntimeNotFound, strings.TrimSpace(out.String()), err)
	}

	m := javaVersionRegex.FindStringSubmatch(out.String())
	if m == nil {
		return nil, fmt.Errorf("%w: no version in java output", ErrRuntimeNotFound)
	}
	version, err := ParseJavaVersion(m[1])
	if err != nil {
		return nil, errors.Join(ErrRuntimeNotFound, err)
	}

	rt := &Runtime{Binary: path, RawVersion: m[1], Version: version, Home: javaHome}
	if rt.Home == "" {
		if hm := javaHomeRegex.FindStringSubmatch(out.String()); hm != nil {
			rt.Home = hm[1]
		}
	}
	rt.Home = JavaHome(rt.Home)
	return rt, nil
}
