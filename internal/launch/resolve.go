// Package launch composes the ZAP daemon command line and starts it as a
// detached process.
package launch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/narvanalabs/zapper/internal/models"
)

// Shells and launch scripts per OS family.
const (
	ShellPOSIX    = "/bin/bash"
	ShellWindows  = "cmd.exe"
	ScriptPOSIX   = "zap.sh"
	ScriptWindows = "zap.bat"
)

// ResolveCommand composes the daemon command for cfg.
// Auto mode launches from builtArtifactRoot; Preinstalled mode launches
// from the configured path as given, without checking it exists. The host
// spec is parsed again here rather than trusting earlier validation.
func ResolveCommand(cfg *models.ScanStepConfig, builtArtifactRoot string, family models.OSFamily) (models.CommandLine, error) {
	if cfg == nil {
		return models.CommandLine{}, fmt.Errorf("%w: no step configuration", ErrNoExecutableRoot)
	}

	root := builtArtifactRoot
	if path, ok := cfg.Install.Path(); ok {
		root = path
	}
	if strings.TrimSpace(root) == "" {
		return models.CommandLine{}, fmt.Errorf("%w for install mode %s", ErrNoExecutableRoot, cfg.Install)
	}

	target, err := models.ParseHostTarget(cfg.HostSpec)
	if err != nil {
		return models.CommandLine{}, err
	}

	shell, script := ShellPOSIX, root+"/"+ScriptPOSIX
	if family == models.OSFamilyWindows {
		shell, script = ShellWindows, root+"/"+ScriptWindows
	}

	line := strings.Join([]string{
		shell, script,
		"-host", target.HostName,
		"-port", strconv.Itoa(target.Port),
		"-daemon",
	}, " ")

	return models.CommandLine{
		Shell:  shell,
		Script: script,
		Target: target,
		Line:   line,
	}, nil
}
