// Package models defines the data types shared by the scan step components.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// InstallToken values accepted from the host form.
const (
	// InstallTokenAuto selects building ZAP from source.
	InstallTokenAuto = "auto"
	// InstallTokenInstalled is the token the host form sends for a preinstalled ZAP.
	// Any token other than "auto" is treated the same way.
	InstallTokenInstalled = "installed"
)

// DefaultPort is the ZAP port used when a host spec carries none.
const DefaultPort = 8090

// DefaultCheckoutPath is the working copy directory used when none is configured.
const DefaultCheckoutPath = "zapSource"

// InstallKind discriminates the InstallMode variant.
type InstallKind int

const (
	// InstallAuto builds ZAP from source before launching it.
	InstallAuto InstallKind = iota
	// InstallPreinstalled launches an existing ZAP installation.
	InstallPreinstalled
)

// String returns the form token of the kind.
func (k InstallKind) String() string {
	if k == InstallAuto {
		return InstallTokenAuto
	}
	return InstallTokenInstalled
}

// InstallMode is a tagged variant: Auto, or Preinstalled with a path.
type InstallMode struct {
	kind InstallKind
	path string
}

// Auto returns the auto-build install mode.
func Auto() InstallMode {
	return InstallMode{kind: InstallAuto}
}

// Preinstalled returns the install mode for an existing installation at path.
func Preinstalled(path string) InstallMode {
	return InstallMode{kind: InstallPreinstalled, path: path}
}

// InstallModeFromToken maps the host form token and installed path to an InstallMode.
// An empty token defaults to Auto.
func InstallModeFromToken(token, installedPath string) InstallMode {
	t := strings.TrimSpace(token)
	if t == "" || t == InstallTokenAuto {
		return Auto()
	}
	return Preinstalled(installedPath)
}

// Kind returns the variant tag.
func (m InstallMode) Kind() InstallKind {
	return m.kind
}

// IsAuto reports whether the mode builds ZAP from source.
func (m InstallMode) IsAuto() bool {
	return m.kind == InstallAuto
}

// Path returns the installation path of a Preinstalled mode.
// ok is false for Auto.
func (m InstallMode) Path() (path string, ok bool) {
	if m.kind != InstallPreinstalled {
		return "", false
	}
	return m.path, true
}

// String implements fmt.Stringer.
func (m InstallMode) String() string {
	if m.kind == InstallAuto {
		return InstallTokenAuto
	}
	return fmt.Sprintf("%s(%s)", InstallTokenInstalled, m.path)
}

// RepositoryCredentials authenticate against the source repository.
// Password may hold an age-armored ciphertext; see internal/secrets.
type RepositoryCredentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// ScanStepConfig holds the build step configuration bound by the host form.
type ScanStepConfig struct {
	Install       InstallMode
	RepositoryURL string
	CheckoutPath  string
	HostSpec      string
	Credentials   *RepositoryCredentials
}

// CheckoutDir returns the configured checkout path or DefaultCheckoutPath.
func (c *ScanStepConfig) CheckoutDir() string {
	if strings.TrimSpace(c.CheckoutPath) == "" {
		return DefaultCheckoutPath
	}
	return c.CheckoutPath
}

// StepForm is the flat, string-typed shape of the host form.
// It is what the CLI, the YAML step file and the HTTP API decode into.
type StepForm struct {
	InstallType   string                 `json:"install_type" yaml:"install_type"`
	InstalledPath string                 `json:"installed_path,omitempty" yaml:"installed_path,omitempty"`
	RepositoryURL string                 `json:"repository_url,omitempty" yaml:"repository_url,omitempty"`
	CheckoutPath  string                 `json:"checkout_path,omitempty" yaml:"checkout_path,omitempty"`
	Host          string                 `json:"host" yaml:"host"`
	Credentials   *RepositoryCredentials `json:"credentials,omitempty" yaml:"credentials,omitempty"`
}

// ToConfig converts the form into a ScanStepConfig.
func (f StepForm) ToConfig() ScanStepConfig {
	return ScanStepConfig{
		Install:       InstallModeFromToken(f.InstallType, f.InstalledPath),
		RepositoryURL: strings.TrimSpace(f.RepositoryURL),
		CheckoutPath:  strings.TrimSpace(f.CheckoutPath),
		HostSpec:      strings.TrimSpace(f.Host),
		Credentials:   f.Credentials,
	}
}

// HostTarget is the host name and port the daemon listens on.
type HostTarget struct {
	HostName string `json:"host_name"`
	Port     int    `json:"port"`
}

// String returns host:port.
func (t HostTarget) String() string {
	return t.HostName + ":" + strconv.Itoa(t.Port)
}

// ParseHostTarget parses "host" or "host:port" into a HostTarget.
// A missing port defaults to DefaultPort.
func ParseHostTarget(spec string) (HostTarget, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return HostTarget{}, &ValidationError{Field: "host", Message: "host is required"}
	}

	parts := strings.Split(spec, ":")
	if len(parts) > 2 {
		return HostTarget{}, &ValidationError{Field: "host", Message: "expected host or host:port"}
	}
	if parts[0] == "" {
		return HostTarget{}, &ValidationError{Field: "host", Message: "host name is empty"}
	}

	target := HostTarget{HostName: parts[0], Port: DefaultPort}
	if len(parts) == 2 {
		port, err := strconv.Atoi(parts[1])
		if err != nil || !isDigits(parts[1]) {
			return HostTarget{}, &ValidationError{Field: "host", Message: fmt.Sprintf("port %q is not numeric", parts[1])}
		}
		if port < 1 || port > 65535 {
			return HostTarget{}, &ValidationError{Field: "host", Message: fmt.Sprintf("port %d out of range", port)}
		}
		target.Port = port
	}
	return target, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
