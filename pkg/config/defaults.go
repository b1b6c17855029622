package config

import (
	"strings"

	"github.com/narvanalabs/zapper/internal/models"
)

// Default repository locations per client.
const (
	DefaultSVNRepository = "http://zaproxy.googlecode.com/svn/trunk/"
	DefaultGitRepository = "https://github.com/zaproxy/zaproxy.git"
	DefaultDisplayName   = "Run OWASP ZAP"
	DefaultHost          = "localhost:8090"
)

// Defaults are the values the step form starts from.
type Defaults struct {
	DisplayName  string `json:"display_name"`
	Host         string `json:"default_host"`
	Repository   string `json:"default_repository"`
	Path         string `json:"default_path"`
	CheckoutPath string `json:"default_checkout_path"`
}

// DefaultsFor returns the defaults for a VCS client, with workDir as the
// default installed path.
func DefaultsFor(vcsClient, workDir string) Defaults {
	repo := DefaultSVNRepository
	if vcsClient == VCSGit {
		repo = DefaultGitRepository
	}
	return Defaults{
		DisplayName:  DefaultDisplayName,
		Host:         DefaultHost,
		Repository:   repo,
		Path:         workDir,
		CheckoutPath: models.DefaultCheckoutPath,
	}
}

// Apply fills blank fields of form from d.
func (d Defaults) Apply(form *models.StepForm) {
	if strings.TrimSpace(form.Host) == "" {
		form.Host = d.Host
	}
	if strings.TrimSpace(form.CheckoutPath) == "" {
		form.CheckoutPath = d.CheckoutPath
	}
	if models.InstallModeFromToken(form.InstallType, "").IsAuto() {
		if strings.TrimSpace(form.RepositoryURL) == "" {
			form.RepositoryURL = d.Repository
		}
	} else if strings.TrimSpace(form.InstalledPath) == "" {
		form.InstalledPath = d.Path
	}
}
