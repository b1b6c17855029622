package validation

import (
	"errors"
	"net/url"
	"strings"

	"github.com/narvanalabs/zapper/internal/models"
)

// ValidateRepositoryURL checks that a repository URL is absolute and parseable.
func ValidateRepositoryURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &models.ValidationError{Field: "repository_url", Message: "repository URL is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &models.ValidationError{Field: "repository_url", Message: "repository URL is malformed: " + err.Error()}
	}
	if u.Scheme == "" || (u.Host == "" && u.Scheme != "file") {
		return &models.ValidationError{Field: "repository_url", Message: "repository URL must be absolute"}
	}
	return nil
}

// ValidateStepConfig checks the invariants of a ScanStepConfig.
// All field errors are joined into the returned error.
func ValidateStepConfig(cfg *models.ScanStepConfig) error {
	if cfg == nil {
		return &models.ValidationError{Field: "config", Message: "configuration is required"}
	}

	var errs []error
	if _, err := ValidateHostTarget(cfg.HostSpec); err != nil {
		errs = append(errs, err)
	}

	if cfg.Install.IsAuto() {
		if err := ValidateRepositoryURL(cfg.RepositoryURL); err != nil {
			errs = append(errs, err)
		}
	} else if path, _ := cfg.Install.Path(); strings.TrimSpace(path) == "" {
		errs = append(errs, &models.ValidationError{Field: "installed_path", Message: "installed path is required"})
	}

	return errors.Join(errs...)
}
