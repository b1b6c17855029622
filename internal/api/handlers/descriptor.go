package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/narvanalabs/zapper/internal/api/errors"
	"github.com/narvanalabs/zapper/internal/models"
	"github.com/narvanalabs/zapper/internal/validation"
	"github.com/narvanalabs/zapper/pkg/config"
)

// DescriptorHandler serves the step form defaults and field checks.
type DescriptorHandler struct {
	defaults config.Defaults
	logger   *slog.Logger
}

// NewDescriptorHandler creates a new descriptor handler.
func NewDescriptorHandler(defaults config.Defaults, logger *slog.Logger) *DescriptorHandler {
	return &DescriptorHandler{defaults: defaults, logger: logger}
}

// DescriptorResponse describes the step form.
type DescriptorResponse struct {
	config.Defaults
	InstallTypes []string `json:"install_types"`
	DefaultPort  int      `json:"default_port"`
}

// FieldCheck is the result of validating one form field.
type FieldCheck struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Get handles GET /descriptor.
func (h *DescriptorHandler) Get(w http.ResponseWriter, r *http.Request) {
	apierrors.WriteJSON(w, http.StatusOK, DescriptorResponse{
		Defaults:     h.defaults,
		InstallTypes: []string{models.InstallTokenAuto, models.InstallTokenInstalled},
		DefaultPort:  models.DefaultPort,
	})
}

// CheckHost handles GET /descriptor/check-host?value=.
// A failed check is still a 200; the result is in the body.
func (h *DescriptorHandler) CheckHost(w http.ResponseWriter, r *http.Request) {
	if err := validation.ValidateHostSpec(r.URL.Query().Get("value")); err != nil {
		msg := err.Error()
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			msg = verr.Message
		}
		apierrors.WriteJSON(w, http.StatusOK, FieldCheck{Message: msg})
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, FieldCheck{OK: true})
}
