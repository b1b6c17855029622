package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	apierrors "github.com/narvanalabs/zapper/internal/api/errors"
	"github.com/narvanalabs/zapper/internal/models"
	"github.com/narvanalabs/zapper/internal/progress"
	"github.com/narvanalabs/zapper/internal/scan"
	"github.com/narvanalabs/zapper/internal/validation"
	"github.com/narvanalabs/zapper/pkg/config"
	"github.com/narvanalabs/zapper/pkg/logger"
)

const maxFormBytes = 64 << 10

// ScanRunner runs the scan step.
type ScanRunner interface {
	Run(ctx context.Context, cfg *models.ScanStepConfig, sink progress.Sink) *scan.Report
}

// Tracker admits scans while the server is not shutting down.
type Tracker interface {
	Begin() bool
	End()
}

// ScanHandler triggers scan steps.
type ScanHandler struct {
	runner   ScanRunner
	tracker  Tracker
	defaults config.Defaults
	logger   *slog.Logger
}

// NewScanHandler creates a new scan handler. tracker may be nil.
func NewScanHandler(runner ScanRunner, tracker Tracker, defaults config.Defaults, logger *slog.Logger) *ScanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanHandler{runner: runner, tracker: tracker, defaults: defaults, logger: logger}
}

// ScanResponse is the body of a completed scan request.
type ScanResponse struct {
	Report *scan.Report `json:"report"`
	Lines  []string     `json:"lines"`
}

// Create handles POST /v1/scans. It runs the step to completion and
// returns the report with every progress line.
func (h *ScanHandler) Create(w http.ResponseWriter, r *http.Request) {
	cfg, apiErr := h.decodeForm(r.Body)
	if apiErr != nil {
		apierrors.WriteError(w, apiErr)
		return
	}

	ctx, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer h.end()

	rec := &progress.Recorder{}
	report := h.runner.Run(ctx, cfg, rec)

	status := http.StatusOK
	if !report.Succeeded {
		status = http.StatusUnprocessableEntity
	}
	apierrors.WriteJSON(w, status, ScanResponse{Report: report, Lines: rec.Lines()})
}

// decodeForm reads a StepForm, fills defaults and validates it.
func (h *ScanHandler) decodeForm(body io.Reader) (*models.ScanStepConfig, *apierrors.APIError) {
	var form models.StepForm
	dec := json.NewDecoder(io.LimitReader(body, maxFormBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&form); err != nil {
		return nil, apierrors.NewBadRequestError(fmt.Sprintf("invalid request body: %v", err))
	}
	return h.configFromForm(form)
}

func (h *ScanHandler) configFromForm(form models.StepForm) (*models.ScanStepConfig, *apierrors.APIError) {
	h.defaults.Apply(&form)
	cfg := form.ToConfig()
	if err := validation.ValidateStepConfig(&cfg); err != nil {
		return nil, apierrors.FromError(err).ToAPIError()
	}
	return &cfg, nil
}

// begin admits the scan and tags the context with a fresh run ID.
func (h *ScanHandler) begin(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	if h.tracker != nil && !h.tracker.Begin() {
		apierrors.WriteError(w, apierrors.NewUnavailableError("server is shutting down"))
		return nil, false
	}
	runID := uuid.NewString()
	w.Header().Set("X-Run-ID", runID)
	return logger.ContextWithRunID(r.Context(), runID), true
}

func (h *ScanHandler) end() {
	if h.tracker != nil {
		h.tracker.End()
	}
}
