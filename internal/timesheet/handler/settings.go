package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/service"
	"github.com/tyotrack/tyotrack-backend/pkg/httputil"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
)

// SettingsHandler handles company and user settings endpoints
type SettingsHandler struct {
	service *service.SettingsService
	logger  *logger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(svc *service.SettingsService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: svc,
		logger:  log,
	}
}

// AutoApproveRequest toggles auto-approval for one user
type AutoApproveRequest struct {
	AutoApprove *bool `json:"auto_approve" validate:"required"`
}

// Get returns the caller's company settings, or the defaults
// GET /settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Get(r.Context())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, settings)
}

// Update replaces the company's shift settings
// PUT /settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSettingsRequest
	if err := decode(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	settings, err := h.service.Update(r.Context(), &req)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMessage(w, r, http.StatusOK, settings, "messages.settings_updated")
}

// SetAutoApprove toggles auto-approval for a user of the company
// PUT /users/{userID}/auto-approve
func (h *SettingsHandler) SetAutoApprove(w http.ResponseWriter, r *http.Request) {
	var req AutoApproveRequest
	if err := decode(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := h.service.SetAutoApprove(r.Context(), userID, *req.AutoApprove); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      userID,
		"auto_approve": *req.AutoApprove,
	})
}
