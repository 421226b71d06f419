package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/service"
	"github.com/tyotrack/tyotrack-backend/pkg/httputil"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
)

// ApprovalHandler handles the reviewer endpoints
type ApprovalHandler struct {
	service *service.ApprovalService
	logger  *logger.Logger
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(svc *service.ApprovalService, log *logger.Logger) *ApprovalHandler {
	return &ApprovalHandler{
		service: svc,
		logger:  log,
	}
}

// ListPending returns the company's entries awaiting review
// GET /approvals/pending
func (h *ApprovalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListPending(r.Context())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{Total: int64(len(entries))})
}

// Approve approves a pending entry
// POST /entries/{id}/approve
func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMessage(w, r, http.StatusOK, entry, "messages.entry_approved")
}

// Reject rejects a pending entry
// POST /entries/{id}/reject
func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMessage(w, r, http.StatusOK, entry, "messages.entry_rejected")
}
