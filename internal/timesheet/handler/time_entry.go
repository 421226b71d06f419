package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/domain"
	"github.com/tyotrack/tyotrack-backend/internal/timesheet/service"
	"github.com/tyotrack/tyotrack-backend/pkg/errors"
	"github.com/tyotrack/tyotrack-backend/pkg/httputil"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
)

// TimeEntryHandler handles the employee facing entry endpoints
type TimeEntryHandler struct {
	service *service.TimeEntryService
	logger  *logger.Logger
}

// NewTimeEntryHandler creates a new time entry handler
func NewTimeEntryHandler(svc *service.TimeEntryService, log *logger.Logger) *TimeEntryHandler {
	return &TimeEntryHandler{
		service: svc,
		logger:  log,
	}
}

// Log stores a shift for the caller
// POST /entries
func (h *TimeEntryHandler) Log(w http.ResponseWriter, r *http.Request) {
	var req service.LogTimeRequest
	if err := decode(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	result, err := h.service.LogTime(r.Context(), &req)
	if err != nil {
		h.logFailure(r, err, "failed to log time")
		httputil.ErrorLocalized(w, r, err)
		return
	}

	key := "messages.time_logged"
	if result.IsSplit {
		key = "messages.split_shift_logged"
	}
	httputil.JSONWithMessage(w, r, http.StatusCreated, result, key)
}

// Preview shows how a shift would be split and classified
// POST /entries/preview
func (h *TimeEntryHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req service.LogTimeRequest
	if err := decode(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	result, err := h.service.Preview(r.Context(), &req)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Get returns one entry
// GET /entries/{id}
func (h *TimeEntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entry)
}

// List returns the caller's entries
// GET /entries?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *TimeEntryHandler) List(w http.ResponseWriter, r *http.Request) {
	from, err := dateParam(r, "from")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}
	to, err := dateParam(r, "to")
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	entries, err := h.service.ListEntries(r.Context(), from, to)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{Total: int64(len(entries))})
}

// Rejections are part of normal use; only unexpected failures are errors.
func (h *TimeEntryHandler) logFailure(r *http.Request, err error, msg string) {
	var appErr *errors.AppError
	if errors.As(err, &appErr) && appErr.StatusCode < http.StatusInternalServerError {
		h.logger.Debug().Str("code", appErr.Code).Str("request_id", httputil.GetRequestID(r.Context())).Msg(msg)
		return
	}
	h.logger.Error().Err(err).Str("request_id", httputil.GetRequestID(r.Context())).Msg(msg)
}

func decode(r *http.Request, v interface{}) error {
	if err := httputil.DecodeJSON(r, v); err != nil {
		return err
	}
	return httputil.Validate(v)
}

// dateParam reads an optional YYYY-MM-DD query parameter. Missing values
// are the zero time.
func dateParam(r *http.Request, name string) (time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return time.Time{}, nil
	}
	d, err := domain.ParseDate(value)
	if err != nil {
		return time.Time{}, errors.Validation(map[string]string{name: "must match the format " + domain.DateLayout})
	}
	return d, nil
}
