package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tyotrack/tyotrack-backend/internal/timesheet/service"
	"github.com/tyotrack/tyotrack-backend/pkg/httputil"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
)

// ProjectHandler handles project and workplace endpoints
type ProjectHandler struct {
	service *service.ProjectService
	logger  *logger.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(svc *service.ProjectService, log *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: svc,
		logger:  log,
	}
}

// List returns the company's projects with their hours
// GET /projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListWithStats(r.Context())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, projects)
}

// Get returns one project with its team
// GET /projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, project)
}

// Create adds a project
// POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProjectRequest
	if err := decode(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	project, err := h.service.Create(r.Context(), &req)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMessage(w, r, http.StatusCreated, project, "messages.project_created")
}

// Update replaces a project
// PUT /projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProjectRequest
	if err := decode(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	project, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMessage(w, r, http.StatusOK, project, "messages.project_updated")
}

// ListWorkplaces returns the company's workplaces
// GET /workplaces
func (h *ProjectHandler) ListWorkplaces(w http.ResponseWriter, r *http.Request) {
	workplaces, err := h.service.ListWorkplaces(r.Context())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, workplaces)
}

// CreateWorkplace adds a workplace
// POST /workplaces
func (h *ProjectHandler) CreateWorkplace(w http.ResponseWriter, r *http.Request) {
	var req service.CreateWorkplaceRequest
	if err := decode(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	workplace, err := h.service.CreateWorkplace(r.Context(), &req)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMessage(w, r, http.StatusCreated, workplace, "messages.workplace_created")
}
