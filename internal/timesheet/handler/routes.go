package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tyotrack/tyotrack-backend/pkg/auth"
	"github.com/tyotrack/tyotrack-backend/pkg/httputil"
	"github.com/tyotrack/tyotrack-backend/pkg/i18n"
	"github.com/tyotrack/tyotrack-backend/pkg/logger"
	"github.com/tyotrack/tyotrack-backend/pkg/permissions"
)

// BasePath is where the timesheet API is mounted
const BasePath = "/api/v1/timesheet"

// Handlers groups the timesheet HTTP handlers
type Handlers struct {
	Entries   *TimeEntryHandler
	Approvals *ApprovalHandler
	Settings  *SettingsHandler
	Stats     *StatsHandler
	Projects  *ProjectHandler
}

// Mount registers the timesheet API on r. Every route requires a bearer
// token; reviewer and admin routes also require their permission.
func (h *Handlers) Mount(r chi.Router, verifier *auth.Verifier, log *logger.Logger) {
	r.Route(BasePath, func(r chi.Router) {
		r.Use(httputil.Authenticate(verifier, log))

		r.Route("/entries", func(r chi.Router) {
			r.With(httputil.RequirePermission(permissions.EntriesCreate)).Post("/", h.Entries.Log)
			r.With(httputil.RequirePermission(permissions.EntriesCreate)).Post("/preview", h.Entries.Preview)
			r.With(httputil.RequirePermission(permissions.EntriesRead)).Get("/", h.Entries.List)
			r.With(httputil.RequirePermission(permissions.EntriesRead)).Get("/{id}", h.Entries.Get)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequirePermission(permissions.EntriesApprove))
				r.Post("/{id}/approve", h.Approvals.Approve)
				r.Post("/{id}/reject", h.Approvals.Reject)
			})
		})

		r.With(httputil.RequirePermission(permissions.EntriesApprove)).Get("/approvals/pending", h.Approvals.ListPending)

		r.With(httputil.RequirePermission(permissions.SettingsRead)).Get("/settings", h.Settings.Get)
		r.With(httputil.RequirePermission(permissions.SettingsWrite)).Put("/settings", h.Settings.Update)
		r.With(httputil.RequirePermission(permissions.UserSettingsSet)).Put("/users/{userID}/auto-approve", h.Settings.SetAutoApprove)

		r.With(httputil.RequirePermission(permissions.StatsRead)).Get("/stats", h.Stats.Get)

		r.Route("/projects", func(r chi.Router) {
			r.With(httputil.RequirePermission(permissions.ProjectsRead)).Get("/", h.Projects.List)
			r.With(httputil.RequirePermission(permissions.ProjectsRead)).Get("/{id}", h.Projects.Get)
			r.With(httputil.RequirePermission(permissions.ProjectsManage)).Post("/", h.Projects.Create)
			r.With(httputil.RequirePermission(permissions.ProjectsManage)).Put("/{id}", h.Projects.Update)
		})

		r.With(httputil.RequirePermission(permissions.ProjectsRead)).Get("/workplaces", h.Projects.ListWorkplaces)
		r.With(httputil.RequirePermission(permissions.ProjectsManage)).Post("/workplaces", h.Projects.CreateWorkplace)
	})
}

// NewRouter builds the service router with the request middleware, an
// unauthenticated /health and the timesheet API. Extra middleware such as
// CORS runs first.
func (h *Handlers) NewRouter(verifier *auth.Verifier, log *logger.Logger, health http.HandlerFunc, extra ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(extra...)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(i18n.Middleware)

	if health != nil {
		r.Get("/health", health)
	}
	h.Mount(r, verifier, log)
	return r
}
