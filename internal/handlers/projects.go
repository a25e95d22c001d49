package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/platform/httpx"
	"github.com/espython/website-builder/internal/services"
)

const maxProjectRequestBody = 16 * 1024

// ProjectHandlers exposes the project registry.
type ProjectHandlers struct {
	projects services.ProjectService
	sites    services.SiteService
	editors  services.EditorService
}

// NewProjectHandlers constructs project handlers. Sites and editors are released when a project is deleted.
func NewProjectHandlers(projects services.ProjectService, sites services.SiteService, editors services.EditorService) *ProjectHandlers {
	return &ProjectHandlers{projects: projects, sites: sites, editors: editors}
}

// Routes registers the /projects endpoints that do not depend on a project's sections.
func (h *ProjectHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProjects)
	r.Post("/", h.createProject)
	r.Get("/current", h.currentProject)
	r.Get("/{projectID}", h.getProject)
	r.Patch("/{projectID}", h.updateProject)
	r.Delete("/{projectID}", h.deleteProject)
	r.Post("/{projectID}/activate", h.activateProject)
}

type projectPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Locale       string `json:"locale"`
	SectionCount int    `json:"sectionCount"`
	Current      bool   `json:"current"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

type projectListResponse struct {
	Items            []projectPayload `json:"items"`
	CurrentProjectID string           `json:"currentProjectId,omitempty"`
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Locale      string `json:"locale"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Locale      *string `json:"locale"`
}

func (h *ProjectHandlers) listProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.projects == nil {
		writeUnavailable(ctx, w, "project service")
		return
	}
	state, err := h.projects.ListProjects(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	items := make([]projectPayload, 0, len(state.Projects))
	for _, summary := range state.Projects {
		items = append(items, buildProjectPayload(summary, state.CurrentProjectID))
	}
	httpx.WriteJSON(w, http.StatusOK, projectListResponse{Items: items, CurrentProjectID: state.CurrentProjectID})
}

func (h *ProjectHandlers) createProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.projects == nil {
		writeUnavailable(ctx, w, "project service")
		return
	}
	var req createProjectRequest
	if err := httpx.DecodeJSON(r, maxProjectRequestBody, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	summary, err := h.projects.CreateProject(ctx, services.CreateProjectCommand{
		Name:        req.Name,
		Description: req.Description,
		Locale:      req.Locale,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.writeProject(ctx, w, http.StatusCreated, summary)
}

func (h *ProjectHandlers) currentProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.projects == nil {
		writeUnavailable(ctx, w, "project service")
		return
	}
	summary, err := h.projects.CurrentProject(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProjectPayload(summary, summary.ID))
}

func (h *ProjectHandlers) getProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.projects == nil {
		writeUnavailable(ctx, w, "project service")
		return
	}
	summary, err := h.projects.GetProject(ctx, projectIDParam(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.writeProject(ctx, w, http.StatusOK, summary)
}

func (h *ProjectHandlers) updateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.projects == nil {
		writeUnavailable(ctx, w, "project service")
		return
	}
	var req updateProjectRequest
	if err := httpx.DecodeJSON(r, maxProjectRequestBody, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	summary, err := h.projects.UpdateProject(ctx, services.UpdateProjectCommand{
		ProjectID:   projectIDParam(r),
		Name:        req.Name,
		Description: req.Description,
		Locale:      req.Locale,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.writeProject(ctx, w, http.StatusOK, summary)
}

func (h *ProjectHandlers) deleteProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.projects == nil {
		writeUnavailable(ctx, w, "project service")
		return
	}
	projectID := projectIDParam(r)
	if _, err := h.projects.GetProject(ctx, projectID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	// Drafts and autosaves are settled first so nothing writes the site back after removal.
	if h.editors != nil {
		_ = h.editors.CloseProject(ctx, projectID)
	}
	if h.sites != nil {
		h.sites.Forget(ctx, projectID)
	}
	if err := h.projects.DeleteProject(ctx, projectID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandlers) activateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.projects == nil {
		writeUnavailable(ctx, w, "project service")
		return
	}
	summary, err := h.projects.SetCurrentProject(ctx, projectIDParam(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildProjectPayload(summary, summary.ID))
}

func (h *ProjectHandlers) writeProject(ctx context.Context, w http.ResponseWriter, status int, summary domain.ProjectSummary) {
	current := ""
	if state, err := h.projects.ListProjects(ctx); err == nil {
		current = state.CurrentProjectID
	}
	httpx.WriteJSON(w, status, buildProjectPayload(summary, current))
}

func buildProjectPayload(summary domain.ProjectSummary, currentID string) projectPayload {
	return projectPayload{
		ID:           summary.ID,
		Name:         summary.Name,
		Description:  summary.Description,
		Locale:       summary.Locale,
		SectionCount: summary.SectionCount,
		Current:      currentID != "" && summary.ID == currentID,
		CreatedAt:    formatTime(summary.CreatedAt),
		UpdatedAt:    formatTime(summary.UpdatedAt),
	}
}

func projectIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "projectID"))
}
