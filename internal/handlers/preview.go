package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/render"
	"github.com/espython/website-builder/internal/services"
)

// LiveHub serves the websocket channel of a project.
type LiveHub interface {
	ServeProject(w http.ResponseWriter, r *http.Request, projectID string) error
}

// PreviewHandlers renders project pages and serves the live channel.
type PreviewHandlers struct {
	projects services.ProjectService
	sites    services.SiteService
	prefs    services.PreferenceService
	renderer *render.Renderer
	hub      LiveHub
}

// PreviewDeps groups the collaborators of PreviewHandlers.
type PreviewDeps struct {
	Projects    services.ProjectService
	Sites       services.SiteService
	Preferences services.PreferenceService
	Renderer    *render.Renderer
	Hub         LiveHub
}

// NewPreviewHandlers constructs preview handlers.
func NewPreviewHandlers(deps PreviewDeps) *PreviewHandlers {
	return &PreviewHandlers{
		projects: deps.Projects,
		sites:    deps.Sites,
		prefs:    deps.Preferences,
		renderer: deps.Renderer,
		hub:      deps.Hub,
	}
}

// Routes registers preview endpoints relative to /projects.
func (h *PreviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{projectID}/preview", h.preview)
	r.Get("/{projectID}/live", h.live)
}

func (h *PreviewHandlers) preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.projects == nil || h.sites == nil || h.renderer == nil {
		writeUnavailable(ctx, w, "preview")
		return
	}

	mode, err := h.previewMode(r)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	projectID := projectIDParam(r)
	project, err := h.projects.GetProject(ctx, projectID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	store, err := h.sites.Store(ctx, projectID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	snap := store.Snapshot()

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, render.Page{
		Project:    project.Project,
		Sections:   snap.Sections,
		Mode:       mode,
		SelectedID: snap.SelectedID,
	}); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// previewMode prefers the query parameter and falls back to the saved preference.
func (h *PreviewHandlers) previewMode(r *http.Request) (domain.PreviewMode, error) {
	if raw := strings.TrimSpace(r.URL.Query().Get("mode")); raw != "" {
		return domain.ParsePreviewMode(raw)
	}
	if h.prefs == nil {
		return domain.PreviewModeDesktop, nil
	}
	return h.prefs.PreviewMode(r.Context())
}

func (h *PreviewHandlers) live(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.hub == nil {
		writeUnavailable(ctx, w, "live channel")
		return
	}
	if err := h.hub.ServeProject(w, r, projectIDParam(r)); err != nil {
		writeServiceError(ctx, w, err)
	}
}
