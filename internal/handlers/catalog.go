package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/espython/website-builder/internal/catalog"
	"github.com/espython/website-builder/internal/platform/httpx"
	"github.com/espython/website-builder/internal/services"
)

// CatalogHandlers serves the section palette and starter templates.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs catalog handlers.
func NewCatalogHandlers(c services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: c}
}

// Routes registers the /catalog endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/palette", h.listPalette)
	r.Get("/templates", h.listTemplates)
	r.Get("/templates/{templateID}", h.getTemplate)
}

type paletteResponse struct {
	Items []catalog.PaletteEntry `json:"items"`
}

type templateListResponse struct {
	Items []catalog.Template `json:"items"`
}

func (h *CatalogHandlers) listPalette(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeUnavailable(r.Context(), w, "catalog")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, paletteResponse{Items: h.catalog.Palette()})
}

func (h *CatalogHandlers) listTemplates(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeUnavailable(r.Context(), w, "catalog")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, templateListResponse{Items: h.catalog.Templates()})
}

func (h *CatalogHandlers) getTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeUnavailable(ctx, w, "catalog")
		return
	}
	tmpl, err := h.catalog.Template(strings.TrimSpace(chi.URLParam(r, "templateID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tmpl)
}
