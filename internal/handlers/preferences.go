package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/platform/httpx"
	"github.com/espython/website-builder/internal/render"
	"github.com/espython/website-builder/internal/services"
)

const maxPreferenceRequestBody = 4 * 1024

// PreferenceHandlers reads and writes editor preferences.
type PreferenceHandlers struct {
	prefs services.PreferenceService
}

// NewPreferenceHandlers constructs preference handlers.
func NewPreferenceHandlers(prefs services.PreferenceService) *PreferenceHandlers {
	return &PreferenceHandlers{prefs: prefs}
}

// Routes registers the /preferences endpoints.
func (h *PreferenceHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/preview-mode", h.getPreviewMode)
	r.Put("/preview-mode", h.setPreviewMode)
}

type previewModePayload struct {
	Mode  domain.PreviewMode `json:"mode"`
	Width string             `json:"width,omitempty"`
}

func (h *PreferenceHandlers) getPreviewMode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.prefs == nil {
		writeUnavailable(ctx, w, "preference service")
		return
	}
	mode, err := h.prefs.PreviewMode(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, previewModePayload{Mode: mode, Width: render.Width(mode)})
}

func (h *PreferenceHandlers) setPreviewMode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.prefs == nil {
		writeUnavailable(ctx, w, "preference service")
		return
	}
	var req previewModePayload
	if err := httpx.DecodeJSON(r, maxPreferenceRequestBody, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	mode, err := h.prefs.SetPreviewMode(ctx, req.Mode)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, previewModePayload{Mode: mode, Width: render.Width(mode)})
}
