package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/editor"
	"github.com/espython/website-builder/internal/platform/httpx"
	"github.com/espython/website-builder/internal/services"
)

// DraftHandlers exposes editor sessions. Drafts commit after the idle delay or on save.
type DraftHandlers struct {
	editors services.EditorService
}

// NewDraftHandlers constructs draft handlers.
func NewDraftHandlers(editors services.EditorService) *DraftHandlers {
	return &DraftHandlers{editors: editors}
}

// Routes registers draft endpoints relative to /projects.
func (h *DraftHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/{projectID}/drafts/{sectionID}", h.openDraft)
	r.Get("/{projectID}/drafts/{sectionID}", h.getDraft)
	r.Patch("/{projectID}/drafts/{sectionID}", h.patchDraft)
	r.Post("/{projectID}/drafts/{sectionID}/flush", h.flushDraft)
	r.Post("/{projectID}/drafts/{sectionID}/save", h.saveDraft)
	r.Delete("/{projectID}/drafts/{sectionID}", h.closeDraft)
}

// patchDraftRequest carries either draft operations or a whole replacement content.
type patchDraftRequest struct {
	Ops     []editor.Op     `json:"ops"`
	Content json.RawMessage `json:"content"`
}

func (h *DraftHandlers) openDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.editors == nil {
		writeUnavailable(ctx, w, "editor service")
		return
	}
	draft, err := h.editors.Open(ctx, projectIDParam(r), sectionIDParam(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, draft)
}

func (h *DraftHandlers) getDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.editors == nil {
		writeUnavailable(ctx, w, "editor service")
		return
	}
	draft, err := h.editors.Draft(ctx, projectIDParam(r), sectionIDParam(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, draft)
}

func (h *DraftHandlers) patchDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.editors == nil {
		writeUnavailable(ctx, w, "editor service")
		return
	}
	var req patchDraftRequest
	if err := httpx.DecodeJSON(r, maxSectionRequestBody, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	hasContent := len(bytes.TrimSpace(req.Content)) > 0 && !bytes.Equal(bytes.TrimSpace(req.Content), []byte("null"))
	if hasContent == (len(req.Ops) > 0) {
		writeInvalidRequest(ctx, w, "exactly one of ops or content is required")
		return
	}

	projectID, sectionID := projectIDParam(r), sectionIDParam(r)
	if len(req.Ops) > 0 {
		draft, err := h.editors.Apply(ctx, projectID, sectionID, req.Ops...)
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, draft)
		return
	}

	current, err := h.editors.Draft(ctx, projectID, sectionID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	content, err := domain.DecodeContent(current.Kind, req.Content)
	if err != nil {
		writeInvalidRequest(ctx, w, err.Error())
		return
	}
	draft, err := h.editors.SetContent(ctx, projectID, sectionID, content)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, draft)
}

func (h *DraftHandlers) flushDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.editors == nil {
		writeUnavailable(ctx, w, "editor service")
		return
	}
	draft, err := h.editors.Flush(ctx, projectIDParam(r), sectionIDParam(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, draft)
}

func (h *DraftHandlers) saveDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.editors == nil {
		writeUnavailable(ctx, w, "editor service")
		return
	}
	if err := h.editors.SaveAndClose(ctx, projectIDParam(r), sectionIDParam(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DraftHandlers) closeDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.editors == nil {
		writeUnavailable(ctx, w, "editor service")
		return
	}
	if err := h.editors.Close(ctx, projectIDParam(r), sectionIDParam(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
