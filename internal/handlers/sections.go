package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/platform/httpx"
	"github.com/espython/website-builder/internal/services"
)

const maxSectionRequestBody = 512 * 1024

// SiteHandlers exposes the section collection of a project.
type SiteHandlers struct {
	sites          services.SiteService
	maxImportBytes int64
}

// NewSiteHandlers constructs site handlers. maxImportBytes bounds import uploads.
func NewSiteHandlers(sites services.SiteService, maxImportBytes int64) *SiteHandlers {
	if maxImportBytes <= 0 {
		maxImportBytes = 4 << 20
	}
	return &SiteHandlers{sites: sites, maxImportBytes: maxImportBytes}
}

// Routes registers the project scoped section endpoints. Paths are relative to /projects.
func (h *SiteHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{projectID}/sections", h.listSections)
	r.Post("/{projectID}/sections", h.addSection)
	r.Post("/{projectID}/sections/reorder", h.reorderSections)
	r.Get("/{projectID}/sections/{sectionID}", h.getSection)
	r.Put("/{projectID}/sections/{sectionID}", h.updateSection)
	r.Delete("/{projectID}/sections/{sectionID}", h.deleteSection)
	r.Post("/{projectID}/sections/{sectionID}/move-up", h.moveSectionUp)
	r.Post("/{projectID}/sections/{sectionID}/move-down", h.moveSectionDown)
	r.Get("/{projectID}/selection", h.getSelection)
	r.Put("/{projectID}/selection", h.setSelection)
	r.Get("/{projectID}/export", h.exportSite)
	r.Post("/{projectID}/import", h.importSite)
	r.Post("/{projectID}/templates/{templateID}/apply", h.applyTemplate)
}

type sectionListResponse struct {
	Items      []domain.Section `json:"items"`
	Version    uint64           `json:"version"`
	SelectedID string           `json:"selectedId,omitempty"`
}

type addSectionRequest struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

type updateSectionRequest struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

type reorderRequest struct {
	ActiveID string `json:"activeId"`
	OverID   string `json:"overId"`
}

type selectionRequest struct {
	SectionID string `json:"sectionId"`
}

type selectionResponse struct {
	SectionID string          `json:"sectionId,omitempty"`
	Section   *domain.Section `json:"section,omitempty"`
}

type exportUploadResponse struct {
	FileName    string `json:"fileName"`
	Bucket      string `json:"bucket"`
	Object      string `json:"object"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
	ExportedAt  string `json:"exportedAt"`
}

func (h *SiteHandlers) listSections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	store, err := h.sites.Store(ctx, projectIDParam(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	snap := store.Snapshot()
	items := snap.Sections
	if items == nil {
		items = []domain.Section{}
	}
	httpx.WriteJSON(w, http.StatusOK, sectionListResponse{Items: items, Version: snap.Version, SelectedID: snap.SelectedID})
}

func (h *SiteHandlers) addSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	var req addSectionRequest
	if err := httpx.DecodeJSON(r, maxSectionRequestBody, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	kind, err := domain.ParseSectionType(req.Type)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	var content domain.Content
	if trimmed := bytes.TrimSpace(req.Content); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		content, err = domain.DecodeContent(kind, trimmed)
		if err != nil {
			writeInvalidRequest(ctx, w, err.Error())
			return
		}
	}
	section, err := h.sites.AddSection(ctx, projectIDParam(r), kind, content)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, section)
}

func (h *SiteHandlers) getSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	section, err := h.sites.Section(ctx, projectIDParam(r), sectionIDParam(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, section)
}

// updateSection replaces the content. The content is decoded with the stored section's type.
func (h *SiteHandlers) updateSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	var req updateSectionRequest
	if err := httpx.DecodeJSON(r, maxSectionRequestBody, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	projectID, sectionID := projectIDParam(r), sectionIDParam(r)
	current, err := h.sites.Section(ctx, projectID, sectionID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if req.Type != "" {
		kind, err := domain.ParseSectionType(req.Type)
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		if kind != current.Type {
			writeServiceError(ctx, w, fmt.Errorf("%w: %s content for %s section", domain.ErrContentMismatch, kind, current.Type))
			return
		}
	}
	content, err := domain.DecodeContent(current.Type, req.Content)
	if err != nil {
		writeInvalidRequest(ctx, w, err.Error())
		return
	}
	section, err := h.sites.UpdateSection(ctx, projectID, sectionID, content)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, section)
}

func (h *SiteHandlers) deleteSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	if err := h.sites.DeleteSection(ctx, projectIDParam(r), sectionIDParam(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SiteHandlers) moveSectionUp(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, true)
}

func (h *SiteHandlers) moveSectionDown(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, false)
}

func (h *SiteHandlers) move(w http.ResponseWriter, r *http.Request, up bool) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	move := h.sites.MoveSectionDown
	if up {
		move = h.sites.MoveSectionUp
	}
	if err := move(ctx, projectIDParam(r), sectionIDParam(r)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.listSections(w, r)
}

func (h *SiteHandlers) reorderSections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	var req reorderRequest
	if err := httpx.DecodeJSON(r, maxSectionRequestBody, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.ActiveID) == "" || strings.TrimSpace(req.OverID) == "" {
		writeInvalidRequest(ctx, w, "activeId and overId are required")
		return
	}
	if err := h.sites.ReorderSections(ctx, projectIDParam(r), req.ActiveID, req.OverID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.listSections(w, r)
}

func (h *SiteHandlers) getSelection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	section, ok, err := h.sites.Selected(ctx, projectIDParam(r))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	resp := selectionResponse{}
	if ok {
		resp.SectionID = section.ID
		resp.Section = &section
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// setSelection selects a section. An empty id clears the selection.
func (h *SiteHandlers) setSelection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	var req selectionRequest
	if err := httpx.DecodeJSON(r, maxSectionRequestBody, &req); err != nil {
		writeDecodeError(ctx, w, err)
		return
	}
	if err := h.sites.SelectSection(ctx, projectIDParam(r), strings.TrimSpace(req.SectionID)); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.getSelection(w, r)
}

func (h *SiteHandlers) exportSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	upload := false
	if raw := strings.TrimSpace(r.URL.Query().Get("upload")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			writeInvalidRequest(ctx, w, "upload must be a boolean")
			return
		}
		upload = value
	}
	export, err := h.sites.Export(ctx, projectIDParam(r), services.ExportOptions{Upload: upload})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if upload && export.Upload != nil {
		resp := exportUploadResponse{
			FileName:    export.FileName,
			Bucket:      export.Upload.Bucket,
			Object:      export.Upload.Object,
			DownloadURL: export.Upload.DownloadURL,
			ExportedAt:  formatTime(export.ExportedAt),
		}
		if !export.Upload.ExpiresAt.IsZero() {
			resp.ExpiresAt = export.Upload.ExpiresAt.UTC().Format(time.RFC3339)
		}
		httpx.WriteJSON(w, http.StatusCreated, resp)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}

// importSite accepts the export document either as the raw body or as a multipart "file" field.
func (h *SiteHandlers) importSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.maxImportBytes+1)
	defer body.Close()
	r.Body = body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeInvalidRequest(ctx, w, "multipart upload requires a file field")
			return
		}
		defer file.Close()
		h.finishImport(w, r, file)
		return
	}
	h.finishImport(w, r, body)
}

func (h *SiteHandlers) finishImport(w http.ResponseWriter, r *http.Request, src io.Reader) {
	ctx := r.Context()
	imported, err := h.sites.Import(ctx, projectIDParam(r), src)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sectionListResponse{Items: imported})
}

func (h *SiteHandlers) applyTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.sites == nil {
		writeUnavailable(ctx, w, "site service")
		return
	}
	templateID := strings.TrimSpace(chi.URLParam(r, "templateID"))
	added, err := h.sites.ApplyTemplate(ctx, projectIDParam(r), templateID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sectionListResponse{Items: added})
}

func sectionIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "sectionID"))
}
