package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/espython/website-builder/internal/catalog"
	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/editor"
	"github.com/espython/website-builder/internal/live"
	"github.com/espython/website-builder/internal/platform/httpx"
	"github.com/espython/website-builder/internal/platform/storage"
	"github.com/espython/website-builder/internal/repositories"
	"github.com/espython/website-builder/internal/sections"
	"github.com/espython/website-builder/internal/services"
)

// writeServiceError maps service and store errors onto the JSON error envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, httpx.ErrEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, "request body is required"))
	case errors.Is(err, httpx.ErrBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodePayloadTooLarge, "request body too large"))
	case errors.Is(err, services.ErrProjectNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeProjectNotFound, "project not found"))
	case errors.Is(err, services.ErrNoCurrentProject):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeNoCurrentProject, "no project is selected"))
	case errors.Is(err, sections.ErrSectionNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeSectionNotFound, "section not found"))
	case errors.Is(err, services.ErrDraftNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeDraftNotFound, "no open draft for section"))
	case errors.Is(err, catalog.ErrTemplateNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeTemplateNotFound, "template not found"))
	case errors.Is(err, editor.ErrItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeItemNotFound, err.Error()))
	case errors.Is(err, services.ErrProjectInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error()))
	case errors.Is(err, sections.ErrInvalidSiteDocument), errors.Is(err, sections.ErrDuplicateSectionID):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidSiteDocument, err.Error()))
	case errors.Is(err, domain.ErrUnknownSectionType), errors.Is(err, domain.ErrContentMismatch),
		errors.Is(err, domain.ErrMenuTooDeep):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidContent, err.Error()))
	case errors.Is(err, domain.ErrInvalidPreviewMode):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidPreviewMode, err.Error()))
	case errors.Is(err, editor.ErrInvalidOp), errors.Is(err, editor.ErrUnknownField),
		errors.Is(err, editor.ErrUnknownList), errors.Is(err, editor.ErrIndexOutOfRange):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidOperation, err.Error()))
	case errors.Is(err, editor.ErrEditorClosed):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeDraftClosed, "draft is closed"))
	case errors.Is(err, storage.ErrExportsDisabled):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeExportsDisabled, "export uploads are not configured"))
	case errors.Is(err, services.ErrSiteServiceClosed), errors.Is(err, live.ErrHubClosed), repositories.IsUnavailable(err):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeServiceUnavailable, "service unavailable"))
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeTimeout, "request timed out"))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "internal server error"))
	}
}

func writeInvalidRequest(ctx context.Context, w http.ResponseWriter, message string) {
	httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, message))
}

func writeUnavailable(ctx context.Context, w http.ResponseWriter, name string) {
	httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeServiceUnavailable, name+" unavailable"))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func writeDecodeError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, httpx.ErrEmptyBody) || errors.Is(err, httpx.ErrBodyTooLarge) {
		writeServiceError(ctx, w, err)
		return
	}
	writeInvalidRequest(ctx, w, "invalid JSON payload: "+err.Error())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
