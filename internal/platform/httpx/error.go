package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/espython/website-builder/internal/platform/requestctx"
)

// Code identifies an API error condition. Clients switch on it; messages are for humans.
type Code string

const (
	CodeInvalidRequest      Code = "invalid_request"
	CodePayloadTooLarge     Code = "payload_too_large"
	CodeInvalidContent      Code = "invalid_content"
	CodeInvalidSiteDocument Code = "invalid_site_document"
	CodeInvalidOperation    Code = "invalid_operation"
	CodeInvalidPreviewMode  Code = "invalid_preview_mode"

	CodeRouteNotFound    Code = "route_not_found"
	CodeProjectNotFound  Code = "project_not_found"
	CodeNoCurrentProject Code = "no_current_project"
	CodeSectionNotFound  Code = "section_not_found"
	CodeItemNotFound     Code = "item_not_found"
	CodeDraftNotFound    Code = "draft_not_found"
	CodeTemplateNotFound Code = "template_not_found"

	CodeMethodNotAllowed Code = "method_not_allowed"
	CodeDraftClosed      Code = "draft_closed"

	CodeInternal           Code = "internal_error"
	CodeNotImplemented     Code = "not_implemented"
	CodeServiceUnavailable Code = "service_unavailable"
	CodeExportsDisabled    Code = "exports_disabled"
	CodeTimeout            Code = "timeout"
)

var codeStatus = map[Code]int{
	CodeInvalidRequest:      http.StatusBadRequest,
	CodePayloadTooLarge:     http.StatusRequestEntityTooLarge,
	CodeInvalidContent:      http.StatusBadRequest,
	CodeInvalidSiteDocument: http.StatusBadRequest,
	CodeInvalidOperation:    http.StatusBadRequest,
	CodeInvalidPreviewMode:  http.StatusBadRequest,
	CodeRouteNotFound:       http.StatusNotFound,
	CodeProjectNotFound:     http.StatusNotFound,
	CodeNoCurrentProject:    http.StatusNotFound,
	CodeSectionNotFound:     http.StatusNotFound,
	CodeItemNotFound:        http.StatusNotFound,
	CodeDraftNotFound:       http.StatusNotFound,
	CodeTemplateNotFound:    http.StatusNotFound,
	CodeMethodNotAllowed:    http.StatusMethodNotAllowed,
	CodeDraftClosed:         http.StatusConflict,
	CodeInternal:            http.StatusInternalServerError,
	CodeNotImplemented:      http.StatusNotImplemented,
	CodeServiceUnavailable:  http.StatusServiceUnavailable,
	CodeExportsDisabled:     http.StatusServiceUnavailable,
	CodeTimeout:             http.StatusGatewayTimeout,
}

// Status returns the HTTP status sent with the code. Unknown codes are server errors.
func (c Code) Status() int {
	if status, ok := codeStatus[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is the JSON error envelope returned by the API.
type Error struct {
	Code    Code
	Message string
}

// NewError builds an envelope; the status follows from the code.
func NewError(code Code, message string) Error {
	return Error{Code: Code(sanitize(string(code), 80)), Message: sanitize(message, 512)}
}

// Status returns the HTTP status for the envelope.
func (e Error) Status() int { return e.Code.Status() }

// WriteError writes the envelope, tagging it with the request and trace ids from ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status()
	payload := map[string]any{
		"error":   err.Code,
		"message": err.Message,
		"status":  status,
	}
	if requestID := sanitize(middleware.GetReqID(ctx), 80); requestID != "" {
		payload["request_id"] = requestID
	}
	if traceID := sanitize(requestctx.TraceID(ctx), 64); traceID != "" {
		payload["trace_id"] = traceID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func sanitize(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
