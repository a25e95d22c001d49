package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPreviewMode indicates a preview mode outside desktop, tablet and mobile.
var ErrInvalidPreviewMode = errors.New("preview: invalid mode")

// Project groups one page with its metadata.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Locale      string    `json:"locale"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProjectSummary is the project listing entry persisted alongside the current project pointer.
type ProjectSummary struct {
	Project
	SectionCount int `json:"sectionCount"`
}

// ProjectState is the persisted project metadata document.
type ProjectState struct {
	CurrentProjectID string           `json:"currentProjectId"`
	Projects         []ProjectSummary `json:"projects"`
}

// Find returns the summary with the given id.
func (s ProjectState) Find(id string) (ProjectSummary, int, bool) {
	for i, summary := range s.Projects {
		if summary.ID == id {
			return summary, i, true
		}
	}
	return ProjectSummary{}, -1, false
}

// PreviewMode selects the viewport used to preview a page.
type PreviewMode string

const (
	PreviewModeDesktop PreviewMode = "desktop"
	PreviewModeTablet  PreviewMode = "tablet"
	PreviewModeMobile  PreviewMode = "mobile"
)

// DefaultPreviewMode is used until a mode is persisted.
const DefaultPreviewMode = PreviewModeDesktop

// ParsePreviewMode normalises raw input into a preview mode.
func ParsePreviewMode(raw string) (PreviewMode, error) {
	mode := PreviewMode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case PreviewModeDesktop, PreviewModeTablet, PreviewModeMobile:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPreviewMode, raw)
	}
}

// Width returns the viewport width in pixels for the mode.
func (m PreviewMode) Width() int {
	switch m {
	case PreviewModeTablet:
		return 768
	case PreviewModeMobile:
		return 375
	default:
		return 1280
	}
}
