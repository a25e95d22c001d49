package services

import (
	"context"
	"io"
	"time"

	"github.com/espython/website-builder/internal/catalog"
	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/editor"
	"github.com/espython/website-builder/internal/platform/storage"
	"github.com/espython/website-builder/internal/sections"
)

// Logger is the structured logging hook services report notable events through.
type Logger func(ctx context.Context, event string, fields map[string]any)

func noopLogger(context.Context, string, map[string]any) {}

// ProjectService manages the registry of pages and the current-project pointer.
type ProjectService interface {
	ListProjects(ctx context.Context) (domain.ProjectState, error)
	CreateProject(ctx context.Context, cmd CreateProjectCommand) (domain.ProjectSummary, error)
	GetProject(ctx context.Context, projectID string) (domain.ProjectSummary, error)
	UpdateProject(ctx context.Context, cmd UpdateProjectCommand) (domain.ProjectSummary, error)
	DeleteProject(ctx context.Context, projectID string) error
	SetCurrentProject(ctx context.Context, projectID string) (domain.ProjectSummary, error)
	CurrentProject(ctx context.Context) (domain.ProjectSummary, error)
	RecordSectionCount(ctx context.Context, projectID string, count int) error
}

// SiteService exposes the section store of each project.
type SiteService interface {
	Store(ctx context.Context, projectID string) (*sections.Store, error)
	Sections(ctx context.Context, projectID string) ([]domain.Section, error)
	Section(ctx context.Context, projectID, sectionID string) (domain.Section, error)
	AddSection(ctx context.Context, projectID string, kind domain.SectionType, content domain.Content) (domain.Section, error)
	UpdateSection(ctx context.Context, projectID, sectionID string, content domain.Content) (domain.Section, error)
	DeleteSection(ctx context.Context, projectID, sectionID string) error
	MoveSectionUp(ctx context.Context, projectID, sectionID string) error
	MoveSectionDown(ctx context.Context, projectID, sectionID string) error
	ReorderSections(ctx context.Context, projectID, activeID, overID string) error
	SelectSection(ctx context.Context, projectID, sectionID string) error
	Selected(ctx context.Context, projectID string) (domain.Section, bool, error)
	ApplyTemplate(ctx context.Context, projectID, templateID string) ([]domain.Section, error)
	Export(ctx context.Context, projectID string, opts ExportOptions) (SiteExport, error)
	Import(ctx context.Context, projectID string, r io.Reader) ([]domain.Section, error)
	Subscribe(ctx context.Context, projectID string, fn sections.Listener) (func(), error)
	Forget(ctx context.Context, projectID string)
	Close(ctx context.Context) error
}

// EditorService keeps one draft session per edited section.
type EditorService interface {
	Open(ctx context.Context, projectID, sectionID string) (Draft, error)
	Draft(ctx context.Context, projectID, sectionID string) (Draft, error)
	Apply(ctx context.Context, projectID, sectionID string, ops ...editor.Op) (Draft, error)
	SetContent(ctx context.Context, projectID, sectionID string, content domain.Content) (Draft, error)
	Flush(ctx context.Context, projectID, sectionID string) (Draft, error)
	SaveAndClose(ctx context.Context, projectID, sectionID string) error
	Close(ctx context.Context, projectID, sectionID string) error
	CloseProject(ctx context.Context, projectID string) error
	CloseAll(ctx context.Context) error
}

// PreferenceService reads and writes editor preferences.
type PreferenceService interface {
	PreviewMode(ctx context.Context) (domain.PreviewMode, error)
	SetPreviewMode(ctx context.Context, mode domain.PreviewMode) (domain.PreviewMode, error)
}

// SystemService reports service health.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.SystemHealthReport, error)
}

// CatalogService exposes the palette and starter templates.
type CatalogService interface {
	Palette() []catalog.PaletteEntry
	Templates() []catalog.Template
	Template(id string) (catalog.Template, error)
}

// ExportUploader stores exported documents remotely.
type ExportUploader interface {
	Upload(ctx context.Context, projectID, fileName string, data []byte) (storage.ExportObject, error)
}

// EventPublisher announces committed site changes.
type EventPublisher interface {
	PublishSiteEvent(ctx context.Context, event domain.SiteEvent) (string, error)
}

// CreateProjectCommand carries the fields for a new project.
type CreateProjectCommand struct {
	Name        string
	Description string
	Locale      string
}

// UpdateProjectCommand patches project metadata. Nil fields are left unchanged.
type UpdateProjectCommand struct {
	ProjectID   string
	Name        *string
	Description *string
	Locale      *string
}

// ExportOptions controls Export.
type ExportOptions struct {
	Upload bool
}

// SiteExport is an encoded site document ready for download.
type SiteExport struct {
	FileName   string
	Data       []byte
	ExportedAt time.Time
	Upload     *storage.ExportObject
}

// Draft is the externally visible state of an editor session.
type Draft struct {
	ProjectID string             `json:"projectId"`
	SectionID string             `json:"sectionId"`
	Kind      domain.SectionType `json:"type"`
	Content   domain.Content     `json:"content"`
	Dirty     bool               `json:"dirty"`
	Commits   int                `json:"commits"`
	Closed    bool               `json:"closed"`
}
