package repositories

import (
	"context"
	"time"

	"github.com/espython/website-builder/internal/domain"
)

// Named keys under which builder state is persisted.
const (
	SiteKeyPrefix   = "website-builder-storage"
	PreviewModeKey  = "preview-mode"
	ProjectStateKey = "project-storage"
)

// SiteKey returns the state key holding a project's section collection.
func SiteKey(projectID string) string {
	return SiteKeyPrefix + "/" + projectID
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// StateRecord is one persisted value.
type StateRecord struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// StateStore is a key/value store for serialised builder state.
type StateStore interface {
	Get(ctx context.Context, key string) (StateRecord, error)
	Put(ctx context.Context, key string, value []byte) (StateRecord, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// SiteRepository persists the ordered section collection of a project.
type SiteRepository interface {
	Load(ctx context.Context, projectID string) (domain.SiteDocument, error)
	Save(ctx context.Context, projectID string, doc domain.SiteDocument) error
	Delete(ctx context.Context, projectID string) error
}

// PreferenceRepository persists editor preferences.
type PreferenceRepository interface {
	PreviewMode(ctx context.Context) (domain.PreviewMode, error)
	SetPreviewMode(ctx context.Context, mode domain.PreviewMode) error
}

// ProjectStateRepository persists the project registry.
type ProjectStateRepository interface {
	Load(ctx context.Context) (domain.ProjectState, error)
	Save(ctx context.Context, state domain.ProjectState) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// IsNotFound reports whether err is a repository not-found failure.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return asRepositoryError(err, &repoErr) && repoErr.IsNotFound()
}

// IsUnavailable reports whether err signals an unreachable backend.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return asRepositoryError(err, &repoErr) && repoErr.IsUnavailable()
}
