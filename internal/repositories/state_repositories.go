package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/espython/website-builder/internal/domain"
)

// ErrCorruptState indicates a persisted value that no longer decodes.
var ErrCorruptState = errors.New("repository: corrupt persisted state")

type siteRepository struct {
	store StateStore
}

// NewSiteRepository stores each project's collection under SiteKey(projectID).
func NewSiteRepository(store StateStore) (SiteRepository, error) {
	if store == nil {
		return nil, errors.New("site repository: state store is required")
	}
	return &siteRepository{store: store}, nil
}

// persistedSite mirrors the on-disk envelope. The collection lives under "state.sections".
type persistedSite struct {
	State   domain.SiteDocument `json:"state"`
	Version int                 `json:"version"`
}

const persistedSiteVersion = 1

func (r *siteRepository) Load(ctx context.Context, projectID string) (domain.SiteDocument, error) {
	key, err := siteKey(projectID)
	if err != nil {
		return domain.SiteDocument{}, err
	}
	record, err := r.store.Get(ctx, key)
	if err != nil {
		return domain.SiteDocument{}, err
	}
	var payload persistedSite
	if err := json.Unmarshal(record.Value, &payload); err != nil {
		return domain.SiteDocument{}, fmt.Errorf("%w: %s: %w", ErrCorruptState, key, err)
	}
	if payload.State.Sections == nil {
		payload.State.Sections = []domain.Section{}
	}
	return payload.State, nil
}

func (r *siteRepository) Save(ctx context.Context, projectID string, doc domain.SiteDocument) error {
	key, err := siteKey(projectID)
	if err != nil {
		return err
	}
	if doc.Sections == nil {
		doc.Sections = []domain.Section{}
	}
	data, err := json.Marshal(persistedSite{State: doc, Version: persistedSiteVersion})
	if err != nil {
		return fmt.Errorf("site repository: encode %s: %w", key, err)
	}
	_, err = r.store.Put(ctx, key, data)
	return err
}

func (r *siteRepository) Delete(ctx context.Context, projectID string) error {
	key, err := siteKey(projectID)
	if err != nil {
		return err
	}
	return r.store.Delete(ctx, key)
}

func siteKey(projectID string) (string, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return "", errors.New("site repository: project id is required")
	}
	return SiteKey(projectID), nil
}

type preferenceRepository struct {
	store StateStore
}

// NewPreferenceRepository stores the preview mode under PreviewModeKey.
func NewPreferenceRepository(store StateStore) (PreferenceRepository, error) {
	if store == nil {
		return nil, errors.New("preference repository: state store is required")
	}
	return &preferenceRepository{store: store}, nil
}

// PreviewMode returns the persisted mode, or the default when none has been stored.
func (r *preferenceRepository) PreviewMode(ctx context.Context) (domain.PreviewMode, error) {
	record, err := r.store.Get(ctx, PreviewModeKey)
	if err != nil {
		if IsNotFound(err) {
			return domain.DefaultPreviewMode, nil
		}
		return "", err
	}
	raw := string(bytes.Trim(bytes.TrimSpace(record.Value), `"`))
	mode, err := domain.ParsePreviewMode(raw)
	if err != nil {
		return domain.DefaultPreviewMode, nil
	}
	return mode, nil
}

func (r *preferenceRepository) SetPreviewMode(ctx context.Context, mode domain.PreviewMode) error {
	parsed, err := domain.ParsePreviewMode(string(mode))
	if err != nil {
		return err
	}
	_, err = r.store.Put(ctx, PreviewModeKey, []byte(parsed))
	return err
}

type projectStateRepository struct {
	store StateStore
}

// NewProjectStateRepository stores the project registry under ProjectStateKey.
func NewProjectStateRepository(store StateStore) (ProjectStateRepository, error) {
	if store == nil {
		return nil, errors.New("project repository: state store is required")
	}
	return &projectStateRepository{store: store}, nil
}

type persistedProjects struct {
	State   domain.ProjectState `json:"state"`
	Version int                 `json:"version"`
}

// Load returns an empty registry when nothing has been stored yet.
func (r *projectStateRepository) Load(ctx context.Context) (domain.ProjectState, error) {
	record, err := r.store.Get(ctx, ProjectStateKey)
	if err != nil {
		if IsNotFound(err) {
			return domain.ProjectState{Projects: []domain.ProjectSummary{}}, nil
		}
		return domain.ProjectState{}, err
	}
	var payload persistedProjects
	if err := json.Unmarshal(record.Value, &payload); err != nil {
		return domain.ProjectState{}, fmt.Errorf("%w: %s: %w", ErrCorruptState, ProjectStateKey, err)
	}
	if payload.State.Projects == nil {
		payload.State.Projects = []domain.ProjectSummary{}
	}
	return payload.State, nil
}

func (r *projectStateRepository) Save(ctx context.Context, state domain.ProjectState) error {
	if state.Projects == nil {
		state.Projects = []domain.ProjectSummary{}
	}
	data, err := json.Marshal(persistedProjects{State: state, Version: persistedSiteVersion})
	if err != nil {
		return fmt.Errorf("project repository: encode: %w", err)
	}
	_, err = r.store.Put(ctx, ProjectStateKey, data)
	return err
}
