package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/repositories"
)

const (
	defaultProjectLocale = "en"
	maxProjectNameLength = 120
	maxProjectDescLength = 500

	projectLoggerEventCreated = "project.created"
	projectLoggerEventDeleted = "project.deleted"
)

var (
	// ErrProjectNotFound indicates an unknown project id.
	ErrProjectNotFound = errors.New("project: not found")
	// ErrProjectInvalidInput indicates a rejected create or update command.
	ErrProjectInvalidInput = errors.New("project: invalid input")
	// ErrNoCurrentProject indicates that no project has been activated yet.
	ErrNoCurrentProject = errors.New("project: no current project")
)

// ProjectServiceDeps groups constructor parameters for the project service.
type ProjectServiceDeps struct {
	Projects      repositories.ProjectStateRepository
	Sites         repositories.SiteRepository
	Clock         func() time.Time
	IDGenerator   func() string
	DefaultLocale string
	Logger        Logger
}

type projectService struct {
	projects      repositories.ProjectStateRepository
	sites         repositories.SiteRepository
	clock         func() time.Time
	newID         func() string
	defaultLocale string
	logger        Logger

	// mu serialises read-modify-write cycles on the registry key.
	mu sync.Mutex
}

var _ ProjectService = (*projectService)(nil)

// NewProjectService constructs the project registry service.
func NewProjectService(deps ProjectServiceDeps) (ProjectService, error) {
	if deps.Projects == nil {
		return nil, errors.New("project service: project repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = domain.NewProjectID
	}
	locale, err := canonicaliseLocale(deps.DefaultLocale)
	if err != nil || locale == "" {
		locale = defaultProjectLocale
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &projectService{
		projects:      deps.Projects,
		sites:         deps.Sites,
		clock:         func() time.Time { return clock().UTC() },
		newID:         newID,
		defaultLocale: locale,
		logger:        logger,
	}, nil
}

func (s *projectService) ListProjects(ctx context.Context) (domain.ProjectState, error) {
	return s.projects.Load(ctx)
}

// CreateProject registers a project. The first project becomes current.
func (s *projectService) CreateProject(ctx context.Context, cmd CreateProjectCommand) (domain.ProjectSummary, error) {
	name, err := validateProjectName(cmd.Name)
	if err != nil {
		return domain.ProjectSummary{}, err
	}
	desc, err := validateProjectDescription(cmd.Description)
	if err != nil {
		return domain.ProjectSummary{}, err
	}
	locale, err := s.resolveLocale(cmd.Locale)
	if err != nil {
		return domain.ProjectSummary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.projects.Load(ctx)
	if err != nil {
		return domain.ProjectSummary{}, err
	}
	now := s.clock()
	summary := domain.ProjectSummary{Project: domain.Project{
		ID:          domain.EnsurePrefix("prj_", s.newID()),
		Name:        name,
		Description: desc,
		Locale:      locale,
		CreatedAt:   now,
		UpdatedAt:   now,
	}}
	state.Projects = append(state.Projects, summary)
	if state.CurrentProjectID == "" {
		state.CurrentProjectID = summary.ID
	}
	if err := s.projects.Save(ctx, state); err != nil {
		return domain.ProjectSummary{}, err
	}
	s.logger(ctx, projectLoggerEventCreated, map[string]any{"projectId": summary.ID})
	return summary, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID string) (domain.ProjectSummary, error) {
	state, err := s.projects.Load(ctx)
	if err != nil {
		return domain.ProjectSummary{}, err
	}
	summary, _, ok := state.Find(strings.TrimSpace(projectID))
	if !ok {
		return domain.ProjectSummary{}, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	return summary, nil
}

func (s *projectService) UpdateProject(ctx context.Context, cmd UpdateProjectCommand) (domain.ProjectSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.projects.Load(ctx)
	if err != nil {
		return domain.ProjectSummary{}, err
	}
	summary, idx, ok := state.Find(strings.TrimSpace(cmd.ProjectID))
	if !ok {
		return domain.ProjectSummary{}, fmt.Errorf("%w: %s", ErrProjectNotFound, cmd.ProjectID)
	}
	if cmd.Name != nil {
		if summary.Name, err = validateProjectName(*cmd.Name); err != nil {
			return domain.ProjectSummary{}, err
		}
	}
	if cmd.Description != nil {
		if summary.Description, err = validateProjectDescription(*cmd.Description); err != nil {
			return domain.ProjectSummary{}, err
		}
	}
	if cmd.Locale != nil {
		if summary.Locale, err = s.resolveLocale(*cmd.Locale); err != nil {
			return domain.ProjectSummary{}, err
		}
	}
	summary.UpdatedAt = s.clock()
	state.Projects[idx] = summary
	if err := s.projects.Save(ctx, state); err != nil {
		return domain.ProjectSummary{}, err
	}
	return summary, nil
}

// DeleteProject removes the project and its persisted sections. When the current project is
// deleted, the first remaining project becomes current.
func (s *projectService) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.projects.Load(ctx)
	if err != nil {
		return err
	}
	_, idx, ok := state.Find(strings.TrimSpace(projectID))
	if !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	state.Projects = slices.Delete(state.Projects, idx, idx+1)
	if state.CurrentProjectID == projectID {
		state.CurrentProjectID = ""
		if len(state.Projects) > 0 {
			state.CurrentProjectID = state.Projects[0].ID
		}
	}
	if err := s.projects.Save(ctx, state); err != nil {
		return err
	}
	if s.sites != nil {
		if err := s.sites.Delete(ctx, projectID); err != nil && !repositories.IsNotFound(err) {
			return fmt.Errorf("project service: delete sections of %s: %w", projectID, err)
		}
	}
	s.logger(ctx, projectLoggerEventDeleted, map[string]any{"projectId": projectID})
	return nil
}

func (s *projectService) SetCurrentProject(ctx context.Context, projectID string) (domain.ProjectSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.projects.Load(ctx)
	if err != nil {
		return domain.ProjectSummary{}, err
	}
	summary, _, ok := state.Find(strings.TrimSpace(projectID))
	if !ok {
		return domain.ProjectSummary{}, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	if state.CurrentProjectID == summary.ID {
		return summary, nil
	}
	state.CurrentProjectID = summary.ID
	if err := s.projects.Save(ctx, state); err != nil {
		return domain.ProjectSummary{}, err
	}
	return summary, nil
}

func (s *projectService) CurrentProject(ctx context.Context) (domain.ProjectSummary, error) {
	state, err := s.projects.Load(ctx)
	if err != nil {
		return domain.ProjectSummary{}, err
	}
	if state.CurrentProjectID == "" {
		return domain.ProjectSummary{}, ErrNoCurrentProject
	}
	summary, _, ok := state.Find(state.CurrentProjectID)
	if !ok {
		return domain.ProjectSummary{}, fmt.Errorf("%w: %s", ErrProjectNotFound, state.CurrentProjectID)
	}
	return summary, nil
}

// RecordSectionCount refreshes the cached section count shown in project listings.
func (s *projectService) RecordSectionCount(ctx context.Context, projectID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.projects.Load(ctx)
	if err != nil {
		return err
	}
	summary, idx, ok := state.Find(projectID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	if summary.SectionCount == count {
		return nil
	}
	summary.SectionCount = count
	summary.UpdatedAt = s.clock()
	state.Projects[idx] = summary
	return s.projects.Save(ctx, state)
}

func (s *projectService) resolveLocale(raw string) (string, error) {
	locale, err := canonicaliseLocale(raw)
	if err != nil {
		return "", err
	}
	if locale == "" {
		return s.defaultLocale, nil
	}
	return locale, nil
}

func validateProjectName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrProjectInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxProjectNameLength {
		return "", fmt.Errorf("%w: name must be at most %d characters", ErrProjectInvalidInput, maxProjectNameLength)
	}
	return name, nil
}

func validateProjectDescription(raw string) (string, error) {
	desc := strings.TrimSpace(raw)
	if utf8.RuneCountInString(desc) > maxProjectDescLength {
		return "", fmt.Errorf("%w: description must be at most %d characters", ErrProjectInvalidInput, maxProjectDescLength)
	}
	return desc, nil
}

func canonicaliseLocale(tag string) (string, error) {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if tag == "" {
		return "", nil
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return "", errors.Join(fmt.Errorf("%w: invalid locale %q", ErrProjectInvalidInput, tag), err)
	}
	return parsed.String(), nil
}
