package services

import (
	"context"
	"errors"
	"testing"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/repositories"
)

func newProjectService(t *testing.T) (ProjectService, repositories.SiteRepository) {
	t.Helper()
	store := repositories.NewMemoryStateStore()
	sites, _ := repositories.NewSiteRepository(store)
	projectsRepo, _ := repositories.NewProjectStateRepository(store)
	svc, err := NewProjectService(ProjectServiceDeps{
		Projects:      projectsRepo,
		Sites:         sites,
		Clock:         newFixedClock().Now,
		IDGenerator:   sequence(""),
		DefaultLocale: "en_US",
	})
	if err != nil {
		t.Fatalf("NewProjectService: %v", err)
	}
	return svc, sites
}

func TestProjectServiceCreateMakesFirstProjectCurrent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProjectService(t)

	first, err := svc.CreateProject(ctx, CreateProjectCommand{Name: "  Landing  "})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if first.ID != "prj_1" {
		t.Fatalf("expected prefixed id prj_1, got %s", first.ID)
	}
	if first.Name != "Landing" {
		t.Fatalf("expected trimmed name, got %q", first.Name)
	}
	if first.Locale != "en-US" {
		t.Fatalf("expected default locale en-US, got %s", first.Locale)
	}

	second, err := svc.CreateProject(ctx, CreateProjectCommand{Name: "Docs", Locale: "ja_JP"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if second.Locale != "ja-JP" {
		t.Fatalf("expected canonical locale ja-JP, got %s", second.Locale)
	}

	current, err := svc.CurrentProject(ctx)
	if err != nil {
		t.Fatalf("CurrentProject: %v", err)
	}
	if current.ID != first.ID {
		t.Fatalf("expected first project to stay current, got %s", current.ID)
	}
}

func TestProjectServiceValidatesInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProjectService(t)

	if _, err := svc.CreateProject(ctx, CreateProjectCommand{Name: " "}); !errors.Is(err, ErrProjectInvalidInput) {
		t.Fatalf("expected invalid input for blank name, got %v", err)
	}
	if _, err := svc.CreateProject(ctx, CreateProjectCommand{Name: "x", Locale: "??"}); !errors.Is(err, ErrProjectInvalidInput) {
		t.Fatalf("expected invalid input for bad locale, got %v", err)
	}
}

func TestProjectServiceUpdateAndCurrent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProjectService(t)
	a, _ := svc.CreateProject(ctx, CreateProjectCommand{Name: "A"})
	b, _ := svc.CreateProject(ctx, CreateProjectCommand{Name: "B"})

	name := "Renamed"
	updated, err := svc.UpdateProject(ctx, UpdateProjectCommand{ProjectID: a.ID, Name: &name})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if updated.Name != "Renamed" || !updated.UpdatedAt.After(a.UpdatedAt) {
		t.Fatalf("unexpected update result %#v", updated)
	}

	if _, err := svc.SetCurrentProject(ctx, b.ID); err != nil {
		t.Fatalf("SetCurrentProject: %v", err)
	}
	current, _ := svc.CurrentProject(ctx)
	if current.ID != b.ID {
		t.Fatalf("expected %s current, got %s", b.ID, current.ID)
	}

	if _, err := svc.SetCurrentProject(ctx, "prj_missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.UpdateProject(ctx, UpdateProjectCommand{ProjectID: "prj_missing", Name: &name}); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProjectServiceDeleteRemovesSectionsAndMovesCurrent(t *testing.T) {
	ctx := context.Background()
	svc, sites := newProjectService(t)
	a, _ := svc.CreateProject(ctx, CreateProjectCommand{Name: "A"})
	b, _ := svc.CreateProject(ctx, CreateProjectCommand{Name: "B"})

	if err := sites.Save(ctx, a.ID, domain.SiteDocument{Sections: []domain.Section{}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := svc.DeleteProject(ctx, a.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := sites.Load(ctx, a.ID); !repositories.IsNotFound(err) {
		t.Fatalf("expected site storage removed, got %v", err)
	}
	current, err := svc.CurrentProject(ctx)
	if err != nil {
		t.Fatalf("CurrentProject: %v", err)
	}
	if current.ID != b.ID {
		t.Fatalf("expected %s to become current, got %s", b.ID, current.ID)
	}

	if err := svc.DeleteProject(ctx, b.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := svc.CurrentProject(ctx); !errors.Is(err, ErrNoCurrentProject) {
		t.Fatalf("expected no current project, got %v", err)
	}
	if err := svc.DeleteProject(ctx, b.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestProjectServiceRecordSectionCount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProjectService(t)
	a, _ := svc.CreateProject(ctx, CreateProjectCommand{Name: "A"})

	if err := svc.RecordSectionCount(ctx, a.ID, 4); err != nil {
		t.Fatalf("RecordSectionCount: %v", err)
	}
	got, err := svc.GetProject(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.SectionCount != 4 {
		t.Fatalf("expected count 4, got %d", got.SectionCount)
	}
}
