package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/espython/website-builder/internal/domain"
)

func TestSiteRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	repo, err := NewSiteRepository(store)
	if err != nil {
		t.Fatalf("NewSiteRepository: %v", err)
	}

	if _, err := repo.Load(ctx, "prj_1"); !IsNotFound(err) {
		t.Fatalf("expected not found before save, got %v", err)
	}

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	doc := domain.SiteDocument{Sections: []domain.Section{
		{ID: "sec_1", Type: domain.SectionTypeText, Content: domain.TextContent{Content: "<p>hi</p>", Alignment: "left"}, CreatedAt: created, UpdatedAt: created},
		{ID: "sec_2", Type: domain.SectionTypeHeader, Content: domain.HeaderContent{LogoText: "Brand", MenuItems: []domain.MenuItem{{ID: "itm_1", Label: "Home", Link: "#"}}}, CreatedAt: created, UpdatedAt: created},
	}}
	if err := repo.Save(ctx, "prj_1", doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := repo.Load(ctx, "prj_1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(doc, loaded); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}

	if _, err := store.Get(ctx, "website-builder-storage/prj_1"); err != nil {
		t.Fatalf("expected value under named key: %v", err)
	}

	if err := repo.Delete(ctx, "prj_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Load(ctx, "prj_1"); !IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestSiteRepositoryCorruptValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	if _, err := store.Put(ctx, SiteKey("prj_1"), []byte("not json")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	repo, _ := NewSiteRepository(store)
	if _, err := repo.Load(ctx, "prj_1"); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}
}

func TestPreferenceRepositoryDefaultsAndPersists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	repo, _ := NewPreferenceRepository(store)

	mode, err := repo.PreviewMode(ctx)
	if err != nil {
		t.Fatalf("PreviewMode: %v", err)
	}
	if mode != domain.DefaultPreviewMode {
		t.Fatalf("expected default mode, got %s", mode)
	}

	if err := repo.SetPreviewMode(ctx, domain.PreviewModeMobile); err != nil {
		t.Fatalf("SetPreviewMode: %v", err)
	}
	mode, err = repo.PreviewMode(ctx)
	if err != nil {
		t.Fatalf("PreviewMode: %v", err)
	}
	if mode != domain.PreviewModeMobile {
		t.Fatalf("expected mobile, got %s", mode)
	}

	if err := repo.SetPreviewMode(ctx, domain.PreviewMode("watch")); !errors.Is(err, domain.ErrInvalidPreviewMode) {
		t.Fatalf("expected ErrInvalidPreviewMode, got %v", err)
	}
}

func TestProjectStateRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := NewProjectStateRepository(NewMemoryStateStore())

	empty, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(empty.Projects) != 0 || empty.CurrentProjectID != "" {
		t.Fatalf("expected empty state, got %#v", empty)
	}

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	state := domain.ProjectState{
		CurrentProjectID: "prj_1",
		Projects: []domain.ProjectSummary{{
			Project:      domain.Project{ID: "prj_1", Name: "Landing", Locale: "en", CreatedAt: now, UpdatedAt: now},
			SectionCount: 3,
		}},
	}
	if err := repo.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(state, loaded); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}
