package services

import (
	"context"
	"errors"
	"testing"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/repositories"
)

func TestPreferenceServicePreviewMode(t *testing.T) {
	ctx := context.Background()
	repo, err := repositories.NewPreferenceRepository(repositories.NewMemoryStateStore())
	if err != nil {
		t.Fatalf("NewPreferenceRepository: %v", err)
	}
	svc, err := NewPreferenceService(PreferenceServiceDeps{Preferences: repo})
	if err != nil {
		t.Fatalf("NewPreferenceService: %v", err)
	}

	mode, err := svc.PreviewMode(ctx)
	if err != nil {
		t.Fatalf("PreviewMode: %v", err)
	}
	if mode != domain.DefaultPreviewMode {
		t.Fatalf("expected default mode, got %s", mode)
	}

	mode, err = svc.SetPreviewMode(ctx, " Mobile ")
	if err != nil {
		t.Fatalf("SetPreviewMode: %v", err)
	}
	if mode != domain.PreviewModeMobile {
		t.Fatalf("expected mobile, got %s", mode)
	}
	if mode, _ = svc.PreviewMode(ctx); mode != domain.PreviewModeMobile {
		t.Fatalf("expected persisted mobile, got %s", mode)
	}

	if _, err := svc.SetPreviewMode(ctx, "watch"); !errors.Is(err, domain.ErrInvalidPreviewMode) {
		t.Fatalf("expected invalid mode, got %v", err)
	}
	if mode, _ = svc.PreviewMode(ctx); mode != domain.PreviewModeMobile {
		t.Fatalf("invalid mode must not be stored, got %s", mode)
	}
}
