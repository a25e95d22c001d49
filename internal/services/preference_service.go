package services

import (
	"context"
	"errors"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/repositories"
)

// PreferenceServiceDeps groups constructor parameters for the preference service.
type PreferenceServiceDeps struct {
	Preferences repositories.PreferenceRepository
}

type preferenceService struct {
	repo repositories.PreferenceRepository
}

var _ PreferenceService = (*preferenceService)(nil)

// NewPreferenceService constructs the preference service.
func NewPreferenceService(deps PreferenceServiceDeps) (PreferenceService, error) {
	if deps.Preferences == nil {
		return nil, errors.New("preference service: preference repository is required")
	}
	return &preferenceService{repo: deps.Preferences}, nil
}

func (s *preferenceService) PreviewMode(ctx context.Context) (domain.PreviewMode, error) {
	return s.repo.PreviewMode(ctx)
}

func (s *preferenceService) SetPreviewMode(ctx context.Context, mode domain.PreviewMode) (domain.PreviewMode, error) {
	parsed, err := domain.ParsePreviewMode(string(mode))
	if err != nil {
		return "", err
	}
	if err := s.repo.SetPreviewMode(ctx, parsed); err != nil {
		return "", err
	}
	return parsed, nil
}
