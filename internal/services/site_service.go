package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/platform/storage"
	"github.com/espython/website-builder/internal/repositories"
	"github.com/espython/website-builder/internal/sections"
)

const (
	defaultAutosaveTimeout = 10 * time.Second
	defaultMaxImportBytes  = 4 << 20

	siteLoggerEventHydrated      = "site.hydrated"
	siteLoggerEventAutosaveError = "site.autosave.failed"
	siteLoggerEventAutosaveSkip  = "site.autosave.skipped"
	siteLoggerEventPublishError  = "site.event.publish_failed"
	siteLoggerEventCountError    = "site.section_count.failed"
	siteLoggerEventExported      = "site.exported"
	siteLoggerEventImported      = "site.imported"
)

// ErrSiteServiceClosed is returned once Close has run.
var ErrSiteServiceClosed = errors.New("site service: closed")

// SiteServiceDeps groups constructor parameters for the site service.
type SiteServiceDeps struct {
	Sites           repositories.SiteRepository
	Projects        ProjectService
	Catalog         CatalogService
	Uploader        ExportUploader
	Events          EventPublisher
	Clock           func() time.Time
	SectionIDs      func() string
	ItemIDs         func() string
	StoreLogger     *zap.Logger
	AutosaveTimeout time.Duration
	MaxImportBytes  int
	Logger          Logger
}

type siteEntry struct {
	store       *sections.Store
	saver       *autosaver
	unsubscribe func()
}

type siteService struct {
	sites           repositories.SiteRepository
	projects        ProjectService
	catalog         CatalogService
	uploader        ExportUploader
	events          EventPublisher
	clock           func() time.Time
	sectionIDs      func() string
	itemIDs         func() string
	storeLogger     *zap.Logger
	autosaveTimeout time.Duration
	maxImportBytes  int
	logger          Logger

	mu     sync.Mutex
	stores map[string]*siteEntry
	closed bool
}

var _ SiteService = (*siteService)(nil)

// NewSiteService constructs the site service. Projects, Catalog, Uploader and Events are optional.
func NewSiteService(deps SiteServiceDeps) (SiteService, error) {
	if deps.Sites == nil {
		return nil, errors.New("site service: site repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	timeout := deps.AutosaveTimeout
	if timeout <= 0 {
		timeout = defaultAutosaveTimeout
	}
	maxImport := deps.MaxImportBytes
	if maxImport <= 0 {
		maxImport = defaultMaxImportBytes
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	storeLogger := deps.StoreLogger
	if storeLogger == nil {
		storeLogger = zap.NewNop()
	}
	return &siteService{
		sites:           deps.Sites,
		projects:        deps.Projects,
		catalog:         deps.Catalog,
		uploader:        deps.Uploader,
		events:          deps.Events,
		clock:           func() time.Time { return clock().UTC() },
		sectionIDs:      deps.SectionIDs,
		itemIDs:         deps.ItemIDs,
		storeLogger:     storeLogger,
		autosaveTimeout: timeout,
		maxImportBytes:  maxImport,
		logger:          logger,
		stores:          make(map[string]*siteEntry),
	}, nil
}

// Store returns the project's store, hydrating it from the site repository on first use.
func (s *siteService) Store(ctx context.Context, projectID string) (*sections.Store, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrProjectNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSiteServiceClosed
	}
	if entry, ok := s.stores[projectID]; ok {
		return entry.store, nil
	}

	if s.projects != nil {
		if _, err := s.projects.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
	}

	doc, err := s.sites.Load(ctx, projectID)
	switch {
	case repositories.IsNotFound(err):
		doc = domain.SiteDocument{Sections: []domain.Section{}}
	case err != nil:
		return nil, fmt.Errorf("site service: load %s: %w", projectID, err)
	}

	opts := []sections.Option{
		sections.WithClock(s.clock),
		sections.WithLogger(s.storeLogger.With(zap.String("project_id", projectID))),
		sections.WithSections(doc.Sections),
	}
	if s.sectionIDs != nil {
		opts = append(opts, sections.WithIDGenerator(s.sectionIDs))
	}
	if s.itemIDs != nil {
		opts = append(opts, sections.WithItemIDGenerator(s.itemIDs))
	}
	store, err := sections.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("site service: hydrate %s: %w", projectID, err)
	}

	saver := newAutosaver(s.autosaveTimeout, func(ctx context.Context, snap sections.Snapshot) {
		s.persist(ctx, projectID, snap)
	})
	unsubscribe := store.Subscribe(func(snap sections.Snapshot) {
		if snap.Op == sections.OpSelect {
			return
		}
		saver.enqueue(snap)
	})
	s.stores[projectID] = &siteEntry{store: store, saver: saver, unsubscribe: unsubscribe}
	s.logger(ctx, siteLoggerEventHydrated, map[string]any{"projectId": projectID, "sections": len(doc.Sections)})
	return store, nil
}

func (s *siteService) persist(ctx context.Context, projectID string, snap sections.Snapshot) {
	if s.projects != nil {
		if _, err := s.projects.GetProject(ctx, projectID); errors.Is(err, ErrProjectNotFound) {
			s.logger(ctx, siteLoggerEventAutosaveSkip, map[string]any{"projectId": projectID, "version": snap.Version})
			return
		}
	}
	if err := s.sites.Save(ctx, projectID, domain.SiteDocument{Sections: snap.Sections}); err != nil {
		s.logger(ctx, siteLoggerEventAutosaveError, map[string]any{
			"projectId": projectID,
			"version":   snap.Version,
			"error":     err.Error(),
		})
		return
	}
	if s.projects != nil {
		if err := s.projects.RecordSectionCount(ctx, projectID, len(snap.Sections)); err != nil && !errors.Is(err, ErrProjectNotFound) {
			s.logger(ctx, siteLoggerEventCountError, map[string]any{"projectId": projectID, "error": err.Error()})
		}
	}
	if s.events != nil {
		event := domain.SiteEvent{
			ProjectID:  projectID,
			Operation:  string(snap.Op),
			SectionID:  snap.SectionID,
			Version:    snap.Version,
			Sections:   len(snap.Sections),
			OccurredAt: s.clock(),
		}
		if _, err := s.events.PublishSiteEvent(ctx, event); err != nil {
			s.logger(ctx, siteLoggerEventPublishError, map[string]any{"projectId": projectID, "error": err.Error()})
		}
	}
}

func (s *siteService) Sections(ctx context.Context, projectID string) ([]domain.Section, error) {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return store.Sections(), nil
}

func (s *siteService) Section(ctx context.Context, projectID, sectionID string) (domain.Section, error) {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return domain.Section{}, err
	}
	return store.Section(sectionID)
}

// AddSection appends a section. Nil content starts the section with its sample content.
func (s *siteService) AddSection(ctx context.Context, projectID string, kind domain.SectionType, content domain.Content) (domain.Section, error) {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return domain.Section{}, err
	}
	if content == nil {
		return store.AddSampleSection(kind)
	}
	return store.AddSection(kind, content)
}

func (s *siteService) UpdateSection(ctx context.Context, projectID, sectionID string, content domain.Content) (domain.Section, error) {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return domain.Section{}, err
	}
	return store.UpdateSection(sectionID, content)
}

func (s *siteService) DeleteSection(ctx context.Context, projectID, sectionID string) error {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return err
	}
	return store.DeleteSection(sectionID)
}

func (s *siteService) MoveSectionUp(ctx context.Context, projectID, sectionID string) error {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return err
	}
	return store.MoveSectionUp(sectionID)
}

func (s *siteService) MoveSectionDown(ctx context.Context, projectID, sectionID string) error {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return err
	}
	return store.MoveSectionDown(sectionID)
}

func (s *siteService) ReorderSections(ctx context.Context, projectID, activeID, overID string) error {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return err
	}
	return store.ReorderSections(activeID, overID)
}

func (s *siteService) SelectSection(ctx context.Context, projectID, sectionID string) error {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return err
	}
	return store.SelectSection(sectionID)
}

func (s *siteService) Selected(ctx context.Context, projectID string) (domain.Section, bool, error) {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return domain.Section{}, false, err
	}
	section, ok := store.Selected()
	return section, ok, nil
}

// ApplyTemplate appends the template's sections, each with sample content, in template order.
func (s *siteService) ApplyTemplate(ctx context.Context, projectID, templateID string) ([]domain.Section, error) {
	if s.catalog == nil {
		return nil, errors.New("site service: catalog is not configured")
	}
	tmpl, err := s.catalog.Template(templateID)
	if err != nil {
		return nil, err
	}
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return nil, err
	}
	added := make([]domain.Section, 0, len(tmpl.Sections))
	for _, kind := range tmpl.Sections {
		section, err := store.AddSampleSection(kind)
		if err != nil {
			return added, err
		}
		added = append(added, section)
	}
	return added, nil
}

// Export encodes the collection as a site document, optionally uploading it as well.
func (s *siteService) Export(ctx context.Context, projectID string, opts ExportOptions) (SiteExport, error) {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return SiteExport{}, err
	}
	var buf bytes.Buffer
	if err := store.ExportSite(&buf); err != nil {
		return SiteExport{}, err
	}
	now := s.clock()
	out := SiteExport{
		FileName:   sections.ExportFileName(now),
		Data:       buf.Bytes(),
		ExportedAt: now,
	}
	if opts.Upload {
		if s.uploader == nil {
			return SiteExport{}, storage.ErrExportsDisabled
		}
		obj, err := s.uploader.Upload(ctx, projectID, out.FileName, out.Data)
		if err != nil {
			return SiteExport{}, err
		}
		out.Upload = &obj
	}
	s.logger(ctx, siteLoggerEventExported, map[string]any{
		"projectId": projectID,
		"bytes":     len(out.Data),
		"uploaded":  out.Upload != nil,
	})
	return out, nil
}

// Import replaces the collection with the document read from r. Invalid or oversized
// documents leave the collection unchanged.
func (s *siteService) Import(ctx context.Context, projectID string, r io.Reader) ([]domain.Section, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: empty document", sections.ErrInvalidSiteDocument)
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(s.maxImportBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", sections.ErrInvalidSiteDocument, err)
	}
	if len(data) > s.maxImportBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", sections.ErrInvalidSiteDocument, s.maxImportBytes)
	}
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := store.ImportSite(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	imported := store.Sections()
	s.logger(ctx, siteLoggerEventImported, map[string]any{"projectId": projectID, "sections": len(imported)})
	return imported, nil
}

func (s *siteService) Subscribe(ctx context.Context, projectID string, fn sections.Listener) (func(), error) {
	store, err := s.Store(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return store.Subscribe(fn), nil
}

// Forget drops the cached store without persisting pending changes. It returns once any
// save already in progress has finished.
func (s *siteService) Forget(ctx context.Context, projectID string) {
	s.mu.Lock()
	entry, ok := s.stores[projectID]
	delete(s.stores, projectID)
	s.mu.Unlock()
	if !ok {
		return
	}
	entry.unsubscribe()
	_ = entry.saver.stop(ctx, false)
}

// Close flushes every pending autosave and refuses further use.
func (s *siteService) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	entries := s.stores
	s.stores = make(map[string]*siteEntry)
	s.mu.Unlock()

	var errs []error
	for projectID, entry := range entries {
		entry.unsubscribe()
		if err := entry.saver.stop(ctx, true); err != nil {
			errs = append(errs, fmt.Errorf("site service: flush %s: %w", projectID, err))
		}
	}
	return errors.Join(errs...)
}
