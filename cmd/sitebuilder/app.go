package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/espython/website-builder/internal/catalog"
	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/platform/config"
	"github.com/espython/website-builder/internal/platform/events"
	pfirestore "github.com/espython/website-builder/internal/platform/firestore"
	"github.com/espython/website-builder/internal/platform/observability"
	"github.com/espython/website-builder/internal/platform/storage"
	"github.com/espython/website-builder/internal/render"
	"github.com/espython/website-builder/internal/repositories"
	"github.com/espython/website-builder/internal/services"
)

// app owns every long lived collaborator of one process.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	build  services.BuildInfo

	store     repositories.StateStore
	provider  *pfirestore.Provider
	gcsClient *gcs.Client
	psClient  *pubsub.Client
	publisher *events.PubSubPublisher
	topic     *pubsub.Topic

	catalog  *catalog.Catalog
	renderer *render.Renderer
	projects services.ProjectService
	sites    services.SiteService
	editors  services.EditorService
	prefs    services.PreferenceService
	system   services.SystemService
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger, build services.BuildInfo) (_ *app, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &app{cfg: cfg, logger: logger, build: build}
	defer func() {
		if err != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.close(closeCtx)
		}
	}()

	if err := a.openStateStore(ctx); err != nil {
		return nil, err
	}
	siteRepo, err := repositories.NewSiteRepository(a.store)
	if err != nil {
		return nil, err
	}
	projectRepo, err := repositories.NewProjectStateRepository(a.store)
	if err != nil {
		return nil, err
	}
	prefRepo, err := repositories.NewPreferenceRepository(a.store)
	if err != nil {
		return nil, err
	}

	a.catalog, err = catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	a.renderer, err = render.New(render.WithDefaultLanguage(language.Make(cfg.Builder.DefaultLocale)))
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	siteDeps := services.SiteServiceDeps{
		Sites:           siteRepo,
		Catalog:         a.catalog,
		StoreLogger:     logger.Named("sections"),
		AutosaveTimeout: cfg.Editor.AutosaveTimeout,
		MaxImportBytes:  cfg.Builder.MaxImportBytes,
		Logger:          observability.EventLogger(logger.Named("sites")),
	}
	if uploader, err := a.openExports(ctx); err != nil {
		return nil, err
	} else if uploader != nil {
		siteDeps.Uploader = uploader
	}
	if err := a.openEvents(ctx); err != nil {
		return nil, err
	}
	if a.publisher != nil {
		siteDeps.Events = a.publisher
	}

	a.projects, err = services.NewProjectService(services.ProjectServiceDeps{
		Projects:      projectRepo,
		Sites:         siteRepo,
		DefaultLocale: cfg.Builder.DefaultLocale,
		Logger:        observability.EventLogger(logger.Named("projects")),
	})
	if err != nil {
		return nil, err
	}
	siteDeps.Projects = a.projects
	a.sites, err = services.NewSiteService(siteDeps)
	if err != nil {
		return nil, err
	}
	a.editors, err = services.NewEditorService(services.EditorServiceDeps{
		Sites:       a.sites,
		CommitDelay: cfg.Editor.CommitDelay,
		ZapLogger:   logger.Named("editor"),
		Logger:      observability.EventLogger(logger.Named("editor")),
	})
	if err != nil {
		return nil, err
	}
	a.prefs, err = services.NewPreferenceService(services.PreferenceServiceDeps{Preferences: prefRepo})
	if err != nil {
		return nil, err
	}
	a.system, err = a.newSystemService()
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openStateStore(ctx context.Context) error {
	switch a.cfg.Storage.Backend {
	case config.StorageBackendMemory:
		a.store = repositories.NewMemoryStateStore()
	case config.StorageBackendSQLite:
		store, err := repositories.OpenSQLiteStateStore(ctx, a.cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		a.store = store
	case config.StorageBackendFirestore:
		a.provider = pfirestore.NewProvider(a.cfg.Firestore)
		if _, err := a.provider.Client(ctx); err != nil {
			return fmt.Errorf("init firestore client: %w", err)
		}
		a.store = repositories.NewFirestoreStateStore(a.provider, a.cfg.Firestore.Collection)
	default:
		return fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
	a.logger.Debug("state store ready", zap.String("backend", a.cfg.Storage.Backend))
	return nil
}

// openExports returns nil when no bucket is configured.
func (a *app) openExports(ctx context.Context) (*storage.ExportUploader, error) {
	if strings.TrimSpace(a.cfg.Exports.Bucket) == "" {
		return nil, nil
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	a.gcsClient = client
	return storage.NewExportUploader(client, a.cfg.Exports)
}

func (a *app) openEvents(ctx context.Context) error {
	if !a.cfg.Events.Enabled {
		return nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.Events.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub client: %w", err)
	}
	a.psClient = client
	a.topic = client.Topic(a.cfg.Events.Topic)
	a.publisher, err = events.NewPubSubPublisher(a.topic)
	return err
}

func (a *app) newSystemService() (services.SystemService, error) {
	store := a.store
	checks := []repositories.DependencyCheck{{
		Name:    domain.CheckStateStore,
		Timeout: 1500 * time.Millisecond,
		Check:   store.Ping,
	}}
	if a.gcsClient != nil {
		bucket := a.gcsClient.Bucket(a.cfg.Exports.Bucket)
		checks = append(checks, repositories.DependencyCheck{
			Name:    domain.CheckExportsBucket,
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				_, err := bucket.Attrs(ctx)
				return err
			},
		})
	}
	if a.topic != nil {
		topic := a.topic
		checks = append(checks, repositories.DependencyCheck{
			Name:    domain.CheckEventsTopic,
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", topic.ID())
				}
				return nil
			},
		})
	}
	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
		Build:            a.build,
	})
}

// close releases collaborators in dependency order: open drafts commit before
// the site stores flush, and the stores flush before the backends close.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.editors != nil {
		if err := a.editors.CloseAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close editors: %w", err))
		}
	}
	if a.sites != nil {
		if err := a.sites.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close sites: %w", err))
		}
	}
	if a.publisher != nil {
		a.publisher.Stop()
	}
	if a.psClient != nil {
		if err := a.psClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub: %w", err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close state store: %w", err))
		}
	}
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close firestore: %w", err))
		}
	}
	return errors.Join(errs...)
}

// resolveProject maps an optional argument to a project id, defaulting to the current project.
func (a *app) resolveProject(ctx context.Context, args []string) (string, error) {
	if len(args) > 0 {
		if id := strings.TrimSpace(args[0]); id != "" && id != "current" {
			if _, err := a.projects.GetProject(ctx, id); err != nil {
				return "", err
			}
			return id, nil
		}
	}
	current, err := a.projects.CurrentProject(ctx)
	if err != nil {
		return "", err
	}
	return current.ID, nil
}
