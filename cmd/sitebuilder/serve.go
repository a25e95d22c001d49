package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/espython/website-builder/internal/dnd"
	"github.com/espython/website-builder/internal/handlers"
	"github.com/espython/website-builder/internal/live"
	"github.com/espython/website-builder/internal/platform/observability"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the builder API, previews and the live channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.open(ctx, true)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.logger.Sync()
			}()
			return a.serve(ctx)
		},
	}
}

// serve runs the HTTP server until ctx ends, then drains in order: HTTP requests,
// open drafts, live clients, and finally the stores and backends.
func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	hub, err := live.NewHub(a.sites,
		live.WithLogger(logger.Named("live")),
		live.WithAllowedOrigins(a.cfg.Security.AllowedOrigins),
		live.WithDragOptions(dnd.WithConfig(dnd.Config{
			MouseDistance:  a.cfg.Builder.DragMouseDistance,
			TouchDelay:     a.cfg.Builder.DragTouchDelay,
			TouchTolerance: a.cfg.Builder.DragTouchTolerance,
		})),
	)
	if err != nil {
		return err
	}

	traceProject := a.cfg.Firestore.ProjectID
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(traceProject),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(a.build),
		handlers.WithHealthSystemService(a.system),
	)
	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithProjectRoutes(handlers.NewProjectHandlers(a.projects, a.sites, a.editors).Routes),
		handlers.WithProjectScopedRoutes(
			handlers.NewSiteHandlers(a.sites, int64(a.cfg.Builder.MaxImportBytes)).Routes,
			handlers.NewDraftHandlers(a.editors).Routes,
			handlers.NewPreviewHandlers(handlers.PreviewDeps{
				Projects:    a.projects,
				Sites:       a.sites,
				Preferences: a.prefs,
				Renderer:    a.renderer,
				Hub:         hub,
			}).Routes,
		),
		handlers.WithCatalogRoutes(handlers.NewCatalogHandlers(a.catalog).Routes),
		handlers.WithPreferenceRoutes(handlers.NewPreferenceHandlers(a.prefs).Routes),
	)

	server := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		serverLogger.Info("sitebuilder listening", zap.String("backend", a.cfg.Storage.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received; draining")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := a.editors.CloseAll(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := hub.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := a.close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := errors.Join(errs...); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return err
		}
		logger.Info("shutdown complete")
		return nil
	})
	return g.Wait()
}
