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

	"dumptrack-api/internal/guard"
	"dumptrack-api/internal/handler"
	"dumptrack-api/internal/router"
	"dumptrack-api/internal/service"
	"dumptrack-api/internal/workspace"
	"dumptrack-api/pkg/logger"
	"dumptrack-api/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	cfg, log := d.cfg, d.logger
	log.Info("starting dumptrack-api",
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Environment),
		zap.String("db", cfg.Database.Type),
		zap.String("cache", cfg.Cache.Type))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New("dumptrack")
	}

	registry := workspace.NewRegistry(d.backend, d.cache, workspace.Config{
		CookieName:        cfg.Auth.CookieName,
		CookieSecret:      cfg.Auth.CookieSecret,
		CookieSecure:      cfg.Auth.CookieSecure,
		AdminTrigger:      cfg.Auth.AdminEmailTrigger,
		SideCacheTTL:      cfg.Workspace.SideCacheTTL,
		CompensateBatches: cfg.Workspace.CompensateSaga,
	}, m, logger.Named(log, "workspace"))

	cleanup := service.NewCleanupScheduler(registry, service.CleanupConfig{
		InactiveThreshold: cfg.Workspace.IdleTTL,
		CleanupInterval:   cfg.Workspace.SweepInterval,
	}, logger.Named(log, "cleanup"))
	cleanup.Start()
	defer cleanup.Stop()

	pinger, _ := d.cache.(handler.Pinger)
	r := router.New(router.Config{
		Logger:           logger.Named(log, "http"),
		Metrics:          m,
		MetricsPath:      cfg.Metrics.Path,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		Registry:         registry,
		Guard:            guard.New(workspace.GuardSession, logger.Named(log, "guard")),
		Handler:          handler.New(d.repo, pinger),
		AdminHandler:     handler.NewAdminHandler(d.repo, registry, cfg.Database.Type, cfg.Cache.Type),
		AuthHandler:      handler.NewAuthHandler(logger.Named(log, "auth")),
		InventoryHandler: handler.NewInventoryHandler(),
		TrackingHandler:  handler.NewTrackingHandler(logger.Named(log, "tracking")),
		ReportHandler:    handler.NewReportHandler(logger.Named(log, "report")),
		UserHandler:      handler.NewUserHandler(),
		ViewHandler:      handler.NewViewHandler(),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}
