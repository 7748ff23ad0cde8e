package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/GoSim-25-26J-441/lms-access-backend/config"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/audit"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/identity"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/service"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/bootstrap"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/metrics"
)

const serviceName = "lms-access"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", logging.Err(err))
		os.Exit(1)
	}

	log := logging.New(cfg.App.Environment, cfg.App.LogLevel).With(slog.String("service", serviceName))
	slog.SetDefault(log)
	bootstrap.SetGinMode(cfg.App.Environment)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Token verification needs the Admin SDK whatever the user store is.
	app, err := identity.InitializeFirebase(ctx, &cfg.Firebase)
	if err != nil {
		return err
	}

	admin, err := identity.NewAdmin(ctx, app)
	if err != nil {
		return err
	}

	dir, err := bootstrap.OpenDirectory(ctx, cfg, app, log)
	if err != nil {
		return err
	}
	defer dir.Close()

	authService := service.NewAuthService(dir.Users, admin, log, m)
	toolkit := identity.NewToolkit(cfg.Firebase.APIKey,
		identity.WithIdentityURL(cfg.Firebase.IdentityURL),
		identity.WithLogger(log),
	)

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    serviceName,
		Version:        cfg.App.Version,
		Store:          cfg.Store.Backend,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SignupRPS:      cfg.Server.SignupRPS,
		SignupBurst:    cfg.Server.SignupBurst,
		Health:         dir.Ping,
		Auth:           authService,
		Verifier:       admin,
		Resetter:       toolkit,
		Gatherer:       reg,
		Metrics:        m,
		Log:            log,
	})

	if cfg.Audit.Schedule != "" {
		auditor := audit.NewOrphanAuditor(admin, dir.Users, log.With(slog.String("job", "orphan_audit")), m)
		sched, err := audit.NewScheduler(cfg.Audit.Schedule, auditor, log)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sched.Stop(sctx)
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", srv.Addr), slog.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
