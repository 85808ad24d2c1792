package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/maxischmaxi/code-preview-server/internal/api"
	"github.com/maxischmaxi/code-preview-server/internal/config"
	"github.com/maxischmaxi/code-preview-server/internal/events"
	"github.com/maxischmaxi/code-preview-server/internal/jobs"
	"github.com/maxischmaxi/code-preview-server/internal/routers"
	"github.com/maxischmaxi/code-preview-server/internal/seed"
	"github.com/maxischmaxi/code-preview-server/internal/services"
	"github.com/maxischmaxi/code-preview-server/internal/utils"
)

var (
	listenAndServe = func(srv *http.Server) error { return srv.ListenAndServe() }
	exitFunc       = defaultExit
	exit           = os.Exit

	shutdownTimeout = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		exitFunc(err)
	}
}

func run(ctx context.Context) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	restore := zap.ReplaceGlobals(logger)
	defer restore()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = multierr.Append(err, store.Close(closeCtx))
	}()

	sessionService := services.NewSessionService(store.Sessions, cfg.DefaultLanguage, logger)

	if cfg.TemplatesSeedFile != "" {
		templates, err := seed.LoadTemplates(cfg.TemplatesSeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.SeedTemplates(ctx, store.Templates, templates, logger); err != nil {
			return err
		}
	}

	router := events.NewRouter(events.Deps{
		Sessions:  store.Sessions,
		Templates: store.Templates,
		Logger:    logger.Named("events"),
	}, cfg.EventQueueSize)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		router.Run(loopCtx)
		close(loopDone)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	resetJob := jobs.NewSessionResetJob(sessionService, cfg.ResetSchedule, logger)
	if err := resetJob.Start(); err != nil {
		return err
	}
	defer resetJob.Stop()

	handlers := api.NewHandlers(api.Deps{
		Logger:         logger.Named("api"),
		Router:         router,
		Sessions:       sessionService,
		Templates:      store.Templates,
		CronSecret:     cfg.CronSecret,
		AllowedOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routers.New(handlers, cfg.CORSOrigins),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(srv) }()
	logger.Info("collab-svc listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Driver))

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("collab-svc shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if serr := <-serveErr; serr != nil && !errors.Is(serr, http.ErrServerClosed) {
		err = multierr.Append(err, serr)
	}
	return err
}

func defaultExit(err error) {
	zap.L().Error("collab-svc exited", zap.Error(err))
	exit(1)
}
