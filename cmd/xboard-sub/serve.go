package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-sub/internal/api"
	"github.com/creamcroissant/xboard-sub/internal/async"
	"github.com/creamcroissant/xboard-sub/internal/bootstrap"
	"github.com/creamcroissant/xboard-sub/internal/job"
	"github.com/creamcroissant/xboard-sub/internal/security"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the subscription HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:      cfg.Log.SlogLevel(),
		Format:     cfg.Log.Format,
		AddSource:  cfg.Log.AddSource,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	db, err := openDatabase(ctx, cfg.DB.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := buildStack(db, cfg, logger)
	if err != nil {
		return err
	}
	if total, err := st.store.Users().Count(ctx); err == nil {
		logger.Info("database ready", "path", cfg.DB.Path, "users", total)
	}

	scheduler := job.NewScheduler(logger)
	livenessJob := job.NewLivenessSyncJob(st.heartbeat, logger)
	if _, err := scheduler.Register(cfg.Jobs.LivenessSpec, livenessJob); err != nil {
		return err
	}
	cleanupJob := job.NewSubscriptionLogCleanupJob(st.store.SubscriptionLogs(), cfg.Jobs.LogRetention, logger)
	if _, err := scheduler.Register(cfg.Jobs.LogCleanupSpec, cleanupJob); err != nil {
		return err
	}
	scheduler.RunNow(livenessJob)
	scheduler.Start()

	subscriptionLogs := async.NewSubscriptionLogQueue(st.store.SubscriptionLogs(), cfg.Jobs.LogFlushInterval, logger)

	routerOpts := []api.RouterOption{api.WithRegistry(st.infra.Registry)}
	if cfg.Subscribe.RateLimit > 0 {
		limiter, err := security.NewRateLimiter(st.infra.Cache, "subscribe", cfg.Subscribe.RateLimit, cfg.Subscribe.RateWindow)
		if err != nil {
			return err
		}
		routerOpts = append(routerOpts, api.WithSubscribeLimiter(limiter))
	}

	router := api.NewRouter(logger, api.Services{
		Users:            st.users,
		Subscription:     st.subscription,
		Heartbeat:        st.heartbeat,
		I18n:             st.infra.I18n,
		SubscriptionLogs: subscriptionLogs,
	}, cfg, routerOpts...)
	server := bootstrap.NewHTTPServer(cfg, router)

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr, "subscribe_path", cfg.Subscribe.Path, "version", Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	subscriptionLogs.Stop()
	logger.Info("server exited cleanly")
	return nil
}
