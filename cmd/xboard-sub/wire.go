package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/creamcroissant/xboard-sub/internal/bootstrap"
	"github.com/creamcroissant/xboard-sub/internal/config"
	"github.com/creamcroissant/xboard-sub/internal/migrations"
	"github.com/creamcroissant/xboard-sub/internal/quota"
	"github.com/creamcroissant/xboard-sub/internal/repository/sqlite"
	"github.com/creamcroissant/xboard-sub/internal/service"
)

// stack 汇总 serve 与 preview 共用的依赖。
type stack struct {
	db           *sql.DB
	store        *sqlite.Store
	infra        *bootstrap.Infrastructure
	users        service.UserService
	heartbeat    service.HeartbeatService
	subscription service.SubscriptionService
}

// openDatabase 打开数据库并迁移到最新版本。
func openDatabase(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	db, err := bootstrap.OpenSQLite(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func buildStack(db *sql.DB, cfg *config.Config, logger *slog.Logger) (*stack, error) {
	infra, err := bootstrap.BuildInfrastructure(cfg, logger)
	if err != nil {
		return nil, err
	}
	method, err := quota.ParseResetMethod(cfg.Subscribe.ResetTrafficMethod)
	if err != nil {
		return nil, err
	}
	location := cfg.Subscribe.Location()
	manager, err := bootstrap.NewProtocolManager(cfg.Subscribe, logger)
	if err != nil {
		return nil, err
	}

	store := sqlite.NewStore(db)
	totpMinutes := 0
	if cfg.Subscribe.Method == service.SubscribeMethodTOTP {
		totpMinutes = cfg.Subscribe.TOTPExpireMinutes
	}
	users := service.NewUserService(store.Users(), store.Plans(), service.UserOptions{
		Tokens:      infra.Cache,
		Calculator:  quota.NewCalculator(method, location),
		TOTPMinutes: totpMinutes,
		Logger:      logger,
	})
	inventory := service.NewInventory(store.Servers(), infra.Liveness, logger)
	subscription := service.NewSubscriptionService(users, inventory, manager, service.SubscriptionOptions{
		ShowInfo:   cfg.Subscribe.ShowInfoToServer,
		Location:   location,
		InfoLang:   cfg.Subscribe.InfoLang,
		AppName:    cfg.Subscribe.AppName,
		AppURL:     cfg.Subscribe.AppURL,
		I18n:       infra.I18n,
		Logger:     logger,
		Registerer: infra.Registry,
		Namespace:  cfg.Metrics.Namespace,
	})
	heartbeat := service.NewHeartbeatService(store.Servers(), infra.Liveness, cfg.Server.Token, logger)

	return &stack{
		db:           db,
		store:        store,
		infra:        infra,
		users:        users,
		heartbeat:    heartbeat,
		subscription: subscription,
	}, nil
}
