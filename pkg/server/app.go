// Package server assembles the application: store, cache, mailer, services
// and the HTTP router. It is shared by the long-running server and the
// serverless entry point.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"taskboard-backend/pkg/cache"
	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/mailer"
	"taskboard-backend/pkg/services"
	"taskboard-backend/pkg/utils"
)

// App 应用依赖集合
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DB      database.DatabaseInterface
	Cache   cache.Cache
	Mailer  *mailer.Dispatcher
	JWT     *utils.JWTService
	Service *services.Service
	Router  http.Handler
}

// DatabaseConfig 从应用配置构造数据库配置
func DatabaseConfig(cfg *config.Config) database.DatabaseConfig {
	return database.DatabaseConfig{
		Driver:      cfg.DatabaseDriver,
		PostgresDSN: cfg.PostgresDSN,
		SQLitePath:  cfg.SQLitePath,
		Debug:       cfg.Debug,
	}
}

// Build 创建全部依赖；数据库连接由进程级连接池复用
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = cfg.NewLogger()
	}

	db, err := database.GetDatabase(ctx, DatabaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return BuildWithDB(ctx, cfg, logger, db)
}

// BuildWithDB 使用给定的数据库创建应用（测试与迁移命令使用）
func BuildWithDB(ctx context.Context, cfg *config.Config, logger *slog.Logger, db database.DatabaseInterface) (*App, error) {
	c, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	// 无服务器环境中函数返回后goroutine可能被冻结，邮件同步发送
	dispatcher := mailer.NewDispatcher(mailer.NewSender(cfg.Email, logger), logger, config.IsServerless())
	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	svc := services.New(services.Deps{
		DB:       db,
		Cache:    c,
		Mailer:   dispatcher,
		JWT:      jwtService,
		Logger:   logger,
		BaseURL:  cfg.BaseURL,
		CacheTTL: cfg.CacheTTL,
	})

	app := &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Cache:   c,
		Mailer:  dispatcher,
		JWT:     jwtService,
		Service: svc,
	}
	app.Router = NewRouter(app)
	return app, nil
}

// Shutdown 等待未完成的邮件发送并释放缓存与数据库连接
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Mailer.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain mailer: %w", err))
	}
	if err := a.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	if err := database.CloseDatabase(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
