package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/creamcroissant/vibemall/internal/api"
	"github.com/creamcroissant/vibemall/internal/bootstrap"
	"github.com/creamcroissant/vibemall/internal/config"
	"github.com/creamcroissant/vibemall/internal/job"
	"github.com/creamcroissant/vibemall/internal/migrations"
	"github.com/creamcroissant/vibemall/internal/monitor"
	"github.com/creamcroissant/vibemall/internal/repository/sqlite"
	"github.com/creamcroissant/vibemall/internal/service"
	"github.com/creamcroissant/vibemall/internal/support/i18n"
	"github.com/creamcroissant/vibemall/internal/support/logging"
)

// application 持有一次进程生命周期内的全部组件，serve 与 job 子命令共用。
type application struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *sql.DB
	store     *sqlite.Store
	infra     *bootstrap.Infrastructure
	registry  *prometheus.Registry
	services  api.Services
	scheduler *job.Scheduler
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(logging.Options{
		Level:       cfg.Log.SlogLevel(),
		Format:      cfg.Log.Format,
		AddSource:   cfg.Log.AddSource,
		Environment: cfg.Log.Environment,
	})
}

// openStore 打开数据库并执行迁移，供轻量 CLI 子命令使用。
func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, *sqlite.Store, error) {
	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Up(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, sqlite.NewStore(db), nil
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &application{cfg: cfg, logger: logger, db: db, store: store}
	if err := app.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func (a *application) init(ctx context.Context) error {
	cfg, logger, store := a.cfg, a.logger, a.store

	signingKey, source, err := bootstrap.ResolveJWTSigningKey(ctx, a.db, cfg.Auth.SigningKey, time.Now)
	if err != nil {
		return err
	}
	cfg.Auth.SigningKey = signingKey
	msg, label := signingKeyLog(source)
	logger.Info(msg, "source", label)

	infra, err := bootstrap.BuildInfrastructure(cfg, logger)
	if err != nil {
		return err
	}
	a.infra = infra

	i18nManager, err := i18n.NewManager(
		i18n.WithLogger(logger),
		i18n.WithDefaultLang(cfg.I18n.DefaultLang),
	)
	if err != nil {
		return err
	}
	if cfg.I18n.LocalesDir != "" {
		if err := i18nManager.LoadFromDir(cfg.I18n.LocalesDir); err != nil {
			return err
		}
	}
	logger.Debug("locales loaded", "languages", i18nManager.GetSupportedLanguages())

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := service.NewMetrics(a.registry, cfg.Metrics.Namespace)

	settings := service.NewShopSettings(cfg)
	mail := infra.Notifier
	version := cfg.Admin.Version
	if version == "" {
		version = Version
	}

	customers := service.NewCustomerService(store, infra.Audit)
	orders := service.NewOrderService(store, mail, infra.Audit, settings, metrics, logger)
	notifications := service.NewNotificationService(store, mail, settings, logger)

	a.services = api.Services{
		Auth:          service.NewAuthService(store, infra.Hasher, infra.Token, infra.RateLimiter, infra.Audit, infra.Cache, cfg.Auth.RefreshTTL),
		Customers:     customers,
		Addresses:     service.NewAddressService(store),
		Catalog:       service.NewCatalogService(store, infra.Cache, settings),
		Cart:          service.NewCartService(store),
		Wishlist:      service.NewWishlistService(store),
		Checkout:      service.NewCheckoutService(store, mail, settings, metrics, logger),
		Approvals:     service.NewApprovalService(store, mail, infra.Audit, settings, metrics, logger),
		Orders:        orders,
		Payments:      service.NewPaymentService(store, mail, infra.Audit, settings, metrics, logger),
		Loyalty:       service.NewLoyaltyService(store, infra.Audit, settings),
		Resell:        service.NewResellService(store, mail, settings, metrics, logger),
		Reviews:       service.NewReviewService(store),
		Questions:     service.NewQuestionService(store),
		Returns:       service.NewReturnService(store, mail, settings, metrics, logger),
		Notifications: notifications,
		Dashboard:     service.NewDashboardService(store, infra.Cache, monitor.New(filepath.Dir(cfg.DB.Path)), settings, version, infra.EmailQueue.Pending),
		Invoices:      service.NewInvoiceService(store, settings),
		Content:       service.NewContentService(store),
		Chat:          service.NewChatService(store),
		RateLimiter:   infra.RateLimiter,
		I18n:          i18nManager,
		Ready: func(ctx context.Context) error {
			_, err := store.Outbox().CountPending(ctx)
			return err
		},
	}

	a.scheduler = job.NewScheduler(logger)
	jobs := []struct {
		spec     string
		runnable job.Runnable
	}{
		{cfg.Jobs.EmailDispatch, job.NewEmailDispatchJob(infra.EmailQueue, infra.Mailer, store.EmailLogs(), logger)},
		{cfg.Jobs.OutboxRelay, job.NewOutboxRelayJob(store.Outbox(), infra.Publisher, logger)},
		{cfg.Jobs.PriceAlerts, job.NewPriceAlertJob(notifications, logger)},
		{cfg.Jobs.PaymentReconcile, job.NewPaymentReconcileJob(orders, logger)},
		{cfg.Jobs.SegmentRefresh, job.NewSegmentRefreshJob(customers, logger)},
		{cfg.Jobs.TokenCleanup, job.NewTokenCleanupJob(store.RefreshTokens(), logger)},
	}
	for _, j := range jobs {
		if err := a.scheduler.Register(j.spec, j.runnable); err != nil {
			return err
		}
	}
	return nil
}

func (a *application) routerOptions() api.Options {
	return api.Options{
		HTTP:     a.cfg.HTTP,
		Metrics:  a.cfg.Metrics,
		Registry: a.registry,
	}
}

// Close 释放事件发布连接与数据库。
func (a *application) Close() {
	if a.infra != nil && a.infra.Publisher != nil {
		if err := a.infra.Publisher.Close(); err != nil {
			a.logger.Warn("close event publisher", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
}

// signingKeyLog 返回启动日志里描述签名密钥来源的消息与标签。
func signingKeyLog(source bootstrap.SecretSource) (msg, label string) {
	switch source {
	case bootstrap.SecretSourceGenerated:
		return "jwt signing key generated", "generated-and-persisted"
	case bootstrap.SecretSourceConfig, bootstrap.SecretSourceSettings:
		return "jwt signing key loaded", string(source)
	}
	return "jwt signing key loaded", "unknown"
}
