// 文件路径: internal/service/dashboard.go
// 模块说明: 后台看板、订单导出与系统状态。
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/creamcroissant/vibemall/internal/cache"
	"github.com/creamcroissant/vibemall/internal/export"
	"github.com/creamcroissant/vibemall/internal/monitor"
	"github.com/creamcroissant/vibemall/internal/repository"
)

const (
	dashboardCacheKey = "dashboard:snapshot"
	dashboardTTL      = 60 * time.Second
	dashboardTopN     = 5
	dashboardRecentN  = 10
	dashboardDays     = 7
	exportMaxRows     = 10000
)

// DashboardService 提供后台统计。
type DashboardService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	ExportOrders(ctx context.Context, filter AdminOrderFilter, w io.Writer) (int, error)
	SystemStatus(ctx context.Context) (*SystemStatus, error)
}

// Dashboard 是看板快照。
type Dashboard struct {
	Totals           repository.DashboardTotals `json:"totals"`
	StatusCounts     map[string]int64           `json:"status_counts"`
	ApprovalCounts   map[string]int64           `json:"approval_counts"`
	PendingApprovals int64                      `json:"pending_approvals"`
	SuspiciousOrders int64                      `json:"suspicious_orders"`
	LowStock         []repository.Product       `json:"low_stock"`
	TodayRevenue     decimal.Decimal            `json:"today_revenue"`
	MonthRevenue     decimal.Decimal            `json:"month_revenue"`
	DailyRevenue     []repository.DailyRevenue  `json:"daily_revenue"`
	TopSelling       []repository.Product       `json:"top_selling"`
	RecentOrders     []repository.Order         `json:"recent_orders"`
	GeneratedAt      int64                      `json:"generated_at"`
}

// SystemStatus 是系统状态页数据。
type SystemStatus struct {
	Version        string           `json:"version"`
	Host           monitor.Snapshot `json:"host"`
	EmailQueue     int              `json:"email_queue"`
	PendingEvents  int64            `json:"pending_events"`
	DatabaseStatus string           `json:"database_status"`
}

type dashboardService struct {
	store    repository.Store
	cache    cache.Store
	monitor  *monitor.Monitor
	settings ShopSettings
	version  string
	queue    func() int
	now      func() time.Time
}

// NewDashboardService 创建看板服务；queueDepth 可为 nil。
func NewDashboardService(store repository.Store, cacheStore cache.Store, mon *monitor.Monitor, settings ShopSettings, version string, queueDepth func() int) DashboardService {
	if mon == nil {
		mon = monitor.New("")
	}
	return &dashboardService{
		store:    store,
		cache:    cacheStore,
		monitor:  mon,
		settings: settings,
		version:  version,
		queue:    queueDepth,
		now:      time.Now,
	}
}

func (s *dashboardService) Dashboard(ctx context.Context) (*Dashboard, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("dashboard service not configured / 看板服务未配置")
	}
	snap, err := cache.RememberJSON(ctx, s.cache, dashboardCacheKey, dashboardTTL, s.build)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *dashboardService) build(ctx context.Context) (Dashboard, error) {
	reports := s.store.Reports()
	now := s.now().UTC()
	var (
		d   = Dashboard{GeneratedAt: now.Unix()}
		err error
	)
	if d.Totals, err = reports.Totals(ctx); err != nil {
		return d, fmt.Errorf("dashboard totals: %w", err)
	}
	if d.StatusCounts, err = reports.CountByStatus(ctx); err != nil {
		return d, fmt.Errorf("dashboard status counts: %w", err)
	}
	if d.ApprovalCounts, err = reports.CountByApproval(ctx); err != nil {
		return d, fmt.Errorf("dashboard approval counts: %w", err)
	}
	d.PendingApprovals = d.ApprovalCounts[repository.ApprovalPending]
	if d.SuspiciousOrders, err = reports.CountSuspicious(ctx); err != nil {
		return d, fmt.Errorf("dashboard suspicious: %w", err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if d.TodayRevenue, err = reports.RevenueBetween(ctx, today.Unix(), tomorrow.Unix()); err != nil {
		return d, fmt.Errorf("dashboard today revenue: %w", err)
	}
	if d.MonthRevenue, err = reports.RevenueBetween(ctx, month.Unix(), tomorrow.Unix()); err != nil {
		return d, fmt.Errorf("dashboard month revenue: %w", err)
	}
	from := today.AddDate(0, 0, -(dashboardDays - 1))
	if d.DailyRevenue, err = reports.DailyRevenue(ctx, from.Unix(), tomorrow.Unix()); err != nil {
		return d, fmt.Errorf("dashboard daily revenue: %w", err)
	}

	products := s.store.Products()
	if d.LowStock, err = products.LowStock(ctx, s.settings.LowStockThreshold, 20); err != nil {
		return d, fmt.Errorf("dashboard low stock: %w", err)
	}
	if d.TopSelling, err = products.TopSelling(ctx, dashboardTopN); err != nil {
		return d, fmt.Errorf("dashboard top selling: %w", err)
	}
	if d.RecentOrders, _, err = s.store.Orders().List(ctx, repository.OrderFilter{Limit: dashboardRecentN}); err != nil {
		return d, fmt.Errorf("dashboard recent orders: %w", err)
	}
	if d.LowStock == nil {
		d.LowStock = []repository.Product{}
	}
	if d.TopSelling == nil {
		d.TopSelling = []repository.Product{}
	}
	if d.RecentOrders == nil {
		d.RecentOrders = []repository.Order{}
	}
	return d, nil
}

// ExportOrders 按后台筛选条件导出，忽略分页，最多 exportMaxRows 行。
func (s *dashboardService) ExportOrders(ctx context.Context, filter AdminOrderFilter, w io.Writer) (int, error) {
	if s == nil || s.store == nil {
		return 0, fmt.Errorf("dashboard service not configured / 看板服务未配置")
	}
	orders, _, err := s.store.Orders().List(ctx, orderQuery(filter, newPage(1, exportMaxRows)))
	if err != nil {
		return 0, err
	}
	if err := export.WriteOrders(w, orders); err != nil {
		return 0, err
	}
	return len(orders), nil
}

func (s *dashboardService) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("dashboard service not configured / 看板服务未配置")
	}
	status := &SystemStatus{
		Version:        s.version,
		Host:           s.monitor.Collect(),
		DatabaseStatus: "ok",
	}
	if s.queue != nil {
		status.EmailQueue = s.queue()
	}
	pending, err := s.store.Outbox().CountPending(ctx)
	if err != nil {
		status.DatabaseStatus = err.Error()
	}
	status.PendingEvents = pending
	return status, nil
}
