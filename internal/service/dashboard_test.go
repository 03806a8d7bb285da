package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/cache"
	"github.com/creamcroissant/vibemall/internal/monitor"
	"github.com/creamcroissant/vibemall/internal/repository"
)

func stubMonitor() *monitor.Monitor {
	m := monitor.New("/")
	m.SetFetcher(monitor.Fetcher{
		CPUPercent:    func(time.Duration, bool) ([]float64, error) { return []float64{7}, nil },
		VirtualMemory: func() (*mem.VirtualMemoryStat, error) { return &mem.VirtualMemoryStat{Total: 100, Used: 40}, nil },
		DiskUsage:     func(string) (*disk.UsageStat, error) { return &disk.UsageStat{Total: 100, Used: 10}, nil },
		LoadAvg:       func() (*load.AvgStat, error) { return &load.AvgStat{Load1: 1}, nil },
		HostUptime:    func() (uint64, error) { return 60, nil },
	})
	return m
}

func TestDashboardSnapshot(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)
	second := env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)
	_, err := env.orders().Cancel(env.ctx, user.ID, second.OrderNumber, "")
	require.NoError(t, err)

	svc := NewDashboardService(env.store, cache.NewStore(cache.Options{}), stubMonitor(), env.settings, "test", nil)
	snap, err := svc.Dashboard(env.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), snap.Totals.Orders)
	require.Equal(t, int64(1), snap.Totals.Customers)
	require.True(t, snap.Totals.Revenue.Equal(dec("404")))
	require.True(t, snap.TodayRevenue.Equal(dec("404")))
	require.Equal(t, int64(1), snap.StatusCounts[repository.OrderPending])
	require.Equal(t, int64(1), snap.StatusCounts[repository.OrderCancelled])
	require.Len(t, snap.DailyRevenue, dashboardDays)
	require.Len(t, snap.RecentOrders, 2)
	require.Len(t, snap.LowStock, 1)

	// 缓存期内返回同一快照
	env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)
	cached, err := svc.Dashboard(env.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), cached.Totals.Orders)
	require.Equal(t, snap.GeneratedAt, cached.GeneratedAt)
}

func TestExportOrders(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 72*time.Hour)
	product := env.seedProduct(t, "lamp", "300", 5)
	env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)
	env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodOnline)

	svc := NewDashboardService(env.store, cache.NewStore(cache.Options{}), stubMonitor(), env.settings, "test", nil)
	var buf bytes.Buffer
	n, err := svc.ExportOrders(env.ctx, AdminOrderFilter{PaymentMethod: "online"}, &buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))
}

func TestSystemStatus(t *testing.T) {
	env := newShopEnv(t)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	env.placeBuyNow(t, user.ID, product.ID, 1, repository.MethodCOD)

	svc := NewDashboardService(env.store, nil, stubMonitor(), env.settings, "1.2.3", func() int { return 3 })
	status, err := svc.SystemStatus(env.ctx)
	require.NoError(t, err)
	require.Equal(t, "1.2.3", status.Version)
	require.Equal(t, 3, status.EmailQueue)
	require.Equal(t, int64(1), status.PendingEvents)
	require.Equal(t, "ok", status.DatabaseStatus)
	require.Equal(t, float64(7), status.Host.CPUPercent)
}
