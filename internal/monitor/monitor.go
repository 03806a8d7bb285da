// 文件路径: internal/monitor/monitor.go
// 模块说明: 后台系统状态采集（CPU、内存、磁盘、负载、运行时间），数据来自 gopsutil。
package monitor

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Usage 是总量与已用量（字节）。
type Usage struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

// Snapshot 是一次采集结果，单项采集失败时该项保持零值。
type Snapshot struct {
	CPUPercent    float64 `json:"cpu_percent"`
	Memory        Usage   `json:"memory"`
	Disk          Usage   `json:"disk"`
	Load1         float64 `json:"load1"`
	Load5         float64 `json:"load5"`
	Load15        float64 `json:"load15"`
	HostUptime    uint64  `json:"host_uptime"`
	ProcessUptime int64   `json:"process_uptime"`
	Goroutines    int     `json:"goroutines"`
	GoVersion     string  `json:"go_version"`
	CollectedAt   int64   `json:"collected_at"`
}

// Fetcher 包装 gopsutil 函数，测试中可替换。
type Fetcher struct {
	CPUPercent    func(interval time.Duration, percpu bool) ([]float64, error)
	VirtualMemory func() (*mem.VirtualMemoryStat, error)
	DiskUsage     func(path string) (*disk.UsageStat, error)
	LoadAvg       func() (*load.AvgStat, error)
	HostUptime    func() (uint64, error)
}

// Monitor 采集主机与进程状态。
type Monitor struct {
	fetcher   Fetcher
	diskPath  string
	startedAt time.Time
	now       func() time.Time
}

// New 使用 gopsutil 默认实现；diskPath 为空时统计根分区。
func New(diskPath string) *Monitor {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Monitor{
		fetcher: Fetcher{
			CPUPercent:    cpu.Percent,
			VirtualMemory: mem.VirtualMemory,
			DiskUsage:     disk.Usage,
			LoadAvg:       load.Avg,
			HostUptime:    host.Uptime,
		},
		diskPath:  diskPath,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// SetFetcher sets a custom fetcher for testing.
func (m *Monitor) SetFetcher(f Fetcher) {
	m.fetcher = f
}

// Collect 采集一次状态。
func (m *Monitor) Collect() Snapshot {
	now := m.now()
	snap := Snapshot{
		ProcessUptime: int64(now.Sub(m.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		CollectedAt:   now.Unix(),
	}

	if m.fetcher.CPUPercent != nil {
		if percents, err := m.fetcher.CPUPercent(0, false); err == nil && len(percents) > 0 {
			snap.CPUPercent = percents[0]
		}
	}
	if m.fetcher.VirtualMemory != nil {
		if v, err := m.fetcher.VirtualMemory(); err == nil {
			snap.Memory = Usage{Total: v.Total, Used: v.Used, UsedPercent: v.UsedPercent}
		}
	}
	if m.fetcher.DiskUsage != nil {
		if d, err := m.fetcher.DiskUsage(m.diskPath); err == nil {
			snap.Disk = Usage{Total: d.Total, Used: d.Used, UsedPercent: d.UsedPercent}
		}
	}
	if m.fetcher.LoadAvg != nil {
		if l, err := m.fetcher.LoadAvg(); err == nil {
			snap.Load1, snap.Load5, snap.Load15 = l.Load1, l.Load5, l.Load15
		}
	}
	if m.fetcher.HostUptime != nil {
		if u, err := m.fetcher.HostUptime(); err == nil {
			snap.HostUptime = u
		}
	}
	return snap
}
