package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/require"
)

func TestCollectUsesFetcher(t *testing.T) {
	m := New("/data")
	start := m.startedAt
	m.now = func() time.Time { return start.Add(90 * time.Second) }

	var diskPath string
	m.SetFetcher(Fetcher{
		CPUPercent: func(time.Duration, bool) ([]float64, error) { return []float64{12.5}, nil },
		VirtualMemory: func() (*mem.VirtualMemoryStat, error) {
			return &mem.VirtualMemoryStat{Total: 1000, Used: 250, UsedPercent: 25}, nil
		},
		DiskUsage: func(path string) (*disk.UsageStat, error) {
			diskPath = path
			return &disk.UsageStat{Total: 2000, Used: 500, UsedPercent: 25}, nil
		},
		LoadAvg:    func() (*load.AvgStat, error) { return &load.AvgStat{Load1: 1, Load5: 0.5, Load15: 0.25}, nil },
		HostUptime: func() (uint64, error) { return 3600, nil },
	})

	snap := m.Collect()
	require.Equal(t, 12.5, snap.CPUPercent)
	require.Equal(t, Usage{Total: 1000, Used: 250, UsedPercent: 25}, snap.Memory)
	require.Equal(t, uint64(500), snap.Disk.Used)
	require.Equal(t, "/data", diskPath)
	require.Equal(t, 0.5, snap.Load5)
	require.Equal(t, uint64(3600), snap.HostUptime)
	require.Equal(t, int64(90), snap.ProcessUptime)
	require.Positive(t, snap.Goroutines)
	require.NotEmpty(t, snap.GoVersion)
}

func TestCollectToleratesErrors(t *testing.T) {
	m := New("")
	fail := errors.New("unavailable")
	m.SetFetcher(Fetcher{
		CPUPercent:    func(time.Duration, bool) ([]float64, error) { return nil, fail },
		VirtualMemory: func() (*mem.VirtualMemoryStat, error) { return nil, fail },
	})

	snap := m.Collect()
	require.Zero(t, snap.CPUPercent)
	require.Zero(t, snap.Memory.Total)
	require.Zero(t, snap.Disk.Total)
	require.Equal(t, "/", m.diskPath)
}
