// 文件路径: internal/job/scheduler.go
// 模块说明: cron 调度器与任务注册表，serve 定时触发，CLI 可按名称手动执行。
package job

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Runnable 表示由调度器触发的后台任务。
type Runnable interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry 描述一个已注册任务。
type Entry struct {
	Name string
	Spec string
	ID   cron.EntryID
}

// Scheduler 封装 cron，并提供日志与优雅停机。
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
	mu      sync.Mutex
	started bool
	jobs    map[string]Runnable
	entries map[string]Entry
}

const defaultJobTimeout = 2 * time.Minute

// NewScheduler 构建支持秒与自然描述的调度器。
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser)),
		logger:  logger,
		timeout: defaultJobTimeout,
		jobs:    make(map[string]Runnable),
		entries: make(map[string]Entry),
	}
}

// Register 绑定 cron 表达式与任务。spec 为空表示只登记，不定时触发。
func (s *Scheduler) Register(spec string, runnable Runnable) error {
	if runnable == nil {
		return fmt.Errorf("scheduler: runnable is required / runnable 不能为空")
	}
	name := runnable.Name()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("scheduler: job %q already registered / 任务重复注册", name)
	}
	entry := Entry{Name: name, Spec: spec}
	if spec != "" {
		id, err := s.cron.AddFunc(spec, s.wrap(runnable))
		if err != nil {
			return fmt.Errorf("scheduler: job %s: %w", name, err)
		}
		entry.ID = id
	}
	s.jobs[name] = runnable
	s.entries[name] = entry
	s.logger.Info("job registered", "job", name, "spec", spec)
	return nil
}

// Entries 按名称排序返回已注册任务。
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RunNow 立即同步执行指定任务。
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	runnable, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown job %q / 任务不存在", name)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return runnable.Run(ctx)
}

// Start 启动调度器并执行任务。
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop 停止调度器并等待执行中的任务结束。
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		done, cancel := context.WithCancel(context.Background())
		cancel()
		return done
	}
	s.started = false
	return s.cron.Stop()
}

// wrap 包装任务，提供超时与统一日志。
func (s *Scheduler) wrap(runnable Runnable) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		start := time.Now()
		if err := runnable.Run(ctx); err != nil {
			s.logger.Error("job failed", "job", runnable.Name(), "error", err, "elapsed", time.Since(start))
			return
		}
		s.logger.Debug("job completed", "job", runnable.Name(), "elapsed", time.Since(start))
	}
}
