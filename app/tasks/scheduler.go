package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	configCache    *feed.ConfigCache
	sourceRepo     database.SourceRepository
	refresher      Refresher
	interval       time.Duration
	revalidate     time.Duration
	workerCount    int
	taskTimeout    time.Duration
	refreshPending atomic.Bool
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	taskQueue      chan TaskInterface
}

type SchedulerOptions struct {
	Interval    time.Duration
	Revalidate  time.Duration
	WorkerCount int
}

func NewScheduler(configCache *feed.ConfigCache, sourceRepo database.SourceRepository,
	refresher Refresher, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		configCache: configCache,
		sourceRepo:  sourceRepo,
		refresher:   refresher,
		interval:    opts.Interval,
		revalidate:  opts.Revalidate,
		workerCount: max(opts.WorkerCount, 1),
		taskTimeout: 10 * time.Minute,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 32),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueRefresh queues a snapshot refresh unless one is already queued or
// running.
func (s *Scheduler) EnqueueRefresh() error {
	if !s.refreshPending.CompareAndSwap(false, true) {
		slog.Debug("Refresh already pending")
		return nil
	}

	if err := s.EnqueueTask(NewRefreshTask(s.refresher)); err != nil {
		s.refreshPending.Store(false)
		return err
	}
	return nil
}

// runStartupTasks seeds sources before the first refresh so the refresh
// sees them.
func (s *Scheduler) runStartupTasks() {
	syncTask := NewSyncSourcesTask(s.configCache, s.sourceRepo)
	s.executeTask(-1, syncTask)

	if err := s.EnqueueRefresh(); err != nil {
		slog.Warn("Failed to enqueue RefreshTask", "error", err)
	}
}

func (s *Scheduler) enqueueTasks() {
	last := s.refresher.LastRefresh()
	if !last.IsZero() && time.Since(last) < s.revalidate {
		slog.Debug("Snapshot fresh, no refresh needed", "last_refresh", last)
		return
	}

	if err := s.EnqueueRefresh(); err != nil {
		slog.Warn("Failed to enqueue RefreshTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.finish(task)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		s.finish(task)
		return
	}

	task.IncrementRetryCount()
	retryDelay := retryBackoff(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			s.finish(task)
		case <-time.After(retryDelay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				s.finish(task)
			}
		}
	}()
}

func (s *Scheduler) finish(task TaskInterface) {
	if task.GetType() == TaskTypeRefresh {
		s.refreshPending.Store(false)
	}
}

// retryBackoff doubles from one second and caps at thirty.
func retryBackoff(retryCount int) time.Duration {
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
