package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/pipeline"
)

// MockRefresher counts refreshes and can be told to fail
type MockRefresher struct {
	mu       sync.Mutex
	calls    int
	err      error
	storeErr error
	last     time.Time
	done     chan struct{}
}

func (m *MockRefresher) Refresh(ctx context.Context) (*pipeline.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.done != nil {
		select {
		case m.done <- struct{}{}:
		default:
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	m.last = time.Now()
	return &pipeline.Snapshot{Items: []feed.Item{{Title: "a", Link: "http://example.com/a"}}, StoreErr: m.storeErr}, nil
}

func (m *MockRefresher) LastRefresh() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *MockRefresher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSourceRepository keeps the source list in memory
type MockSourceRepository struct {
	mu      sync.Mutex
	sources []feed.Source
	err     error
}

func (m *MockSourceRepository) GetSources(ctx context.Context) ([]feed.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sources, m.err
}

func (m *MockSourceRepository) ReplaceSources(ctx context.Context, sources []feed.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = sources
	return nil
}

func (m *MockSourceRepository) AddSource(ctx context.Context, source feed.Source) error {
	return m.ReplaceSources(ctx, append(m.sources, source))
}

func (m *MockSourceRepository) RemoveSource(ctx context.Context, url string) (bool, error) {
	return false, nil
}

func newSeedCache(t *testing.T) *feed.ConfigCache {
	t.Helper()
	dir := t.TempDir()
	content := "url: \"https://example.com/feed.xml\"\nsettings:\n  enabled: true\n"
	if err := os.WriteFile(filepath.Join(dir, "example.yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cache := feed.NewConfigCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}
	return cache
}

func TestSyncSourcesTaskSeedsEmptyStore(t *testing.T) {
	repo := &MockSourceRepository{}
	task := NewSyncSourcesTask(newSeedCache(t), repo)
	task.Start()

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(repo.sources) != 1 || repo.sources[0].URL != "https://example.com/feed.xml" {
		t.Errorf("Expected seeded source, got %v", repo.sources)
	}
}

func TestSyncSourcesTaskKeepsAdministeredList(t *testing.T) {
	existing := []feed.Source{{Kind: feed.SourceKindWebpage, URL: "https://other.example.com"}}
	repo := &MockSourceRepository{sources: existing}

	if err := NewSyncSourcesTask(newSeedCache(t), repo).Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(repo.sources) != 1 || repo.sources[0].URL != existing[0].URL {
		t.Errorf("Expected stored list untouched, got %v", repo.sources)
	}
}

func TestRefreshTask(t *testing.T) {
	refresher := &MockRefresher{}
	if err := NewRefreshTask(refresher).Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if refresher.Calls() != 1 {
		t.Errorf("Expected 1 refresh, got %d", refresher.Calls())
	}

	failing := &MockRefresher{storeErr: errors.New("disk full")}
	if err := NewRefreshTask(failing).Execute(context.Background()); err == nil {
		t.Error("Expected store failure to fail the task so it retries")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewRefreshTask(&MockRefresher{}).Execute(ctx); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestTaskRetryLimits(t *testing.T) {
	task := NewTask(TaskTypeRefresh)
	if task.ID == "" {
		t.Error("Expected task id")
	}
	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i)
		}
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("Expected no retries left")
	}
	if NewTask(TaskTypeRefresh).ID == task.ID {
		t.Error("Expected unique task ids")
	}
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		retry    int
		expected time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := retryBackoff(tt.retry); got != tt.expected {
			t.Errorf("retryBackoff(%d): expected %v, got %v", tt.retry, tt.expected, got)
		}
	}
}

func TestSchedulerStartupSeedsAndRefreshes(t *testing.T) {
	repo := &MockSourceRepository{}
	refresher := &MockRefresher{done: make(chan struct{}, 1)}

	s := NewScheduler(newSeedCache(t), repo, refresher, SchedulerOptions{
		Interval:    time.Hour,
		Revalidate:  time.Hour,
		WorkerCount: 1,
	})
	s.Start()
	defer s.Stop()

	select {
	case <-refresher.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected startup refresh")
	}

	sources, _ := repo.GetSources(context.Background())
	if len(sources) != 1 {
		t.Errorf("Expected sources seeded before refresh, got %v", sources)
	}
}

func TestSchedulerEnqueueRefreshDeduplicates(t *testing.T) {
	s := NewScheduler(feed.NewConfigCache(t.TempDir()), &MockSourceRepository{}, &MockRefresher{}, SchedulerOptions{
		Interval:    time.Hour,
		Revalidate:  time.Hour,
		WorkerCount: 1,
	})
	defer s.cancel()

	if err := s.EnqueueRefresh(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := s.EnqueueRefresh(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(s.taskQueue) != 1 {
		t.Errorf("Expected a single queued refresh, got %d", len(s.taskQueue))
	}

	task := <-s.taskQueue
	s.executeTask(0, task)

	if err := s.EnqueueRefresh(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(s.taskQueue) != 1 {
		t.Errorf("Expected refresh queueable after completion, got %d", len(s.taskQueue))
	}
}

func TestSchedulerSkipsFreshSnapshot(t *testing.T) {
	refresher := &MockRefresher{last: time.Now()}
	s := NewScheduler(feed.NewConfigCache(t.TempDir()), &MockSourceRepository{}, refresher, SchedulerOptions{
		Interval:    time.Hour,
		Revalidate:  time.Hour,
		WorkerCount: 1,
	})
	defer s.cancel()

	s.enqueueTasks()
	if len(s.taskQueue) != 0 {
		t.Errorf("Expected no refresh for fresh snapshot, got %d queued", len(s.taskQueue))
	}

	refresher.mu.Lock()
	refresher.last = time.Now().Add(-2 * time.Hour)
	refresher.mu.Unlock()

	s.enqueueTasks()
	if len(s.taskQueue) != 1 {
		t.Errorf("Expected refresh for stale snapshot, got %d queued", len(s.taskQueue))
	}
}
