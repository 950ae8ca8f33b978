package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

// Monday.
var day1 = time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingNotifier struct {
	mu      sync.Mutex
	records []model.CompletionRecord
	err     error
}

func (n *recordingNotifier) NotifyCompleted(_ context.Context, record model.CompletionRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, record)
	return n.err
}

type testEnv struct {
	db         *gorm.DB
	store      *repository.Store
	clock      *fakeClock
	notifier   *recordingNotifier
	controller *Controller
	tasks      *TaskService
	generator  *RecurrenceGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	store := repository.NewStore(db)
	clock := &fakeClock{now: day1}
	notifier := &recordingNotifier{}
	controller := NewController(store, notifier, clock.Now)
	return &testEnv{
		db:         db,
		store:      store,
		clock:      clock,
		notifier:   notifier,
		controller: controller,
		tasks:      NewTaskService(store, controller, clock.Now),
		generator:  NewRecurrenceGenerator(store),
	}
}

func (e *testEnv) addTask(t *testing.T, input TaskInput) *model.TaskInstance {
	t.Helper()
	inst, err := e.tasks.CreateTask(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateTask(%q) error = %v", input.Title, err)
	}
	return inst
}

func (e *testEnv) sessions(t *testing.T, instanceID uint) []model.TaskSession {
	t.Helper()
	sessions, err := e.store.Sessions.ListByInstance(context.Background(), instanceID)
	if err != nil {
		t.Fatalf("ListByInstance() error = %v", err)
	}
	return sessions
}

func mustNotFound(t *testing.T, err error, what string) {
	t.Helper()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("%s error = %v, want ErrNotFound", what, err)
	}
}
