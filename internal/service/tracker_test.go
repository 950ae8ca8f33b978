package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"daily-tracker/internal/model"
)

type closedSession struct {
	end      time.Time
	duration int64
	summary  string
}

type fakeSessionStore struct {
	nextID   uint
	opened   []uint
	closed   map[uint]closedSession
	closeErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{closed: make(map[uint]closedSession)}
}

func (f *fakeSessionStore) OpenSession(_ context.Context, instanceID uint, start time.Time) (*model.TaskSession, error) {
	f.nextID++
	f.opened = append(f.opened, f.nextID)
	return &model.TaskSession{ID: f.nextID, InstanceID: instanceID, StartTime: start}, nil
}

func (f *fakeSessionStore) CloseSession(_ context.Context, sessionID uint, end time.Time, duration int64, summary string) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closed[sessionID] = closedSession{end: end, duration: duration, summary: summary}
	return nil
}

func TestSessionTracker_PauseResumeStop(t *testing.T) {
	clock := &fakeClock{now: day1}
	store := newFakeSessionStore()
	tr := NewSessionTracker(store, 7, clock.Now)
	ctx := context.Background()

	if ok, err := tr.Start(ctx); !ok || err != nil {
		t.Fatalf("Start() = %v, %v; want true, nil", ok, err)
	}
	clock.Advance(300 * time.Second)
	if !tr.Pause() {
		t.Fatal("Pause() = false, want true")
	}
	clock.Advance(300 * time.Second)
	if got := tr.Elapsed(); got != 300 {
		t.Errorf("Elapsed() while paused = %d, want 300", got)
	}
	if !tr.Resume() {
		t.Fatal("Resume() = false, want true")
	}
	clock.Advance(300 * time.Second)
	if ok, err := tr.Stop(ctx, "done"); !ok || err != nil {
		t.Fatalf("Stop() = %v, %v; want true, nil", ok, err)
	}

	got := store.closed[1]
	if got.duration != 600 {
		t.Errorf("closed duration = %d, want 600", got.duration)
	}
	if got.summary != "done" {
		t.Errorf("closed summary = %q, want %q", got.summary, "done")
	}
	if !got.end.Equal(day1.Add(900 * time.Second)) {
		t.Errorf("closed end = %v, want t0+900s", got.end)
	}
	if tr.Running() || tr.Elapsed() != 0 {
		t.Errorf("tracker still running after Stop: running=%v elapsed=%d", tr.Running(), tr.Elapsed())
	}
}

func TestSessionTracker_InvalidTransitions(t *testing.T) {
	clock := &fakeClock{now: day1}
	tr := NewSessionTracker(newFakeSessionStore(), 1, clock.Now)
	ctx := context.Background()

	if tr.Pause() {
		t.Error("Pause() on idle tracker = true")
	}
	if tr.Resume() {
		t.Error("Resume() on idle tracker = true")
	}
	if ok, err := tr.Stop(ctx, ""); ok || err != nil {
		t.Errorf("Stop() on idle tracker = %v, %v; want false, nil", ok, err)
	}

	if ok, _ := tr.Start(ctx); !ok {
		t.Fatal("Start() = false")
	}
	if ok, _ := tr.Start(ctx); ok {
		t.Error("second Start() = true, want false")
	}
	if tr.Resume() {
		t.Error("Resume() while running = true")
	}
	if !tr.Pause() {
		t.Fatal("Pause() = false")
	}
	if tr.Pause() {
		t.Error("second Pause() = true, want false")
	}
}

func TestSessionTracker_StopWhilePausedFreezesTime(t *testing.T) {
	clock := &fakeClock{now: day1}
	store := newFakeSessionStore()
	tr := NewSessionTracker(store, 1, clock.Now)
	ctx := context.Background()

	tr.Start(ctx)
	clock.Advance(120 * time.Second)
	tr.Pause()
	clock.Advance(time.Hour)
	tr.Stop(ctx, "")

	if got := store.closed[1].duration; got != 120 {
		t.Errorf("duration = %d, want 120", got)
	}
}

func TestSessionTracker_ElapsedTruncates(t *testing.T) {
	clock := &fakeClock{now: day1}
	tr := NewSessionTracker(newFakeSessionStore(), 1, clock.Now)
	tr.Start(context.Background())

	clock.Advance(1900 * time.Millisecond)
	if got := tr.Elapsed(); got != 1 {
		t.Errorf("Elapsed() = %d, want 1", got)
	}
}

func TestSessionTracker_StoreErrorKeepsRunning(t *testing.T) {
	clock := &fakeClock{now: day1}
	store := newFakeSessionStore()
	tr := NewSessionTracker(store, 1, clock.Now)
	ctx := context.Background()
	tr.Start(ctx)
	clock.Advance(10 * time.Second)

	store.closeErr = errors.New("disk full")
	if ok, err := tr.Stop(ctx, ""); ok || err == nil {
		t.Fatalf("Stop() = %v, %v; want false and an error", ok, err)
	}
	if !tr.Running() {
		t.Fatal("tracker idle after failed Stop")
	}

	store.closeErr = nil
	clock.Advance(5 * time.Second)
	if ok, err := tr.Stop(ctx, ""); !ok || err != nil {
		t.Fatalf("Stop() retry = %v, %v", ok, err)
	}
	if got := store.closed[1].duration; got != 15 {
		t.Errorf("duration after retry = %d, want 15", got)
	}
}

func TestSessionTracker_CyclesAreAdditive(t *testing.T) {
	clock := &fakeClock{now: day1}
	store := newFakeSessionStore()
	ctx := context.Background()

	// Each cycle: work, pause, work, stop. Pauses never count.
	cycles := []struct{ work1, pause, work2 time.Duration }{
		{10 * time.Second, 5 * time.Second, 20 * time.Second},
		{time.Minute, time.Hour, time.Minute},
		{3 * time.Second, 0, 4 * time.Second},
	}
	var want int64
	for _, c := range cycles {
		tr := NewSessionTracker(store, 1, clock.Now)
		tr.Start(ctx)
		clock.Advance(c.work1)
		tr.Pause()
		clock.Advance(c.pause)
		tr.Resume()
		clock.Advance(c.work2)
		tr.Stop(ctx, "")
		want += int64((c.work1 + c.work2) / time.Second)
	}

	var got int64
	for _, s := range store.closed {
		got += s.duration
	}
	if got != want {
		t.Errorf("sum of durations = %d, want %d", got, want)
	}
}
