package service

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SnapshotSource yields the task in progress; Controller implements it.
type SnapshotSource interface {
	Snapshot() (ActiveSnapshot, bool)
}

// DisplayRefresher periodically hands the active task snapshot to a render
// callback. It only reads; when nothing is in progress a tick does nothing.
type DisplayRefresher struct {
	source SnapshotSource
	render func(ActiveSnapshot)

	mu      sync.Mutex
	entry   cron.EntryID
	started bool
}

func NewDisplayRefresher(source SnapshotSource, render func(ActiveSnapshot)) *DisplayRefresher {
	return &DisplayRefresher{source: source, render: render}
}

// Tick renders the current snapshot once.
func (r *DisplayRefresher) Tick() {
	snap, ok := r.source.Snapshot()
	if !ok || !snap.Tracker.Running {
		return
	}
	r.render(snap)
}

// Start schedules Tick every interval on the scheduler.
func (r *DisplayRefresher) Start(scheduler *SchedulerService, interval time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	id, err := scheduler.ScheduleInterval(interval, r.Tick)
	if err != nil {
		return err
	}
	r.entry = id
	r.started = true
	return nil
}

// Stop unschedules future ticks.
func (r *DisplayRefresher) Stop(scheduler *SchedulerService) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	scheduler.Remove(r.entry)
	r.started = false
}
