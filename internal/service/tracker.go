package service

import (
	"context"
	"time"

	"daily-tracker/internal/model"
)

// SessionStore persists the sessions a tracker opens and closes.
type SessionStore interface {
	OpenSession(ctx context.Context, instanceID uint, start time.Time) (*model.TaskSession, error)
	CloseSession(ctx context.Context, sessionID uint, end time.Time, duration int64, summary string) error
}

// TrackerSnapshot is a copy of the tracker state for display.
type TrackerSnapshot struct {
	InstanceID uint
	SessionID  uint
	Running    bool
	Paused     bool
	StartTime  time.Time
	Elapsed    int64
}

// sessionClose holds the values a stop writes to the open session.
type sessionClose struct {
	sessionID uint
	end       time.Time
	duration  int64
}

// SessionTracker times one instance: one open session at a time, with
// pauses subtracted from the elapsed time. It is not safe for concurrent
// use; Controller serializes access to it.
type SessionTracker struct {
	store      SessionStore
	now        func() time.Time
	instanceID uint

	running     bool
	paused      bool
	sessionID   uint
	startTime   time.Time
	pauseStart  time.Time
	pausedTotal time.Duration
}

func NewSessionTracker(store SessionStore, instanceID uint, now func() time.Time) *SessionTracker {
	if now == nil {
		now = time.Now
	}
	return &SessionTracker{store: store, instanceID: instanceID, now: now}
}

func (t *SessionTracker) InstanceID() uint { return t.instanceID }
func (t *SessionTracker) Running() bool    { return t.running }
func (t *SessionTracker) Paused() bool     { return t.running && t.paused }

// Start opens a new session. It returns false when the tracker is already
// running.
func (t *SessionTracker) Start(ctx context.Context) (bool, error) {
	if t.running {
		return false, nil
	}
	start := t.now()
	session, err := t.store.OpenSession(ctx, t.instanceID, start)
	if err != nil {
		return false, err
	}
	t.running = true
	t.paused = false
	t.sessionID = session.ID
	t.startTime = start
	t.pauseStart = time.Time{}
	t.pausedTotal = 0
	return true, nil
}

func (t *SessionTracker) Pause() bool {
	if !t.running || t.paused {
		return false
	}
	t.paused = true
	t.pauseStart = t.now()
	return true
}

func (t *SessionTracker) Resume() bool {
	if !t.running || !t.paused {
		return false
	}
	t.pausedTotal += t.now().Sub(t.pauseStart)
	t.paused = false
	t.pauseStart = time.Time{}
	return true
}

// Stop closes the open session with the current elapsed time and summary.
// A stop while paused does not count the running pause. On a store error
// the tracker keeps running.
func (t *SessionTracker) Stop(ctx context.Context, summary string) (bool, error) {
	c, ok := t.closing()
	if !ok {
		return false, nil
	}
	if err := t.store.CloseSession(ctx, c.sessionID, c.end, c.duration, summary); err != nil {
		return false, err
	}
	t.reset()
	return true, nil
}

// Elapsed returns whole seconds of work in the open session. Time stands
// still while paused.
func (t *SessionTracker) Elapsed() int64 {
	if !t.running {
		return 0
	}
	until := t.now()
	if t.paused {
		until = t.pauseStart
	}
	elapsed := until.Sub(t.startTime) - t.pausedTotal
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / time.Second)
}

func (t *SessionTracker) Snapshot() TrackerSnapshot {
	return TrackerSnapshot{
		InstanceID: t.instanceID,
		SessionID:  t.sessionID,
		Running:    t.running,
		Paused:     t.Paused(),
		StartTime:  t.startTime,
		Elapsed:    t.Elapsed(),
	}
}

func (t *SessionTracker) closing() (sessionClose, bool) {
	if !t.running || t.sessionID == 0 {
		return sessionClose{}, false
	}
	return sessionClose{
		sessionID: t.sessionID,
		end:       t.now(),
		duration:  t.Elapsed(),
	}, true
}

func (t *SessionTracker) reset() {
	t.running = false
	t.paused = false
	t.sessionID = 0
	t.startTime = time.Time{}
	t.pauseStart = time.Time{}
	t.pausedTotal = 0
}
