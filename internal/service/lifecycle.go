package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

// interruptedSummary marks sessions closed by Recover.
const interruptedSummary = "interrupted"

// Notifier receives one event per successful completion. Delivery is best
// effort; errors are logged and never undo the completion.
type Notifier interface {
	NotifyCompleted(ctx context.Context, record model.CompletionRecord) error
}

// ActiveSnapshot describes the task being timed right now.
type ActiveSnapshot struct {
	Instance model.TaskInstance
	Tracker  TrackerSnapshot
}

type activeTask struct {
	instance model.TaskInstance
	tracker  *SessionTracker
}

// Controller drives instances through pending, in progress, paused and
// completed. At most one instance is in progress at a time; all transitions
// hold mu.
type Controller struct {
	mu       sync.Mutex
	store    *repository.Store
	notifier Notifier
	now      func() time.Time
	active   *activeTask
}

func NewController(store *repository.Store, notifier Notifier, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{store: store, notifier: notifier, now: now}
}

// SetNotifier replaces the completion notifier.
func (c *Controller) SetNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// StartTask begins timing an instance. While another instance is in
// progress it returns a *ConflictError unless confirmSwitch is set, in which
// case the other one is stopped first and keeps its time.
func (c *Controller) StartTask(ctx context.Context, id uint, confirmSwitch bool) (*model.TaskInstance, error) {
	if id == 0 {
		return nil, ErrNoSelection
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	inst, err := c.store.Instances.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("start task", err)
	}

	if c.active != nil {
		if c.active.instance.ID == id {
			return nil, ErrAlreadyInProgress
		}
		if !confirmSwitch {
			return nil, &ConflictError{Action: "start", ActiveID: c.active.instance.ID, ActiveTitle: c.active.instance.Title}
		}
		previous := c.active.instance.ID
		if err := c.stopLocked(ctx, ""); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Printf("[info] switched away from task id=%d", previous)
	}

	if err := c.closeStaleLocked(ctx, id); err != nil {
		return nil, err
	}

	tracker := NewSessionTracker(c.store, id, c.now)
	if _, err := tracker.Start(ctx); err != nil {
		return nil, storageErr("start task", err)
	}
	c.active = &activeTask{instance: *inst, tracker: tracker}
	log.Printf("[info] task started id=%d session=%d", id, tracker.Snapshot().SessionID)
	return inst, nil
}

func (c *Controller) PauseTask(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ErrNoActiveTask
	}
	return c.pauseLocked()
}

func (c *Controller) ResumeTask(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ErrNoActiveTask
	}
	return c.resumeLocked()
}

// TogglePause pauses a running task or resumes a paused one and reports
// whether the task is paused afterwards.
func (c *Controller) TogglePause(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return false, ErrNoActiveTask
	}
	if c.active.tracker.Paused() {
		return false, c.resumeLocked()
	}
	if err := c.pauseLocked(); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Controller) pauseLocked() error {
	if !c.active.tracker.Pause() {
		return ErrAlreadyPaused
	}
	log.Printf("[info] task paused id=%d", c.active.instance.ID)
	return nil
}

func (c *Controller) resumeLocked() error {
	if !c.active.tracker.Resume() {
		return ErrNotPaused
	}
	log.Printf("[info] task resumed id=%d", c.active.instance.ID)
	return nil
}

// StopTask closes the running session without completing the task. The
// instance stays pending with its accumulated time.
func (c *Controller) StopTask(ctx context.Context, summary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked(ctx, summary)
}

// CompleteTask closes the open session of the instance, if it is the one in
// progress, and moves it to the history in one transaction. An instance that
// was never timed and is not in progress yields ErrNoActiveTask.
func (c *Controller) CompleteTask(ctx context.Context, id uint, summary string) (*model.CompletionRecord, error) {
	record, err := c.complete(ctx, id, summary)
	if err != nil {
		return nil, err
	}
	c.notify(ctx, *record)
	return record, nil
}

func (c *Controller) complete(ctx context.Context, id uint, summary string) (*model.CompletionRecord, error) {
	if id == 0 {
		return nil, ErrNoSelection
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var closing *sessionClose
	isActive := c.active != nil && c.active.instance.ID == id
	if isActive {
		if cl, ok := c.active.tracker.closing(); ok {
			closing = &cl
		}
	} else {
		if _, err := c.store.Instances.FindByID(ctx, id); err != nil {
			return nil, storageErr("complete task", err)
		}
		sessions, err := c.store.Sessions.CountByInstance(ctx, id)
		if err != nil {
			return nil, storageErr("complete task", err)
		}
		if sessions == 0 {
			return nil, ErrNoActiveTask
		}
	}

	var record *model.CompletionRecord
	err := c.store.Transaction(ctx, func(tx *repository.Store) error {
		if closing != nil {
			if err := tx.CloseSession(ctx, closing.sessionID, closing.end, closing.duration, summary); err != nil {
				return err
			}
		}
		rec, err := tx.CompleteInstance(ctx, id, summary, c.now())
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		if isActive && errors.Is(err, ErrNotFound) {
			c.active = nil
		}
		return nil, storageErr("complete task", err)
	}

	if isActive {
		c.active.tracker.reset()
		c.active = nil
	}
	log.Printf("[info] task completed id=%d total=%ds", id, record.TotalDuration)
	return record, nil
}

// Snapshot returns the task in progress, if any. It only reads in-memory
// state and is safe to call from the display refresher at any time.
func (c *Controller) Snapshot() (ActiveSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ActiveSnapshot{}, false
	}
	return ActiveSnapshot{
		Instance: c.active.instance,
		Tracker:  c.active.tracker.Snapshot(),
	}, true
}

func (c *Controller) IsActive(id uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil && c.active.instance.ID == id
}

// ActiveID is the instance in progress, or 0.
func (c *Controller) ActiveID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return 0
	}
	return c.active.instance.ID
}

// Recover closes sessions left open by a previous process. Their pause
// history is gone, so they are closed with zero duration.
func (c *Controller) Recover(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	open, err := c.store.Sessions.ListOpen(ctx)
	if err != nil {
		return 0, storageErr("recover sessions", err)
	}
	closed := 0
	for _, session := range open {
		if c.active != nil && c.active.tracker.Snapshot().SessionID == session.ID {
			continue
		}
		if err := c.store.CloseSession(ctx, session.ID, c.now(), 0, interruptedSummary); err != nil {
			return closed, storageErr("recover sessions", err)
		}
		closed++
	}
	if closed > 0 {
		log.Printf("[info] closed %d interrupted session(s)", closed)
	}
	return closed, nil
}

func (c *Controller) stopLocked(ctx context.Context, summary string) error {
	if c.active == nil {
		return ErrNoActiveTask
	}
	id := c.active.instance.ID
	if _, err := c.active.tracker.Stop(ctx, summary); err != nil {
		if errors.Is(err, ErrNotFound) {
			// The instance was removed behind our back; nothing left to time.
			c.active = nil
		}
		return storageErr("stop task", err)
	}
	c.active = nil
	log.Printf("[info] task stopped id=%d", id)
	return nil
}

// closeStaleLocked keeps the one-open-session rule when a session of id was
// left open outside this controller.
func (c *Controller) closeStaleLocked(ctx context.Context, id uint) error {
	stale, err := c.store.FindOpenSession(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return storageErr("start task", err)
	}
	if err := c.store.CloseSession(ctx, stale.ID, c.now(), 0, interruptedSummary); err != nil {
		return storageErr("start task", err)
	}
	return nil
}

func (c *Controller) notify(ctx context.Context, record model.CompletionRecord) {
	c.mu.Lock()
	notifier := c.notifier
	c.mu.Unlock()

	if notifier == nil {
		return
	}
	if err := notifier.NotifyCompleted(ctx, record); err != nil {
		log.Printf("notify completion of %q: %v", record.Title, err)
	}
}
