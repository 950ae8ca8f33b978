package service

import (
	"context"
	"strings"
	"time"

	"daily-tracker/internal/duration"
	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

// TaskInput represents data required to create or edit a task.
type TaskInput struct {
	Title       string
	Description string
	// TaskDate is YYYY-MM-DD; empty means today. Ignored on edit.
	TaskDate         string
	EstimatedMinutes string
	Priority         model.Priority
	Recurrence       model.RecurrenceKind
}

// TodayItem is one row of a day's task list.
type TodayItem struct {
	Instance model.TaskInstance
	// Tracked is the sum of closed sessions.
	Tracked int64
	Active  bool
	Paused  bool
	// Live is the elapsed time of the open session when Active.
	Live int64
}

// Total is the time spent so far, including the running session.
func (i TodayItem) Total() int64 {
	return i.Tracked + i.Live
}

// Statistics is the history summary over the last Days days.
type Statistics struct {
	repository.Statistics
	Days          int
	Since         string
	AveragePerDay int64
}

// ActiveTasks exposes the task in progress; Controller implements it.
type ActiveTasks interface {
	Snapshot() (ActiveSnapshot, bool)
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store  *repository.Store
	active ActiveTasks
	now    func() time.Time
}

func NewTaskService(store *repository.Store, active ActiveTasks, now func() time.Time) *TaskService {
	if now == nil {
		now = time.Now
	}
	return &TaskService{store: store, active: active, now: now}
}

func (s *TaskService) Today() string {
	return model.FormatDate(s.now())
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.TaskInstance, error) {
	changes, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	taskDate := strings.TrimSpace(input.TaskDate)
	if taskDate == "" {
		taskDate = s.Today()
	} else if _, err := model.ParseDate(taskDate, s.now().Location()); err != nil {
		return nil, &ValidationError{Field: "date", Message: "expected YYYY-MM-DD"}
	}

	inst := model.TaskInstance{
		Title:             changes.Title,
		Description:       changes.Description,
		TaskDate:          taskDate,
		EstimatedDuration: changes.EstimatedDuration,
		Priority:          changes.Priority,
		RecurrenceKind:    changes.RecurrenceKind,
	}
	if err := s.store.CreateInstance(ctx, &inst); err != nil {
		return nil, storageErr("create task", err)
	}
	return &inst, nil
}

// EditTask changes an instance and its template. The task in progress
// cannot be edited.
func (s *TaskService) EditTask(ctx context.Context, id uint, input TaskInput) (*model.TaskInstance, error) {
	if id == 0 {
		return nil, ErrNoSelection
	}
	changes, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	if err := s.ensureIdle("edit", id); err != nil {
		return nil, err
	}
	inst, err := s.store.UpdateInstance(ctx, id, changes)
	if err != nil {
		return nil, storageErr("edit task", err)
	}
	return inst, nil
}

// DeleteTask removes an instance with its sessions, and its template once
// unreferenced. The task in progress cannot be deleted.
func (s *TaskService) DeleteTask(ctx context.Context, id uint) (*model.TaskInstance, error) {
	if id == 0 {
		return nil, ErrNoSelection
	}
	if err := s.ensureIdle("delete", id); err != nil {
		return nil, err
	}
	inst, err := s.store.DeleteInstance(ctx, id)
	if err != nil {
		return nil, storageErr("delete task", err)
	}
	return inst, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uint) (*model.TaskInstance, error) {
	if id == 0 {
		return nil, ErrNoSelection
	}
	inst, err := s.store.Instances.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("get task", err)
	}
	return inst, nil
}

// TrackedTime is the closed-session total of one instance.
func (s *TaskService) TrackedTime(ctx context.Context, id uint) (int64, error) {
	total, err := s.store.SumSessionDurations(ctx, id)
	if err != nil {
		return 0, storageErr("tracked time", err)
	}
	return total, nil
}

func (s *TaskService) ListToday(ctx context.Context) ([]TodayItem, error) {
	return s.ListForDate(ctx, s.Today())
}

// ListForDate returns a day's instances, most urgent first, with their
// tracked time.
func (s *TaskService) ListForDate(ctx context.Context, date string) ([]TodayItem, error) {
	instances, err := s.store.Instances.ListByDate(ctx, date)
	if err != nil {
		return nil, storageErr("list tasks", err)
	}
	ids := make([]uint, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	totals, err := s.store.Sessions.SumDurationsByInstance(ctx, ids)
	if err != nil {
		return nil, storageErr("list tasks", err)
	}

	var snap ActiveSnapshot
	var hasActive bool
	if s.active != nil {
		snap, hasActive = s.active.Snapshot()
	}

	items := make([]TodayItem, 0, len(instances))
	for _, inst := range instances {
		item := TodayItem{Instance: inst, Tracked: totals[inst.ID]}
		if hasActive && snap.Instance.ID == inst.ID {
			item.Active = true
			item.Paused = snap.Tracker.Paused
			item.Live = snap.Tracker.Elapsed
		}
		items = append(items, item)
	}
	return items, nil
}

// ListHistory returns completion records whose task date is within the last
// sinceDays days.
func (s *TaskService) ListHistory(ctx context.Context, sinceDays int) ([]model.CompletionRecord, error) {
	since, err := s.since(sinceDays)
	if err != nil {
		return nil, err
	}
	records, err := s.store.Completions.ListSince(ctx, since)
	if err != nil {
		return nil, storageErr("list history", err)
	}
	return records, nil
}

func (s *TaskService) HistoryRecord(ctx context.Context, id uint) (*model.CompletionRecord, error) {
	if id == 0 {
		return nil, ErrNoSelection
	}
	record, err := s.store.Completions.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("history record", err)
	}
	return record, nil
}

func (s *TaskService) Statistics(ctx context.Context, sinceDays int) (Statistics, error) {
	since, err := s.since(sinceDays)
	if err != nil {
		return Statistics{}, err
	}
	base, err := s.store.Completions.Statistics(ctx, since)
	if err != nil {
		return Statistics{}, storageErr("statistics", err)
	}
	stats := Statistics{Statistics: base, Days: sinceDays, Since: since}
	if sinceDays > 0 {
		stats.AveragePerDay = base.TotalCompleted / int64(sinceDays)
	}
	return stats, nil
}

func (s *TaskService) since(days int) (string, error) {
	if days < 0 {
		return "", &ValidationError{Field: "days", Message: "must not be negative"}
	}
	return model.FormatDate(s.now().AddDate(0, 0, -days)), nil
}

func (s *TaskService) ensureIdle(action string, id uint) error {
	if s.active == nil {
		return nil
	}
	if snap, ok := s.active.Snapshot(); ok && snap.Instance.ID == id {
		return &ConflictError{Action: action, ActiveID: id, ActiveTitle: snap.Instance.Title}
	}
	return nil
}

func (s *TaskService) validate(input TaskInput) (repository.InstanceChanges, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return repository.InstanceChanges{}, &ValidationError{Field: "title", Message: "title is required"}
	}
	estimate, err := duration.ParseMinutes(input.EstimatedMinutes)
	if err != nil {
		return repository.InstanceChanges{}, &ValidationError{Field: "estimate", Message: err.Error()}
	}
	if !input.Priority.Valid() {
		return repository.InstanceChanges{}, &ValidationError{Field: "priority", Message: "must be 0, 1 or 2"}
	}
	if !input.Recurrence.Valid() {
		return repository.InstanceChanges{}, &ValidationError{Field: "recurrence", Message: "must be none, daily or weekday"}
	}
	return repository.InstanceChanges{
		Title:             title,
		Description:       strings.TrimSpace(input.Description),
		EstimatedDuration: estimate,
		Priority:          input.Priority,
		RecurrenceKind:    input.Recurrence,
	}, nil
}
