package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
)

// InstanceChanges are the user-editable fields of an instance.
type InstanceChanges struct {
	Title             string
	Description       string
	EstimatedDuration int64
	Priority          model.Priority
	RecurrenceKind    model.RecurrenceKind
}

// Store groups the repositories and implements the operations that touch
// more than one table. Each of those runs in a single transaction.
type Store struct {
	db          *gorm.DB
	Templates   *TemplateRepository
	Instances   *InstanceRepository
	Sessions    *SessionRepository
	Completions *CompletionRepository
	Marks       *MarkRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Templates:   NewTemplateRepository(db),
		Instances:   NewInstanceRepository(db),
		Sessions:    NewSessionRepository(db),
		Completions: NewCompletionRepository(db),
		Marks:       NewMarkRepository(db),
	}
}

// Transaction runs fn against a Store bound to one database transaction.
// Calls nest through savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// CreateInstance inserts inst; a recurring instance gets a fresh template
// carrying the same fields, marked as served for inst's date.
func (s *Store) CreateInstance(ctx context.Context, inst *model.TaskInstance) error {
	return s.Transaction(ctx, func(tx *Store) error {
		inst.TemplateID = nil
		if inst.RecurrenceKind != model.RecurNone {
			tpl := model.TaskTemplate{
				Title:             inst.Title,
				Description:       inst.Description,
				EstimatedDuration: inst.EstimatedDuration,
				Priority:          inst.Priority,
				RecurrenceKind:    inst.RecurrenceKind,
			}
			if err := tx.Templates.Create(ctx, &tpl); err != nil {
				return err
			}
			if err := tx.Marks.Create(ctx, tpl.ID, inst.TaskDate); err != nil {
				return err
			}
			inst.TemplateID = &tpl.ID
		}
		return tx.Instances.Create(ctx, inst)
	})
}

// UpdateInstance applies changes to an instance and keeps its template in
// step: recurring edits update (or create) the template and mark the
// instance's date as served, turning recurrence off deletes the template and
// detaches every instance that used it.
func (s *Store) UpdateInstance(ctx context.Context, id uint, changes InstanceChanges) (*model.TaskInstance, error) {
	var updated *model.TaskInstance
	err := s.Transaction(ctx, func(tx *Store) error {
		inst, err := tx.Instances.FindByID(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case changes.RecurrenceKind != model.RecurNone:
			templateID, err := tx.saveTemplate(ctx, inst.TemplateID, changes)
			if err != nil {
				return err
			}
			if err := tx.Marks.Ensure(ctx, templateID, inst.TaskDate); err != nil {
				return err
			}
			inst.TemplateID = &templateID
		case inst.TemplateID != nil:
			if err := tx.Instances.DetachTemplate(ctx, *inst.TemplateID); err != nil {
				return err
			}
			if err := tx.deleteTemplate(ctx, *inst.TemplateID); err != nil {
				return err
			}
			inst.TemplateID = nil
		}

		inst.Title = changes.Title
		inst.Description = changes.Description
		inst.EstimatedDuration = changes.EstimatedDuration
		inst.Priority = changes.Priority
		inst.RecurrenceKind = changes.RecurrenceKind
		if err := tx.Instances.Update(ctx, inst); err != nil {
			return err
		}
		updated = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) saveTemplate(ctx context.Context, templateID *uint, changes InstanceChanges) (uint, error) {
	tpl := &model.TaskTemplate{}
	if templateID != nil {
		found, err := s.Templates.FindByID(ctx, *templateID)
		switch {
		case err == nil:
			tpl = found
		case !errors.Is(err, ErrNotFound):
			return 0, err
		}
	}
	tpl.Title = changes.Title
	tpl.Description = changes.Description
	tpl.EstimatedDuration = changes.EstimatedDuration
	tpl.Priority = changes.Priority
	tpl.RecurrenceKind = changes.RecurrenceKind

	if tpl.ID == 0 {
		if err := s.Templates.Create(ctx, tpl); err != nil {
			return 0, err
		}
		return tpl.ID, nil
	}
	if err := s.Templates.Update(ctx, tpl); err != nil {
		return 0, err
	}
	return tpl.ID, nil
}

func (s *Store) deleteTemplate(ctx context.Context, templateID uint) error {
	if err := s.Marks.DeleteByTemplate(ctx, templateID); err != nil {
		return err
	}
	return s.Templates.Delete(ctx, templateID)
}

// DeleteInstance removes an instance with its sessions. The template goes
// too once no other instance references it.
func (s *Store) DeleteInstance(ctx context.Context, id uint) (*model.TaskInstance, error) {
	var deleted *model.TaskInstance
	err := s.Transaction(ctx, func(tx *Store) error {
		inst, err := tx.Instances.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Sessions.DeleteByInstance(ctx, id); err != nil {
			return err
		}
		if err := tx.Instances.Delete(ctx, id); err != nil {
			return err
		}
		if inst.TemplateID != nil {
			remaining, err := tx.Instances.CountByTemplate(ctx, *inst.TemplateID)
			if err != nil {
				return err
			}
			if remaining == 0 {
				if err := tx.deleteTemplate(ctx, *inst.TemplateID); err != nil {
					return err
				}
			}
		}
		deleted = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// OpenSession starts a session for an existing instance.
func (s *Store) OpenSession(ctx context.Context, instanceID uint, start time.Time) (*model.TaskSession, error) {
	var session *model.TaskSession
	err := s.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.Instances.FindByID(ctx, instanceID); err != nil {
			return err
		}
		opened, err := tx.Sessions.Open(ctx, instanceID, start)
		if err != nil {
			return err
		}
		session = opened
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// CloseSession ends a session and flags its instance as timed.
func (s *Store) CloseSession(ctx context.Context, sessionID uint, end time.Time, duration int64, summary string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		session, err := tx.Sessions.FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := tx.Sessions.Close(ctx, sessionID, end, duration, summary); err != nil {
			return err
		}
		return tx.Instances.MarkTimed(ctx, session.InstanceID)
	})
}

// CompleteInstance moves an instance into the history: the record insert
// and the instance and session deletes commit together or not at all.
func (s *Store) CompleteInstance(ctx context.Context, id uint, summary string, completedAt time.Time) (*model.CompletionRecord, error) {
	var record *model.CompletionRecord
	err := s.Transaction(ctx, func(tx *Store) error {
		inst, err := tx.Instances.FindByID(ctx, id)
		if err != nil {
			return err
		}
		total, err := tx.Sessions.SumDurations(ctx, id)
		if err != nil {
			return err
		}
		rec := model.CompletionRecord{
			Title:         inst.Title,
			Description:   inst.Description,
			TaskDate:      inst.TaskDate,
			CompletedAt:   completedAt,
			TotalDuration: total,
			Priority:      inst.Priority,
			Summary:       summary,
		}
		if err := tx.Completions.Create(ctx, &rec); err != nil {
			return err
		}
		if err := tx.Sessions.DeleteByInstance(ctx, id); err != nil {
			return err
		}
		if err := tx.Instances.Delete(ctx, id); err != nil {
			return err
		}
		record = &rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("complete instance %d: %w", id, err)
	}
	return record, nil
}

func (s *Store) SumSessionDurations(ctx context.Context, instanceID uint) (int64, error) {
	return s.Sessions.SumDurations(ctx, instanceID)
}

func (s *Store) FindOpenSession(ctx context.Context, instanceID uint) (*model.TaskSession, error) {
	return s.Sessions.FindOpen(ctx, instanceID)
}
