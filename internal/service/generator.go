package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

// GenerationResult lists what one GenerateForDate run did.
type GenerationResult struct {
	Date    string
	Created []model.TaskInstance
	Skipped int
	Failed  map[uint]error
}

// RecurrenceGenerator materializes dated instances from templates.
type RecurrenceGenerator struct {
	store *repository.Store
}

func NewRecurrenceGenerator(store *repository.Store) *RecurrenceGenerator {
	return &RecurrenceGenerator{store: store}
}

// ShouldGenerate reports whether a template of kind produces an instance on date.
func ShouldGenerate(kind model.RecurrenceKind, date time.Time) bool {
	switch kind {
	case model.RecurDaily:
		return true
	case model.RecurWeekday:
		wd := date.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	default:
		return false
	}
}

// GenerateForDate creates the missing instances for date. It is safe to run
// any number of times per day: a template served once for a date is not
// served again, even after that instance was completed or deleted. Every template is handled in its own
// transaction; a failing template is logged and reported while the rest
// are still processed.
func (g *RecurrenceGenerator) GenerateForDate(ctx context.Context, date time.Time) (GenerationResult, error) {
	result := GenerationResult{
		Date:   model.FormatDate(date),
		Failed: make(map[uint]error),
	}

	templates, err := g.store.Templates.ListAll(ctx)
	if err != nil {
		return result, storageErr("generate tasks", err)
	}

	var errs []error
	for _, tpl := range templates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		created, err := g.generateOne(ctx, tpl, date, result.Date)
		switch {
		case err != nil:
			log.Printf("generate from template %d for %s: %v", tpl.ID, result.Date, err)
			result.Failed[tpl.ID] = err
			errs = append(errs, fmt.Errorf("template %d: %w", tpl.ID, err))
		case created != nil:
			result.Created = append(result.Created, *created)
		default:
			result.Skipped++
		}
	}

	if len(result.Created) > 0 {
		log.Printf("[info] generated %d task(s) for %s", len(result.Created), result.Date)
	}
	if len(errs) > 0 {
		return result, storageErr("generate tasks", errors.Join(errs...))
	}
	return result, nil
}

// generateOne returns nil without error when nothing had to be created.
func (g *RecurrenceGenerator) generateOne(ctx context.Context, tpl model.TaskTemplate, date time.Time, day string) (*model.TaskInstance, error) {
	if !ShouldGenerate(tpl.RecurrenceKind, date) {
		return nil, nil
	}

	var created *model.TaskInstance
	err := g.store.Transaction(ctx, func(tx *repository.Store) error {
		served, err := tx.Marks.Exists(ctx, tpl.ID, day)
		if err != nil || served {
			return err
		}
		// Databases created before marks existed only have the live row.
		exists, err := tx.Instances.ExistsForTemplate(ctx, day, tpl.ID)
		if err != nil || exists {
			return err
		}
		templateID := tpl.ID
		inst := model.TaskInstance{
			Title:             tpl.Title,
			Description:       tpl.Description,
			TaskDate:          day,
			EstimatedDuration: tpl.EstimatedDuration,
			Priority:          tpl.Priority,
			RecurrenceKind:    tpl.RecurrenceKind,
			TemplateID:        &templateID,
		}
		if err := tx.Instances.Create(ctx, &inst); err != nil {
			return err
		}
		if err := tx.Marks.Create(ctx, tpl.ID, day); err != nil {
			return err
		}
		created = &inst
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another run got there first.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}
