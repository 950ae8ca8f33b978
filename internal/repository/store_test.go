package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "tracker.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewStore(db)
}

func createInstance(t *testing.T, s *Store, inst model.TaskInstance) *model.TaskInstance {
	t.Helper()
	if err := s.CreateInstance(context.Background(), &inst); err != nil {
		t.Fatalf("CreateInstance() error = %v", err)
	}
	return &inst
}

func TestCreateInstance_RecurringCreatesTemplate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := createInstance(t, s, model.TaskInstance{
		Title:             "Standup",
		TaskDate:          "2026-10-12",
		EstimatedDuration: 900,
		Priority:          model.PriorityImportant,
		RecurrenceKind:    model.RecurDaily,
	})
	if inst.TemplateID == nil {
		t.Fatal("recurring instance has no template")
	}
	tpl, err := s.Templates.FindByID(ctx, *inst.TemplateID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if tpl.Title != "Standup" || tpl.EstimatedDuration != 900 || tpl.RecurrenceKind != model.RecurDaily {
		t.Errorf("template = %+v, want copy of instance fields", tpl)
	}

	oneOff := createInstance(t, s, model.TaskInstance{Title: "Dentist", TaskDate: "2026-10-12"})
	if oneOff.TemplateID != nil {
		t.Errorf("one-off instance TemplateID = %v, want nil", *oneOff.TemplateID)
	}
}

func TestInstanceUniquePerTemplateAndDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := createInstance(t, s, model.TaskInstance{Title: "Standup", TaskDate: "2026-10-12", RecurrenceKind: model.RecurDaily})
	dup := model.TaskInstance{Title: "Standup", TaskDate: "2026-10-12", RecurrenceKind: model.RecurDaily, TemplateID: inst.TemplateID}
	err := s.Instances.Create(ctx, &dup)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("duplicate Create() error = %v, want ErrDuplicatedKey", err)
	}

	// One-off instances share a NULL template id and never collide.
	createInstance(t, s, model.TaskInstance{Title: "a", TaskDate: "2026-10-12"})
	createInstance(t, s, model.TaskInstance{Title: "b", TaskDate: "2026-10-12"})
}

func TestDeleteInstance_TemplateCleanup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := createInstance(t, s, model.TaskInstance{Title: "Standup", TaskDate: "2026-10-12", RecurrenceKind: model.RecurDaily})
	second := model.TaskInstance{Title: "Standup", TaskDate: "2026-10-13", RecurrenceKind: model.RecurDaily, TemplateID: first.TemplateID}
	if err := s.Instances.Create(ctx, &second); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Sessions.Open(ctx, first.ID, time.Now()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := s.DeleteInstance(ctx, first.ID); err != nil {
		t.Fatalf("DeleteInstance() error = %v", err)
	}
	if _, err := s.Templates.FindByID(ctx, *first.TemplateID); err != nil {
		t.Errorf("template removed while still referenced: %v", err)
	}
	if n, _ := s.Sessions.CountByInstance(ctx, first.ID); n != 0 {
		t.Errorf("sessions left after delete = %d, want 0", n)
	}

	if _, err := s.DeleteInstance(ctx, second.ID); err != nil {
		t.Fatalf("DeleteInstance() error = %v", err)
	}
	if _, err := s.Templates.FindByID(ctx, *first.TemplateID); !errors.Is(err, ErrNotFound) {
		t.Errorf("template lookup after last delete error = %v, want ErrNotFound", err)
	}

	if _, err := s.DeleteInstance(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteInstance(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSessionsSumAndClose(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	inst := createInstance(t, s, model.TaskInstance{Title: "Write", TaskDate: "2026-10-12"})
	start := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)

	for i, d := range []int64{600, 300} {
		session, err := s.OpenSession(ctx, inst.ID, start.Add(time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("OpenSession() error = %v", err)
		}
		if open, err := s.FindOpenSession(ctx, inst.ID); err != nil || open.ID != session.ID {
			t.Fatalf("FindOpenSession() = %v, %v; want session %d", open, err, session.ID)
		}
		if err := s.CloseSession(ctx, session.ID, session.StartTime.Add(time.Duration(d)*time.Second), d, "ok"); err != nil {
			t.Fatalf("CloseSession() error = %v", err)
		}
	}
	// Still open sessions never count.
	if _, err := s.OpenSession(ctx, inst.ID, start.Add(5*time.Hour)); err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}

	total, err := s.SumSessionDurations(ctx, inst.ID)
	if err != nil {
		t.Fatalf("SumSessionDurations() error = %v", err)
	}
	if total != 900 {
		t.Errorf("SumSessionDurations() = %d, want 900", total)
	}

	got, err := s.Instances.FindByID(ctx, inst.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Status != model.StatusDone {
		t.Errorf("Status = %d, want StatusDone after a closed session", got.Status)
	}

	if _, err := s.OpenSession(ctx, 12345, start); !errors.Is(err, ErrNotFound) {
		t.Errorf("OpenSession(missing instance) error = %v, want ErrNotFound", err)
	}
}

func TestCompleteInstance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	inst := createInstance(t, s, model.TaskInstance{Title: "Report", TaskDate: "2026-10-12", Priority: model.PriorityUrgent, RecurrenceKind: model.RecurWeekday})
	session, err := s.OpenSession(ctx, inst.ID, time.Now())
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if err := s.CloseSession(ctx, session.ID, time.Now(), 420, ""); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}

	completedAt := time.Date(2026, 10, 12, 18, 0, 0, 0, time.UTC)
	record, err := s.CompleteInstance(ctx, inst.ID, "shipped", completedAt)
	if err != nil {
		t.Fatalf("CompleteInstance() error = %v", err)
	}
	if record.TotalDuration != 420 || record.Summary != "shipped" || record.Priority != model.PriorityUrgent {
		t.Errorf("record = %+v", record)
	}
	if _, err := s.Instances.FindByID(ctx, inst.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("instance still present after completion: %v", err)
	}
	if n, _ := s.Sessions.CountByInstance(ctx, inst.ID); n != 0 {
		t.Errorf("sessions left after completion = %d", n)
	}
	// Completion keeps the template so the task keeps recurring.
	if _, err := s.Templates.FindByID(ctx, *inst.TemplateID); err != nil {
		t.Errorf("template lookup after completion error = %v", err)
	}

	if _, err := s.CompleteInstance(ctx, inst.ID, "", completedAt); !errors.Is(err, ErrNotFound) {
		t.Errorf("second CompleteInstance() error = %v, want ErrNotFound", err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	inst := createInstance(t, s, model.TaskInstance{Title: "Report", TaskDate: "2026-10-12"})

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.Completions.Create(ctx, &model.CompletionRecord{Title: "Report", TaskDate: "2026-10-12"}); err != nil {
			return err
		}
		if err := tx.Instances.Delete(ctx, inst.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want boom", err)
	}
	if _, err := s.Instances.FindByID(ctx, inst.ID); err != nil {
		t.Errorf("instance lost after rollback: %v", err)
	}
	records, err := s.Completions.ListSince(ctx, "2000-01-01")
	if err != nil {
		t.Fatalf("ListSince() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records after rollback = %d, want 0", len(records))
	}
}

func TestUpdateInstance_Recurrence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	inst := createInstance(t, s, model.TaskInstance{Title: "Read", TaskDate: "2026-10-12"})

	updated, err := s.UpdateInstance(ctx, inst.ID, InstanceChanges{Title: "Read book", EstimatedDuration: 1800, RecurrenceKind: model.RecurWeekday})
	if err != nil {
		t.Fatalf("UpdateInstance() error = %v", err)
	}
	if updated.TemplateID == nil {
		t.Fatal("turning recurrence on did not create a template")
	}
	tpl, err := s.Templates.FindByID(ctx, *updated.TemplateID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if tpl.Title != "Read book" || tpl.RecurrenceKind != model.RecurWeekday {
		t.Errorf("template = %+v", tpl)
	}

	sibling := model.TaskInstance{Title: "Read book", TaskDate: "2026-10-13", RecurrenceKind: model.RecurWeekday, TemplateID: updated.TemplateID}
	if err := s.Instances.Create(ctx, &sibling); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	off, err := s.UpdateInstance(ctx, inst.ID, InstanceChanges{Title: "Read book"})
	if err != nil {
		t.Fatalf("UpdateInstance() error = %v", err)
	}
	if off.TemplateID != nil || off.RecurrenceKind != model.RecurNone {
		t.Errorf("instance after turning recurrence off = %+v", off)
	}
	if _, err := s.Templates.FindByID(ctx, tpl.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("template lookup error = %v, want ErrNotFound", err)
	}
	gotSibling, err := s.Instances.FindByID(ctx, sibling.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if gotSibling.TemplateID != nil || gotSibling.RecurrenceKind != model.RecurNone {
		t.Errorf("sibling kept a dangling template reference: %+v", gotSibling)
	}
}

func TestStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	records := []model.CompletionRecord{
		{Title: "a", TaskDate: "2026-10-10", TotalDuration: 100, Priority: model.PriorityNormal},
		{Title: "b", TaskDate: "2026-10-10", TotalDuration: 200, Priority: model.PriorityUrgent},
		{Title: "c", TaskDate: "2026-10-11", TotalDuration: 300, Priority: model.PriorityUrgent},
		{Title: "old", TaskDate: "2026-09-01", TotalDuration: 999},
	}
	for i := range records {
		if err := s.Completions.Create(ctx, &records[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	stats, err := s.Completions.Statistics(ctx, "2026-10-01")
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.TotalCompleted != 3 || stats.TotalDuration != 600 {
		t.Errorf("totals = %d/%d, want 3/600", stats.TotalCompleted, stats.TotalDuration)
	}
	if len(stats.ByPriority) != 2 || stats.ByPriority[0].Priority != model.PriorityUrgent || stats.ByPriority[0].Count != 2 || stats.ByPriority[0].TotalDuration != 500 {
		t.Errorf("ByPriority = %+v", stats.ByPriority)
	}
	if len(stats.ByDay) != 2 || stats.ByDay[0].TaskDate != "2026-10-11" || stats.ByDay[1].Count != 2 {
		t.Errorf("ByDay = %+v", stats.ByDay)
	}
}

func TestGenerationMarks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := createInstance(t, s, model.TaskInstance{Title: "Standup", TaskDate: "2026-10-12", RecurrenceKind: model.RecurDaily})
	tplID := *inst.TemplateID
	marked, err := s.Marks.Exists(ctx, tplID, "2026-10-12")
	if err != nil || !marked {
		t.Fatalf("Exists(creation date) = %v, %v; want true", marked, err)
	}

	err = s.Marks.Create(ctx, tplID, "2026-10-12")
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("second Create() error = %v, want ErrDuplicatedKey", err)
	}
	if err := s.Marks.Ensure(ctx, tplID, "2026-10-12"); err != nil {
		t.Errorf("Ensure(marked) error = %v", err)
	}

	// The mark outlives the completed instance.
	if _, err := s.CompleteInstance(ctx, inst.ID, "", time.Now()); err != nil {
		t.Fatalf("CompleteInstance() error = %v", err)
	}
	if marked, err := s.Marks.Exists(ctx, tplID, "2026-10-12"); err != nil || !marked {
		t.Errorf("Exists(after completion) = %v, %v; want true", marked, err)
	}

	// Turning recurrence off drops the template together with its marks.
	other := createInstance(t, s, model.TaskInstance{Title: "Review", TaskDate: "2026-10-12", RecurrenceKind: model.RecurWeekday})
	otherTpl := *other.TemplateID
	if _, err := s.UpdateInstance(ctx, other.ID, InstanceChanges{Title: "Review"}); err != nil {
		t.Fatalf("UpdateInstance() error = %v", err)
	}
	if marked, err := s.Marks.Exists(ctx, otherTpl, "2026-10-12"); err != nil || marked {
		t.Errorf("Exists(deleted template) = %v, %v; want false", marked, err)
	}
}
