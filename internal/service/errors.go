package service

import (
	"errors"
	"fmt"

	"daily-tracker/internal/repository"
)

var (
	// ErrNotFound means the instance, session or record id does not exist.
	ErrNotFound = repository.ErrNotFound
	// ErrNoSelection means the caller passed no task id at all.
	ErrNoSelection = errors.New("no task selected")
	// ErrNoActiveTask means there is nothing being timed or nothing to complete.
	ErrNoActiveTask = errors.New("no active task")
	// ErrAlreadyInProgress means the requested task is already being timed.
	ErrAlreadyInProgress = errors.New("task already in progress")
	ErrAlreadyPaused     = errors.New("task already paused")
	ErrNotPaused         = errors.New("task is not paused")
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("another task is in progress")
)

// ValidationError rejects user input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports that Action cannot proceed while ActiveID is being
// timed. Starting another task resolves it with an explicit switch.
type ConflictError struct {
	Action      string
	ActiveID    uint
	ActiveTitle string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: task #%d %q is in progress", e.Action, e.ActiveID, e.ActiveTitle)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// StorageError wraps a persistence failure. The failed operation did not apply.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage failure: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr passes ErrNotFound and existing StorageErrors through and
// wraps everything else.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	var storage *StorageError
	if errors.As(err, &storage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
