package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService owns the cron jobs of a running bot: the day rollover,
// periodic reports and the timer display refresh.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(timeStr string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	// Convert to cron spec: every N seconds.
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	return s.cron.AddFunc(spec, job)
}

const (
	rolloverTimeout = time.Minute
	reportTimeout   = 30 * time.Second
)

// ScheduleRollover generates the current day's recurring instances every
// day at timeStr. Each run is bounded by its own timeout derived from ctx.
func (s *SchedulerService) ScheduleRollover(ctx context.Context, timeStr string, gen *RecurrenceGenerator, now func() time.Time) (cron.EntryID, error) {
	return s.ScheduleDaily(timeStr, func() {
		jobCtx, cancel := context.WithTimeout(ctx, rolloverTimeout)
		defer cancel()
		Rollover(jobCtx, gen, now())
	})
}

// Rollover runs one generation pass for date. Failures are logged and left
// for the next pass.
func Rollover(ctx context.Context, gen *RecurrenceGenerator, date time.Time) GenerationResult {
	result, err := gen.GenerateForDate(ctx, date)
	if err != nil {
		log.Printf("generate tasks: %v", err)
	}
	return result
}

// ScheduleReports calls send every interval. A non-positive interval
// disables reports.
func (s *SchedulerService) ScheduleReports(ctx context.Context, interval time.Duration, send func(context.Context) error) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, nil
	}
	return s.ScheduleInterval(interval, func() {
		jobCtx, cancel := context.WithTimeout(ctx, reportTimeout)
		defer cancel()
		if err := send(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("report: %v", err)
		}
	})
}

// Remove stops future runs of a job. A run already in flight finishes.
func (s *SchedulerService) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
