package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"daily-tracker/internal/config"
	"daily-tracker/internal/repository"
	"daily-tracker/internal/service"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	dbPath     string
	now        func() time.Time
	cfg        config.Config
}

// services is the wired domain layer over one database.
type services struct {
	db         *gorm.DB
	store      *repository.Store
	controller *service.Controller
	tasks      *service.TaskService
	generator  *service.RecurrenceGenerator
	reminders  *service.ReminderService
}

func (s *services) close() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// NewRootCommand builds the dailytracker command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(time.Now)
}

func newRootCommand(now func() time.Time) *cobra.Command {
	a := &app{now: now}

	root := &cobra.Command{
		Use:   "dailytracker",
		Short: "Personal daily task tracker with timed work sessions",
		Long: `dailytracker keeps a day's task list, times work on one task at a time
and records completed tasks with the time spent on them.

"serve" runs the Telegram bot with its scheduler; the other commands work
directly on the database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides DATABASE_URL)")

	root.AddCommand(
		newServeCommand(a),
		newTodayCommand(a),
		newAddCommand(a),
		newDeleteCommand(a),
		newGenerateCommand(a),
		newHistoryCommand(a),
		newStatsCommand(a),
	)
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context, version string) error {
	root := NewRootCommand()
	root.Version = version
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	v, err := config.NewViper(a.configPath)
	if err != nil {
		return err
	}
	if flag := cmd.Root().PersistentFlags().Lookup("db"); flag != nil {
		if err := v.BindPFlag("database_url", flag); err != nil {
			return err
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) open() (*services, error) {
	db, err := repository.NewDB(a.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	store := repository.NewStore(db)
	controller := service.NewController(store, nil, a.now)
	tasks := service.NewTaskService(store, controller, a.now)
	return &services{
		db:         db,
		store:      store,
		controller: controller,
		tasks:      tasks,
		generator:  service.NewRecurrenceGenerator(store),
		reminders:  service.NewReminderService(tasks),
	}, nil
}
