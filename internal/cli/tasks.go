package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"daily-tracker/internal/duration"
	"daily-tracker/internal/model"
	"daily-tracker/internal/service"
)

func newTodayCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "List today's tasks, most urgent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.close()

			items, err := svc.tasks.ListToday(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "Nothing planned for today.")
				return nil
			}
			fmt.Fprintf(out, "Tasks for %s (%d):\n\n", svc.tasks.Today(), len(items))
			for _, item := range items {
				printItem(out, item)
			}
			return nil
		},
	}
}

func printItem(out io.Writer, item service.TodayItem) {
	inst := item.Instance
	repeat := ""
	if inst.Recurring() {
		repeat = " [" + inst.RecurrenceKind.String() + "]"
	}
	fmt.Fprintf(out, "  #%-4d %-9s %s%s\n", inst.ID, inst.Priority, inst.Title, repeat)
	var facts []string
	if inst.EstimatedDuration > 0 {
		facts = append(facts, "estimate "+duration.Compact(inst.EstimatedDuration))
	}
	if total := item.Total(); total > 0 {
		facts = append(facts, "tracked "+duration.Compact(total))
	}
	if len(facts) > 0 {
		fmt.Fprintf(out, "         %s\n", strings.Join(facts, ", "))
	}
}

func newAddCommand(a *app) *cobra.Command {
	var (
		description string
		date        string
		estimate    string
		priority    string
		repeat      string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePriority(priority)
			if err != nil {
				return err
			}
			k, err := model.ParseRecurrenceKind(repeat)
			if err != nil {
				return err
			}

			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.close()

			inst, err := svc.tasks.CreateTask(cmd.Context(), service.TaskInput{
				Title:            strings.Join(args, " "),
				Description:      description,
				TaskDate:         date,
				EstimatedMinutes: estimate,
				Priority:         p,
				Recurrence:       k,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %q for %s\n", inst.ID, inst.Title, inst.TaskDate)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVar(&date, "date", "", "Task date YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&estimate, "estimate", "e", "", "Estimated minutes")
	cmd.Flags().StringVarP(&priority, "priority", "p", "normal", "normal, important or urgent")
	cmd.Flags().StringVarP(&repeat, "repeat", "r", "none", "none, daily or weekday")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task with its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.close()

			inst, err := svc.tasks.DeleteTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%d %q\n", inst.ID, inst.Title)
			return nil
		},
	}
}

func newGenerateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate [YYYY-MM-DD]",
		Short: "Create recurring tasks for a day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := a.now()
			if len(args) == 1 {
				parsed, err := model.ParseDate(args[0], time.Local)
				if err != nil {
					return fmt.Errorf("date %q, expected YYYY-MM-DD", args[0])
				}
				date = parsed
			}
			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.close()

			result, genErr := svc.generator.GenerateForDate(cmd.Context(), date)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d created, %d already present, %d failed\n",
				result.Date, len(result.Created), result.Skipped, len(result.Failed))
			for _, inst := range result.Created {
				fmt.Fprintf(out, "  #%-4d %s\n", inst.ID, inst.Title)
			}
			return genErr
		},
	}
}

func newHistoryCommand(a *app) *cobra.Command {
	var (
		days int
		id   uint
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List completed tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.HistoryDays
			}
			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.close()

			out := cmd.OutOrStdout()
			if id != 0 {
				record, err := svc.tasks.HistoryRecord(cmd.Context(), id)
				if err != nil {
					return err
				}
				printRecord(out, *record)
				return nil
			}

			records, err := svc.tasks.ListHistory(cmd.Context(), days)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(out, "Nothing completed in the last %d day(s).\n", days)
				return nil
			}
			fmt.Fprintf(out, "Completed in the last %d day(s) (%d):\n\n", days, len(records))
			for _, r := range records {
				fmt.Fprintf(out, "  #%-4d %s  %-9s %8s  %s\n", r.ID, r.TaskDate, r.Priority, duration.Clock(r.TotalDuration), r.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Days to look back")
	cmd.Flags().UintVar(&id, "id", 0, "Show one completed task")
	return cmd
}

func printRecord(out io.Writer, r model.CompletionRecord) {
	fmt.Fprintf(out, "%s\n", r.Title)
	if r.Description != "" {
		fmt.Fprintf(out, "  %s\n", r.Description)
	}
	fmt.Fprintf(out, "  date:      %s\n", r.TaskDate)
	fmt.Fprintf(out, "  completed: %s\n", r.CompletedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "  time:      %s\n", duration.Human(r.TotalDuration))
	fmt.Fprintf(out, "  priority:  %s\n", r.Priority)
	if r.Summary != "" {
		fmt.Fprintf(out, "  summary:   %s\n", r.Summary)
	}
}

func newStatsCommand(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.StatsDays
			}
			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.close()

			stats, err := svc.tasks.Statistics(cmd.Context(), days)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Since %s:\n", stats.Since)
			fmt.Fprintf(out, "  completed:   %d\n", stats.TotalCompleted)
			fmt.Fprintf(out, "  time spent:  %s\n", duration.Human(stats.TotalDuration))
			if stats.Days > 0 {
				fmt.Fprintf(out, "  per day:     %d\n", stats.AveragePerDay)
			}
			for _, row := range stats.ByPriority {
				fmt.Fprintf(out, "  %-12s %d (%s)\n", row.Priority.String()+":", row.Count, duration.Compact(row.TotalDuration))
			}
			for _, row := range stats.ByDay {
				fmt.Fprintf(out, "  %s   %d (%s)\n", row.TaskDate, row.Count, duration.Compact(row.TotalDuration))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Days to look back")
	return cmd
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("task id must be a positive number")
	}
	return uint(id), nil
}
