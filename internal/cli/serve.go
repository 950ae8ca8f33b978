package cli

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"

	"daily-tracker/internal/bot"
	"daily-tracker/internal/service"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, day rollover and reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if err := a.cfg.RequireTelegram(); err != nil {
		return err
	}

	svc, err := a.open()
	if err != nil {
		return err
	}
	defer svc.close()

	if _, err := svc.controller.Recover(ctx); err != nil {
		return err
	}
	service.Rollover(ctx, svc.generator, a.now())

	telegramBot, err := bot.New(a.cfg.TelegramToken, svc.tasks, svc.controller, svc.reminders, a.cfg)
	if err != nil {
		return err
	}
	svc.controller.SetNotifier(telegramBot)

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleRollover(ctx, a.cfg.RolloverTime, svc.generator, a.now); err != nil {
		return err
	}
	if _, err := scheduler.ScheduleReports(ctx, a.cfg.ReportInterval, telegramBot.SendDailyReports); err != nil {
		return err
	}

	refresher := service.NewDisplayRefresher(svc.controller, telegramBot.RenderTimer)
	if err := refresher.Start(scheduler, a.cfg.RefreshInterval); err != nil {
		return err
	}

	scheduler.Start()
	defer scheduler.Stop()
	defer refresher.Stop(scheduler)

	log.Println("Daily tracker bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// Keep the time of a task still running at shutdown.
	if svc.controller.ActiveID() != 0 {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.controller.StopTask(stopCtx, ""); err != nil {
			log.Printf("stop active task: %v", err)
		}
	}
	log.Println("Shutdown complete.")
	return nil
}
