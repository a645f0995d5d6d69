package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shockbytes/dante/internal/config"
	"github.com/shockbytes/dante/internal/scheduler"
)

// ScheduleCommand configures and runs the automatic backup scheduler.
type ScheduleCommand struct {
	Enable       bool
	Disable      bool
	Schedule     string
	Status       bool
	Foreground   bool
	DatabasePath string
}

func NewScheduleCommand() *ScheduleCommand {
	return &ScheduleCommand{}
}

func (cmd *ScheduleCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)

	fs.BoolVar(&cmd.Enable, "enable", false, "Enable scheduled backups")
	fs.BoolVar(&cmd.Disable, "disable", false, "Disable scheduled backups")
	fs.StringVar(&cmd.Schedule, "cron", "", "Cron schedule, e.g. '0 3 * * *' for daily at 03:00")
	fs.BoolVar(&cmd.Status, "status", false, "Show scheduler configuration and last run")
	fs.BoolVar(&cmd.Foreground, "run", false, "Run the scheduler in the foreground until interrupted")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s schedule [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Configure automatic backups, or run the scheduler in the foreground.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s schedule -enable -cron '0 3 * * *'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s schedule -run\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Enable && cmd.Disable {
		return fmt.Errorf("-enable and -disable are mutually exclusive")
	}
	if cmd.Schedule != "" {
		if err := scheduler.ValidateCronSchedule(cmd.Schedule); err != nil {
			return fmt.Errorf("invalid cron schedule %q: %w", cmd.Schedule, err)
		}
	}
	return nil
}

func (cmd *ScheduleCommand) Run() error {
	ctx := context.Background()

	app, err := NewApp(ctx, cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	if cmd.Enable {
		if err := app.Settings.SetScheduledBackupEnabled(true); err != nil {
			return err
		}
		fmt.Println("Scheduled backups enabled.")
	}
	if cmd.Disable {
		if err := app.Settings.SetScheduledBackupEnabled(false); err != nil {
			return err
		}
		fmt.Println("Scheduled backups disabled.")
	}
	if cmd.Schedule != "" {
		if err := app.Settings.SetScheduledBackupSchedule(cmd.Schedule); err != nil {
			return err
		}
		fmt.Printf("Schedule set to %q (%s)\n", cmd.Schedule, scheduler.CronDescription(cmd.Schedule))
	}

	if cmd.Status {
		cfg := app.Settings.GetScheduledBackupConfig(app.Config.ScheduledBackup)
		fmt.Printf("Enabled:  %v\n", cfg.Enabled)
		fmt.Printf("Schedule: %s (%s)\n", cfg.Schedule, scheduler.CronDescription(cfg.Schedule))

		status := app.Settings.GetScheduledBackupStatus()
		if status.LastRun != nil {
			fmt.Printf("Last run: %s [%s] %s\n",
				status.LastRun.Local().Format(time.RFC822), status.Status, status.Message)
		} else {
			fmt.Println("Last run: never")
		}
	}

	if cmd.Foreground {
		return cmd.runForeground(ctx, app)
	}
	return nil
}

func (cmd *ScheduleCommand) runForeground(ctx context.Context, app *App) error {
	sched := scheduler.NewBackupScheduler(
		app.Orchestrator, app.Books, app.Settings, app.Config.ScheduledBackup, app.Logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	if !sched.IsRunning() {
		return fmt.Errorf("scheduler did not start; enable scheduled backups first")
	}

	if next := sched.NextRun(); next != nil {
		fmt.Printf("Scheduler running. Next backup: %s. Press Ctrl+C to stop.\n",
			next.Local().Format(time.RFC822))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	sched.Stop()
	fmt.Println("Scheduler stopped.")
	return nil
}
