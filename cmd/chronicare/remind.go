// ABOUTME: CLI daemon delivering medication reminders to the console.
// ABOUTME: Re-arms every future Due dose on start and on each rescan.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/chronicare/internal/models"
	"github.com/harperreed/chronicare/internal/reminder"
	"github.com/spf13/cobra"
)

var (
	remindInterval time.Duration
	remindOnce     bool
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Medication reminder daemon",
}

var remindRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Deliver medication reminders until interrupted",
	Long: `Arm a reminder for every Due medication scheduled in the future and
print each one when it fires. Doses added while the daemon runs are picked
up on the next rescan (--interval). A dose marked Taken or Missed before its
time is not announced.

EXAMPLES:
  chronicare remind run
  chronicare remind run --interval 30s
  chronicare remind run --once     # arm, report and exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if remindInterval <= 0 {
			return fmt.Errorf("--interval must be positive, got %s", remindInterval)
		}

		ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		userID := cfg.GetUserID()
		console := reminder.ConsoleNotifier{W: out}
		notifier := reminder.NotifierFunc(func(ctx context.Context, p reminder.Payload) error {
			ev, err := repo.GetMedication(ctx, userID, p.EventID)
			if err != nil || ev.Status != models.StatusDue {
				logger.Debug("skipping resolved reminder", "id", p.EventID)
				return nil
			}
			return console.Notify(ctx, p)
		})

		facility := reminder.NewTimerFacility(notifier, logger)
		defer facility.Close()
		svc := reminder.NewService(repo, reminder.NewScheduler(facility, time.Local, logger), userID, logger)

		n, err := svc.ScheduleDue(ctx)
		if err != nil {
			color.New(color.FgYellow).Fprintf(out, "⚠ Some reminders were not set: %v\n", err)
		}
		color.New(color.FgGreen).Fprintf(out, "✓ %d reminder(s) armed\n", n)
		if remindOnce {
			return nil
		}

		faint := color.New(color.Faint)
		faint.Fprintln(out, "Waiting for reminders (Ctrl+C to stop)...")

		ticker := time.NewTicker(remindInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				fmt.Fprintln(out)
				return nil
			case <-ticker.C:
				if _, err := svc.ScheduleDue(ctx); err != nil {
					logger.Warn("reminder rescan", "err", err)
				}
			}
		}
	},
}

func init() {
	remindRunCmd.Flags().DurationVar(&remindInterval, "interval", time.Minute, "how often to rescan for new doses")
	remindRunCmd.Flags().BoolVar(&remindOnce, "once", false, "arm reminders, report and exit")

	remindCmd.AddCommand(remindRunCmd)
	rootCmd.AddCommand(remindCmd)
}
