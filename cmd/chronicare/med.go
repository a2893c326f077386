// ABOUTME: CLI commands for medication events: add, list, taken, missed, rm.
// ABOUTME: Writes go through the reminder service so triggers track the records.
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/chronicare/internal/daykey"
	"github.com/harperreed/chronicare/internal/models"
	"github.com/harperreed/chronicare/internal/reminder"
	"github.com/spf13/cobra"
)

var medAt string

// handoffFacility accepts reminders for the 'remind run' daemon, which
// re-arms every Due event on start. It refuses times that have passed.
type handoffFacility struct {
	now func() time.Time
}

func (f handoffFacility) Schedule(triggerID string, fireAt time.Time, _ reminder.Payload) error {
	if fireAt.Before(f.now()) {
		return fmt.Errorf("%s is already in the past", fireAt.Format("Jan 2 15:04"))
	}
	return nil
}

func (handoffFacility) Cancel(string) error { return nil }

func newMedicationService() *reminder.Service {
	sched := reminder.NewScheduler(handoffFacility{now: time.Now}, time.Local, logger)
	return reminder.NewService(repo, sched, cfg.GetUserID(), logger)
}

var medCmd = &cobra.Command{
	Use:     "med",
	Aliases: []string{"meds", "m"},
	Short:   "Manage medications",
	Long: `Schedule medication doses and record whether they were taken.

COMMANDS:

  add <name> <dosage> --at TIME   Schedule a dose (reminder delivered by 'remind run')
  list                            List all doses
  taken <id>                      Mark a due dose as Taken
  missed <id>                     Mark a due dose as Missed
  rm <id>                         Delete a dose and cancel its reminder

IDs may be shortened to any unique prefix shown by 'med list'.`,
}

var medAddCmd = &cobra.Command{
	Use:   "add <name> <dosage> --at TIME",
	Short: "Schedule a medication dose",
	Long: `Schedule a medication dose.

TIME is "YYYY-MM-DD HH:MM", or "HH:MM" for today.

EXAMPLES:
  chronicare med add Metformin 500mg --at 08:00
  chronicare med add "Vitamin D" 1000IU --at "2025-03-10 09:30"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if medAt == "" {
			return fmt.Errorf("--at is required")
		}
		at, err := daykey.When(medAt, time.Now())
		if err != nil {
			return fmt.Errorf("invalid time: %s (use \"YYYY-MM-DD HH:MM\" or HH:MM)", medAt)
		}

		ev, err := newMedicationService().Add(cmd.Context(), args[0], args[1], at)
		if ev.ID == "" {
			return fmt.Errorf("failed to add medication: %w", err)
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "✓ Added %s %s\n", ev.MedicationName, ev.Dosage)
		fmt.Fprintf(out, "  %s %s\n", color.New(color.Faint).Sprint(ev.ID[:8]), ev.DateTime)
		if err != nil {
			color.New(color.FgYellow).Fprintf(out, "⚠ Reminder not set: %v\n", err)
		}
		return nil
	},
}

var medListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List medication doses",
	RunE: func(cmd *cobra.Command, args []string) error {
		meds, err := newMedicationService().List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list medications: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(meds) == 0 {
			fmt.Fprintln(out, "No medications found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, m := range meds {
			fmt.Fprintf(out, "%s %s %s %s %s\n",
				faint.Sprint(m.ID[:min(8, len(m.ID))]),
				faint.Sprint(padRight(m.DateTime, 22)),
				padRight(truncate(m.MedicationName, 20), 20),
				padRight(m.Dosage, 10),
				statusColor(m.Status).Sprint(m.Status))
		}
		return nil
	},
}

var medTakenCmd = &cobra.Command{
	Use:   "taken <id>",
	Short: "Mark a dose as Taken",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setMedicationStatus(cmd, args[0], models.StatusTaken)
	},
}

var medMissedCmd = &cobra.Command{
	Use:   "missed <id>",
	Short: "Mark a dose as Missed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setMedicationStatus(cmd, args[0], models.StatusMissed)
	},
}

var medDeleteCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete", "del"},
	Short:   "Delete a dose",
	Long: `Delete a medication dose and cancel its reminder.

This permanently deletes the record. There is no undo.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newMedicationService()
		ev, err := repo.GetMedication(cmd.Context(), cfg.GetUserID(), args[0])
		if err != nil {
			return fmt.Errorf("medication not found: %s", args[0])
		}
		if err := svc.Delete(cmd.Context(), ev.ID); err != nil {
			return fmt.Errorf("failed to delete medication: %w", err)
		}

		color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "✗ Deleted %s %s\n", ev.MedicationName, ev.Dosage)
		return nil
	},
}

func setMedicationStatus(cmd *cobra.Command, id string, status models.MedicationStatus) error {
	ev, err := newMedicationService().SetStatus(cmd.Context(), id, status)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fmt.Errorf("medication not found: %s", id)
	case errors.Is(err, models.ErrInvalidTransition):
		return fmt.Errorf("%s is already %s", ev.MedicationName, ev.Status)
	case err != nil:
		return fmt.Errorf("failed to update medication: %w", err)
	}

	statusColor(ev.Status).Fprintf(cmd.OutOrStdout(), "✓ %s %s marked %s\n", ev.MedicationName, ev.Dosage, ev.Status)
	return nil
}

func statusColor(s models.MedicationStatus) *color.Color {
	switch s {
	case models.StatusTaken:
		return color.New(color.FgGreen)
	case models.StatusMissed:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}

func init() {
	medAddCmd.Flags().StringVar(&medAt, "at", "", "scheduled time (YYYY-MM-DD HH:MM or HH:MM)")

	medCmd.AddCommand(medAddCmd)
	medCmd.AddCommand(medListCmd)
	medCmd.AddCommand(medTakenCmd)
	medCmd.AddCommand(medMissedCmd)
	medCmd.AddCommand(medDeleteCmd)
	rootCmd.AddCommand(medCmd)
}
