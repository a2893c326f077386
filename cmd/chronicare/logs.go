// ABOUTME: CLI commands for viewing merged daily logs and the dashboard.
// ABOUTME: Both read through the aggregator so all three feeds are combined.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/chronicare/internal/aggregate"
	"github.com/harperreed/chronicare/internal/insight"
	"github.com/harperreed/chronicare/internal/models"
	"github.com/spf13/cobra"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"list", "ls", "l"},
	Short:   "List merged daily logs",
	Long: `List daily logs, most recent first.

Each line merges the step, sleep/water and medication feeds for one day:

  DATE  STEPS  SLEEP  WATER  MEDS (taken/total)

Days whose stored date could not be read are listed after all real dates
under their raw key.

EXAMPLES:

  chronicare logs          # Last 14 days
  chronicare logs -n 60    # Last 60 days
  chronicare logs -n 0     # Everything`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := loadEntries(cmd)
		if err != nil {
			return fmt.Errorf("failed to load logs: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No logs found.")
			return nil
		}
		if logsLimit > 0 && len(entries) > logsLimit {
			entries = entries[:logsLimit]
		}

		faint := color.New(color.Faint)
		faint.Fprintf(out, "%s %8s %7s %8s %s\n", padRight("DATE", 12), "STEPS", "SLEEP", "WATER", "MEDS")
		for _, e := range entries {
			fmt.Fprintf(out, "%s %8d %6.1fh %6.0fml %s\n",
				padRight(e.Key, 12), e.Steps, e.SleepHours, e.WaterMl, medsCell(e.Medications))
		}
		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "today"},
	Short:   "Show health score, goals and insights",
	Long: `Show the most recent day's health score and medication summary, goal
progress, current streak and insights across all logged days.

The score (0-100) weighs steps 30%, water 25%, sleep 25% and medication
adherence 20% against your goals. Goals default to 10000 steps, 2000 ml
of water and 8 hours of sleep; override them under "goals" in the config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := loadEntries(cmd)
		if err != nil {
			return fmt.Errorf("failed to load logs: %w", err)
		}

		out := cmd.OutOrStdout()
		latest, ok := aggregate.Latest(entries)
		if !ok {
			fmt.Fprintln(out, "No health data logged yet.")
			return nil
		}

		goals := cfg.GetGoals()
		s := insight.Summarize(latest, goals)
		bold := color.New(color.Bold)
		faint := color.New(color.Faint)

		bold.Fprintf(out, "%s  ", s.Date)
		scoreColor(s.Score).Fprintf(out, "score %d/100\n\n", s.Score)

		fmt.Fprintf(out, "  Steps  %s %d / %d\n", bar(s.Progress.Steps), s.Steps, goals.Steps)
		fmt.Fprintf(out, "  Sleep  %s %.1f / %.1f hrs\n", bar(s.Progress.Sleep), s.SleepHours, goals.SleepHours)
		fmt.Fprintf(out, "  Water  %s %.0f / %.0f ml\n", bar(s.Progress.Water), s.WaterMl, goals.WaterMl)
		fmt.Fprintf(out, "  Meds   %s %d / %d %s\n", bar(s.Progress.Adherence), s.MedicationsTaken, s.MedicationsTotal, s.MedicationStatus)
		if s.MedicationName != "" {
			faint.Fprintf(out, "         %s\n", s.MedicationName)
		}

		if s.Completed {
			color.New(color.FgGreen).Fprintln(out, "\n✓ Daily goals complete")
		}
		if streak := insight.Streak(entries); streak > 1 {
			fmt.Fprintf(out, "  Streak: %d days\n", streak)
		}

		fmt.Fprintln(out)
		for _, in := range insight.Insights(entries) {
			fmt.Fprintf(out, "  %s %s\n", padRight(in.Title, 16), bold.Sprint(in.Value))
			faint.Fprintf(out, "  %s %s\n", padRight("", 16), in.Description)
		}
		return nil
	},
}

func medsCell(meds []models.MedicationEvent) string {
	if len(meds) == 0 {
		return color.New(color.Faint).Sprint("-")
	}
	taken := 0
	for _, m := range meds {
		if m.Status == models.StatusTaken {
			taken++
		}
	}
	return fmt.Sprintf("%d/%d", taken, len(meds))
}

func scoreColor(score int) *color.Color {
	switch {
	case score >= 80:
		return color.New(color.FgGreen, color.Bold)
	case score >= 50:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func bar(ratio float64) string {
	const width = 10
	filled := int(ratio*width + 0.5)
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 14, "max number of days (0 for all)")
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(dashboardCmd)
}
