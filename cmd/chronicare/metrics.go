// ABOUTME: CLI commands for logging sleep and water.
// ABOUTME: Sleep overwrites the day's value; water adds to the day's total.
package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/chronicare/internal/daykey"
	"github.com/spf13/cobra"
)

var (
	sleepDate string
	waterDate string
)

var sleepCmd = &cobra.Command{
	Use:   "sleep <hours> [--date YYYY-MM-DD]",
	Short: "Record hours slept",
	Long: `Record hours slept for a day. Logging again for the same day replaces
the previous value.

EXAMPLES:
  chronicare sleep 7.5
  chronicare sleep 6 --date 2025-03-08`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hours, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid hours: %s", args[0])
		}
		day, err := daykey.Day(sleepDate, time.Now())
		if err != nil {
			return fmt.Errorf("invalid date: %s (use YYYY-MM-DD)", sleepDate)
		}

		if err := repo.SetSleep(cmd.Context(), cfg.GetUserID(), day, hours); err != nil {
			return fmt.Errorf("failed to log sleep: %w", err)
		}

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Logged %.1f hrs of sleep for %s\n", hours, day)
		return nil
	},
}

var waterCmd = &cobra.Command{
	Use:   "water <ml> [--date YYYY-MM-DD]",
	Short: "Add water intake",
	Long: `Add water intake in millilitres to a day's running total.

EXAMPLES:
  chronicare water 250
  chronicare water 500 --date 2025-03-08`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ml, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %s", args[0])
		}
		day, err := daykey.Day(waterDate, time.Now())
		if err != nil {
			return fmt.Errorf("invalid date: %s (use YYYY-MM-DD)", waterDate)
		}

		total, err := repo.AddWater(cmd.Context(), cfg.GetUserID(), day, ml)
		if err != nil {
			return fmt.Errorf("failed to add water: %w", err)
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "✓ Added %.0f ml of water\n", ml)
		fmt.Fprintf(out, "  %s total %.0f ml\n", color.New(color.Faint).Sprint(day), total)
		return nil
	},
}

func init() {
	sleepCmd.Flags().StringVar(&sleepDate, "date", "", "day (YYYY-MM-DD, default today)")
	waterCmd.Flags().StringVar(&waterDate, "date", "", "day (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(sleepCmd)
	rootCmd.AddCommand(waterCmd)
}
