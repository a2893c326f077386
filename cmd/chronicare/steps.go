// ABOUTME: CLI commands for the step-counting agent.
// ABOUTME: 'steps run' feeds sensor readings to the agent; 'steps status' shows the baseline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/harperreed/chronicare/internal/baseline"
	"github.com/harperreed/chronicare/internal/models"
	"github.com/harperreed/chronicare/internal/stepcounter"
	"github.com/spf13/cobra"
)

var stepsInput string

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "Count steps from a sensor feed",
	Long: `Count daily steps from a step sensor that reports totals since boot.

The first reading of each day is stored as that day's baseline; steps
today are the reading minus the baseline. Totals are uploaded to the
steps store every 50 steps (step_threshold in config), on day rollover,
and once more when the feed ends.`,
}

var stepsRunCmd = &cobra.Command{
	Use:   "run [--input FILE]",
	Short: "Run the step agent over sensor readings",
	Long: `Read since-boot step totals, one integer per line, and run the step
agent until the input ends or the process is interrupted.

EXAMPLES:
  sensor-reader | chronicare steps run
  chronicare steps run --input readings.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if stepsInput != "" && stepsInput != "-" {
			f, err := os.Open(stepsInput)
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer f.Close()
			in = f
		}

		store, err := baseline.Open(cfg.BaselineDir())
		if err != nil {
			return err
		}
		defer store.Close()

		agent := stepcounter.New(store, repo, stepcounter.Config{
			UserID:    cfg.GetUserID(),
			Threshold: cfg.GetStepThreshold(),
			Logger:    logger,
		})

		ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := agent.Run(ctx, stepcounter.ScanReadings(ctx, in, logger)); err != nil {
			return fmt.Errorf("step agent: %w", err)
		}

		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ %d steps today\n", agent.StepsToday())
		return nil
	},
}

var stepsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's baseline and last checkpoint",
	Long: `Show today's baseline and last checkpoint.

The baseline store allows one process at a time, so while 'steps run' is
active this command reports that the agent holds the store instead.`,
	Annotations: noStorage(),
	RunE: func(cmd *cobra.Command, args []string) error {
		today := models.Today()
		out := cmd.OutOrStdout()

		store, err := baseline.Open(cfg.BaselineDir())
		if errors.Is(err, baseline.ErrLocked) {
			fmt.Fprintf(out, "Today: %s\n", today)
			color.New(color.FgYellow).Fprintln(out, "  Step agent is running; baseline store is locked")
			return nil
		}
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Fprintf(out, "Today: %s\n", today)

		b, ok, err := store.Load(today)
		if err != nil {
			return err
		}
		if !ok {
			color.New(color.FgYellow).Fprintln(out, "  No baseline yet today")
		} else {
			fmt.Fprintf(out, "  Baseline:   %d\n", b.SensorValueAtStartOfDay)
		}

		cp, ok, err := store.LoadCheckpoint(today)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(out, "  Checkpoint: %d steps\n", cp.StepsToday)
		}
		return nil
	},
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	stepsRunCmd.Flags().StringVarP(&stepsInput, "input", "i", "", "file of sensor readings (default stdin)")

	stepsCmd.AddCommand(stepsRunCmd)
	stepsCmd.AddCommand(stepsStatusCmd)
	rootCmd.AddCommand(stepsCmd)
}
