// ABOUTME: CLI command for copying health data between storage backends.
// ABOUTME: Moves one user's steps, health logs and medications, e.g. SQLite to Charm.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/chronicare/internal/config"
	"github.com/harperreed/chronicare/internal/storage"
	"github.com/spf13/cobra"
)

var (
	migrateFrom   string
	migrateTo     string
	migrateDryRun bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate --from BACKEND --to BACKEND",
	Short: "Copy data between storage backends",
	Long: `Copy all of the current user's data from one backend to another.

BACKENDS:

  sqlite   Local database in the data directory
  charm    Charm KV, synced across devices

Records with the same date or ID in the destination are replaced.
Afterwards set "backend" in the config to use the destination.

USAGE:

  chronicare migrate --from sqlite --to charm --dry-run
  chronicare migrate --from sqlite --to charm`,
	Annotations: noStorage(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateFrom == migrateTo {
			return fmt.Errorf("--from and --to must differ")
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		dataDir := cfg.GetDataDir()
		userID := cfg.GetUserID()

		src, err := config.OpenBackend(migrateFrom, dataDir)
		if err != nil {
			return fmt.Errorf("failed to open source: %w", err)
		}
		defer src.Close()

		if migrateDryRun {
			color.New(color.FgYellow).Fprintln(out, "Dry run mode - no changes will be made")
			data, err := src.GetAllData(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to read source: %w", err)
			}
			printMigrateCounts(cmd, &storage.MigrateSummary{
				Steps:       len(data.Steps),
				HealthLogs:  len(data.HealthLogs),
				Medications: len(data.Medications),
			})
			return nil
		}

		if migrateTo == "sqlite" {
			if nonEmpty, err := storage.IsDirNonEmpty(dataDir); err == nil && nonEmpty {
				color.New(color.Faint).Fprintf(out, "Merging into existing data in %s\n", dataDir)
			}
		}
		dst, err := config.OpenBackend(migrateTo, dataDir)
		if err != nil {
			return fmt.Errorf("failed to open destination: %w", err)
		}
		defer dst.Close()

		summary, err := storage.MigrateData(ctx, src, dst, userID)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		color.New(color.FgGreen).Fprintf(out, "✓ Migrated %s → %s\n", migrateFrom, migrateTo)
		printMigrateCounts(cmd, summary)
		return nil
	},
}

func printMigrateCounts(cmd *cobra.Command, s *storage.MigrateSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Steps:       %d\n", s.Steps)
	fmt.Fprintf(out, "  Health logs: %d\n", s.HealthLogs)
	fmt.Fprintf(out, "  Medications: %d\n", s.Medications)
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFrom, "from", "sqlite", "source backend")
	migrateCmd.Flags().StringVar(&migrateTo, "to", "charm", "destination backend")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview migration without making changes")
	rootCmd.AddCommand(migrateCmd)
}
