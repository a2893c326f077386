// ABOUTME: CLI commands for Charm-based sync.
// ABOUTME: Supports link, unlink, status, repair, reset, and wipe operations.
package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/charmbracelet/charm/kv"
	"github.com/fatih/color"
	"github.com/harperreed/chronicare/internal/charm"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:         "sync",
	Aliases:     []string{"s"},
	Short:       "Sync health data across devices",
	Annotations: noStorage(),
	Long: `Sync health data across devices using Charm Cloud.

Used when "backend" is "charm" in the config. Your data is E2E encrypted
with your SSH key before upload.

GETTING STARTED:

  1. Link your device (creates/uses SSH key automatically):
     chronicare sync link

  2. Move existing local data over:
     chronicare migrate --from sqlite --to charm

  3. Check sync status:
     chronicare sync status

COMMANDS:

  link        Link this device to your Charm account
  unlink      Disconnect this device from Charm
  status      Show sync status and account info
  repair      Repair database corruption (checkpoints WAL, removes SHM, vacuums)
  reset       Reset local data and restore from cloud (destructive)
  wipe        Delete cloud and local data (destructive)

Data syncs automatically after each write.`,
}

var syncLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link this device to Charm",
	Long: `Link this device to your Charm account.

If you don't have a Charm account, one will be created using your SSH key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		charmCmd := exec.Command("charm", "link")
		charmCmd.Stdin = os.Stdin
		charmCmd.Stdout = os.Stdout
		charmCmd.Stderr = os.Stderr

		if err := charmCmd.Run(); err != nil {
			return fmt.Errorf("failed to link: %w\n\nMake sure 'charm' CLI is installed: go install github.com/charmbracelet/charm@latest", err)
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintln(out, "\n✓ Device linked to Charm")

		// Sync immediately after linking
		client, err := charm.Open(charm.DBName)
		if err != nil {
			color.New(color.FgYellow).Fprintf(out, "⚠ Initial sync failed: %v\n", err)
			return nil
		}
		defer client.Close()
		if err := client.Sync(); err != nil {
			color.New(color.FgYellow).Fprintf(out, "⚠ Initial sync failed: %v\n", err)
		} else {
			color.New(color.FgGreen).Fprintln(out, "✓ Initial sync complete")
		}
		return nil
	},
}

var syncUnlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Disconnect from Charm",
	Long: `Disconnect this device from Charm.

This does not delete your local health data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		charmCmd := exec.Command("charm", "unlink")
		charmCmd.Stdin = os.Stdin
		charmCmd.Stdout = os.Stdout
		charmCmd.Stderr = os.Stderr

		if err := charmCmd.Run(); err != nil {
			return fmt.Errorf("failed to unlink: %w", err)
		}

		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ Device unlinked from Charm")
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Backend:", cfg.GetBackend())

		client, err := charm.Open(charm.DBName)
		if err != nil {
			color.New(color.FgYellow).Fprintf(out, "Charm KV unavailable: %v\n", err)
			return nil
		}
		defer client.Close()

		id, err := charm.ID()
		if err != nil {
			color.New(color.FgYellow).Fprintln(out, "Not linked to Charm")
			fmt.Fprintln(out, "\nRun 'chronicare sync link' to connect to Charm.")
			return nil
		}

		fmt.Fprintln(out, "Charm ID:", id)
		fmt.Fprintln(out, "Server:", os.Getenv("CHARM_HOST"))
		if client.IsReadOnly() {
			color.New(color.FgYellow).Fprintln(out, "Read-only: another process holds the database")
		}
		fmt.Fprintln(out)

		data, err := client.GetAllData(cmd.Context(), cfg.GetUserID())
		if err != nil {
			return fmt.Errorf("failed to read charm data: %w", err)
		}

		color.New(color.FgGreen).Fprintln(out, "✓ Connected to Charm")
		fmt.Fprintf(out, "  Step days:   %d\n", len(data.Steps))
		fmt.Fprintf(out, "  Health logs: %d\n", len(data.HealthLogs))
		fmt.Fprintf(out, "  Medications: %d\n", len(data.Medications))
		return nil
	},
}

var syncWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all cloud and local data",
	Long: `Delete all cloud backups and local Charm data.

This is a DESTRUCTIVE operation. ALL synced data will be permanently deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "This will PERMANENTLY DELETE all cloud backups and local chronicare sync data.")
		fmt.Fprint(out, "Type 'wipe' to confirm: ")
		var confirm string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &confirm)
		if confirm != "wipe" {
			fmt.Fprintln(out, "Canceled.")
			return nil
		}

		result, err := kv.Wipe(charm.DBName)
		if err != nil {
			return fmt.Errorf("wipe failed: %w", err)
		}

		color.New(color.FgGreen).Fprintln(out, "✓ Data wiped successfully")
		fmt.Fprintf(out, "  Cloud backups deleted: %d\n", result.CloudBackupsDeleted)
		fmt.Fprintf(out, "  Local files deleted: %d\n", result.LocalFilesDeleted)
		return nil
	},
}

var syncRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair database corruption",
	Long: `Repair database corruption by checkpointing WAL, removing SHM files, checking integrity, and vacuuming.

Run with --force to attempt recovery even if integrity checks fail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		out := cmd.OutOrStdout()
		green := color.New(color.FgGreen)

		fmt.Fprintln(out, "Repairing chronicare sync database...")
		result, err := kv.Repair(charm.DBName, force)

		if result.WalCheckpointed {
			green.Fprintln(out, "  ✓ WAL checkpointed")
		}
		if result.ShmRemoved {
			green.Fprintln(out, "  ✓ SHM file removed")
		}
		if result.IntegrityOK {
			green.Fprintln(out, "  ✓ Integrity check passed")
		} else {
			color.New(color.FgRed).Fprintln(out, "  ✗ Integrity check failed")
		}
		if result.Vacuumed {
			green.Fprintln(out, "  ✓ Database vacuumed")
		}

		if err != nil {
			if !force {
				color.New(color.FgYellow).Fprintln(out, "\nRun with --force to attempt recovery.")
			}
			return fmt.Errorf("repair failed: %w", err)
		}

		green.Fprintln(out, "\n✓ Repair complete")
		return nil
	},
}

var syncResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset local data and restore from cloud",
	Long: `Delete all local Charm data and restore from Charm Cloud.

This is a destructive operation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "This will DELETE all local sync data and restore from cloud.")
		fmt.Fprint(out, "Continue? [y/N]: ")
		var confirm string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Fprintln(out, "Canceled.")
			return nil
		}

		if err := kv.Reset(charm.DBName); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}

		color.New(color.FgGreen).Fprintln(out, "✓ Local data reset and restored from cloud")
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncLinkCmd)
	syncCmd.AddCommand(syncUnlinkCmd)
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncRepairCmd)
	syncCmd.AddCommand(syncResetCmd)
	syncCmd.AddCommand(syncWipeCmd)

	syncRepairCmd.Flags().Bool("force", false, "Attempt recovery even if integrity checks fail")

	rootCmd.AddCommand(syncCmd)
}
