// ABOUTME: CLI commands for exporting and importing health data.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/chronicare/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export [--format json|yaml|markdown]",
	Short: "Export health data",
	Long: `Export health data in various formats.

FORMATS:

  json       Raw steps, health logs and medications (suitable for backup/restore)
  yaml       The same dump as YAML (human-readable)
  markdown   Merged daily logs as a table (for sharing)

EXAMPLES:

  chronicare export                        # JSON to stdout
  chronicare export -o backup.json         # Save to file
  chronicare export --format yaml
  chronicare export --format markdown`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		userID := cfg.GetUserID()

		var data []byte
		var err error

		switch exportFormat {
		case "json":
			data, err = storage.ExportJSON(ctx, repo, userID)
		case "yaml":
			data, err = storage.ExportYAML(ctx, repo, userID)
		case "markdown", "md":
			entries, lerr := loadEntries(cmd)
			if lerr != nil {
				return fmt.Errorf("export failed: %w", lerr)
			}
			data = []byte(storage.ExportMarkdown(entries, time.Now()))
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", exportFormat)
		}

		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Exported to %s\n", exportOutput)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		}

		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import health data from a JSON or YAML export",
	Long: `Import health data from a file written by 'chronicare export'.

Records are written under the current user. Records with the same date
(steps, health logs) or ID (medications) replace the existing ones.

EXAMPLES:

  chronicare import backup.json
  chronicare import backup.yaml --user alice`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		raw, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		data, err := storage.ParseExport(raw)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		if err := repo.ImportData(cmd.Context(), cfg.GetUserID(), data); err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		out := cmd.OutOrStdout()
		color.New(color.FgGreen).Fprintf(out, "✓ Imported from %s\n", filename)
		fmt.Fprintf(out, "  Steps: %d  Health logs: %d  Medications: %d\n",
			len(data.Steps), len(data.HealthLogs), len(data.Medications))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "json, yaml, or markdown")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
