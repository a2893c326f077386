// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs stdio-based MCP server for AI assistant integration.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/chronicare/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout, so logs go to stderr.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "chronicare": {
        "command": "chronicare",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  daily_logs             Merged daily logs, most recent first
  health_dashboard       Score, goal progress, medication summary and insights
  log_sleep              Record hours slept for a day
  add_water              Add water intake to a day's total
  add_medication         Schedule a medication dose
  set_medication_status  Mark a dose Taken or Missed
  delete_medication      Delete a dose and cancel its reminder
  list_medications       List all doses

AVAILABLE RESOURCES:

  health://today   Latest day with score and medication summary
  health://logs    All merged daily logs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(repo, mcp.Options{
			UserID:     cfg.GetUserID(),
			Goals:      cfg.GetGoals(),
			Aggregator: newAggregator(),
			Logger:     logger,
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(contextOf(cmd))
		defer cancel()

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
