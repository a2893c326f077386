// ABOUTME: Root Cobra command for the chronicare CLI.
// ABOUTME: Loads config and opens storage via PersistentPreRunE, closes it afterwards.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/harperreed/chronicare/internal/aggregate"
	"github.com/harperreed/chronicare/internal/config"
	"github.com/harperreed/chronicare/internal/logging"
	"github.com/harperreed/chronicare/internal/models"
	"github.com/harperreed/chronicare/internal/storage"
	"github.com/spf13/cobra"
)

// annotationNoStorage marks commands that manage storage themselves.
const annotationNoStorage = "chronicare/no-storage"

var (
	flagDataDir string
	flagUser    string
	flagBackend string

	cfg    *config.Config
	repo   storage.Repository
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chronicare",
	Short: "Daily health log: steps, sleep, water and medications",
	Long: `Chronicare keeps a daily health log and reminds you to take your medications.

WHAT IT TRACKS:

  Steps        counted from a step sensor feed ('chronicare steps run')
  Sleep        hours slept per day
  Water        millilitres drunk per day (accumulates)
  Medications  scheduled doses with reminders, marked Taken or Missed

QUICK START:

  $ chronicare sleep 7.5                          # Log last night's sleep
  $ chronicare water 500                          # Add a glass of water
  $ chronicare med add Metformin 500mg --at 08:00 # Schedule a dose
  $ chronicare logs                               # Merged daily logs
  $ chronicare dashboard                          # Score, goals and insights

REMINDERS:

  $ chronicare remind run     # Deliver due reminders until interrupted

STORAGE:

  SQLite at ~/.local/share/chronicare/chronicare.db by default.
  Set "backend": "charm" in ~/.config/chronicare/config.json to sync
  across devices with Charm Cloud, or CHRONICARE_REDIS_ADDR to keep
  step totals in Redis.

MCP INTEGRATION:

  Run 'chronicare mcp' to start the Model Context Protocol server.

  {
    "mcpServers": {
      "chronicare": { "command": "chronicare", "args": ["mcp"] }
    }
  }`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip init for commands that don't need it
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		if err := loadConfig(); err != nil {
			return err
		}
		if skipStorage(cmd) {
			return nil
		}
		return openRepo(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeRepo()
	},
}

// Execute runs the root command and releases storage even when a command fails.
func Execute() error {
	err := rootCmd.Execute()
	if cerr := closeRepo(); err == nil {
		err = cerr
	}
	return err
}

func loadConfig() error {
	c, err := config.Load()
	if c == nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save config: %v\n", err)
	}
	if flagDataDir != "" {
		c.DataDir = flagDataDir
	}
	if flagUser != "" {
		c.UserID = flagUser
	}
	if flagBackend != "" {
		c.Backend = flagBackend
	}

	cfg = c
	logger = logging.New(os.Stderr, cfg.GetLogLevel())
	return nil
}

func openRepo(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r, err := cfg.OpenStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.GetBackend(), err)
	}
	repo = r
	return nil
}

func closeRepo() error {
	if repo == nil {
		return nil
	}
	err := repo.Close()
	repo = nil
	return err
}

func skipStorage(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoStorage] == "true" {
			return true
		}
	}
	return false
}

func noStorage() map[string]string {
	return map[string]string{annotationNoStorage: "true"}
}

func newAggregator() *aggregate.Aggregator {
	return aggregate.New(repo, repo, repo, aggregate.Options{
		FeedTimeout:        cfg.GetFeedTimeout(),
		DropMalformedDates: cfg.DropMalformedDates,
		Location:           time.Local,
		Logger:             logger,
	})
}

// loadEntries aggregates every feed. Unavailable feeds are reported on
// stderr and the remaining data is still returned.
func loadEntries(cmd *cobra.Command) ([]models.DailyLogEntry, error) {
	entries, err := newAggregator().Aggregate(cmd.Context(), cfg.GetUserID())
	var partial *aggregate.PartialDataError
	if errors.As(err, &partial) {
		color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "⚠ Incomplete data, unavailable: %v\n", partial.Feeds())
		return entries, nil
	}
	return entries, err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.local/share/chronicare)")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "user id to read and write")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "storage backend: sqlite or charm")
}
