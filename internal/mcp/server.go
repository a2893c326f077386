// ABOUTME: MCP server setup for the chronicare health log.
// ABOUTME: Wires the aggregator, insight goals and medication service to storage.
package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/chronicare/internal/aggregate"
	"github.com/harperreed/chronicare/internal/insight"
	"github.com/harperreed/chronicare/internal/logging"
	"github.com/harperreed/chronicare/internal/models"
	"github.com/harperreed/chronicare/internal/reminder"
	"github.com/harperreed/chronicare/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Options configures a Server. Zero values get sensible defaults.
type Options struct {
	UserID     string
	Goals      insight.Goals
	Aggregator *aggregate.Aggregator
	Reminders  *reminder.Service
	Logger     *log.Logger
}

// Server wraps the MCP server with storage access.
type Server struct {
	mcpServer *mcp.Server
	repo      storage.Repository
	userID    string
	goals     insight.Goals
	agg       *aggregate.Aggregator
	reminders *reminder.Service
	logger    *log.Logger
	now       func() time.Time
}

// NewServer creates a new MCP server over repo.
func NewServer(repo storage.Repository, opts Options) (*Server, error) {
	logger := logging.OrDefault(opts.Logger)
	userID := opts.UserID
	if userID == "" {
		userID = "local"
	}

	agg := opts.Aggregator
	if agg == nil {
		agg = aggregate.New(repo, repo, repo, aggregate.Options{Logger: logger})
	}
	reminders := opts.Reminders
	if reminders == nil {
		// stdout carries the protocol, so fired reminders only reach the log.
		facility := reminder.NewTimerFacility(reminder.NotifierFunc(func(_ context.Context, p reminder.Payload) error {
			logger.Info(p.Title, "text", p.Text)
			return nil
		}), logger)
		reminders = reminder.NewService(repo, reminder.NewScheduler(facility, time.Local, logger), userID, logger)
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "chronicare",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		repo:      repo,
		userID:    userID,
		goals:     opts.Goals,
		agg:       agg,
		reminders: reminders,
		logger:    logger,
		now:       time.Now,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// entries aggregates all feeds, reporting degraded feeds instead of failing.
func (s *Server) entries(ctx context.Context) ([]models.DailyLogEntry, []string) {
	entries, err := s.agg.Aggregate(ctx, s.userID)
	var partial *aggregate.PartialDataError
	if errors.As(err, &partial) {
		return entries, partial.Feeds()
	}
	if err != nil {
		s.logger.Warn("aggregation failed", "err", err)
	}
	return entries, nil
}
