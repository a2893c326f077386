// ABOUTME: MCP resource implementations for the health log.
// ABOUTME: Provides health://today and health://logs resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/chronicare/internal/aggregate"
	"github.com/harperreed/chronicare/internal/insight"
	"github.com/harperreed/chronicare/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerResources() {
	// health://today - latest day with its score and medication summary
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "health://today",
		Name:        "Latest Health Day",
		Description: "Most recent daily log with score and medication summary",
		MIMEType:    "application/json",
	}, s.handleTodayResource)

	// health://logs - every merged daily log
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "health://logs",
		Name:        "Daily Health Logs",
		Description: "All merged daily logs, most recent first",
		MIMEType:    "application/json",
	}, s.handleLogsResource)
}

// Resource handlers

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	entries, partial := s.entries(ctx)

	result := map[string]interface{}{
		"generated_at": s.now().Format(time.RFC3339),
		"today":        models.DayOf(s.now()).String(),
	}
	if latest, ok := aggregate.Latest(entries); ok {
		result["entry"] = latest
		result["summary"] = insight.Summarize(latest, s.goals)
	} else {
		result["message"] = "No health data logged yet."
	}
	if len(partial) > 0 {
		result["partial_feeds"] = partial
	}

	return jsonResource("health://today", result)
}

func (s *Server) handleLogsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	entries, partial := s.entries(ctx)
	if entries == nil {
		entries = []models.DailyLogEntry{}
	}

	result := map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	}
	if len(partial) > 0 {
		result["partial_feeds"] = partial
	}

	return jsonResource("health://logs", result)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
