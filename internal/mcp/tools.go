// ABOUTME: MCP tool implementations for daily logs, health metrics and medications.
// ABOUTME: Reads go through the aggregator; medication writes go through the reminder service.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/chronicare/internal/aggregate"
	"github.com/harperreed/chronicare/internal/daykey"
	"github.com/harperreed/chronicare/internal/insight"
	"github.com/harperreed/chronicare/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "daily_logs",
		Description: "List merged daily logs (steps, sleep, water, medications), most recent first",
	}, s.handleDailyLogs)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "health_dashboard",
		Description: "Health score, goal progress, medication summary and insights for the latest day",
	}, s.handleDashboard)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_sleep",
		Description: "Record hours slept for a day, replacing any previous value",
	}, s.handleLogSleep)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_water",
		Description: "Add water intake in millilitres to a day's total",
	}, s.handleAddWater)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_medication",
		Description: "Schedule a medication dose and its reminder",
	}, s.handleAddMedication)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set_medication_status",
		Description: "Mark a due medication as Taken or Missed",
	}, s.handleSetMedicationStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_medication",
		Description: "Delete a medication event and cancel its reminder",
	}, s.handleDeleteMedication)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_medications",
		Description: "List all medication events",
	}, s.handleListMedications)
}

// Tool input/output types

type dailyLogsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max days to return (default 30)"`
}

type dailyLogsOutput struct {
	Entries      []models.DailyLogEntry `json:"entries"`
	PartialFeeds []string               `json:"partial_feeds,omitempty"`
}

type dashboardInput struct{}

type dashboardOutput struct {
	Summary      *insight.Summary       `json:"summary,omitempty"`
	Insights     []models.HealthInsight `json:"insights"`
	Streak       int                    `json:"streak"`
	PartialFeeds []string               `json:"partial_feeds,omitempty"`
	Message      string                 `json:"message,omitempty"`
}

type logSleepInput struct {
	Hours float64 `json:"hours" jsonschema:"Hours slept"`
	Date  string  `json:"date,omitempty" jsonschema:"Day as YYYY-MM-DD, defaults to today"`
}

type addWaterInput struct {
	Ml   float64 `json:"ml" jsonschema:"Millilitres drunk"`
	Date string  `json:"date,omitempty" jsonschema:"Day as YYYY-MM-DD, defaults to today"`
}

type metricOutput struct {
	Date    string  `json:"date"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

type addMedicationInput struct {
	Name   string `json:"name" jsonschema:"Medication name"`
	Dosage string `json:"dosage" jsonschema:"Dosage, e.g. 10mg"`
	At     string `json:"at" jsonschema:"Scheduled time as YYYY-MM-DD HH:MM or HH:MM for today"`
}

type medicationOutput struct {
	Medication models.MedicationEvent `json:"medication"`
	Scheduled  bool                   `json:"scheduled"`
	Message    string                 `json:"message"`
}

type setMedicationStatusInput struct {
	ID     string `json:"id" jsonschema:"Medication ID or prefix"`
	Status string `json:"status" jsonschema:"Taken or Missed"`
}

type medicationIDInput struct {
	ID string `json:"id" jsonschema:"Medication ID or prefix"`
}

type listMedicationsInput struct{}

type medicationsOutput struct {
	Medications []models.MedicationEvent `json:"medications"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleDailyLogs(ctx context.Context, req *mcp.CallToolRequest, input dailyLogsInput) (*mcp.CallToolResult, dailyLogsOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 30
	}
	entries, partial := s.entries(ctx)
	if len(entries) > input.Limit {
		entries = entries[:input.Limit]
	}
	if entries == nil {
		entries = []models.DailyLogEntry{}
	}
	return nil, dailyLogsOutput{Entries: entries, PartialFeeds: partial}, nil
}

func (s *Server) handleDashboard(ctx context.Context, req *mcp.CallToolRequest, input dashboardInput) (*mcp.CallToolResult, dashboardOutput, error) {
	entries, partial := s.entries(ctx)
	out := dashboardOutput{
		Insights:     insight.Insights(entries),
		Streak:       insight.Streak(entries),
		PartialFeeds: partial,
	}
	latest, ok := aggregate.Latest(entries)
	if !ok {
		out.Message = "No health data logged yet."
		return nil, out, nil
	}
	summary := insight.Summarize(latest, s.goals)
	out.Summary = &summary
	return nil, out, nil
}

func (s *Server) handleLogSleep(ctx context.Context, req *mcp.CallToolRequest, input logSleepInput) (*mcp.CallToolResult, metricOutput, error) {
	day, err := daykey.Day(input.Date, s.now())
	if err != nil {
		return nil, metricOutput{}, err
	}
	if err := s.repo.SetSleep(ctx, s.userID, day, input.Hours); err != nil {
		return nil, metricOutput{}, fmt.Errorf("failed to log sleep: %w", err)
	}
	return nil, metricOutput{
		Date:    day.String(),
		Value:   input.Hours,
		Message: fmt.Sprintf("Logged %.1f hrs of sleep for %s", input.Hours, day),
	}, nil
}

func (s *Server) handleAddWater(ctx context.Context, req *mcp.CallToolRequest, input addWaterInput) (*mcp.CallToolResult, metricOutput, error) {
	day, err := daykey.Day(input.Date, s.now())
	if err != nil {
		return nil, metricOutput{}, err
	}
	total, err := s.repo.AddWater(ctx, s.userID, day, input.Ml)
	if err != nil {
		return nil, metricOutput{}, fmt.Errorf("failed to add water: %w", err)
	}
	return nil, metricOutput{
		Date:    day.String(),
		Value:   total,
		Message: fmt.Sprintf("Added %.0f ml of water for %s (total %.0f ml)", input.Ml, day, total),
	}, nil
}

func (s *Server) handleAddMedication(ctx context.Context, req *mcp.CallToolRequest, input addMedicationInput) (*mcp.CallToolResult, medicationOutput, error) {
	at, err := daykey.When(input.At, s.now())
	if err != nil {
		return nil, medicationOutput{}, err
	}
	ev, err := s.reminders.Add(ctx, input.Name, input.Dosage, at)
	if ev.ID == "" {
		return nil, medicationOutput{}, fmt.Errorf("failed to add medication: %w", err)
	}
	out := medicationOutput{
		Medication: ev,
		Scheduled:  err == nil,
		Message:    fmt.Sprintf("Added %s (%s) at %s (ID: %s)", ev.MedicationName, ev.Dosage, ev.DateTime, shortID(ev.ID)),
	}
	if err != nil {
		// The record is kept; the caller must learn the reminder is not set.
		out.Message += fmt.Sprintf("; reminder not set: %v", err)
	}
	return nil, out, nil
}

func (s *Server) handleSetMedicationStatus(ctx context.Context, req *mcp.CallToolRequest, input setMedicationStatusInput) (*mcp.CallToolResult, medicationOutput, error) {
	status, err := models.ParseMedicationStatus(input.Status)
	if err != nil {
		return nil, medicationOutput{}, err
	}
	ev, err := s.reminders.SetStatus(ctx, input.ID, status)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, medicationOutput{}, fmt.Errorf("medication not found: %s", input.ID)
		}
		return nil, medicationOutput{}, fmt.Errorf("failed to set status: %w", err)
	}
	return nil, medicationOutput{
		Medication: ev,
		Message:    fmt.Sprintf("Marked %s as %s", ev.MedicationName, ev.Status),
	}, nil
}

func (s *Server) handleDeleteMedication(ctx context.Context, req *mcp.CallToolRequest, input medicationIDInput) (*mcp.CallToolResult, simpleOutput, error) {
	if err := s.reminders.Delete(ctx, input.ID); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete medication: %w", err)
	}
	return nil, simpleOutput{
		Message: fmt.Sprintf("Deleted medication: %s", input.ID),
	}, nil
}

func (s *Server) handleListMedications(ctx context.Context, req *mcp.CallToolRequest, input listMedicationsInput) (*mcp.CallToolResult, medicationsOutput, error) {
	meds, err := s.reminders.List(ctx)
	if err != nil {
		return nil, medicationsOutput{}, fmt.Errorf("failed to list medications: %w", err)
	}
	if meds == nil {
		meds = []models.MedicationEvent{}
	}
	return nil, medicationsOutput{Medications: meds}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
