// ABOUTME: Tests for MCP server, tools, and resources.
// ABOUTME: Covers NewServer, tool handlers, and resource handlers against SQLite.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/chronicare/internal/logging"
	"github.com/harperreed/chronicare/internal/models"
	"github.com/harperreed/chronicare/internal/reminder"
	"github.com/harperreed/chronicare/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testNow = time.Date(2025, time.March, 9, 12, 0, 0, 0, time.Local)

type fakeFacility struct {
	scheduled map[string]time.Time
	fail      error
}

func (f *fakeFacility) Schedule(id string, at time.Time, _ reminder.Payload) error {
	if f.fail != nil {
		return f.fail
	}
	f.scheduled[id] = at
	return nil
}

func (f *fakeFacility) Cancel(id string) error {
	delete(f.scheduled, id)
	return nil
}

// setupTestDB creates a test database in a temp directory.
func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "chronicare.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// setupServer returns a server over a fresh database with a fake trigger facility.
func setupServer(t *testing.T) (*Server, *storage.DB, *fakeFacility) {
	t.Helper()

	db := setupTestDB(t)
	facility := &fakeFacility{scheduled: make(map[string]time.Time)}
	logger := logging.Discard()
	svc := reminder.NewService(db, reminder.NewScheduler(facility, time.Local, logger), "u1", logger)

	server, err := NewServer(db, Options{UserID: "u1", Reminders: svc, Logger: logger})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	server.now = func() time.Time { return testNow }
	return server, db, facility
}

func TestNewServer(t *testing.T) {
	db := setupTestDB(t)

	server, err := NewServer(db, Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if server == nil {
		t.Fatal("Expected non-nil server")
	}
	if server.mcpServer == nil {
		t.Error("Expected non-nil mcpServer")
	}
	if server.agg == nil || server.reminders == nil {
		t.Error("Expected default aggregator and reminder service")
	}
	if server.userID != "local" {
		t.Errorf("userID = %q, want local", server.userID)
	}
}

func TestHandleDailyLogs(t *testing.T) {
	server, db, _ := setupServer(t)
	ctx := context.Background()

	_ = db.UploadSteps(ctx, "u1", models.StepSample{Date: models.NewDayKey(2025, time.March, 7), StepsToday: 4000})
	_ = db.SetSleep(ctx, "u1", models.NewDayKey(2025, time.March, 8), 7)
	_ = db.SetSleep(ctx, "u2", models.NewDayKey(2025, time.March, 9), 9)

	_, out, err := server.handleDailyLogs(ctx, &mcp.CallToolRequest{}, dailyLogsInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(out.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(out.Entries))
	}
	if out.Entries[0].Key != "2025-03-08" || out.Entries[1].Key != "2025-03-07" {
		t.Errorf("Unexpected order: %s, %s", out.Entries[0].Key, out.Entries[1].Key)
	}
	if out.Entries[1].Steps != 4000 {
		t.Errorf("Steps = %d, want 4000", out.Entries[1].Steps)
	}
	if len(out.PartialFeeds) != 0 {
		t.Errorf("Expected no partial feeds, got %v", out.PartialFeeds)
	}

	_, out, _ = server.handleDailyLogs(ctx, &mcp.CallToolRequest{}, dailyLogsInput{Limit: 1})
	if len(out.Entries) != 1 {
		t.Errorf("Expected limit to apply, got %d entries", len(out.Entries))
	}
}

func TestHandleDailyLogsEmpty(t *testing.T) {
	server, _, _ := setupServer(t)

	_, out, err := server.handleDailyLogs(context.Background(), &mcp.CallToolRequest{}, dailyLogsInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Entries == nil || len(out.Entries) != 0 {
		t.Errorf("Expected empty non-nil entries, got %v", out.Entries)
	}
}

func TestHandleDashboard(t *testing.T) {
	server, db, _ := setupServer(t)
	ctx := context.Background()
	day := models.NewDayKey(2025, time.March, 9)

	_ = db.UploadSteps(ctx, "u1", models.StepSample{Date: day, StepsToday: 10000})
	_ = db.SetSleep(ctx, "u1", day, 8)
	_, _ = db.AddWater(ctx, "u1", day, 2000)

	_, out, err := server.handleDashboard(ctx, &mcp.CallToolRequest{}, dashboardInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Summary == nil {
		t.Fatal("Expected summary")
	}
	if out.Summary.Score != 100 {
		t.Errorf("Score = %d, want 100", out.Summary.Score)
	}
	if out.Summary.MedicationStatus != "Taken" {
		t.Errorf("MedicationStatus = %q, want Taken", out.Summary.MedicationStatus)
	}
	if len(out.Insights) != 3 {
		t.Errorf("Expected 3 insights, got %d", len(out.Insights))
	}
	if out.Streak != 1 {
		t.Errorf("Streak = %d, want 1", out.Streak)
	}
}

func TestHandleDashboardEmpty(t *testing.T) {
	server, _, _ := setupServer(t)

	_, out, err := server.handleDashboard(context.Background(), &mcp.CallToolRequest{}, dashboardInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Summary != nil {
		t.Error("Expected no summary without data")
	}
	if out.Message == "" {
		t.Error("Expected a message")
	}
}

func TestHandleLogSleep(t *testing.T) {
	server, db, _ := setupServer(t)
	ctx := context.Background()

	_, out, err := server.handleLogSleep(ctx, &mcp.CallToolRequest{}, logSleepInput{Hours: 7.5})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Date != "2025-03-09" {
		t.Errorf("Date = %s, want today", out.Date)
	}

	_, _, err = server.handleLogSleep(ctx, &mcp.CallToolRequest{}, logSleepInput{Hours: 6, Date: "2025-03-09"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	logs, _ := db.ListHealthLogs(ctx, "u1")
	if len(logs) != 1 {
		t.Fatalf("Expected 1 health log, got %d", len(logs))
	}
	if v, ok := logs[0].SleepHours.(float64); !ok || v != 6 {
		t.Errorf("SleepHours = %v, want overwritten 6", logs[0].SleepHours)
	}
}

func TestHandleLogSleepInvalid(t *testing.T) {
	server, _, _ := setupServer(t)
	ctx := context.Background()

	if _, _, err := server.handleLogSleep(ctx, &mcp.CallToolRequest{}, logSleepInput{Hours: -1}); err == nil {
		t.Error("Expected error for negative hours")
	}
	if _, _, err := server.handleLogSleep(ctx, &mcp.CallToolRequest{}, logSleepInput{Hours: 7, Date: "someday"}); err == nil {
		t.Error("Expected error for bad date")
	}
}

func TestHandleAddWater(t *testing.T) {
	server, _, _ := setupServer(t)
	ctx := context.Background()

	_, _, err := server.handleAddWater(ctx, &mcp.CallToolRequest{}, addWaterInput{Ml: 500})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	_, out, err := server.handleAddWater(ctx, &mcp.CallToolRequest{}, addWaterInput{Ml: 250})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Value != 750 {
		t.Errorf("Total = %v, want 750", out.Value)
	}
	if !contains(out.Message, "750") {
		t.Errorf("Message should mention the total: %s", out.Message)
	}
}

func TestHandleAddMedication(t *testing.T) {
	server, db, facility := setupServer(t)
	ctx := context.Background()

	_, out, err := server.handleAddMedication(ctx, &mcp.CallToolRequest{}, addMedicationInput{
		Name: "Metformin", Dosage: "500mg", At: "2025-03-09 18:30",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !out.Scheduled {
		t.Error("Expected reminder to be scheduled")
	}
	if out.Medication.DateTime != "Mar 09, 2025, 06:30 PM" {
		t.Errorf("DateTime = %q", out.Medication.DateTime)
	}
	if _, ok := facility.scheduled[reminder.TriggerID(out.Medication.ID)]; !ok {
		t.Error("Expected trigger to be registered")
	}

	meds, _ := db.ListMedications(ctx, "u1")
	if len(meds) != 1 || meds[0].Status != models.StatusDue {
		t.Errorf("Expected one Due medication, got %+v", meds)
	}
}

func TestHandleAddMedicationSchedulingFailure(t *testing.T) {
	server, db, facility := setupServer(t)
	ctx := context.Background()
	facility.fail = errors.New("notifications disabled")

	_, out, err := server.handleAddMedication(ctx, &mcp.CallToolRequest{}, addMedicationInput{
		Name: "Aspirin", Dosage: "81mg", At: "08:00",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Scheduled {
		t.Error("Expected Scheduled=false")
	}
	if !contains(out.Message, "reminder not set") {
		t.Errorf("Message should surface the failure: %s", out.Message)
	}

	meds, _ := db.ListMedications(ctx, "u1")
	if len(meds) != 1 {
		t.Errorf("Expected record to be kept, got %d", len(meds))
	}
}

func TestHandleAddMedicationInvalid(t *testing.T) {
	server, _, _ := setupServer(t)
	ctx := context.Background()

	if _, _, err := server.handleAddMedication(ctx, &mcp.CallToolRequest{}, addMedicationInput{Name: "X", Dosage: "1", At: "later"}); err == nil {
		t.Error("Expected error for bad time")
	}
	if _, _, err := server.handleAddMedication(ctx, &mcp.CallToolRequest{}, addMedicationInput{Dosage: "1", At: "08:00"}); err == nil {
		t.Error("Expected error for missing name")
	}
}

func TestHandleSetMedicationStatus(t *testing.T) {
	server, _, facility := setupServer(t)
	ctx := context.Background()

	_, added, _ := server.handleAddMedication(ctx, &mcp.CallToolRequest{}, addMedicationInput{
		Name: "Metformin", Dosage: "500mg", At: "2025-03-09 18:30",
	})

	_, out, err := server.handleSetMedicationStatus(ctx, &mcp.CallToolRequest{}, setMedicationStatusInput{
		ID: added.Medication.ID[:8], Status: "taken",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Medication.Status != models.StatusTaken {
		t.Errorf("Status = %s, want Taken", out.Medication.Status)
	}
	if len(facility.scheduled) != 0 {
		t.Error("Expected reminder to be cancelled once taken")
	}

	_, _, err = server.handleSetMedicationStatus(ctx, &mcp.CallToolRequest{}, setMedicationStatusInput{
		ID: added.Medication.ID, Status: "Missed",
	})
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestHandleSetMedicationStatusNotFound(t *testing.T) {
	server, _, _ := setupServer(t)

	_, _, err := server.handleSetMedicationStatus(context.Background(), &mcp.CallToolRequest{}, setMedicationStatusInput{
		ID: "nonexistent", Status: "Taken",
	})
	if err == nil || !contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestHandleSetMedicationStatusBadStatus(t *testing.T) {
	server, _, _ := setupServer(t)

	_, _, err := server.handleSetMedicationStatus(context.Background(), &mcp.CallToolRequest{}, setMedicationStatusInput{
		ID: "abc", Status: "Skipped",
	})
	if err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestHandleDeleteMedication(t *testing.T) {
	server, db, facility := setupServer(t)
	ctx := context.Background()

	_, added, _ := server.handleAddMedication(ctx, &mcp.CallToolRequest{}, addMedicationInput{
		Name: "Metformin", Dosage: "500mg", At: "2025-03-09 18:30",
	})

	_, out, err := server.handleDeleteMedication(ctx, &mcp.CallToolRequest{}, medicationIDInput{ID: added.Medication.ID})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !contains(out.Message, "Deleted") {
		t.Errorf("Unexpected message: %s", out.Message)
	}
	if len(facility.scheduled) != 0 {
		t.Error("Expected reminder to be cancelled")
	}
	meds, _ := db.ListMedications(ctx, "u1")
	if len(meds) != 0 {
		t.Errorf("Expected no medications, got %d", len(meds))
	}

	if _, _, err := server.handleDeleteMedication(ctx, &mcp.CallToolRequest{}, medicationIDInput{ID: "missing"}); err == nil {
		t.Error("Expected error deleting unknown medication")
	}
}

func TestHandleListMedications(t *testing.T) {
	server, _, _ := setupServer(t)
	ctx := context.Background()

	_, out, err := server.handleListMedications(ctx, &mcp.CallToolRequest{}, listMedicationsInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Medications == nil || len(out.Medications) != 0 {
		t.Errorf("Expected empty list, got %v", out.Medications)
	}

	for _, name := range []string{"A", "B"} {
		_, _, _ = server.handleAddMedication(ctx, &mcp.CallToolRequest{}, addMedicationInput{Name: name, Dosage: "1mg", At: "09:00"})
	}
	_, out, _ = server.handleListMedications(ctx, &mcp.CallToolRequest{}, listMedicationsInput{})
	if len(out.Medications) != 2 {
		t.Errorf("Expected 2 medications, got %d", len(out.Medications))
	}
}

func TestHandleTodayResource(t *testing.T) {
	server, db, _ := setupServer(t)
	ctx := context.Background()

	_ = db.UploadSteps(ctx, "u1", models.StepSample{Date: models.NewDayKey(2025, time.March, 8), StepsToday: 6000})
	_, _, _ = server.handleAddMedication(ctx, &mcp.CallToolRequest{}, addMedicationInput{Name: "Metformin", Dosage: "500mg", At: "2025-03-08 08:00"})

	result, err := server.handleTodayResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Contents) == 0 {
		t.Fatal("Expected non-empty contents")
	}
	if result.Contents[0].URI != "health://today" {
		t.Errorf("URI = %s, want health://today", result.Contents[0].URI)
	}
	if result.Contents[0].MIMEType != "application/json" {
		t.Errorf("MIMEType = %s, want application/json", result.Contents[0].MIMEType)
	}

	var got struct {
		Today   string `json:"today"`
		Entry   models.DailyLogEntry
		Summary struct {
			MedicationStatus string `json:"medication_status"`
			MedicationName   string `json:"medication_name"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &got); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if got.Today != "2025-03-09" {
		t.Errorf("today = %s", got.Today)
	}
	if got.Entry.Key != "2025-03-08" || got.Entry.Steps != 6000 {
		t.Errorf("Unexpected latest entry: %+v", got.Entry)
	}
	if got.Summary.MedicationStatus != "Missed" || got.Summary.MedicationName != "Metformin" {
		t.Errorf("Unexpected summary: %+v", got.Summary)
	}
}

func TestHandleTodayResourceEmpty(t *testing.T) {
	server, _, _ := setupServer(t)

	result, err := server.handleTodayResource(context.Background(), &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !contains(result.Contents[0].Text, "No health data") {
		t.Errorf("Expected empty message, got %s", result.Contents[0].Text)
	}
}

func TestHandleLogsResource(t *testing.T) {
	server, db, _ := setupServer(t)
	ctx := context.Background()

	_ = db.SetSleep(ctx, "u1", models.NewDayKey(2025, time.March, 1), 7)
	_ = db.SetSleep(ctx, "u1", models.NewDayKey(2025, time.March, 2), 8)

	result, err := server.handleLogsResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Contents[0].URI != "health://logs" {
		t.Errorf("URI = %s, want health://logs", result.Contents[0].URI)
	}

	var got struct {
		Entries []models.DailyLogEntry `json:"entries"`
		Count   int                    `json:"count"`
	}
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &got); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if got.Count != 2 || got.Entries[0].Key != "2025-03-02" {
		t.Errorf("Unexpected logs: %+v", got)
	}
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
