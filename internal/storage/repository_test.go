// ABOUTME: Tests for the SQLite Repository.
// ABOUTME: Covers step uploads, health-log writes and medication CRUD.
package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/chronicare/internal/models"
)

func day(y int, m time.Month, d int) models.DayKey {
	return models.NewDayKey(y, m, d)
}

func TestUploadAndListSteps(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	db.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	if err := db.UploadSteps(ctx, "alice", models.StepSample{Date: day(2025, 1, 5), StepsToday: 120}); err != nil {
		t.Fatalf("UploadSteps failed: %v", err)
	}
	if err := db.UploadSteps(ctx, "alice", models.StepSample{Date: day(2025, 1, 5), StepsToday: 480}); err != nil {
		t.Fatalf("UploadSteps failed: %v", err)
	}
	if err := db.UploadSteps(ctx, "bob", models.StepSample{Date: day(2025, 1, 5), StepsToday: 9}); err != nil {
		t.Fatalf("UploadSteps failed: %v", err)
	}

	recs, err := db.ListDailySteps(ctx, "alice")
	if err != nil {
		t.Fatalf("ListDailySteps failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Key != "2025-01-05" {
		t.Errorf("key = %q, want 2025-01-05", recs[0].Key)
	}
	if recs[0].Steps != int64(480) {
		t.Errorf("steps = %v (%T), want 480", recs[0].Steps, recs[0].Steps)
	}
	if recs[0].LastUpdated != 1_700_000_000_000 {
		t.Errorf("lastUpdated = %d", recs[0].LastUpdated)
	}
}

func TestUploadStepsRequiresDate(t *testing.T) {
	db := setupTestDB(t)
	if err := db.UploadSteps(context.Background(), "alice", models.StepSample{StepsToday: 5}); err == nil {
		t.Error("expected error for zero date")
	}
}

func TestSetSleepOverwritesAndAddWaterAccumulates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	d := day(2025, 2, 1)

	if err := db.SetSleep(ctx, "alice", d, 6); err != nil {
		t.Fatalf("SetSleep failed: %v", err)
	}
	if err := db.SetSleep(ctx, "alice", d, 7.5); err != nil {
		t.Fatalf("SetSleep failed: %v", err)
	}
	total, err := db.AddWater(ctx, "alice", d, 250)
	if err != nil {
		t.Fatalf("AddWater failed: %v", err)
	}
	if total != 250 {
		t.Errorf("total = %v, want 250", total)
	}
	if total, err = db.AddWater(ctx, "alice", d, 500); err != nil {
		t.Fatalf("AddWater failed: %v", err)
	}
	if total != 750 {
		t.Errorf("total = %v, want 750", total)
	}

	recs, err := db.ListHealthLogs(ctx, "alice")
	if err != nil {
		t.Fatalf("ListHealthLogs failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].SleepHours != 7.5 {
		t.Errorf("sleep = %v, want 7.5", recs[0].SleepHours)
	}
	if recs[0].WaterIntakeML != 750.0 {
		t.Errorf("water = %v (%T), want 750", recs[0].WaterIntakeML, recs[0].WaterIntakeML)
	}
}

func TestHealthLogAbsentLeavesAreNil(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.AddWater(ctx, "alice", day(2025, 2, 2), 300); err != nil {
		t.Fatalf("AddWater failed: %v", err)
	}
	recs, err := db.ListHealthLogs(ctx, "alice")
	if err != nil {
		t.Fatalf("ListHealthLogs failed: %v", err)
	}
	if len(recs) != 1 || recs[0].SleepHours != nil {
		t.Errorf("expected nil sleep leaf, got %+v", recs)
	}
}

func TestAddWaterOverNumericString(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.ImportData(ctx, "alice", &ExportData{
		HealthLogs: []models.MetricRecord{{Key: "2025-02-03", WaterIntakeML: "1000"}},
	})
	if err != nil {
		t.Fatalf("ImportData failed: %v", err)
	}
	total, err := db.AddWater(ctx, "alice", day(2025, 2, 3), 500)
	if err != nil {
		t.Fatalf("AddWater failed: %v", err)
	}
	if total != 1500 {
		t.Errorf("total = %v, want 1500", total)
	}
}

func TestMetricValidation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.SetSleep(ctx, "alice", day(2025, 1, 1), -1); err == nil {
		t.Error("expected error for negative sleep")
	}
	if _, err := db.AddWater(ctx, "alice", day(2025, 1, 1), -5); err == nil {
		t.Error("expected error for negative water")
	}
}

func TestMedicationCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ev := *models.NewMedicationEvent("Aspirin", "81mg", time.Date(2025, 1, 5, 8, 0, 0, 0, time.Local))
	if err := db.PutMedication(ctx, "alice", ev); err != nil {
		t.Fatalf("PutMedication failed: %v", err)
	}

	got, err := db.GetMedication(ctx, "alice", ev.ID[:8])
	if err != nil {
		t.Fatalf("GetMedication by prefix failed: %v", err)
	}
	if got != ev {
		t.Errorf("got %+v, want %+v", got, ev)
	}

	if _, err := db.GetMedication(ctx, "bob", ev.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other user, got %v", err)
	}

	if err := db.UpdateMedicationStatus(ctx, "alice", ev.ID, models.StatusTaken); err != nil {
		t.Fatalf("UpdateMedicationStatus failed: %v", err)
	}
	list, err := db.ListMedications(ctx, "alice")
	if err != nil {
		t.Fatalf("ListMedications failed: %v", err)
	}
	if len(list) != 1 || list[0].Status != models.StatusTaken {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := db.DeleteMedication(ctx, "alice", ev.ID); err != nil {
		t.Fatalf("DeleteMedication failed: %v", err)
	}
	if err := db.DeleteMedication(ctx, "alice", ev.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := db.UpdateMedicationStatus(ctx, "alice", ev.ID, models.StatusMissed); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound on update of deleted event, got %v", err)
	}
}

func TestListMedicationsInsertionOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	names := []string{"Zinc", "Aspirin", "Metformin"}
	for _, n := range names {
		if err := db.PutMedication(ctx, "alice", *models.NewMedicationEvent(n, "1 tab", time.Now())); err != nil {
			t.Fatalf("PutMedication failed: %v", err)
		}
	}
	list, err := db.ListMedications(ctx, "alice")
	if err != nil {
		t.Fatalf("ListMedications failed: %v", err)
	}
	for i, n := range names {
		if list[i].MedicationName != n {
			t.Errorf("list[%d] = %s, want %s", i, list[i].MedicationName, n)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chronicare.db")
	ctx := context.Background()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.SetSleep(ctx, "alice", day(2025, 3, 1), 8); err != nil {
		t.Fatalf("SetSleep failed: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()
	recs, err := db.ListHealthLogs(ctx, "alice")
	if err != nil || len(recs) != 1 {
		t.Fatalf("expected 1 record after reopen, got %v, %v", recs, err)
	}
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "chronicare.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
