package insight

import (
	"testing"
	"time"

	"github.com/harperreed/chronicare/internal/models"
)

func meds(statuses ...models.MedicationStatus) []models.MedicationEvent {
	out := make([]models.MedicationEvent, len(statuses))
	for i, s := range statuses {
		out[i] = models.MedicationEvent{ID: string(rune('a' + i)), MedicationName: "Metformin", Status: s}
	}
	return out
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		entry models.DailyLogEntry
		want  int
	}{
		{
			name:  "all goals met",
			entry: models.DailyLogEntry{Steps: 10000, WaterMl: 2000, SleepHours: 8, Medications: meds(models.StatusTaken, models.StatusTaken)},
			want:  100,
		},
		{
			name:  "no medications is full adherence",
			entry: models.DailyLogEntry{},
			want:  20,
		},
		{
			name:  "nothing taken",
			entry: models.DailyLogEntry{Medications: meds(models.StatusMissed)},
			want:  0,
		},
		{
			name:  "ratios clamp above goal",
			entry: models.DailyLogEntry{Steps: 50000, WaterMl: 9000, SleepHours: 14},
			want:  100,
		},
		{
			name:  "half of everything",
			entry: models.DailyLogEntry{Steps: 5000, WaterMl: 1000, SleepHours: 4, Medications: meds(models.StatusTaken, models.StatusDue)},
			want:  50,
		},
		{
			name:  "rounds to nearest",
			entry: models.DailyLogEntry{Steps: 1234, Medications: meds(models.StatusDue)},
			want:  4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.entry, DefaultGoals()); got != tt.want {
				t.Errorf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreCustomGoals(t *testing.T) {
	e := models.DailyLogEntry{Steps: 5000, WaterMl: 1000, SleepHours: 6}
	if got := Score(e, Goals{Steps: 5000, WaterMl: 1000, SleepHours: 6}); got != 100 {
		t.Errorf("Score = %d, want 100", got)
	}
	if got := Score(e, Goals{}); got != 66 {
		t.Errorf("Score with zero goals = %d, want 66", got)
	}
}

func TestInsights(t *testing.T) {
	if got := Insights(nil); len(got) != 0 {
		t.Fatalf("expected no insights, got %v", got)
	}

	entries := []models.DailyLogEntry{
		{Key: "2025-01-02", Steps: 8421, SleepHours: 7.5, WaterMl: 1750},
		{Key: "2025-01-01", Steps: 1},
	}
	got := Insights(entries)
	want := []models.HealthInsight{
		{Title: "Steps Walked", Value: "8421", Description: "Steps recorded for the latest day"},
		{Title: "Sleep Duration", Value: "7.5 hrs", Description: "Sleep duration from last night"},
		{Title: "Water Intake", Value: "1.75 L", Description: "Water consumed"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d insights, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("insight %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		meds   []models.MedicationEvent
		status string
		taken  int
	}{
		{"none", nil, SummaryTaken, 0},
		{"all taken", meds(models.StatusTaken, models.StatusTaken), SummaryTaken, 2},
		{"partial", meds(models.StatusTaken, models.StatusDue), SummaryPartiallyTaken, 1},
		{"missed", meds(models.StatusMissed, models.StatusDue), SummaryMissed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(models.DailyLogEntry{Key: "2025-01-01", Medications: tt.meds}, DefaultGoals())
			if s.MedicationStatus != tt.status {
				t.Errorf("status = %q, want %q", s.MedicationStatus, tt.status)
			}
			if s.MedicationsTaken != tt.taken || s.MedicationsTotal != len(tt.meds) {
				t.Errorf("taken/total = %d/%d", s.MedicationsTaken, s.MedicationsTotal)
			}
			if len(tt.meds) > 0 && s.MedicationName != "Metformin" {
				t.Errorf("medication name = %q", s.MedicationName)
			}
		})
	}
}

func TestCompleted(t *testing.T) {
	if !Completed(models.DailyLogEntry{Steps: 5000, SleepHours: 8, WaterMl: 2000}) {
		t.Error("expected day at thresholds to be complete")
	}
	if Completed(models.DailyLogEntry{Steps: 4999, SleepHours: 9, WaterMl: 3000}) {
		t.Error("expected day below step threshold to be incomplete")
	}
}

func TestStreak(t *testing.T) {
	done := func(y int, m time.Month, d int) models.DailyLogEntry {
		return models.DailyLogEntry{Date: models.NewDayKey(y, m, d), Steps: 6000, SleepHours: 8, WaterMl: 2500}
	}
	entries := []models.DailyLogEntry{
		done(2025, time.March, 1),
		done(2025, time.February, 28),
		done(2025, time.February, 26),
	}
	if got := Streak(entries); got != 2 {
		t.Errorf("Streak = %d, want 2", got)
	}
	if got := Streak(nil); got != 0 {
		t.Errorf("Streak(nil) = %d, want 0", got)
	}
}
