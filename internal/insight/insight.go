// ABOUTME: InsightEngine scoring a day's health data and producing display summaries.
// ABOUTME: All functions are pure over DailyLogEntry values.
package insight

import (
	"math"
	"strconv"

	"github.com/harperreed/chronicare/internal/models"
)

// Score weights; they sum to 1.
const (
	stepsWeight      = 0.30
	waterWeight      = 0.25
	sleepWeight      = 0.25
	medicationWeight = 0.20
)

// Thresholds for a day to count as complete.
const (
	CompleteSteps      = 5000
	CompleteSleepHours = 8
	CompleteWaterMl    = 2000
)

// Goals are the daily targets a score is measured against.
type Goals struct {
	Steps      int64   `json:"steps"`
	WaterMl    float64 `json:"water_ml"`
	SleepHours float64 `json:"sleep_hours"`
}

// DefaultGoals returns 10000 steps, 2 litres of water and 8 hours of sleep.
func DefaultGoals() Goals {
	return Goals{Steps: 10000, WaterMl: 2000, SleepHours: 8}
}

func (g Goals) withDefaults() Goals {
	d := DefaultGoals()
	if g.Steps <= 0 {
		g.Steps = d.Steps
	}
	if g.WaterMl <= 0 {
		g.WaterMl = d.WaterMl
	}
	if g.SleepHours <= 0 {
		g.SleepHours = d.SleepHours
	}
	return g
}

// Progress holds each goal's completion ratio, clamped to [0,1].
type Progress struct {
	Steps     float64 `json:"steps"`
	Water     float64 `json:"water"`
	Sleep     float64 `json:"sleep"`
	Adherence float64 `json:"adherence"`
}

// ProgressOf computes goal ratios for e.
func ProgressOf(e models.DailyLogEntry, g Goals) Progress {
	g = g.withDefaults()
	return Progress{
		Steps:     ratio(float64(e.Steps), float64(g.Steps)),
		Water:     ratio(e.WaterMl, g.WaterMl),
		Sleep:     ratio(e.SleepHours, g.SleepHours),
		Adherence: Adherence(e),
	}
}

// Score returns the weighted 0-100 health score for e.
func Score(e models.DailyLogEntry, g Goals) int {
	p := ProgressOf(e, g)
	total := stepsWeight*p.Steps + waterWeight*p.Water + sleepWeight*p.Sleep + medicationWeight*p.Adherence
	s := int(math.Round(100 * total))
	return min(max(s, 0), 100)
}

// Adherence is the fraction of e's medications marked Taken. A day without
// medications counts as fully adherent.
func Adherence(e models.DailyLogEntry) float64 {
	if len(e.Medications) == 0 {
		return 1
	}
	return ratio(float64(takenCount(e.Medications)), float64(len(e.Medications)))
}

// Completed reports whether e meets the fixed daily completion thresholds.
func Completed(e models.DailyLogEntry) bool {
	return e.Steps >= CompleteSteps && e.SleepHours >= CompleteSleepHours && e.WaterMl >= CompleteWaterMl
}

// Insights summarizes the most recent entry as steps, sleep and water lines.
// entries must be ordered most recent first.
func Insights(entries []models.DailyLogEntry) []models.HealthInsight {
	if len(entries) == 0 {
		return []models.HealthInsight{}
	}
	e := entries[0]
	return []models.HealthInsight{
		{
			Title:       "Steps Walked",
			Value:       strconv.FormatInt(e.Steps, 10),
			Description: "Steps recorded for the latest day",
		},
		{
			Title:       "Sleep Duration",
			Value:       formatNumber(e.SleepHours) + " hrs",
			Description: "Sleep duration from last night",
		},
		{
			Title:       "Water Intake",
			Value:       formatNumber(e.WaterMl/1000) + " L",
			Description: "Water consumed",
		},
	}
}

// Medication summary statuses.
const (
	SummaryTaken          = "Taken"
	SummaryPartiallyTaken = "Partially Taken"
	SummaryMissed         = "Missed"
)

// Summary is the dashboard view of one day.
type Summary struct {
	Date             string   `json:"date"`
	Steps            int64    `json:"steps"`
	SleepHours       float64  `json:"sleep_hours"`
	WaterMl          float64  `json:"water_ml"`
	MedicationsTaken int      `json:"medications_taken"`
	MedicationsTotal int      `json:"medications_total"`
	MedicationName   string   `json:"medication_name,omitempty"`
	MedicationStatus string   `json:"medication_status"`
	Score            int      `json:"score"`
	Completed        bool     `json:"completed"`
	Progress         Progress `json:"progress"`
}

// Summarize builds the dashboard summary for e.
func Summarize(e models.DailyLogEntry, g Goals) Summary {
	taken := takenCount(e.Medications)
	total := len(e.Medications)
	s := Summary{
		Date:             e.Key,
		Steps:            e.Steps,
		SleepHours:       e.SleepHours,
		WaterMl:          e.WaterMl,
		MedicationsTaken: taken,
		MedicationsTotal: total,
		Score:            Score(e, g),
		Completed:        Completed(e),
		Progress:         ProgressOf(e, g),
	}
	if total > 0 {
		s.MedicationName = e.Medications[0].MedicationName
	}
	switch {
	case taken == total:
		s.MedicationStatus = SummaryTaken
	case taken > 0:
		s.MedicationStatus = SummaryPartiallyTaken
	default:
		s.MedicationStatus = SummaryMissed
	}
	return s
}

// Streak counts consecutive completed days ending at the most recent entry.
func Streak(entries []models.DailyLogEntry) int {
	n := 0
	var prev models.DayKey
	for _, e := range entries {
		if e.Date.IsZero() || !Completed(e) {
			break
		}
		if n > 0 && e.Date != prev.AddDays(-1) {
			break
		}
		prev = e.Date
		n++
	}
	return n
}

func takenCount(meds []models.MedicationEvent) int {
	n := 0
	for _, m := range meds {
		if m.Status == models.StatusTaken {
			n++
		}
	}
	return n
}

func ratio(v, goal float64) float64 {
	if goal <= 0 || v <= 0 || math.IsNaN(v) {
		return 0
	}
	return math.Min(v/goal, 1)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
