// ABOUTME: Repository interfaces for the steps, health-metrics and medication stores.
// ABOUTME: Every call carries the user id; implementations keep users isolated.
package storage

import (
	"context"

	"github.com/harperreed/chronicare/internal/models"
)

// StepStore holds one step document per user and date.
type StepStore interface {
	// UploadSteps overwrites the document for sample.Date.
	UploadSteps(ctx context.Context, userID string, sample models.StepSample) error
	ListDailySteps(ctx context.Context, userID string) ([]models.StepRecord, error)
}

// MetricStore holds the sleep and water tree keyed by user and date.
type MetricStore interface {
	ListHealthLogs(ctx context.Context, userID string) ([]models.MetricRecord, error)
	// SetSleep overwrites the day's sleep hours.
	SetSleep(ctx context.Context, userID string, day models.DayKey, hours float64) error
	// AddWater adds ml to the day's water total and returns the new total.
	AddWater(ctx context.Context, userID string, day models.DayKey, ml float64) (float64, error)
}

// MedicationStore holds medication events keyed by user and event id.
type MedicationStore interface {
	PutMedication(ctx context.Context, userID string, ev models.MedicationEvent) error
	GetMedication(ctx context.Context, userID, idOrPrefix string) (models.MedicationEvent, error)
	ListMedications(ctx context.Context, userID string) ([]models.MedicationEvent, error)
	UpdateMedicationStatus(ctx context.Context, userID, id string, status models.MedicationStatus) error
	DeleteMedication(ctx context.Context, userID, id string) error
}

// Feeds groups the three stores.
type Feeds interface {
	StepStore
	MetricStore
	MedicationStore
}

// Repository is a complete backend for all three feeds.
type Repository interface {
	Feeds

	// GetAllData dumps a user's raw records, keys and values untouched.
	GetAllData(ctx context.Context, userID string) (*ExportData, error)
	// ImportData writes raw records, replacing any with the same key.
	ImportData(ctx context.Context, userID string, data *ExportData) error

	Close() error
}
