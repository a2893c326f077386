// ABOUTME: Daily step documents in SQLite.
// ABOUTME: One row per user and canonical date, overwritten on every upload.
package storage

import (
	"context"
	"fmt"

	"github.com/harperreed/chronicare/internal/models"
)

// UploadSteps stores the day's total with the current time as lastUpdated.
func (d *DB) UploadSteps(ctx context.Context, userID string, s models.StepSample) error {
	if s.Date.IsZero() {
		return fmt.Errorf("upload steps: missing date")
	}
	return d.putStepRecord(ctx, userID, models.StepRecord{
		Key:         s.Date.String(),
		Steps:       s.StepsToday,
		LastUpdated: d.now().UnixMilli(),
	})
}

// ListDailySteps returns every step document for userID.
func (d *DB) ListDailySteps(ctx context.Context, userID string) ([]models.StepRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT date, steps, last_updated FROM daily_steps WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list daily steps: %w", err)
	}
	defer rows.Close()

	var recs []models.StepRecord
	for rows.Next() {
		var r models.StepRecord
		if err := rows.Scan(&r.Key, &r.Steps, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan daily steps: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (d *DB) putStepRecord(ctx context.Context, userID string, r models.StepRecord) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO daily_steps (user_id, date, steps, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			steps = excluded.steps,
			last_updated = excluded.last_updated`,
		userID, r.Key, sqlValue(r.Steps), r.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("save steps for %s: %w", r.Key, err)
	}
	return nil
}
