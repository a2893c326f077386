// ABOUTME: Sleep and water health logs in SQLite.
// ABOUTME: Sleep is overwritten per day; water accumulates.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/harperreed/chronicare/internal/models"
)

// ListHealthLogs returns every date node for userID. Absent leaves are nil.
func (d *DB) ListHealthLogs(ctx context.Context, userID string) ([]models.MetricRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT date, sleep_hours, water_intake_ml FROM health_logs WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list health logs: %w", err)
	}
	defer rows.Close()

	var recs []models.MetricRecord
	for rows.Next() {
		var r models.MetricRecord
		if err := rows.Scan(&r.Key, &r.SleepHours, &r.WaterIntakeML); err != nil {
			return nil, fmt.Errorf("scan health log: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// SetSleep overwrites the day's sleep hours, leaving water untouched.
func (d *DB) SetSleep(ctx context.Context, userID string, day models.DayKey, hours float64) error {
	if err := validateAmount("sleep hours", hours); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO health_logs (user_id, date, sleep_hours)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET sleep_hours = excluded.sleep_hours`,
		userID, day.String(), hours,
	)
	if err != nil {
		return fmt.Errorf("set sleep: %w", err)
	}
	return nil
}

// AddWater adds ml to the day's total. Non-numeric stored values count as 0.
func (d *DB) AddWater(ctx context.Context, userID string, day models.DayKey, ml float64) (float64, error) {
	if err := validateAmount("water", ml); err != nil {
		return 0, err
	}
	var total float64
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO health_logs (user_id, date, water_intake_ml)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			water_intake_ml = COALESCE(CAST(health_logs.water_intake_ml AS REAL), 0) + excluded.water_intake_ml
		RETURNING CAST(water_intake_ml AS REAL)`,
		userID, day.String(), ml,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("add water: %w", err)
	}
	return total, nil
}

func (d *DB) putHealthLog(ctx context.Context, userID string, r models.MetricRecord) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO health_logs (user_id, date, sleep_hours, water_intake_ml)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			sleep_hours = excluded.sleep_hours,
			water_intake_ml = excluded.water_intake_ml`,
		userID, r.Key, sqlValue(r.SleepHours), sqlValue(r.WaterIntakeML),
	)
	if err != nil {
		return fmt.Errorf("save health log for %s: %w", r.Key, err)
	}
	return nil
}

func validateAmount(what string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a non-negative number", what)
	}
	return nil
}

// sqlValue narrows decoded JSON numbers to driver-friendly types.
func sqlValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case int:
		return int64(x)
	}
	return v
}
