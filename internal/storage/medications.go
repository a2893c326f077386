// ABOUTME: Medication reminder records in SQLite.
// ABOUTME: Ids may be given as unique prefixes, like the other CLI-facing lookups.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/chronicare/internal/models"
)

// PutMedication inserts or replaces ev.
func (d *DB) PutMedication(ctx context.Context, userID string, ev models.MedicationEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("put medication: missing id")
	}
	if ev.Status == "" {
		ev.Status = models.StatusDue
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO medication_reminders (id, user_id, medication_name, dosage, date_time, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			medication_name = excluded.medication_name,
			dosage = excluded.dosage,
			date_time = excluded.date_time,
			status = excluded.status
		WHERE medication_reminders.user_id = excluded.user_id`,
		ev.ID, userID, ev.MedicationName, ev.Dosage, ev.DateTime, string(ev.Status),
	)
	if err != nil {
		return fmt.Errorf("put medication: %w", err)
	}
	return nil
}

// GetMedication retrieves an event by id or unique id prefix.
func (d *DB) GetMedication(ctx context.Context, userID, idOrPrefix string) (models.MedicationEvent, error) {
	id, err := d.resolveMedicationID(ctx, userID, idOrPrefix)
	if err != nil {
		return models.MedicationEvent{}, err
	}
	row := d.db.QueryRowContext(ctx, `
		SELECT id, medication_name, dosage, date_time, status
		FROM medication_reminders
		WHERE user_id = ? AND id = ?`, userID, id)

	var ev models.MedicationEvent
	var status string
	if err := row.Scan(&ev.ID, &ev.MedicationName, &ev.Dosage, &ev.DateTime, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MedicationEvent{}, fmt.Errorf("%w: medication %s", models.ErrNotFound, idOrPrefix)
		}
		return models.MedicationEvent{}, fmt.Errorf("scan medication: %w", err)
	}
	ev.Status = models.MedicationStatus(status)
	return ev, nil
}

// ListMedications returns every event for userID in insertion order.
func (d *DB) ListMedications(ctx context.Context, userID string) ([]models.MedicationEvent, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, medication_name, dosage, date_time, status
		FROM medication_reminders
		WHERE user_id = ?
		ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	var out []models.MedicationEvent
	for rows.Next() {
		var ev models.MedicationEvent
		var status string
		if err := rows.Scan(&ev.ID, &ev.MedicationName, &ev.Dosage, &ev.DateTime, &status); err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		ev.Status = models.MedicationStatus(status)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// UpdateMedicationStatus sets the status field only.
func (d *DB) UpdateMedicationStatus(ctx context.Context, userID, id string, status models.MedicationStatus) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE medication_reminders SET status = ? WHERE user_id = ? AND id = ?`,
		string(status), userID, id)
	if err != nil {
		return fmt.Errorf("update medication status: %w", err)
	}
	return expectAffected(result, id)
}

// DeleteMedication removes the event with the exact id.
func (d *DB) DeleteMedication(ctx context.Context, userID, id string) error {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM medication_reminders WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	return expectAffected(result, id)
}

func expectAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: medication %s", models.ErrNotFound, id)
	}
	return nil
}

// resolveMedicationID finds the full ID from a prefix.
func (d *DB) resolveMedicationID(ctx context.Context, userID, idOrPrefix string) (string, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return "", fmt.Errorf("%w: empty medication id", models.ErrNotFound)
	}
	if len(idOrPrefix) == 36 && strings.Count(idOrPrefix, "-") == 4 {
		return idOrPrefix, nil
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id FROM medication_reminders WHERE user_id = ? AND id LIKE ? || '%'`, userID, idOrPrefix)
	if err != nil {
		return "", fmt.Errorf("resolve medication ID: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan medication ID: %w", err)
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: medication %s", models.ErrNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("ambiguous prefix %s: matches multiple records", idOrPrefix)
	}
}
