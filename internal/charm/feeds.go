// ABOUTME: Steps, health-log and medication operations over Charm KV.
// ABOUTME: Keys are "<feed>:<user>:<date-or-id>"; values are JSON documents.
package charm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/chronicare/internal/coerce"
	"github.com/harperreed/chronicare/internal/models"
	"github.com/harperreed/chronicare/internal/storage"
)

var _ storage.Repository = (*Client)(nil)

type stepDoc struct {
	Date        string `json:"date"`
	Steps       any    `json:"steps"`
	LastUpdated int64  `json:"lastUpdated"`
}

type healthDoc struct {
	SleepHours    any `json:"sleepHours,omitempty"`
	WaterIntakeML any `json:"waterIntakeML,omitempty"`
}

// UploadSteps overwrites the step document for the sample's date.
func (c *Client) UploadSteps(ctx context.Context, userID string, s models.StepSample) error {
	if s.Date.IsZero() {
		return fmt.Errorf("upload steps: missing date")
	}
	return c.putStepRecord(ctx, userID, models.StepRecord{
		Key:         s.Date.String(),
		Steps:       s.StepsToday,
		LastUpdated: time.Now().UnixMilli(),
	})
}

func (c *Client) putStepRecord(ctx context.Context, userID string, r models.StepRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(stepDoc{Date: r.Key, Steps: r.Steps, LastUpdated: r.LastUpdated})
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	return c.set(userKey(StepPrefix, userID, r.Key), data)
}

// ListDailySteps returns the user's step documents. Unreadable documents
// are surfaced with a zero count so the date still appears.
func (c *Client) ListDailySteps(ctx context.Context, userID string) ([]models.StepRecord, error) {
	prefix := userKey(StepPrefix, userID, "")
	entries, err := c.listByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list daily steps: %w", err)
	}
	recs := make([]models.StepRecord, 0, len(entries))
	for _, e := range entries {
		r := models.StepRecord{Key: extractID(e.key, prefix)}
		if doc, err := decodeLoose(e.value); err == nil {
			r.Steps = doc["steps"]
			r.LastUpdated = coerce.Int(doc["lastUpdated"])
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// ListHealthLogs returns the user's date nodes with leaves left untyped.
func (c *Client) ListHealthLogs(ctx context.Context, userID string) ([]models.MetricRecord, error) {
	prefix := userKey(HealthPrefix, userID, "")
	entries, err := c.listByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list health logs: %w", err)
	}
	recs := make([]models.MetricRecord, 0, len(entries))
	for _, e := range entries {
		r := models.MetricRecord{Key: extractID(e.key, prefix)}
		if doc, err := decodeLoose(e.value); err == nil {
			r.SleepHours = doc["sleepHours"]
			r.WaterIntakeML = doc["waterIntakeML"]
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// SetSleep overwrites the day's sleep hours.
func (c *Client) SetSleep(ctx context.Context, userID string, day models.DayKey, hours float64) error {
	if hours < 0 {
		return fmt.Errorf("sleep hours must be a non-negative number")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.update(userKey(HealthPrefix, userID, day.String()), func(old []byte) ([]byte, error) {
		doc := readHealthDoc(old)
		doc.SleepHours = hours
		return json.Marshal(doc)
	})
}

// AddWater adds ml to the day's water total.
func (c *Client) AddWater(ctx context.Context, userID string, day models.DayKey, ml float64) (float64, error) {
	if ml < 0 {
		return 0, fmt.Errorf("water must be a non-negative number")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var total float64
	err := c.update(userKey(HealthPrefix, userID, day.String()), func(old []byte) ([]byte, error) {
		doc := readHealthDoc(old)
		total = coerce.Float(doc.WaterIntakeML) + ml
		doc.WaterIntakeML = total
		return json.Marshal(doc)
	})
	if err != nil {
		return 0, fmt.Errorf("add water: %w", err)
	}
	return total, nil
}

func readHealthDoc(data []byte) healthDoc {
	var doc healthDoc
	if m, err := decodeLoose(data); err == nil {
		doc.SleepHours = m["sleepHours"]
		doc.WaterIntakeML = m["waterIntakeML"]
	}
	return doc
}

func (c *Client) putHealthLog(ctx context.Context, userID string, r models.MetricRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(healthDoc{SleepHours: r.SleepHours, WaterIntakeML: r.WaterIntakeML})
	if err != nil {
		return fmt.Errorf("marshal health log: %w", err)
	}
	return c.set(userKey(HealthPrefix, userID, r.Key), data)
}

// PutMedication stores ev under its id.
func (c *Client) PutMedication(ctx context.Context, userID string, ev models.MedicationEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("put medication: missing id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.Status == "" {
		ev.Status = models.StatusDue
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal medication: %w", err)
	}
	return c.set(userKey(MedicationPrefix, userID, ev.ID), data)
}

// GetMedication retrieves an event by id or unique id prefix.
func (c *Client) GetMedication(ctx context.Context, userID, idOrPrefix string) (models.MedicationEvent, error) {
	if err := ctx.Err(); err != nil {
		return models.MedicationEvent{}, err
	}
	if idOrPrefix == "" {
		return models.MedicationEvent{}, fmt.Errorf("%w: empty medication id", models.ErrNotFound)
	}
	key, data, err := c.findByIDPrefix(userKey(MedicationPrefix, userID, ""), idOrPrefix)
	if err != nil {
		return models.MedicationEvent{}, fmt.Errorf("get medication: %w", err)
	}
	if key == "" {
		return models.MedicationEvent{}, fmt.Errorf("%w: medication %s", models.ErrNotFound, idOrPrefix)
	}
	var ev models.MedicationEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.MedicationEvent{}, fmt.Errorf("unmarshal medication: %w", err)
	}
	return ev, nil
}

// ListMedications returns every decodable event for the user.
func (c *Client) ListMedications(ctx context.Context, userID string) ([]models.MedicationEvent, error) {
	entries, err := c.listByPrefix(ctx, userKey(MedicationPrefix, userID, ""))
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	var out []models.MedicationEvent
	for _, e := range entries {
		var ev models.MedicationEvent
		if err := json.Unmarshal(e.value, &ev); err != nil {
			continue // Skip invalid entries
		}
		out = append(out, ev)
	}
	return out, nil
}

// UpdateMedicationStatus sets only the status field of the stored document.
func (c *Client) UpdateMedicationStatus(ctx context.Context, userID, id string, status models.MedicationStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.update(userKey(MedicationPrefix, userID, id), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, fmt.Errorf("%w: medication %s", models.ErrNotFound, id)
		}
		doc, err := decodeLoose(old)
		if err != nil {
			return nil, fmt.Errorf("unmarshal medication: %w", err)
		}
		doc["status"] = string(status)
		return json.Marshal(doc)
	})
}

// DeleteMedication removes the event with the exact id.
func (c *Client) DeleteMedication(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := userKey(MedicationPrefix, userID, id)
	c.mu.RLock()
	existing, err := c.get(key)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("%w: medication %s", models.ErrNotFound, id)
	}
	return c.delete(key)
}

// GetAllData retrieves all of userID's records for export.
func (c *Client) GetAllData(ctx context.Context, userID string) (*storage.ExportData, error) {
	return storage.Collect(ctx, c, userID)
}

// ImportData writes every record in data under userID. Auto-sync is
// suspended during the import and one sync is done at the end.
func (c *Client) ImportData(ctx context.Context, userID string, data *storage.ExportData) error {
	c.mu.Lock()
	prev := c.autoSync
	c.autoSync = false
	c.mu.Unlock()
	defer func() {
		c.SetAutoSync(prev)
		if prev {
			_ = c.Sync()
		}
	}()

	for _, r := range data.Steps {
		if err := c.putStepRecord(ctx, userID, r); err != nil {
			return fmt.Errorf("import steps: %w", err)
		}
	}
	for _, r := range data.HealthLogs {
		if err := c.putHealthLog(ctx, userID, r); err != nil {
			return fmt.Errorf("import health log: %w", err)
		}
	}
	for _, ev := range data.Medications {
		if err := c.PutMedication(ctx, userID, ev); err != nil {
			return fmt.Errorf("import medication %s: %w", ev.ID, err)
		}
	}
	return nil
}
