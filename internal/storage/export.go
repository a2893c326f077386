// ABOUTME: Export and import of a user's raw feed records.
// ABOUTME: Supports JSON and YAML dumps and a Markdown table of merged daily logs.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/chronicare/internal/models"
	"gopkg.in/yaml.v3"
)

const exportVersion = "1.0"

// ExportData is the full dump of one user's feeds.
type ExportData struct {
	Version     string                   `json:"version" yaml:"version"`
	ExportedAt  time.Time                `json:"exported_at" yaml:"exported_at"`
	Tool        string                   `json:"tool" yaml:"tool"`
	UserID      string                   `json:"user_id" yaml:"user_id"`
	Steps       []models.StepRecord      `json:"steps" yaml:"steps"`
	HealthLogs  []models.MetricRecord    `json:"health_logs" yaml:"health_logs"`
	Medications []models.MedicationEvent `json:"medications" yaml:"medications"`
}

// NewExportData stamps an empty dump for userID.
func NewExportData(userID string) *ExportData {
	return &ExportData{
		Version:    exportVersion,
		ExportedAt: time.Now(),
		Tool:       "chronicare",
		UserID:     userID,
	}
}

// GetAllData retrieves all of userID's records for export.
func (d *DB) GetAllData(ctx context.Context, userID string) (*ExportData, error) {
	return Collect(ctx, d, userID)
}

// ImportData writes every record in data under userID.
func (d *DB) ImportData(ctx context.Context, userID string, data *ExportData) error {
	for _, r := range data.Steps {
		if err := d.putStepRecord(ctx, userID, r); err != nil {
			return fmt.Errorf("import steps: %w", err)
		}
	}
	for _, r := range data.HealthLogs {
		if err := d.putHealthLog(ctx, userID, r); err != nil {
			return fmt.Errorf("import health log: %w", err)
		}
	}
	for _, ev := range data.Medications {
		if err := d.PutMedication(ctx, userID, ev); err != nil {
			return fmt.Errorf("import medication %s: %w", ev.ID, err)
		}
	}
	return nil
}

// Collect builds an ExportData from the three feed listings of any backend.
func Collect(ctx context.Context, r Feeds, userID string) (*ExportData, error) {
	data := NewExportData(userID)
	var err error
	if data.Steps, err = r.ListDailySteps(ctx, userID); err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	if data.HealthLogs, err = r.ListHealthLogs(ctx, userID); err != nil {
		return nil, fmt.Errorf("list health logs: %w", err)
	}
	if data.Medications, err = r.ListMedications(ctx, userID); err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	return data, nil
}

// ExportJSON dumps userID's data from r as indented JSON.
func ExportJSON(ctx context.Context, r Repository, userID string) ([]byte, error) {
	data, err := r.GetAllData(ctx, userID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML dumps userID's data from r as YAML.
func ExportYAML(ctx context.Context, r Repository, userID string) ([]byte, error) {
	data, err := r.GetAllData(ctx, userID)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(data)
}

// ExportMarkdown renders merged daily logs, most recent first, as a table.
func ExportMarkdown(entries []models.DailyLogEntry, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Health Log - %s\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format(time.RFC3339))
	sb.WriteString("| Date | Steps | Sleep (h) | Water (ml) | Medications |\n")
	sb.WriteString("|------|-------|-----------|------------|-------------|\n")
	for _, e := range entries {
		meds := make([]string, 0, len(e.Medications))
		for _, m := range e.Medications {
			meds = append(meds, fmt.Sprintf("%s %s (%s)", m.MedicationName, m.Dosage, m.Status))
		}
		fmt.Fprintf(&sb, "| %s | %d | %.1f | %.0f | %s |\n",
			e.Key, e.Steps, e.SleepHours, e.WaterMl, strings.Join(meds, ", "))
	}
	return sb.String()
}

// ParseExport reads a JSON or YAML dump. Numbers are kept exact.
func ParseExport(raw []byte) (*ExportData, error) {
	var data ExportData
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return nil, fmt.Errorf("unmarshal JSON: %w", err)
		}
		return &data, nil
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal YAML: %w", err)
	}
	return &data, nil
}
