// ABOUTME: MedicationEvent model and its status lifecycle.
// ABOUTME: Scheduled times are stored in the long human-readable layout.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MedicationTimeLayout is the layout medication times are persisted in,
// e.g. "Jan 05, 2025, 08:30 AM".
const MedicationTimeLayout = "Jan 02, 2006, 03:04 PM"

// MedicationTimeLayouts are accepted when reading a scheduled time back.
var MedicationTimeLayouts = []string{
	MedicationTimeLayout,
	"Jan 2, 2006, 3:04 PM",
	"2006-01-02 15:04",
	time.RFC3339,
}

// MedicationStatus is the state of a medication event.
type MedicationStatus string

const (
	StatusDue    MedicationStatus = "Due"
	StatusTaken  MedicationStatus = "Taken"
	StatusMissed MedicationStatus = "Missed"
)

// ParseMedicationStatus accepts a status name case-insensitively.
func ParseMedicationStatus(s string) (MedicationStatus, error) {
	for _, st := range []MedicationStatus{StatusDue, StatusTaken, StatusMissed} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown medication status: %q", s)
}

// MedicationEvent is a single scheduled dose.
type MedicationEvent struct {
	ID             string           `json:"id" yaml:"id"`
	MedicationName string           `json:"medicationName" yaml:"medication_name"`
	Dosage         string           `json:"dosage" yaml:"dosage"`
	DateTime       string           `json:"dateTime" yaml:"date_time"`
	Status         MedicationStatus `json:"status" yaml:"status"`
}

// NewMedicationEvent creates a Due event with a generated id.
func NewMedicationEvent(name, dosage string, at time.Time) *MedicationEvent {
	return &MedicationEvent{
		ID:             uuid.New().String(),
		MedicationName: name,
		Dosage:         dosage,
		DateTime:       at.Format(MedicationTimeLayout),
		Status:         StatusDue,
	}
}

// ScheduledAt parses DateTime in loc (time.Local when nil).
func (m *MedicationEvent) ScheduledAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	raw := strings.TrimSpace(m.DateTime)
	for _, layout := range MedicationTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, m.DateTime)
}

// Transition moves the event to status to. Only Due events may change,
// and only to Taken or Missed.
func (m *MedicationEvent) Transition(to MedicationStatus) error {
	if m.Status != StatusDue && m.Status != "" {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, to)
	}
	if to != StatusTaken && to != StatusMissed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, to)
	}
	m.Status = to
	return nil
}
