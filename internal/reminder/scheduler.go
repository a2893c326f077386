// ABOUTME: ReminderScheduler registering one-shot medication triggers keyed by event id.
// ABOUTME: Builds the notification payload delivered when a trigger fires.
package reminder

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/chronicare/internal/logging"
	"github.com/harperreed/chronicare/internal/models"
)

const notificationTitle = "Medication Reminder"

// Payload is what the facility hands back when a trigger fires.
type Payload struct {
	NotificationID int    `json:"notification_id"`
	EventID        string `json:"event_id"`
	Title          string `json:"title"`
	Text           string `json:"text"`
	MedicationName string `json:"medication_name"`
	Dosage         string `json:"dosage"`
}

// PayloadFor builds the notification for ev.
func PayloadFor(ev models.MedicationEvent) Payload {
	return Payload{
		NotificationID: NotificationID(ev.ID),
		EventID:        ev.ID,
		Title:          notificationTitle,
		Text:           fmt.Sprintf("Time to take %s (%s)", ev.MedicationName, ev.Dosage),
		MedicationName: ev.MedicationName,
		Dosage:         ev.Dosage,
	}
}

// NotificationID maps an event id to a stable non-negative integer id so a
// re-delivered reminder replaces the previous notification.
func NotificationID(eventID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(eventID))
	return int(h.Sum32() & 0x7fffffff)
}

// TriggerID is the facility key for an event id.
func TriggerID(eventID string) string {
	return "med:" + eventID
}

// Facility is a one-shot wake-up service. Scheduling an existing trigger id
// replaces it; cancelling an unknown id is not an error.
type Facility interface {
	Schedule(triggerID string, fireAt time.Time, p Payload) error
	Cancel(triggerID string) error
}

// Scheduler turns medication events into facility triggers.
type Scheduler struct {
	facility Facility
	loc      *time.Location
	logger   *log.Logger
}

// NewScheduler creates a Scheduler. Times are interpreted in loc (time.Local when nil).
func NewScheduler(f Facility, loc *time.Location, logger *log.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		facility: f,
		loc:      loc,
		logger:   logging.OrDefault(logger).With("component", "reminder"),
	}
}

// Schedule registers a trigger at ev's scheduled time. It returns an error
// wrapping models.ErrMalformedTimestamp when the time cannot be parsed, and
// models.ErrSchedulingFailure when the facility refuses.
func (s *Scheduler) Schedule(ev models.MedicationEvent) error {
	at, err := ev.ScheduledAt(s.loc)
	if err != nil {
		s.logger.Warn("skipping reminder with unparseable time", "id", ev.ID, "time", ev.DateTime)
		return fmt.Errorf("schedule %s: %w", ev.ID, err)
	}
	if err := s.facility.Schedule(TriggerID(ev.ID), at, PayloadFor(ev)); err != nil {
		s.logger.Error("reminder not scheduled", "id", ev.ID, "err", err)
		return fmt.Errorf("%w: %s: %v", models.ErrSchedulingFailure, ev.ID, err)
	}
	s.logger.Debug("reminder scheduled", "id", ev.ID, "at", at)
	return nil
}

// Cancel removes the trigger for eventID, if any.
func (s *Scheduler) Cancel(eventID string) error {
	if err := s.facility.Cancel(TriggerID(eventID)); err != nil {
		return fmt.Errorf("%w: cancel %s: %v", models.ErrSchedulingFailure, eventID, err)
	}
	return nil
}
