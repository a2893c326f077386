// ABOUTME: Medication lifecycle service tying the medication store to the scheduler.
// ABOUTME: Adding schedules a reminder; deleting or resolving an event cancels it.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/chronicare/internal/logging"
	"github.com/harperreed/chronicare/internal/models"
)

// MedicationStore persists medication events per user.
type MedicationStore interface {
	PutMedication(ctx context.Context, userID string, ev models.MedicationEvent) error
	GetMedication(ctx context.Context, userID, id string) (models.MedicationEvent, error)
	ListMedications(ctx context.Context, userID string) ([]models.MedicationEvent, error)
	UpdateMedicationStatus(ctx context.Context, userID, id string, status models.MedicationStatus) error
	DeleteMedication(ctx context.Context, userID, id string) error
}

// Service manages one user's medication events.
type Service struct {
	store  MedicationStore
	sched  *Scheduler
	userID string
	logger *log.Logger
	now    func() time.Time
}

// NewService creates a Service for userID.
func NewService(store MedicationStore, sched *Scheduler, userID string, logger *log.Logger) *Service {
	return &Service{
		store:  store,
		sched:  sched,
		userID: userID,
		logger: logging.OrDefault(logger),
		now:    time.Now,
	}
}

// Add stores a new Due event and schedules its reminder. When scheduling
// fails the event is still stored and returned along with the error.
func (s *Service) Add(ctx context.Context, name, dosage string, at time.Time) (models.MedicationEvent, error) {
	name, dosage = strings.TrimSpace(name), strings.TrimSpace(dosage)
	if name == "" || dosage == "" {
		return models.MedicationEvent{}, fmt.Errorf("medication name and dosage are required")
	}
	ev := *models.NewMedicationEvent(name, dosage, at)
	if err := s.store.PutMedication(ctx, s.userID, ev); err != nil {
		return models.MedicationEvent{}, fmt.Errorf("save medication: %w", err)
	}
	if err := s.sched.Schedule(ev); err != nil {
		return ev, err
	}
	return ev, nil
}

// SetStatus resolves a Due event (id may be a unique prefix where the store
// supports it) as Taken or Missed and cancels its reminder.
func (s *Service) SetStatus(ctx context.Context, id string, status models.MedicationStatus) (models.MedicationEvent, error) {
	ev, err := s.store.GetMedication(ctx, s.userID, id)
	if err != nil {
		return models.MedicationEvent{}, err
	}
	if err := ev.Transition(status); err != nil {
		return ev, err
	}
	if err := s.store.UpdateMedicationStatus(ctx, s.userID, ev.ID, status); err != nil {
		return ev, fmt.Errorf("update medication status: %w", err)
	}
	if err := s.sched.Cancel(ev.ID); err != nil {
		s.logger.Warn("could not cancel resolved reminder", "id", ev.ID, "err", err)
	}
	return ev, nil
}

// Delete cancels the reminder and removes the event.
func (s *Service) Delete(ctx context.Context, id string) error {
	ev, err := s.store.GetMedication(ctx, s.userID, id)
	if err != nil {
		return err
	}
	if err := s.sched.Cancel(ev.ID); err != nil {
		return err
	}
	if err := s.store.DeleteMedication(ctx, s.userID, ev.ID); err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	return nil
}

// List returns every event for the user.
func (s *Service) List(ctx context.Context) ([]models.MedicationEvent, error) {
	return s.store.ListMedications(ctx, s.userID)
}

// ScheduleDue re-arms every Due event whose time is still ahead, returning
// how many were scheduled. Malformed times are skipped; facility failures
// are joined into the returned error.
func (s *Service) ScheduleDue(ctx context.Context) (int, error) {
	events, err := s.store.ListMedications(ctx, s.userID)
	if err != nil {
		return 0, fmt.Errorf("list medications: %w", err)
	}
	now := s.now()
	var (
		n    int
		errs []error
	)
	for _, ev := range events {
		if ev.Status != models.StatusDue {
			continue
		}
		at, err := ev.ScheduledAt(s.sched.loc)
		if err != nil {
			s.logger.Warn("skipping reminder with unparseable time", "id", ev.ID, "time", ev.DateTime)
			continue
		}
		if !at.After(now) {
			continue
		}
		if err := s.sched.Schedule(ev); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}
