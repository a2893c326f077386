// ABOUTME: StepBaselineStore persisting the start-of-day sensor value in badger.
// ABOUTME: Also keeps the last enqueued step total so restarts can re-send it.
package baseline

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/chronicare/internal/daykey"
	"github.com/harperreed/chronicare/internal/models"
)

const (
	keyBaselineSteps   = "baselineSteps"
	keyBaselineDate    = "baselineDate"
	keyCheckpointSteps = "checkpointSteps"
	keyCheckpointDate  = "checkpointDate"
)

// ErrLocked means another process, usually a running step agent, holds the
// store's directory lock.
var ErrLocked = errors.New("baseline store is locked by another process")

// Store is a badger-backed baseline store for one installation.
type Store struct {
	db *badger.DB
}

// Open opens or creates the store in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create baseline directory: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		// badger reports a held flock only through its message.
		if strings.Contains(err.Error(), "Cannot acquire directory lock") {
			return nil, fmt.Errorf("open baseline store %s: %w", dir, ErrLocked)
		}
		return nil, fmt.Errorf("open baseline store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a non-persistent store.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open baseline store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored baseline only when it was recorded on today.
func (s *Store) Load(today models.DayKey) (models.StepBaseline, bool, error) {
	day, value, ok, err := s.readPair(keyBaselineDate, keyBaselineSteps)
	if err != nil {
		return models.StepBaseline{}, false, fmt.Errorf("load baseline: %w", err)
	}
	if !ok || day != today {
		return models.StepBaseline{}, false, nil
	}
	return models.StepBaseline{Date: day, SensorValueAtStartOfDay: value}, true, nil
}

// Save overwrites the baseline. Both fields are written in one transaction.
func (s *Store) Save(b models.StepBaseline) error {
	if err := s.writePair(keyBaselineDate, keyBaselineSteps, b.Date, b.SensorValueAtStartOfDay); err != nil {
		return fmt.Errorf("save baseline: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the last enqueued step total if it was for today.
func (s *Store) LoadCheckpoint(today models.DayKey) (models.StepSample, bool, error) {
	day, value, ok, err := s.readPair(keyCheckpointDate, keyCheckpointSteps)
	if err != nil {
		return models.StepSample{}, false, fmt.Errorf("load checkpoint: %w", err)
	}
	if !ok || day != today {
		return models.StepSample{}, false, nil
	}
	return models.StepSample{Date: day, StepsToday: value}, true, nil
}

// SaveCheckpoint overwrites the step checkpoint.
func (s *Store) SaveCheckpoint(sample models.StepSample) error {
	if err := s.writePair(keyCheckpointDate, keyCheckpointSteps, sample.Date, sample.StepsToday); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (s *Store) writePair(dateKey, valueKey string, day models.DayKey, value int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dateKey), []byte(daykey.Encode(day))); err != nil {
			return err
		}
		return txn.Set([]byte(valueKey), []byte(strconv.FormatInt(value, 10)))
	})
}

// readPair reads a date/value pair. ok is false when either is missing or
// the stored date no longer parses.
func (s *Store) readPair(dateKey, valueKey string) (models.DayKey, int64, bool, error) {
	var rawDate, rawValue []byte
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		if rawDate, err = get(txn, dateKey); err != nil {
			return err
		}
		rawValue, err = get(txn, valueKey)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.DayKey{}, 0, false, nil
	}
	if err != nil {
		return models.DayKey{}, 0, false, err
	}

	day, err := daykey.Parse(string(rawDate), nil, nil)
	if err != nil {
		return models.DayKey{}, 0, false, nil
	}
	value, err := strconv.ParseInt(string(rawValue), 10, 64)
	if err != nil {
		return models.DayKey{}, 0, false, nil
	}
	return day, value, true, nil
}

func get(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
