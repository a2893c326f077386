// ABOUTME: DailyLogAggregator merging step, health-metric and medication feeds by day.
// ABOUTME: Reads feeds concurrently; a failing feed degrades to empty instead of aborting.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/chronicare/internal/coerce"
	"github.com/harperreed/chronicare/internal/daykey"
	"github.com/harperreed/chronicare/internal/logging"
	"github.com/harperreed/chronicare/internal/models"
	"golang.org/x/sync/errgroup"
)

const defaultFeedTimeout = 5 * time.Second

// Feed names used in logs and PartialDataError.
const (
	FeedSteps       = "steps"
	FeedMetrics     = "metrics"
	FeedMedications = "medications"
)

// StepFeed lists every step document for a user, in any order.
type StepFeed interface {
	ListDailySteps(ctx context.Context, userID string) ([]models.StepRecord, error)
}

// MetricFeed lists every date node of a user's health-metrics tree.
type MetricFeed interface {
	ListHealthLogs(ctx context.Context, userID string) ([]models.MetricRecord, error)
}

// MedicationFeed lists every medication event of a user.
type MedicationFeed interface {
	ListMedications(ctx context.Context, userID string) ([]models.MedicationEvent, error)
}

// Options tunes an Aggregator. Zero values get defaults.
type Options struct {
	// FeedTimeout bounds each individual feed read.
	FeedTimeout time.Duration

	// DropMalformedDates discards records whose date key cannot be decoded
	// instead of surfacing them as opaque entries.
	DropMalformedDates bool

	Location *time.Location
	Logger   *log.Logger
}

// Aggregator builds composite daily records. It holds no mutable state and
// is safe for concurrent use.
type Aggregator struct {
	steps   StepFeed
	metrics MetricFeed
	meds    MedicationFeed
	codec   *daykey.Codec
	opts    Options
	logger  *log.Logger
}

// New creates an Aggregator. Nil feeds contribute nothing.
func New(steps StepFeed, metrics MetricFeed, meds MedicationFeed, opts Options) *Aggregator {
	if opts.FeedTimeout <= 0 {
		opts.FeedTimeout = defaultFeedTimeout
	}
	logger := logging.OrDefault(opts.Logger).With("component", "aggregate")
	return &Aggregator{
		steps:   steps,
		metrics: metrics,
		meds:    meds,
		codec:   daykey.NewCodec(opts.Location, logger),
		opts:    opts,
		logger:  logger,
	}
}

// Aggregate returns one entry per distinct day across all feeds, most
// recent first. Entries are always returned; a non-nil error is a
// *PartialDataError naming the feeds that could not be read.
func (a *Aggregator) Aggregate(ctx context.Context, userID string) ([]models.DailyLogEntry, error) {
	var (
		stepRecs   []models.StepRecord
		metricRecs []models.MetricRecord
		medRecs    []models.MedicationEvent
		failures   = make([]error, 3)
	)

	var g errgroup.Group
	g.Go(func() error {
		if a.steps == nil {
			return nil
		}
		fctx, cancel := context.WithTimeout(ctx, a.opts.FeedTimeout)
		defer cancel()
		var err error
		if stepRecs, err = a.steps.ListDailySteps(fctx, userID); err != nil {
			failures[0] = a.feedFailed(FeedSteps, err)
			stepRecs = nil
		}
		return nil
	})
	g.Go(func() error {
		if a.metrics == nil {
			return nil
		}
		fctx, cancel := context.WithTimeout(ctx, a.opts.FeedTimeout)
		defer cancel()
		var err error
		if metricRecs, err = a.metrics.ListHealthLogs(fctx, userID); err != nil {
			failures[1] = a.feedFailed(FeedMetrics, err)
			metricRecs = nil
		}
		return nil
	})
	g.Go(func() error {
		if a.meds == nil {
			return nil
		}
		fctx, cancel := context.WithTimeout(ctx, a.opts.FeedTimeout)
		defer cancel()
		var err error
		if medRecs, err = a.meds.ListMedications(fctx, userID); err != nil {
			failures[2] = a.feedFailed(FeedMedications, err)
			medRecs = nil
		}
		return nil
	})
	_ = g.Wait()

	entries := a.merge(stepRecs, metricRecs, medRecs)

	var partial *PartialDataError
	for _, err := range failures {
		if err != nil {
			if partial == nil {
				partial = &PartialDataError{}
			}
			partial.Failures = append(partial.Failures, err)
		}
	}
	if partial != nil {
		return entries, partial
	}
	return entries, nil
}

func (a *Aggregator) feedFailed(feed string, err error) error {
	a.logger.Warn("feed unavailable, continuing without it", "feed", feed, "err", err)
	return &FeedError{Feed: feed, Err: err}
}

// MetricSample normalizes a loosely typed date node. Absent, negative or
// unparseable leaves become 0.
func MetricSample(day models.DayKey, r models.MetricRecord) models.HealthMetricSample {
	return models.HealthMetricSample{
		Date:       day,
		SleepHours: coerce.NonNegative(coerce.Float(r.SleepHours)),
		WaterMl:    coerce.NonNegative(coerce.Float(r.WaterIntakeML)),
	}
}

// merge is the pure part of Aggregate.
func (a *Aggregator) merge(stepRecs []models.StepRecord, metricRecs []models.MetricRecord, medRecs []models.MedicationEvent) []models.DailyLogEntry {
	byKey := make(map[string]*models.DailyLogEntry)
	entry := func(k daykey.Key) *models.DailyLogEntry {
		s := k.String()
		e, ok := byKey[s]
		if !ok {
			e = &models.DailyLogEntry{Date: k.Day, Key: s}
			byKey[s] = e
		}
		return e
	}

	// Two step documents can decode to the same day; the most recently
	// updated wins, then the larger count.
	stepUpdated := make(map[string]int64)
	for _, r := range stepRecs {
		k, ok := a.decode(FeedSteps, r.Key, daykey.StepFormats)
		if !ok {
			continue
		}
		e := entry(k)
		steps := coerce.NonNegative(coerce.Int(r.Steps))
		prev, seen := stepUpdated[k.String()]
		if !seen || r.LastUpdated > prev || (r.LastUpdated == prev && steps > e.Steps) {
			e.Steps = steps
			stepUpdated[k.String()] = r.LastUpdated
		}
	}

	metricRecs = append([]models.MetricRecord(nil), metricRecs...)
	sort.SliceStable(metricRecs, func(i, j int) bool { return metricRecs[i].Key < metricRecs[j].Key })
	for _, r := range metricRecs {
		k, ok := a.decode(FeedMetrics, r.Key, daykey.MetricFormats)
		if !ok {
			continue
		}
		e := entry(k)
		sample := MetricSample(k.Day, r)
		if r.SleepHours != nil {
			e.SleepHours = sample.SleepHours
		}
		if r.WaterIntakeML != nil {
			e.WaterMl = sample.WaterMl
		}
	}

	for _, m := range medRecs {
		k, ok := a.decode(FeedMedications, m.DateTime, daykey.MedicationFormats)
		if !ok {
			continue
		}
		e := entry(k)
		e.Medications = append(e.Medications, m)
	}

	entries := make([]models.DailyLogEntry, 0, len(byKey))
	for _, e := range byKey {
		a.sortMedications(e.Medications)
		if e.Medications == nil {
			e.Medications = []models.MedicationEvent{}
		}
		entries = append(entries, *e)
	}
	SortEntries(entries)
	return entries
}

func (a *Aggregator) decode(feed, raw string, formats []string) (daykey.Key, bool) {
	if strings.TrimSpace(raw) == "" {
		a.logger.Warn("record without date key skipped", "feed", feed)
		return daykey.Key{}, false
	}
	k := a.codec.Decode(raw, formats)
	if !k.Valid() && a.opts.DropMalformedDates {
		return daykey.Key{}, false
	}
	return k, true
}

func (a *Aggregator) sortMedications(meds []models.MedicationEvent) {
	loc := a.codec.Location()
	sort.SliceStable(meds, func(i, j int) bool {
		ti, erri := meds[i].ScheduledAt(loc)
		tj, errj := meds[j].ScheduledAt(loc)
		okI, okJ := erri == nil, errj == nil
		if okI != okJ {
			return okI
		}
		if okI && !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return meds[i].ID < meds[j].ID
	})
}

// SortEntries orders entries most recent first. Entries with decodable
// dates come before opaque keys, which are ordered by descending raw key.
func SortEntries(entries []models.DailyLogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].Date, entries[j].Date
		switch {
		case !di.IsZero() && !dj.IsZero():
			return dj.Before(di)
		case di.IsZero() != dj.IsZero():
			return !di.IsZero()
		}
		return entries[i].Key > entries[j].Key
	})
}

// Latest returns the most recent entry, if any.
func Latest(entries []models.DailyLogEntry) (models.DailyLogEntry, bool) {
	if len(entries) == 0 {
		return models.DailyLogEntry{}, false
	}
	return entries[0], true
}

// FeedError is a single feed read failure. It matches models.ErrFeedUnavailable.
type FeedError struct {
	Feed string
	Err  error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("%s feed: %v", e.Feed, e.Err)
}

func (e *FeedError) Unwrap() []error {
	return []error{models.ErrFeedUnavailable, e.Err}
}

// PartialDataError reports feeds whose contribution was dropped.
type PartialDataError struct {
	Failures []error
}

func (e *PartialDataError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return "partial data: " + strings.Join(parts, "; ")
}

func (e *PartialDataError) Unwrap() []error {
	return e.Failures
}

// Feeds returns the names of the failed feeds.
func (e *PartialDataError) Feeds() []string {
	var names []string
	for _, f := range e.Failures {
		if fe, ok := f.(*FeedError); ok {
			names = append(names, fe.Feed)
		}
	}
	return names
}
