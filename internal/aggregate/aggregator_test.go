// ABOUTME: Tests for the DailyLogAggregator.
// ABOUTME: Uses in-memory feeds to cover merging, ordering, coercion and degraded feeds.
package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/chronicare/internal/logging"
	"github.com/harperreed/chronicare/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepFeed struct {
	recs []models.StepRecord
	err  error
}

func (f stepFeed) ListDailySteps(context.Context, string) ([]models.StepRecord, error) {
	return f.recs, f.err
}

type metricFeed struct {
	recs []models.MetricRecord
	err  error
}

func (f metricFeed) ListHealthLogs(context.Context, string) ([]models.MetricRecord, error) {
	return f.recs, f.err
}

type medFeed struct {
	recs  []models.MedicationEvent
	err   error
	block bool
}

func (f medFeed) ListMedications(ctx context.Context, _ string) ([]models.MedicationEvent, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.recs, f.err
}

func newAggregator(s StepFeed, m MetricFeed, md MedicationFeed, opts Options) *Aggregator {
	opts.Location = time.UTC
	opts.Logger = logging.Discard()
	return New(s, m, md, opts)
}

func med(id, dt string, status models.MedicationStatus) models.MedicationEvent {
	return models.MedicationEvent{ID: id, MedicationName: "Aspirin", Dosage: "100mg", DateTime: dt, Status: status}
}

func TestAggregateUnionOfDays(t *testing.T) {
	steps := stepFeed{recs: []models.StepRecord{
		{Key: "2025-01-01", Steps: int64(4000)},
		{Key: "2025-01-02", Steps: 6000.0},
	}}
	metrics := metricFeed{recs: []models.MetricRecord{
		{Key: "2025-01-02", SleepHours: 7.5, WaterIntakeML: "1500"},
		{Key: "2025-01-03", SleepHours: int64(8)},
	}}
	meds := medFeed{recs: []models.MedicationEvent{
		med("a", "Jan 01, 2025, 08:00 AM", models.StatusTaken),
		med("b", "Jan 03, 2025, 09:30 PM", models.StatusDue),
	}}

	entries, err := newAggregator(steps, metrics, meds, Options{}).Aggregate(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "2025-01-03", entries[0].Key)
	assert.Equal(t, "2025-01-02", entries[1].Key)
	assert.Equal(t, "2025-01-01", entries[2].Key)

	d3 := entries[0]
	assert.Zero(t, d3.Steps)
	assert.Equal(t, 8.0, d3.SleepHours)
	assert.Zero(t, d3.WaterMl)
	require.Len(t, d3.Medications, 1)
	assert.Equal(t, "b", d3.Medications[0].ID)

	d2 := entries[1]
	assert.Equal(t, int64(6000), d2.Steps)
	assert.Equal(t, 7.5, d2.SleepHours)
	assert.Equal(t, 1500.0, d2.WaterMl)
	assert.NotNil(t, d2.Medications)
	assert.Empty(t, d2.Medications)

	d1 := entries[2]
	assert.Equal(t, int64(4000), d1.Steps)
	assert.Zero(t, d1.SleepHours)
	assert.Zero(t, d1.WaterMl)
	require.Len(t, d1.Medications, 1)
	assert.Equal(t, models.NewDayKey(2025, time.January, 1), d1.Date)
}

func TestAggregateEmptyFeeds(t *testing.T) {
	entries, err := newAggregator(stepFeed{}, metricFeed{}, medFeed{}, Options{}).Aggregate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAggregateFailedFeedDegrades(t *testing.T) {
	steps := stepFeed{recs: []models.StepRecord{{Key: "2025-02-01", Steps: 100}}}
	metrics := metricFeed{err: errors.New("connection refused")}

	entries, err := newAggregator(steps, metrics, medFeed{}, Options{}).Aggregate(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrFeedUnavailable)

	var partial *PartialDataError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{FeedMetrics}, partial.Feeds())

	require.Len(t, entries, 1)
	assert.Equal(t, int64(100), entries[0].Steps)
	assert.Zero(t, entries[0].SleepHours)
}

func TestAggregateFeedTimeout(t *testing.T) {
	steps := stepFeed{recs: []models.StepRecord{{Key: "2025-02-01", Steps: 100}}}
	agg := newAggregator(steps, nil, medFeed{block: true}, Options{FeedTimeout: 20 * time.Millisecond})

	entries, err := agg.Aggregate(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, entries, 1)
}

func TestAggregateFallbackKeysMergeWithCanonical(t *testing.T) {
	metrics := metricFeed{recs: []models.MetricRecord{{Key: "2025-03-04", SleepHours: 6}}}
	meds := medFeed{recs: []models.MedicationEvent{
		med("x", "Mar 04, 2025, 07:15 AM", models.StatusTaken),
		med("y", "Mar 4, 2025, 6:00 AM", models.StatusDue),
	}}

	entries, err := newAggregator(nil, metrics, meds, Options{}).Aggregate(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Medications, 2)
	assert.Equal(t, "y", entries[0].Medications[0].ID, "ordered by scheduled time")
	assert.Equal(t, "x", entries[0].Medications[1].ID)
}

func TestAggregateMalformedKeys(t *testing.T) {
	steps := stepFeed{recs: []models.StepRecord{
		{Key: "2025-01-05", Steps: 10},
		{Key: "yesterday-ish", Steps: 99},
		{Key: "   ", Steps: 5},
	}}

	entries, err := newAggregator(steps, nil, nil, Options{}).Aggregate(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2025-01-05", entries[0].Key, "decoded dates sort ahead of opaque keys")
	assert.Equal(t, "yesterday-ish", entries[1].Key)
	assert.True(t, entries[1].Date.IsZero())

	entries, err = newAggregator(steps, nil, nil, Options{DropMalformedDates: true}).Aggregate(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestAggregateDuplicateStepDays(t *testing.T) {
	steps := stepFeed{recs: []models.StepRecord{
		{Key: "2025-01-05", Steps: 300, LastUpdated: 2000},
		{Key: " 2025-01-05 ", Steps: 200, LastUpdated: 1000},
	}}

	entries, err := newAggregator(steps, nil, nil, Options{}).Aggregate(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(300), entries[0].Steps)
}

func TestAggregateLooseValues(t *testing.T) {
	steps := stepFeed{recs: []models.StepRecord{
		{Key: "2025-01-01", Steps: "1234"},
		{Key: "2025-01-02", Steps: json.Number("88.9")},
		{Key: "2025-01-03", Steps: "lots"},
		{Key: "2025-01-04", Steps: -40},
	}}

	entries, err := newAggregator(steps, nil, nil, Options{}).Aggregate(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, int64(0), entries[0].Steps)
	assert.Equal(t, int64(0), entries[1].Steps)
	assert.Equal(t, int64(88), entries[2].Steps)
	assert.Equal(t, int64(1234), entries[3].Steps)
}

func TestMetricSample(t *testing.T) {
	d := models.NewDayKey(2025, time.January, 5)
	tests := []struct {
		name  string
		rec   models.MetricRecord
		sleep float64
		water float64
	}{
		{"typed", models.MetricRecord{SleepHours: 7.5, WaterIntakeML: int64(1500)}, 7.5, 1500},
		{"numeric strings", models.MetricRecord{SleepHours: "6", WaterIntakeML: json.Number("250.5")}, 6, 250.5},
		{"absent", models.MetricRecord{}, 0, 0},
		{"junk and negative", models.MetricRecord{SleepHours: "late", WaterIntakeML: -300}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MetricSample(d, tt.rec)
			assert.Equal(t, d, got.Date)
			assert.InDelta(t, tt.sleep, got.SleepHours, 1e-9)
			assert.InDelta(t, tt.water, got.WaterMl, 1e-9)
		})
	}
}

func TestLatest(t *testing.T) {
	_, ok := Latest(nil)
	assert.False(t, ok)

	e, ok := Latest([]models.DailyLogEntry{{Key: "2025-01-02"}, {Key: "2025-01-01"}})
	assert.True(t, ok)
	assert.Equal(t, "2025-01-02", e.Key)
}
