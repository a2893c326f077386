// ABOUTME: Step, health-metric and composite daily-log models.
// ABOUTME: Raw feed records keep loosely-typed values until the aggregator coerces them.
package models

// StepBaseline is the sensor value recorded as zero steps for Date.
type StepBaseline struct {
	Date                    DayKey
	SensorValueAtStartOfDay int64
}

// StepSample is the step total for one day as uploaded to the steps store.
type StepSample struct {
	Date       DayKey
	StepsToday int64
}

// StepRecord is a steps-store document as read back. Key is the document
// id (normally the canonical date) and Steps may hold any numeric encoding.
type StepRecord struct {
	Key         string `json:"date" yaml:"date"`
	Steps       any    `json:"steps" yaml:"steps"`
	LastUpdated int64  `json:"lastUpdated" yaml:"last_updated"`
}

// MetricRecord is one date node of the health-metrics tree. Leaves may be
// integers, floats, numeric strings or absent (nil).
type MetricRecord struct {
	Key           string `json:"date" yaml:"date"`
	SleepHours    any    `json:"sleepHours,omitempty" yaml:"sleep_hours,omitempty"`
	WaterIntakeML any    `json:"waterIntakeML,omitempty" yaml:"water_intake_ml,omitempty"`
}

// HealthMetricSample is a normalized MetricRecord.
type HealthMetricSample struct {
	Date       DayKey
	SleepHours float64
	WaterMl    float64
}

// DailyLogEntry is the merged view of all feeds for one date. Key is the
// canonical date, or the raw source key when it could not be decoded (in
// which case Date is zero).
type DailyLogEntry struct {
	Date        DayKey            `json:"-" yaml:"-"`
	Key         string            `json:"date" yaml:"date"`
	Steps       int64             `json:"steps" yaml:"steps"`
	SleepHours  float64           `json:"sleep_hours" yaml:"sleep_hours"`
	WaterMl     float64           `json:"water_ml" yaml:"water_ml"`
	Medications []MedicationEvent `json:"medications" yaml:"medications"`
}

// HealthInsight is a display-ready summary line.
type HealthInsight struct {
	Title       string `json:"title"`
	Value       string `json:"value"`
	Description string `json:"description"`
}
