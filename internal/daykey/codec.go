// ABOUTME: TimeKeyCodec converting between DayKeys and each feed's textual date keys.
// ABOUTME: Decoding is total: unparseable keys fall back to the raw string and are logged.
package daykey

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/chronicare/internal/logging"
	"github.com/harperreed/chronicare/internal/models"
)

// Canonical is the fixed-width, lexicographically sortable key layout.
const Canonical = "2006-01-02"

// Per-feed fallback layouts, tried after Canonical.
var (
	StepFormats   = []string{}
	MetricFormats = []string{}

	MedicationFormats = append(append([]string{}, models.MedicationTimeLayouts...), "Jan 02, 2006", "Jan 2, 2006")
)

// Key is a decoded feed key. Day is zero when the raw key could not be
// parsed; String then yields the trimmed raw key.
type Key struct {
	Day models.DayKey
	Raw string
}

// Valid reports whether the key decoded to a calendar date.
func (k Key) Valid() bool {
	return !k.Day.IsZero()
}

// String returns the canonical encoding, or the opaque raw key.
func (k Key) String() string {
	if k.Valid() {
		return Encode(k.Day)
	}
	return strings.TrimSpace(k.Raw)
}

// Encode renders d in the Canonical layout.
func Encode(d models.DayKey) string {
	return d.String()
}

// Parse decodes raw using Canonical first, then each of formats, in loc.
func Parse(raw string, formats []string, loc *time.Location) (models.DayKey, error) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(raw)
	for _, layout := range append([]string{Canonical}, formats...) {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return models.DayOf(t.In(loc)), nil
		}
	}
	return models.DayKey{}, fmt.Errorf("%w: %q", models.ErrDecodeFailure, raw)
}

// Codec decodes feed keys in a fixed location and logs failures.
type Codec struct {
	loc    *time.Location
	logger *log.Logger
}

// NewCodec creates a Codec. A nil loc means time.Local.
func NewCodec(loc *time.Location, logger *log.Logger) *Codec {
	if loc == nil {
		loc = time.Local
	}
	return &Codec{loc: loc, logger: logging.OrDefault(logger)}
}

// Location returns the codec's time zone.
func (c *Codec) Location() *time.Location {
	return c.loc
}

// Decode never fails: on total parse failure it returns an opaque Key.
func (c *Codec) Decode(raw string, formats []string) Key {
	d, err := Parse(raw, formats, c.loc)
	if err != nil {
		c.logger.Warn("date key decode failed, using raw key", "key", raw)
		return Key{Raw: raw}
	}
	return Key{Day: d, Raw: raw}
}

// Day resolves a user-supplied date: empty means the day of now, anything
// else is parsed as Canonical or "Jan 2, 2006".
func Day(raw string, now time.Time) (models.DayKey, error) {
	if strings.TrimSpace(raw) == "" {
		return models.DayOf(now), nil
	}
	return Parse(raw, []string{"Jan 2, 2006"}, now.Location())
}

// whenLayouts are accepted for user-supplied medication times.
var whenLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
	"15:04",
}

// When parses a user-supplied date-time in loc. A bare "HH:MM" means that
// time today.
func When(raw string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	loc := now.Location()
	for _, layout := range whenLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if layout == "15:04" {
			t = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q (want \"YYYY-MM-DD HH:MM\")", models.ErrMalformedTimestamp, raw)
}
