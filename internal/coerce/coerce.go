// ABOUTME: Numeric coercion for loosely-typed feed values.
// ABOUTME: Tries integer, then float, then numeric-string parsing; never fails.
package coerce

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Float converts v to a finite float64, or 0.
func Float(v any) float64 {
	var f float64
	switch x := v.(type) {
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case float32:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			f = float64(i)
		} else if p, err := x.Float64(); err == nil {
			f = p
		}
	case string:
		f = parseNumeric(x)
	case []byte:
		f = parseNumeric(string(x))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Int converts v to an int64, truncating fractional values, or 0.
func Int(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return int64(x)
	case uint32:
		return int64(x)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return i
		}
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
	}
	f := Float(v)
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

func parseNumeric(s string) float64 {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return 0
}

// NonNegative clamps v at zero.
func NonNegative[T int64 | float64](v T) T {
	if v < 0 {
		return 0
	}
	return v
}
