package coerce

import (
	"encoding/json"
	"math"
	"testing"
)

func TestFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"int", 7, 7},
		{"int64", int64(2000), 2000},
		{"float", 7.25, 7.25},
		{"numeric string", " 1500.5 ", 1500.5},
		{"integer string", "8", 8},
		{"json number", json.Number("6.5"), 6.5},
		{"garbage", "abc", 0},
		{"bool", true, 0},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Float(tt.in); got != tt.want {
				t.Errorf("Float(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"int", 42, 42},
		{"float truncates", 99.9, 99},
		{"string", "10000", 10000},
		{"float string", "12.7", 12},
		{"huge float", 1e300, 0},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Int(tt.in); got != tt.want {
				t.Errorf("Int(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
