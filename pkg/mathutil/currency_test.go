package mathutil

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Round up at midpoint", 1.235, 1.24},
		{"Round down below midpoint", 1.234, 1.23},
		{"No rounding needed", 1.23, 1.23},
		{"Large number", 12345.678, 12345.68},
		{"Negative number round down", -1.234, -1.23},
		{"Zero", 0.0, 0.0},
		{"Very small positive", 0.001, 0.00},
		{"Large negative", -12345.678, -12345.68},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.input)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("Round(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsZero(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected bool
	}{
		{"Exactly zero", 0.0, true},
		{"Very small negative", -0.001, true},
		{"Just above tolerance", 0.02, false},
		{"Large positive", 100.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsZero(tt.input); result != tt.expected {
				t.Errorf("IsZero(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"Below range", -0.5, 0},
		{"Inside range", 0.4, 0.4},
		{"Above range", 1.7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Clamp(tt.value, 0, 1); result != tt.expected {
				t.Errorf("Clamp(%v) = %v, expected %v", tt.value, result, tt.expected)
			}
		})
	}
}

func TestRateConversions(t *testing.T) {
	if got := Fraction(4.1); math.Abs(got-0.041) > 1e-12 {
		t.Errorf("Fraction(4.1) = %v, expected 0.041", got)
	}
	if got := MonthlyRate(6); math.Abs(got-0.005) > 1e-12 {
		t.Errorf("MonthlyRate(6) = %v, expected 0.005", got)
	}
	if got := Growth(4, 10); math.Abs(got-1.4802442849) > 1e-9 {
		t.Errorf("Growth(4, 10) = %v, expected 1.4802442849", got)
	}
	if got := Growth(4, 0); got != 1 {
		t.Errorf("Growth(4, 0) = %v, expected 1", got)
	}
}

func TestCalculatePercentage(t *testing.T) {
	if got := CalculatePercentage(25, 200); got != 12.5 {
		t.Errorf("CalculatePercentage() = %v, expected 12.5", got)
	}
	if got := CalculatePercentage(25, 0); got != 0 {
		t.Errorf("CalculatePercentage() with zero total = %v, expected 0", got)
	}
	if got := ApplyPercentage(200, 12.5); got != 25 {
		t.Errorf("ApplyPercentage() = %v, expected 25", got)
	}
}
