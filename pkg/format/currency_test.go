package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "0.00"},
		{-0.001, "0.00"},
		{999.5, "999.50"},
		{1234.567, "1,234.57"},
		{-1234.56, "-1,234.56"},
		{4440732.85, "4,440,732.85"},
	}
	for _, tt := range tests {
		if result := Currency(tt.amount); result != tt.expected {
			t.Errorf("Currency(%f) = %q, expected %q", tt.amount, result, tt.expected)
		}
	}
}

func TestWholeCurrency(t *testing.T) {
	if result := WholeCurrency(4440732.85); result != "4,440,733" {
		t.Errorf("WholeCurrency() = %q, expected %q", result, "4,440,733")
	}
}

func TestPercentAndRatio(t *testing.T) {
	if result := Percent(4.1); result != "4.10%" {
		t.Errorf("Percent(4.1) = %q, expected %q", result, "4.10%")
	}
	if result := Ratio(0.405); result != "40.50%" {
		t.Errorf("Ratio(0.405) = %q, expected %q", result, "40.50%")
	}
	if result := Percent(-100); result != "-100.00%" {
		t.Errorf("Percent(-100) = %q, expected %q", result, "-100.00%")
	}
}
