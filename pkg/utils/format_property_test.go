package utils

import (
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any amount, FormatUSD should:
// 1. Start with $ (or -$ for negative)
// 2. Have exactly 2 decimal places
// 3. Group the integer part in threes
// 4. Preserve the numeric value when parsed back
func TestProperty_USDFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatUSD produces valid grouped format", prop.ForAll(
		func(amount float64) bool {
			if math.IsNaN(amount) || math.IsInf(amount, 0) {
				return true
			}
			if math.Abs(amount) > 1e12 {
				return true
			}

			formatted := FormatUSD(amount)

			if amount >= 0 {
				if !strings.HasPrefix(formatted, "$") {
					t.Logf("Expected $ prefix for %f, got %s", amount, formatted)
					return false
				}
			} else {
				if !strings.HasPrefix(formatted, "-$") {
					t.Logf("Expected -$ prefix for %f, got %s", amount, formatted)
					return false
				}
			}

			parts := strings.Split(formatted, ".")
			if len(parts) != 2 || len(parts[1]) != 2 {
				t.Logf("Expected two decimal places for %f, got %s", amount, formatted)
				return false
			}

			intPart := strings.TrimPrefix(strings.TrimPrefix(parts[0], "-"), "$")
			groups := strings.Split(intPart, ",")
			for i, g := range groups {
				if i == 0 {
					if len(g) < 1 || len(g) > 3 {
						t.Logf("Bad leading group in %s", formatted)
						return false
					}
					continue
				}
				if len(g) != 3 {
					t.Logf("Bad group %q in %s", g, formatted)
					return false
				}
			}

			plain := strings.ReplaceAll(strings.ReplaceAll(formatted, "$", ""), ",", "")
			parsed, err := strconv.ParseFloat(plain, 64)
			if err != nil {
				t.Logf("Unparseable %s: %v", formatted, err)
				return false
			}
			rounded, _ := strconv.ParseFloat(strconv.FormatFloat(amount, 'f', 2, 64), 64)
			if math.Abs(parsed-rounded) > 1e-9 {
				t.Logf("Value not preserved for %f: %s", amount, formatted)
				return false
			}
			return true
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}

func TestFormatUSDGrouping(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "$0.00"},
		{999.5, "$999.50"},
		{1000, "$1,000.00"},
		{1234567.89, "$1,234,567.89"},
		{-42.5, "-$42.50"},
	}
	for _, tt := range tests {
		if got := FormatUSD(tt.amount); got != tt.expected {
			t.Errorf("FormatUSD(%v) = %s, want %s", tt.amount, got, tt.expected)
		}
	}
}

func TestFormatPercentSign(t *testing.T) {
	if got := FormatPercent(2.5); got != "+2.50%" {
		t.Errorf("FormatPercent(2.5) = %s, want +2.50%%", got)
	}
	if got := FormatPercent(-1.25); got != "-1.25%" {
		t.Errorf("FormatPercent(-1.25) = %s, want -1.25%%", got)
	}
	if got := FormatPercent(0); got != "0.00%" {
		t.Errorf("FormatPercent(0) = %s, want 0.00%%", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{90 * time.Minute, "1h30m"},
		{2 * time.Hour, "2h00m"},
		{45 * time.Minute, "45m"},
		{30 * time.Second, "1m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.expected {
			t.Errorf("FormatDuration(%v) = %s, want %s", tt.d, got, tt.expected)
		}
	}
}

func TestFormatPricePrecision(t *testing.T) {
	if got := FormatPrice(62150.337); got != "62150.34" {
		t.Errorf("FormatPrice high = %s", got)
	}
	if got := FormatPrice(3.14159); got != "3.1416" {
		t.Errorf("FormatPrice mid = %s", got)
	}
	if got := FormatPrice(0.00012345); got != "0.00012345" {
		t.Errorf("FormatPrice low = %s", got)
	}
}
