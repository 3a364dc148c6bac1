package types

import (
	"math"
	"testing"
	"time"
)

func TestDayOf(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want DayOfWeek
	}{
		{"Monday", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), Monday},
		{"Wednesday", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Wednesday},
		{"Saturday", time.Date(2024, 1, 6, 23, 59, 59, 0, time.UTC), Saturday},
		{"Sunday", time.Date(2024, 1, 7, 8, 0, 0, 0, time.UTC), Sunday},
		// 2024-01-01 02:00 in UTC+5 is still Sunday in UTC.
		{"Evaluated in UTC", time.Date(2024, 1, 1, 2, 0, 0, 0, time.FixedZone("UTC+5", 5*3600)), Sunday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayOf(tt.at); got != tt.want {
				t.Errorf("DayOf(%v) = %q, want %q", tt.at, got, tt.want)
			}
		})
	}
}

func TestParseDay(t *testing.T) {
	for _, d := range Days {
		got, err := ParseDay(string(d))
		if err != nil || got != d {
			t.Errorf("ParseDay(%q) = %q, %v", d, got, err)
		}
	}
	if got, err := ParseDay(" FRI "); err != nil || got != Friday {
		t.Errorf("ParseDay(\" FRI \") = %q, %v", got, err)
	}
	if _, err := ParseDay("funday"); err == nil {
		t.Error("expected error for unknown day")
	}
}

func TestClocks(t *testing.T) {
	if got := FixedClock(Thursday).Today(); got != Thursday {
		t.Errorf("FixedClock: got %q", got)
	}
	if got := SystemClock.Today(); !got.Valid() {
		t.Errorf("SystemClock returned invalid day %q", got)
	}
}

func TestGoldArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		got      Gold
		expected Gold
	}{
		{"Add", Gold(100).Add(50), 150},
		{"Times", Gold(50).Times(3), 150},
		{"Negate", Gold(150).Negate(), -150},
		{"Sum", SumGold(10, 20, 30), 60},
		{"Sum empty", SumGold(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestCheckedArithmetic(t *testing.T) {
	sum := func(g, other Gold) func() (Gold, bool) {
		return func() (Gold, bool) { return g.AddChecked(other) }
	}
	product := func(g Gold, qty int64) func() (Gold, bool) {
		return func() (Gold, bool) { return g.TimesChecked(qty) }
	}

	tests := []struct {
		name   string
		fn     func() (Gold, bool)
		want   Gold
		wantOK bool
	}{
		{"Add", sum(100, 50), 150, true},
		{"Add negative", sum(100, -150), -50, true},
		{"Add overflow", sum(math.MaxInt64, 1), 0, false},
		{"Add underflow", sum(math.MinInt64, -1), 0, false},
		{"Times", product(50, 3), 150, true},
		{"Times zero", product(0, math.MaxInt64), 0, true},
		{"Times at limit", product(1, math.MaxInt64), math.MaxInt64, true},
		{"Times overflow", product(50, math.MaxInt64/50+1), 0, false},
		{"Times min by -1", product(math.MinInt64, -1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.fn()
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("got %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGoldFormatting(t *testing.T) {
	if s := Gold(150).String(); s != "150 gold" {
		t.Errorf("String: got %q", s)
	}
	g, err := ParseGold("-25")
	if err != nil || g != -25 {
		t.Errorf("ParseGold: got %v, %v", g, err)
	}
	if _, err := ParseGold("1.5"); err == nil {
		t.Error("expected error for fractional gold")
	}
}

func TestGoldPredicates(t *testing.T) {
	if !Gold(0).IsZero() || Gold(1).IsZero() {
		t.Error("IsZero mismatch")
	}
	if !Gold(1).IsPositive() || Gold(-1).IsPositive() {
		t.Error("IsPositive mismatch")
	}
	if !Gold(-1).IsNegative() || Gold(0).IsNegative() {
		t.Error("IsNegative mismatch")
	}
}
