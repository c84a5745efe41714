package timeutil

import (
	"testing"
	"time"
)

func TestNormalizeZulu(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		valid bool
	}{
		{"1430", "1430", true},
		{"950", "0950", true},
		{"0000", "0000", true},
		{"2359", "2359", true},
		{"14:30", "1430", true},
		{"14 30", "1430", true},
		{"2400", "", false},
		{"1260", "", false},
		{"99", "", false},
		{"12345", "", false},
		{"", "", false},
		{"abcd", "", false},
	}

	for _, c := range cases {
		got, ok := NormalizeZulu(c.in)
		if ok != c.valid {
			t.Errorf("NormalizeZulu(%q): expected valid=%v, got %v", c.in, c.valid, ok)
			continue
		}
		if ok && got != c.want {
			t.Errorf("NormalizeZulu(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestIsValidZulu_NeverPanics(t *testing.T) {
	inputs := []string{"", ":::", "24:00", "0", "00000000", "z", "23z59"}
	for _, in := range inputs {
		_ = IsValidZulu(in)
	}
}

func TestParseZulu(t *testing.T) {
	date := time.Date(2025, 3, 14, 18, 45, 12, 0, time.UTC)

	got, ok := ParseZulu("0930", date)
	if !ok {
		t.Fatal("Expected ParseZulu to succeed")
	}
	want := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if _, ok := ParseZulu("banana", date); ok {
		t.Error("Expected ParseZulu to fail for invalid input")
	}
}

func TestFormatZulu(t *testing.T) {
	in := time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)
	if got := FormatZulu(in); got != "0304" {
		t.Errorf("Expected 0304, got %s", got)
	}
}

func TestMonthWindows(t *testing.T) {
	mid := time.Date(2025, 2, 17, 13, 22, 0, 0, time.UTC)

	start := MonthStart(mid)
	if !start.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected Feb 1 midnight, got %v", start)
	}

	next := NextMonthStart(mid)
	if !next.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected Mar 1 midnight, got %v", next)
	}

	// December rolls into the next year.
	dec := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
	if got := NextMonthStart(dec); !got.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected Jan 1 2026, got %v", got)
	}
}

func TestFakeClockAdvanceFiresTimers(t *testing.T) {
	clk := NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	fired := 0
	timer := clk.AfterFunc(500*time.Millisecond, func() { fired++ })

	clk.Advance(499 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("Expected no firing before deadline, got %d", fired)
	}

	clk.Advance(1 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("Expected 1 firing at deadline, got %d", fired)
	}

	// A fired timer stays quiet until reset.
	clk.Advance(time.Hour)
	if fired != 1 {
		t.Fatalf("Expected no repeat firing, got %d", fired)
	}

	timer.Reset(100 * time.Millisecond)
	clk.Advance(100 * time.Millisecond)
	if fired != 2 {
		t.Fatalf("Expected firing after reset, got %d", fired)
	}
}

func TestFakeClockStopPreventsFiring(t *testing.T) {
	clk := NewFakeClock(time.Unix(0, 0))

	fired := false
	timer := clk.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Error("Expected Stop on an active timer to return true")
	}
	clk.Advance(2 * time.Second)
	if fired {
		t.Error("Expected stopped timer not to fire")
	}
	if timer.Stop() {
		t.Error("Expected Stop on a stopped timer to return false")
	}
}
