package timeutil

import (
	"fmt"
	"time"
)

// Zulu punch times travel as bare HHMM strings ("1430"). Older logbook
// entries stored them as three digits ("950"), and user input may carry
// separators ("14:30"), so every consumer goes through NormalizeZulu first.

// digitsOf strips everything but ASCII digits from s.
func digitsOf(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// NormalizeZulu returns the canonical 4-digit HHMM form of a zulu time
// string. Three-digit times are left-padded ("950" → "0950"). The second
// return is false when the input does not contain a valid zulu time.
func NormalizeZulu(s string) (string, bool) {
	digits := digitsOf(s)
	if len(digits) < 3 || len(digits) > 4 {
		return "", false
	}
	if len(digits) == 3 {
		digits = "0" + digits
	}
	hh := int(digits[0]-'0')*10 + int(digits[1]-'0')
	mm := int(digits[2]-'0')*10 + int(digits[3]-'0')
	if hh > 23 || mm > 59 {
		return "", false
	}
	return digits, true
}

// IsValidZulu reports whether s contains a parsable zulu time. It never
// rejects loudly; callers treat false as "field not set yet".
func IsValidZulu(s string) bool {
	_, ok := NormalizeZulu(s)
	return ok
}

// ParseZulu combines a zulu HHMM string with the calendar date of onDate
// and returns the resulting UTC instant.
func ParseZulu(s string, onDate time.Time) (time.Time, bool) {
	digits, ok := NormalizeZulu(s)
	if !ok {
		return time.Time{}, false
	}
	hh := int(digits[0]-'0')*10 + int(digits[1]-'0')
	mm := int(digits[2]-'0')*10 + int(digits[3]-'0')
	d := onDate.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, time.UTC), true
}

// FormatZulu renders a UTC instant as a 4-digit HHMM string.
func FormatZulu(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%02d%02d", u.Hour(), u.Minute())
}

// ZuluMinutes returns minutes since midnight for a normalized zulu string.
// The second return is false for invalid input.
func ZuluMinutes(s string) (int, bool) {
	digits, ok := NormalizeZulu(s)
	if !ok {
		return 0, false
	}
	hh := int(digits[0]-'0')*10 + int(digits[1]-'0')
	mm := int(digits[2]-'0')*10 + int(digits[3]-'0')
	return hh*60 + mm, true
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextMonthStart returns midnight UTC on the first day of the month
// following t's month.
func NextMonthStart(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}

// DayStartUTC returns midnight UTC on t's calendar date.
func DayStartUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayEndUTC returns 23:59 UTC on t's calendar date, the conventional
// close-of-day instant for logbook fallbacks.
func DayEndUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 0, 0, time.UTC)
}
