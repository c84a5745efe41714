package perdiem

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/md80av8r/propilot-core/internal/model"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

// Period is one maximal contiguous stretch away from home base. End is
// nil while the pilot is still out. Trips lists the contributing trips
// in order, deduplicated.
type Period struct {
	Start time.Time
	End   *time.Time
	Trips []*model.Trip
}

// Minutes is the period length, measured to now for an ongoing period.
func (p *Period) Minutes(now time.Time) int {
	end := now
	if p.End != nil {
		end = *p.End
	}
	if end.Before(p.Start) {
		return 0
	}
	return int(end.Sub(p.Start).Minutes())
}

// Dollars converts period minutes to pay at an hourly rate.
func (p *Period) Dollars(now time.Time, hourlyRate float64) float64 {
	return float64(p.Minutes(now)) / 60.0 * hourlyRate
}

// Ongoing reports whether the period has no end yet.
func (p *Period) Ongoing() bool { return p.End == nil }

// MonthlyPortion is one period clipped to a single calendar month.
type MonthlyPortion struct {
	Year    int
	Month   time.Month
	Start   time.Time
	End     time.Time
	Ongoing bool
}

// Minutes is the portion length.
func (mp *MonthlyPortion) Minutes() int {
	return int(mp.End.Sub(mp.Start).Minutes())
}

// MonthlyTotal aggregates all portions falling in one calendar month.
type MonthlyTotal struct {
	Year    int
	Month   time.Month
	Minutes int
	Dollars float64
}

// NormalizeCode folds an airport code to a comparable form: trimmed,
// uppercased, and with the ICAO K prefix stripped from 4-letter US
// codes so KYIP and YIP compare equal.
func NormalizeCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) == 4 && c[0] == 'K' {
		return c[1:]
	}
	return c
}

// Calculator derives per-diem periods from the trip list. It is a pure
// projection: it never mutates trips.
type Calculator struct {
	homeBase   string
	hourlyRate float64
	clock      timeutil.Clock
	log        *zap.SugaredLogger
}

func NewCalculator(homeBase string, hourlyRate float64, clock timeutil.Clock, log *zap.SugaredLogger) *Calculator {
	return &Calculator{
		homeBase:   NormalizeCode(homeBase),
		hourlyRate: hourlyRate,
		clock:      clock,
		log:        log,
	}
}

// HourlyRate returns the configured per-diem rate.
func (c *Calculator) HourlyRate() float64 { return c.hourlyRate }

func (c *Calculator) isHome(code string) bool {
	return c.homeBase != "" && NormalizeCode(code) == c.homeBase
}

// legStart resolves the instant a leg left home: the OUT punch, else
// the trip's report time, else midnight on the leg's effective date.
// The fallback order is fixed; callers never re-derive it.
func legStart(trip *model.Trip, leg *model.FlightLeg) time.Time {
	if out, ok := leg.OutInstant(trip.Date); ok {
		return out
	}
	if rep, ok := trip.ReportInstant(); ok {
		return rep
	}
	return timeutil.DayStartUTC(leg.EffectiveDate(trip.Date))
}

// legEnd resolves the instant a leg arrived home: the IN punch, else
// the trip's release time, else end of day on the leg's effective date.
func legEnd(trip *model.Trip, leg *model.FlightLeg) time.Time {
	if in, ok := leg.InInstant(trip.Date); ok {
		return in
	}
	if rel, ok := trip.ReleaseInstant(); ok {
		return rel
	}
	return timeutil.DayEndUTC(leg.EffectiveDate(trip.Date))
}

// laterLegDepartsHome reports whether any leg after index i in the trip
// departs from home base. An arrival at home with such a leg ahead is a
// same-day turn, not the end of the away period.
func (c *Calculator) laterLegDepartsHome(trip *model.Trip, i int) bool {
	for j := i + 1; j < len(trip.Legs); j++ {
		if c.isHome(trip.Legs[j].Departure) {
			return true
		}
	}
	return false
}

// Periods runs the single forward pass over chronologically-sorted
// trips and returns every away-from-base period, oldest first. The
// last period has End == nil when the pilot is still away.
func (c *Calculator) Periods(trips []*model.Trip) []Period {
	var (
		periods []Period
		away    bool
		current *Period
	)

	appendTrip := func(trip *model.Trip) {
		if current == nil {
			return
		}
		if n := len(current.Trips); n > 0 && current.Trips[n-1].ID == trip.ID {
			return
		}
		current.Trips = append(current.Trips, trip)
	}

	for _, trip := range trips {
		for i, leg := range trip.Legs {
			switch {
			case c.isHome(leg.Departure) && !away:
				if current != nil {
					// Should not happen: an accumulation left open
					// without the away flag. Flush it at the new
					// period's start rather than losing it.
					endAt := legStart(trip, leg)
					current.End = &endAt
					periods = append(periods, *current)
					c.log.Warnw("flushed dangling per-diem accumulation", "end", endAt)
				}
				start := legStart(trip, leg)
				current = &Period{Start: start}
				appendTrip(trip)
				away = true

			case c.isHome(leg.Arrival) && away:
				appendTrip(trip)
				if c.laterLegDepartsHome(trip, i) {
					// Touch-and-continue: the trip leaves home again.
					continue
				}
				end := legEnd(trip, leg)
				current.End = &end
				periods = append(periods, *current)
				current = nil
				away = false

			case away:
				appendTrip(trip)
			}
		}
	}

	if away && current != nil {
		periods = append(periods, *current)
	}
	return periods
}

// SplitByMonth slices a period into one portion per calendar month it
// overlaps. Portions tile the period exactly: the first starts at the
// period's true start, every later month starts at its own midnight
// UTC, and consecutive portions share a boundary instant.
func SplitByMonth(p Period, now time.Time) []MonthlyPortion {
	end := now
	if p.End != nil {
		end = *p.End
	}
	if end.Before(p.Start) {
		end = p.Start
	}

	var portions []MonthlyPortion
	cursor := p.Start
	for {
		monthEnd := timeutil.NextMonthStart(cursor)
		stop := end
		if monthEnd.Before(end) {
			stop = monthEnd
		}
		u := cursor.UTC()
		portions = append(portions, MonthlyPortion{
			Year:    u.Year(),
			Month:   u.Month(),
			Start:   cursor,
			End:     stop,
			Ongoing: p.End == nil && stop.Equal(end),
		})
		if !monthEnd.Before(end) {
			break
		}
		cursor = monthEnd
	}
	return portions
}

// MonthlyTotals aggregates every period's monthly portions into per
// month minute and dollar totals, oldest month first.
func (c *Calculator) MonthlyTotals(trips []*model.Trip) []MonthlyTotal {
	now := c.clock.Now()

	type key struct {
		year  int
		month time.Month
	}
	acc := make(map[key]int)
	for _, p := range c.Periods(trips) {
		for _, portion := range SplitByMonth(p, now) {
			acc[key{portion.Year, portion.Month}] += portion.Minutes()
		}
	}

	out := make([]MonthlyTotal, 0, len(acc))
	for k, minutes := range acc {
		out = append(out, MonthlyTotal{
			Year:    k.year,
			Month:   k.month,
			Minutes: minutes,
			Dollars: float64(minutes) / 60.0 * c.hourlyRate,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}
