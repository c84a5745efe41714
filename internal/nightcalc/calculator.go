package nightcalc

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/md80av8r/propilot-core/internal/airports"
	"github.com/md80av8r/propilot-core/internal/model"
)

// ErrAirportUnresolved marks a point-in-time night check against an
// airport the directory does not know.
var ErrAirportUnresolved = errors.New("airport could not be resolved")

// Result is the night portion of one flight. Estimated marks the coarse
// UTC-hour fallback used when an airport could not be resolved; it must
// never be displayed as twilight-accurate.
type Result struct {
	NightMinutes int
	BlockMinutes int
	Estimated    bool
}

// Calculator computes night flight time from civil twilight boundaries
// at the departure and arrival airports. The airport directory is the
// only external dependency and the only call that can block.
type Calculator struct {
	directory airports.Directory
	log       *zap.SugaredLogger
}

func NewCalculator(dir airports.Directory, log *zap.SugaredLogger) *Calculator {
	return &Calculator{directory: dir, log: log}
}

// ForLeg resolves a leg's OUT/IN punches and computes its night time.
// ok is false when the leg is missing either punch.
func (c *Calculator) ForLeg(ctx context.Context, trip *model.Trip, leg *model.FlightLeg) (Result, bool, error) {
	out, outOK := leg.OutInstant(trip.Date)
	in, inOK := leg.InInstant(trip.Date)
	if !outOK || !inOK {
		return Result{}, false, nil
	}
	res, err := c.Compute(ctx, leg.Departure, leg.Arrival, out, in, leg.EffectiveDate(trip.Date))
	return res, true, err
}

// Compute returns the night minutes within [out, in] for a flight
// between two airports on the given flight date.
func (c *Calculator) Compute(ctx context.Context, dep, arr string, out, in time.Time, flightDate time.Time) (Result, error) {
	if !in.After(out) {
		return Result{}, nil
	}
	block := int(in.Sub(out).Minutes())

	depAp, depErr := c.directory.Lookup(ctx, dep)
	arrAp, arrErr := c.directory.Lookup(ctx, arr)

	depBounds, depOK := resolveBounds(depAp, depErr, flightDate)
	arrBounds, arrOK := resolveBounds(arrAp, arrErr, flightDate)
	if !depOK || !arrOK {
		c.log.Warnw("airport lookup failed, using coarse night estimate",
			"departure", dep, "arrival", arr)
		return Result{
			NightMinutes: estimateNightMinutes(out, in),
			BlockMinutes: block,
			Estimated:    true,
		}, nil
	}

	nextDate := flightDate.AddDate(0, 0, 1)
	depNext, depNextOK := resolveBounds(depAp, nil, nextDate)
	arrNext, arrNextOK := resolveBounds(arrAp, nil, nextDate)
	if !depNextOK || !arrNextOK {
		return Result{
			NightMinutes: estimateNightMinutes(out, in),
			BlockMinutes: block,
			Estimated:    true,
		}, nil
	}

	// Candidate night windows: each airport's evening twilight through
	// its next-morning twilight, plus the pre-dawn stretch from local
	// midnight for flights that push back before sunrise.
	candidates := []interval{
		{depBounds.evening, depNext.morning},
		{arrBounds.evening, arrNext.morning},
		{depBounds.midnight, depBounds.morning},
	}

	night := 0
	for _, iv := range mergeIntervals(candidates) {
		night += overlapMinutes(out, in, iv.start, iv.end)
	}
	if night > block {
		night = block
	}
	return Result{NightMinutes: night, BlockMinutes: block}, nil
}

// IsNightAt reports whether an instant falls outside the civil twilight
// window at an airport. Returns an error when the airport cannot be
// resolved; point checks do not degrade to the coarse estimate.
func (c *Calculator) IsNightAt(ctx context.Context, code string, instant time.Time) (bool, error) {
	ap, err := c.directory.Lookup(ctx, code)
	if err != nil {
		return false, err
	}
	bounds, ok := resolveBounds(ap, nil, instant)
	if !ok {
		return false, ErrAirportUnresolved
	}
	// Before this morning's twilight or after this evening's.
	return instant.Before(bounds.morning) || !instant.Before(bounds.evening), nil
}

type interval struct {
	start, end time.Time
}

// twilight holds one airport-date's civil twilight boundaries plus the
// local midnight opening the date.
type twilight struct {
	midnight time.Time
	morning  time.Time
	evening  time.Time
}

// resolveBounds computes twilight bounds, reporting ok=false whenever
// the airport, its zone, or the lookup itself is unusable.
func resolveBounds(ap *airports.Airport, lookupErr error, date time.Time) (twilight, bool) {
	if lookupErr != nil || ap == nil || ap.Timezone == "" {
		return twilight{}, false
	}
	loc, err := time.LoadLocation(ap.Timezone)
	if err != nil {
		return twilight{}, false
	}
	return solarTwilight(ap.Latitude, ap.Longitude, date, loc), true
}

// solarTwilight is the simplified solar model: seasonal declination
// from day of year, half-day arc from latitude, and a clamped
// longitude-vs-zone-meridian correction, with the fixed 30 minute
// civil twilight allowance on each side.
func solarTwilight(lat, lon float64, date time.Time, loc *time.Location) twilight {
	u := date.UTC()
	localMidnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, loc)

	// Zone offset sampled at local noon to stay clear of DST switches.
	_, offSec := localMidnight.Add(12 * time.Hour).Zone()
	off := float64(offSec) / 3600.0

	n := float64(localMidnight.YearDay())
	decl := -23.44 * math.Cos(2*math.Pi/365.0*(n+10))

	latRad := lat * math.Pi / 180
	declRad := decl * math.Pi / 180
	cosH := clamp(-math.Tan(latRad)*math.Tan(declRad), -1, 1)
	halfDay := clamp(math.Acos(cosH)*180/math.Pi/15.0, 2.0, 10.5)

	// How far local clock noon sits from true solar noon.
	drift := clamp(-lon/15.0+off, -3.0, 3.0)

	sunrise := 12.0 - halfDay + drift
	sunset := 12.0 + halfDay + drift

	return twilight{
		midnight: localMidnight,
		morning:  localMidnight.Add(hours(sunrise - 0.5)),
		evening:  localMidnight.Add(hours(sunset + 0.5)),
	}
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// mergeIntervals collapses overlapping or touching intervals into a
// minimal disjoint set so overlap sums never double count.
func mergeIntervals(in []interval) []interval {
	valid := make([]interval, 0, len(in))
	for _, iv := range in {
		if iv.end.After(iv.start) {
			valid = append(valid, iv)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].start.Before(valid[j].start) })

	merged := []interval{valid[0]}
	for _, iv := range valid[1:] {
		last := &merged[len(merged)-1]
		if !iv.start.After(last.end) {
			if iv.end.After(last.end) {
				last.end = iv.end
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) int {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start).Minutes())
}

// estimateNightMinutes is the degraded path: sample the flight in
// 5-minute steps and count any sample whose UTC hour falls in
// [19:00, 06:00) as night.
func estimateNightMinutes(out, in time.Time) int {
	const step = 5 * time.Minute
	night := 0
	for t := out; t.Before(in); t = t.Add(step) {
		h := t.UTC().Hour()
		if h >= 19 || h < 6 {
			night += int(step.Minutes())
		}
	}
	if block := int(in.Sub(out).Minutes()); night > block {
		night = block
	}
	return night
}
