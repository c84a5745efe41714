package compliance

import (
	"time"

	"go.uber.org/zap"

	"github.com/md80av8r/propilot-core/internal/model"
)

// Part 117 flight and duty caps for two-pilot unaugmented operations.
// Flight time here is block time, OUT to IN, which is how 117.3
// defines it.
const (
	FlightLimit672hMinutes = 100 * 60
	FlightLimit365dMinutes = 1000 * 60
	DutyLimit168hMinutes   = 60 * 60
	DutyLimit672hMinutes   = 190 * 60
)

// WindowStatus is usage against one rolling cap.
type WindowStatus struct {
	Window           time.Duration `json:"-"`
	WindowLabel      string        `json:"window"`
	LimitMinutes     int           `json:"limit_minutes"`
	UsedMinutes      int           `json:"used_minutes"`
	RemainingMinutes int           `json:"remaining_minutes"`
	Exceeded         bool          `json:"exceeded"`
}

// Report is a point-in-time legality snapshot across all four rolling
// windows.
type Report struct {
	AsOf       time.Time    `json:"as_of"`
	Flight672h WindowStatus `json:"flight_672h"`
	Flight365d WindowStatus `json:"flight_365d"`
	Duty168h   WindowStatus `json:"duty_168h"`
	Duty672h   WindowStatus `json:"duty_672h"`
}

// Checker evaluates rolling flight and duty time against Part 117
// caps. Intervals straddling a window edge count only the minutes
// inside the window.
type Checker struct {
	log *zap.SugaredLogger
}

func NewChecker(log *zap.SugaredLogger) *Checker {
	return &Checker{log: log}
}

// Evaluate walks every trip and accumulates block and duty intervals
// into each lookback window ending at asOf.
func (c *Checker) Evaluate(trips []*model.Trip, asOf time.Time) Report {
	rep := Report{
		AsOf:       asOf,
		Flight672h: newWindow(672*time.Hour, "672h", FlightLimit672hMinutes),
		Flight365d: newWindow(365*24*time.Hour, "365d", FlightLimit365dMinutes),
		Duty168h:   newWindow(168*time.Hour, "168h", DutyLimit168hMinutes),
		Duty672h:   newWindow(672*time.Hour, "672h", DutyLimit672hMinutes),
	}

	for _, trip := range trips {
		for _, leg := range trip.Legs {
			out, ok := leg.OutInstant(trip.Date)
			if !ok {
				continue
			}
			in, ok := leg.InInstant(trip.Date)
			if !ok {
				continue
			}
			rep.Flight672h.add(out, in, asOf)
			rep.Flight365d.add(out, in, asOf)
		}

		start, end, ok := trip.DutyInterval()
		if !ok {
			continue
		}
		rep.Duty168h.add(start, end, asOf)
		rep.Duty672h.add(start, end, asOf)
	}

	rep.Flight672h.finish()
	rep.Flight365d.finish()
	rep.Duty168h.finish()
	rep.Duty672h.finish()

	if rep.Flight672h.Exceeded || rep.Flight365d.Exceeded || rep.Duty168h.Exceeded || rep.Duty672h.Exceeded {
		c.log.Warnw("rolling limit exceeded",
			"flight_672h_min", rep.Flight672h.UsedMinutes,
			"flight_365d_min", rep.Flight365d.UsedMinutes,
			"duty_168h_min", rep.Duty168h.UsedMinutes,
			"duty_672h_min", rep.Duty672h.UsedMinutes)
	}
	return rep
}

func newWindow(span time.Duration, label string, limit int) WindowStatus {
	return WindowStatus{Window: span, WindowLabel: label, LimitMinutes: limit}
}

// add clips [start, end) to the window ending at asOf and accumulates
// the overlap.
func (w *WindowStatus) add(start, end, asOf time.Time) {
	if !end.After(start) {
		return
	}
	winStart := asOf.Add(-w.Window)
	if start.Before(winStart) {
		start = winStart
	}
	if end.After(asOf) {
		end = asOf
	}
	if !end.After(start) {
		return
	}
	w.UsedMinutes += int(end.Sub(start) / time.Minute)
}

func (w *WindowStatus) finish() {
	w.RemainingMinutes = w.LimitMinutes - w.UsedMinutes
	if w.RemainingMinutes < 0 {
		w.RemainingMinutes = 0
		w.Exceeded = true
	}
}
