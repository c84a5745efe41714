package api

import (
	"net/http"
	"time"

	"github.com/md80av8r/propilot-core/internal/logbook"
	"github.com/md80av8r/propilot-core/internal/perdiem"
)

type PerDiemPeriodDTO struct {
	Start   time.Time  `json:"start"`
	End     *time.Time `json:"end,omitempty"`
	Ongoing bool       `json:"ongoing"`
	Minutes int        `json:"minutes"`
	Dollars float64    `json:"dollars"`
	Trips   []string   `json:"trip_numbers"`
}

type PerDiemMonthDTO struct {
	Month   string  `json:"month"`
	Minutes int     `json:"minutes"`
	Dollars float64 `json:"dollars"`
}

type PerDiemReportResponse struct {
	HourlyRate   float64            `json:"hourly_rate"`
	Periods      []PerDiemPeriodDTO `json:"periods"`
	Monthly      []PerDiemMonthDTO  `json:"monthly"`
	TotalMinutes int                `json:"total_minutes"`
	TotalDollars float64            `json:"total_dollars"`
}

// PerDiemReportHandler handles GET /api/v1/perdiem
//
// @Summary Per-diem report
// @Description Derives away-from-base periods from the trip list and totals them per calendar month.
// @Tags PerDiem
// @Produce json
// @Success 200 {object} APIResponse[PerDiemReportResponse]
// @Router /api/v1/perdiem [get]
func PerDiemReportHandler(svc *logbook.Service, calc *perdiem.Calculator, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trips, err := svc.ListTrips(r.Context())
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to list trips: "+err.Error())
			return
		}

		at := now()
		resp := PerDiemReportResponse{HourlyRate: calc.HourlyRate()}

		for _, p := range calc.Periods(trips) {
			dto := PerDiemPeriodDTO{
				Start:   p.Start,
				End:     p.End,
				Ongoing: p.Ongoing(),
				Minutes: p.Minutes(at),
				Dollars: p.Dollars(at, calc.HourlyRate()),
			}
			for _, t := range p.Trips {
				dto.Trips = append(dto.Trips, t.TripNumber)
			}
			resp.Periods = append(resp.Periods, dto)
			resp.TotalMinutes += dto.Minutes
			resp.TotalDollars += dto.Dollars
		}

		for _, m := range calc.MonthlyTotals(trips) {
			resp.Monthly = append(resp.Monthly, PerDiemMonthDTO{
				Month:   time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
				Minutes: m.Minutes,
				Dollars: m.Dollars,
			})
		}

		respondWithSuccess(w, http.StatusOK, &resp)
	}
}
