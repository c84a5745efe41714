package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/md80av8r/propilot-core/internal/logbook"
	"github.com/md80av8r/propilot-core/internal/nightcalc"
)

type LegNightDTO struct {
	LegIndex     int    `json:"leg_index"`
	Departure    string `json:"departure"`
	Arrival      string `json:"arrival"`
	NightMinutes int    `json:"night_minutes"`
	BlockMinutes int    `json:"block_minutes"`
	Estimated    bool   `json:"estimated"`
	Computed     bool   `json:"computed"`
}

type TripNightResponse struct {
	TripID            string        `json:"trip_id"`
	Legs              []LegNightDTO `json:"legs"`
	TotalNightMinutes int           `json:"total_night_minutes"`
}

// TripNightHandler handles GET /api/v1/trips/{trip_id}/night
//
// @Summary Night time per leg
// @Description Computes the civil-twilight night portion of every punched leg on a trip.
// @Tags Trips
// @Produce json
// @Success 200 {object} APIResponse[TripNightResponse]
// @Failure 404 {object} APIResponse[any]
// @Router /api/v1/trips/{trip_id}/night [get]
func TripNightHandler(svc *logbook.Service, calc *nightcalc.Calculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trip, err := svc.GetTrip(r.Context(), chi.URLParam(r, "trip_id"))
		if err != nil {
			if errors.Is(err, logbook.ErrTripNotFound) {
				respondWithError(w, http.StatusNotFound, "Trip not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, "Failed to fetch trip: "+err.Error())
			return
		}

		resp := TripNightResponse{TripID: trip.ID}
		for i, leg := range trip.Legs {
			dto := LegNightDTO{
				LegIndex:  i,
				Departure: leg.Departure,
				Arrival:   leg.Arrival,
			}
			res, ok, err := calc.ForLeg(r.Context(), trip, leg)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, "Night computation failed: "+err.Error())
				return
			}
			if ok {
				dto.Computed = true
				dto.NightMinutes = res.NightMinutes
				dto.BlockMinutes = res.BlockMinutes
				dto.Estimated = res.Estimated
				resp.TotalNightMinutes += res.NightMinutes
			}
			resp.Legs = append(resp.Legs, dto)
		}
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}
