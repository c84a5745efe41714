package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/md80av8r/propilot-core/internal/logbook"
	"github.com/md80av8r/propilot-core/internal/model"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

// ListTripsHandler handles GET /api/v1/trips
//
// @Summary List trips
// @Description Returns all trips, oldest first. Filter with ?status=OPEN|COMPLETED.
// @Tags Trips
// @Produce json
// @Param status query string false "Trip status filter"
// @Success 200 {object} APIResponse[[]TripResponse]
// @Router /api/v1/trips [get]
func ListTripsHandler(svc *logbook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trips, err := svc.ListTrips(r.Context())
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to list trips: "+err.Error())
			return
		}

		statusFilter := r.URL.Query().Get("status")
		out := make([]TripResponse, 0, len(trips))
		for _, t := range trips {
			if statusFilter != "" && string(t.Status) != statusFilter {
				continue
			}
			out = append(out, *tripToResponse(t))
		}
		respondWithSuccess(w, http.StatusOK, &out)
	}
}

// GetTripHandler handles GET /api/v1/trips/{trip_id}
func GetTripHandler(svc *logbook.Service) http.HandlerFunc {
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
		respondWithSuccess(w, http.StatusOK, tripToResponse(trip))
	}
}

// CreateTripHandler handles POST /api/v1/trips
//
// @Summary Create a trip
// @Description Creates a trip with its legs. Legs may arrive pre-punched for historical entry.
// @Tags Trips
// @Accept json
// @Produce json
// @Success 201 {object} APIResponse[TripResponse]
// @Failure 400 {object} APIResponse[any]
// @Router /api/v1/trips [post]
func CreateTripHandler(svc *logbook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTripRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.TripNumber == "" {
			respondWithError(w, http.StatusBadRequest, "trip_number is required")
			return
		}
		if len(req.Legs) == 0 {
			respondWithError(w, http.StatusBadRequest, "At least one leg is required")
			return
		}
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid date, want YYYY-MM-DD")
			return
		}

		legs := make([]*model.FlightLeg, 0, len(req.Legs))
		for _, lr := range req.Legs {
			leg, err := legFromRequest(lr)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			legs = append(legs, leg)
		}

		trip := model.NewTrip(req.TripNumber, date, legs...)
		trip.Aircraft = req.Aircraft
		for _, c := range req.Crew {
			trip.Crew = append(trip.Crew, model.CrewMember{Role: c.Role, Name: c.Name})
		}
		if req.ReportTime != "" {
			v, ok := timeutil.NormalizeZulu(req.ReportTime)
			if !ok {
				respondWithError(w, http.StatusBadRequest, "Invalid report_time")
				return
			}
			trip.ReportTime = v
		}
		if req.ReleaseTime != "" {
			v, ok := timeutil.NormalizeZulu(req.ReleaseTime)
			if !ok {
				respondWithError(w, http.StatusBadRequest, "Invalid release_time")
				return
			}
			trip.ReleaseTime = v
		}

		if err := svc.CreateTrip(r.Context(), trip); err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to create trip: "+err.Error())
			return
		}
		respondWithSuccess(w, http.StatusCreated, tripToResponse(trip))
	}
}

// AddLegHandler handles POST /api/v1/trips/{trip_id}/legs
func AddLegHandler(svc *logbook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LegRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		leg, err := legFromRequest(req)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		trip, err := svc.AddLeg(r.Context(), chi.URLParam(r, "trip_id"), leg)
		if err != nil {
			writeLogbookError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusCreated, tripToResponse(trip))
	}
}

// PunchHandler handles POST /api/v1/trips/{trip_id}/legs/{leg_index}/punch
//
// @Summary Record an OOOI punch
// @Description Writes one OOOI time on a leg and runs leg advancement. An empty value clears the punch.
// @Tags Trips
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse[TripResponse]
// @Failure 400,404,409 {object} APIResponse[any]
// @Router /api/v1/trips/{trip_id}/legs/{leg_index}/punch [post]
func PunchHandler(svc *logbook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		legIndex, err := strconv.Atoi(chi.URLParam(r, "leg_index"))
		if err != nil || legIndex < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid leg index")
			return
		}

		var req PunchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		field := model.PunchField(req.Field)
		switch field {
		case model.PunchOut, model.PunchOff, model.PunchOn, model.PunchIn:
		default:
			respondWithError(w, http.StatusBadRequest, "Field must be one of OUT, OFF, ON, IN")
			return
		}

		trip, err := svc.ApplyPunch(r.Context(), chi.URLParam(r, "trip_id"), legIndex, field, req.Value)
		if err != nil {
			writeLogbookError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, tripToResponse(trip))
	}
}

// EndTripHandler handles POST /api/v1/trips/{trip_id}/end
func EndTripHandler(svc *logbook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trip, err := svc.EndTrip(r.Context(), chi.URLParam(r, "trip_id"))
		if err != nil {
			writeLogbookError(w, err)
			return
		}
		respondWithSuccess(w, http.StatusOK, tripToResponse(trip))
	}
}

func writeLogbookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, logbook.ErrTripNotFound):
		respondWithError(w, http.StatusNotFound, "Trip not found")
	case errors.Is(err, logbook.ErrLegIndex):
		respondWithError(w, http.StatusNotFound, "Leg index out of range")
	case errors.Is(err, logbook.ErrInvalidPunch):
		respondWithError(w, http.StatusBadRequest, "Invalid punch value, want zulu HHMM")
	case errors.Is(err, logbook.ErrTripCompleted):
		respondWithError(w, http.StatusConflict, "Trip is already completed")
	case errors.Is(err, logbook.ErrActiveLeg):
		respondWithError(w, http.StatusConflict, "Trip still has an unfinished active leg")
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
