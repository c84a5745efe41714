package api

import (
	"fmt"
	"time"

	"github.com/md80av8r/propilot-core/internal/model"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

const dateLayout = "2006-01-02"

type CrewMemberDTO struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

type LegRequest struct {
	Departure  string  `json:"departure"`
	Arrival    string  `json:"arrival"`
	OutTime    string  `json:"out_time,omitempty"`
	OffTime    string  `json:"off_time,omitempty"`
	OnTime     string  `json:"on_time,omitempty"`
	InTime     string  `json:"in_time,omitempty"`
	FlightDate *string `json:"flight_date,omitempty"`
	Logpage    int     `json:"logpage,omitempty"`
}

type CreateTripRequest struct {
	TripNumber  string          `json:"trip_number"`
	Date        string          `json:"date"`
	Aircraft    string          `json:"aircraft,omitempty"`
	Crew        []CrewMemberDTO `json:"crew,omitempty"`
	ReportTime  string          `json:"report_time,omitempty"`
	ReleaseTime string          `json:"release_time,omitempty"`
	Legs        []LegRequest    `json:"legs"`
}

type PunchRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type LegResponse struct {
	ID            string  `json:"id"`
	Departure     string  `json:"departure"`
	Arrival       string  `json:"arrival"`
	OutTime       string  `json:"out_time,omitempty"`
	OffTime       string  `json:"off_time,omitempty"`
	OnTime        string  `json:"on_time,omitempty"`
	InTime        string  `json:"in_time,omitempty"`
	FlightDate    *string `json:"flight_date,omitempty"`
	Logpage       int     `json:"logpage,omitempty"`
	Status        string  `json:"status"`
	BlockMinutes  int     `json:"block_minutes"`
	FlightMinutes int     `json:"flight_minutes"`
}

type TripResponse struct {
	ID             string          `json:"id"`
	TripNumber     string          `json:"trip_number"`
	Date           string          `json:"date"`
	Aircraft       string          `json:"aircraft,omitempty"`
	Crew           []CrewMemberDTO `json:"crew,omitempty"`
	ReportTime     string          `json:"report_time,omitempty"`
	ReleaseTime    string          `json:"release_time,omitempty"`
	Status         string          `json:"status"`
	ActiveLegIndex *int            `json:"active_leg_index,omitempty"`
	Legs           []LegResponse   `json:"legs"`
	BlockMinutes   int             `json:"block_minutes"`
	FlightMinutes  int             `json:"flight_minutes"`
	DutyMinutes    int             `json:"duty_minutes"`
}

func tripToResponse(t *model.Trip) *TripResponse {
	resp := &TripResponse{
		ID:            t.ID,
		TripNumber:    t.TripNumber,
		Date:          t.Date.UTC().Format(dateLayout),
		Aircraft:      t.Aircraft,
		ReportTime:    t.ReportTime,
		ReleaseTime:   t.ReleaseTime,
		Status:        string(t.Status),
		BlockMinutes:  t.BlockMinutes(),
		FlightMinutes: t.FlightMinutes(),
		DutyMinutes:   t.DutyMinutes(),
	}
	for _, c := range t.Crew {
		resp.Crew = append(resp.Crew, CrewMemberDTO{Role: c.Role, Name: c.Name})
	}
	if idx, ok := t.ActiveLegIndex(); ok {
		resp.ActiveLegIndex = &idx
	}
	resp.Legs = make([]LegResponse, 0, len(t.Legs))
	for _, leg := range t.Legs {
		lr := LegResponse{
			ID:            leg.ID,
			Departure:     leg.Departure,
			Arrival:       leg.Arrival,
			OutTime:       leg.OutTime,
			OffTime:       leg.OffTime,
			OnTime:        leg.OnTime,
			InTime:        leg.InTime,
			Logpage:       leg.Logpage,
			Status:        string(leg.Status),
			BlockMinutes:  leg.BlockMinutes(),
			FlightMinutes: leg.FlightMinutes(),
		}
		if leg.FlightDate != nil {
			d := leg.FlightDate.UTC().Format(dateLayout)
			lr.FlightDate = &d
		}
		resp.Legs = append(resp.Legs, lr)
	}
	return resp
}

// legFromRequest validates and converts one leg. Punch values may be
// pre-filled for historical entry; each must be a valid zulu time.
func legFromRequest(req LegRequest) (*model.FlightLeg, error) {
	if req.Departure == "" || req.Arrival == "" {
		return nil, fmt.Errorf("leg requires departure and arrival")
	}
	leg := model.NewFlightLeg(req.Departure, req.Arrival)
	leg.Logpage = req.Logpage

	for _, p := range []struct {
		field model.PunchField
		value string
	}{
		{model.PunchOut, req.OutTime},
		{model.PunchOff, req.OffTime},
		{model.PunchOn, req.OnTime},
		{model.PunchIn, req.InTime},
	} {
		if p.value == "" {
			continue
		}
		v, ok := timeutil.NormalizeZulu(p.value)
		if !ok {
			return nil, fmt.Errorf("invalid %s time %q", p.field, p.value)
		}
		leg.SetPunch(p.field, v)
	}

	if req.FlightDate != nil {
		d, err := time.Parse(dateLayout, *req.FlightDate)
		if err != nil {
			return nil, fmt.Errorf("invalid flight_date %q", *req.FlightDate)
		}
		leg.FlightDate = &d
	}
	return leg, nil
}
