package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/md80av8r/propilot-core/internal/model"
)

// TripRecord is the persisted form of a trip.
type TripRecord struct {
	ID          string    `gorm:"column:id;primaryKey;type:uuid"`
	TripNumber  string    `gorm:"column:trip_number;index"`
	Date        time.Time `gorm:"column:date;index"`
	Aircraft    string    `gorm:"column:aircraft"`
	CrewJSON    string    `gorm:"column:crew_json;type:text"`
	ReportTime  string    `gorm:"column:report_time"`
	ReleaseTime string    `gorm:"column:release_time"`
	Status      string    `gorm:"column:status"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`

	// Relationships
	Legs []LegRecord `gorm:"foreignKey:TripID;references:ID"`
}

// TableName specifies the table name for GORM
func (TripRecord) TableName() string {
	return "trips"
}

// LegRecord is the persisted form of one leg. Seq preserves leg order
// within the trip.
type LegRecord struct {
	ID         string     `gorm:"column:id;primaryKey;type:uuid"`
	TripID     string     `gorm:"column:trip_id;index"`
	Seq        int        `gorm:"column:seq"`
	Departure  string     `gorm:"column:departure"`
	Arrival    string     `gorm:"column:arrival"`
	OutTime    string     `gorm:"column:out_time"`
	OffTime    string     `gorm:"column:off_time"`
	OnTime     string     `gorm:"column:on_time"`
	InTime     string     `gorm:"column:in_time"`
	FlightDate *time.Time `gorm:"column:flight_date"`
	Logpage    int        `gorm:"column:logpage"`
	Status     string     `gorm:"column:status"`
}

// TableName specifies the table name for GORM
func (LegRecord) TableName() string {
	return "flight_legs"
}

// SchemaMeta holds one-shot migration markers and other store-level
// key/value state.
type SchemaMeta struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (SchemaMeta) TableName() string {
	return "schema_meta"
}

func toRecord(trip *model.Trip) (*TripRecord, error) {
	crew, err := json.Marshal(trip.Crew)
	if err != nil {
		return nil, fmt.Errorf("failed to encode crew: %w", err)
	}
	rec := &TripRecord{
		ID:          trip.ID,
		TripNumber:  trip.TripNumber,
		Date:        trip.Date,
		Aircraft:    trip.Aircraft,
		CrewJSON:    string(crew),
		ReportTime:  trip.ReportTime,
		ReleaseTime: trip.ReleaseTime,
		Status:      string(trip.Status),
	}
	for i, leg := range trip.Legs {
		rec.Legs = append(rec.Legs, LegRecord{
			ID:         leg.ID,
			TripID:     trip.ID,
			Seq:        i,
			Departure:  leg.Departure,
			Arrival:    leg.Arrival,
			OutTime:    leg.OutTime,
			OffTime:    leg.OffTime,
			OnTime:     leg.OnTime,
			InTime:     leg.InTime,
			FlightDate: leg.FlightDate,
			Logpage:    leg.Logpage,
			Status:     string(leg.Status),
		})
	}
	return rec, nil
}

func toModel(rec *TripRecord) (*model.Trip, error) {
	trip := &model.Trip{
		ID:          rec.ID,
		TripNumber:  rec.TripNumber,
		Date:        rec.Date,
		Aircraft:    rec.Aircraft,
		ReportTime:  rec.ReportTime,
		ReleaseTime: rec.ReleaseTime,
		Status:      model.TripStatus(rec.Status),
	}
	if rec.CrewJSON != "" {
		if err := json.Unmarshal([]byte(rec.CrewJSON), &trip.Crew); err != nil {
			return nil, fmt.Errorf("failed to decode crew for trip %s: %w", rec.ID, err)
		}
	}
	for _, lr := range rec.Legs {
		trip.Legs = append(trip.Legs, &model.FlightLeg{
			ID:         lr.ID,
			Departure:  lr.Departure,
			Arrival:    lr.Arrival,
			OutTime:    lr.OutTime,
			OffTime:    lr.OffTime,
			OnTime:     lr.OnTime,
			InTime:     lr.InTime,
			FlightDate: lr.FlightDate,
			Logpage:    lr.Logpage,
			Status:     model.LegStatus(lr.Status),
		})
	}
	return trip, nil
}
