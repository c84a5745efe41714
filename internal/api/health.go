package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

type ServiceStatus struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}

type HealthCheckResponse struct {
	Status   string                   `json:"status"`
	Uptime   string                   `json:"uptime"`
	Services map[string]ServiceStatus `json:"services"`
}

// HealthCheckHandler handles GET /healthCheck
//
// @Summary Health check
// @Description Verifies the server and both local databases are reachable.
// @Tags Misc
// @Success 200 {object} HealthCheckResponse
// @Router /healthCheck [get]
func HealthCheckHandler(tripDB *gorm.DB, airportDB *sqlx.DB, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		services := make(map[string]ServiceStatus)

		// Check trip store
		tripStatus := "ok"
		tripDetails := "Trip store connected"
		if sqlDB, err := tripDB.DB(); err != nil {
			tripStatus = "down"
			tripDetails = err.Error()
		} else if err := sqlDB.Ping(); err != nil {
			tripStatus = "down"
			tripDetails = err.Error()
		}
		services["trips"] = ServiceStatus{
			Status:  tripStatus,
			Details: tripDetails,
		}

		// Check airport directory
		apStatus := "ok"
		apDetails := "Airport directory connected"
		if err := airportDB.Ping(); err != nil {
			apStatus = "down"
			apDetails = err.Error()
		}
		services["airports"] = ServiceStatus{
			Status:  apStatus,
			Details: apDetails,
		}

		overallStatus := "ok"
		for _, svc := range services {
			if svc.Status != "ok" {
				overallStatus = "down"
				break
			}
		}

		now := time.Now()
		uptime := now.Sub(upSince).Round(time.Second).String()

		resp := HealthCheckResponse{
			Services: services,
			Status:   overallStatus,
			Uptime:   uptime,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
