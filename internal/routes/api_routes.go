package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/md80av8r/propilot-core/internal/api"
)

// RegisterAPIRoutes registers all API v1 routes and handlers
// This keeps API route registration separate from the main router setup
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies) {
	svc := deps.Services

	// API v1 routes
	r.Route("/api/v1", func(v1 chi.Router) {
		// Trip lifecycle
		v1.Get("/trips", api.ListTripsHandler(svc.Logbook))
		v1.Post("/trips", api.CreateTripHandler(svc.Logbook))
		v1.Get("/trips/{trip_id}", api.GetTripHandler(svc.Logbook))
		v1.Post("/trips/{trip_id}/legs", api.AddLegHandler(svc.Logbook))
		v1.Post("/trips/{trip_id}/legs/{leg_index}/punch", api.PunchHandler(svc.Logbook))
		v1.Post("/trips/{trip_id}/end", api.EndTripHandler(svc.Logbook))

		// Reports
		v1.Get("/trips/{trip_id}/night", api.TripNightHandler(svc.Logbook, svc.Night))
		v1.Get("/perdiem", api.PerDiemReportHandler(svc.Logbook, svc.PerDiem, deps.Now))
		v1.Get("/compliance", api.ComplianceHandler(svc.Logbook, svc.Compliance, deps.Now))

		// Watch session
		v1.Get("/sync/status", api.SyncStatusHandler(svc.Engine))
		v1.Post("/sync/force", api.ForceResyncHandler(svc.Engine))

		// Airport directory
		v1.Get("/airports/{code}", api.AirportLookupHandler(svc.Airports))

		// Airport data management
		v1.Post("/admin/data/import-airports", api.ImportAirportsHandler(svc.Loader))
	})
}
