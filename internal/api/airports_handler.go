package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/md80av8r/propilot-core/internal/airports"
)

// AirportLookupHandler handles GET /api/v1/airports/{code}
// Accepts ICAO or IATA; US K-prefix variants resolve to the same row.
func AirportLookupHandler(dir airports.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		ap, err := dir.Lookup(r.Context(), code)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Lookup failed: "+err.Error())
			return
		}
		if ap == nil {
			respondWithError(w, http.StatusNotFound, "Unknown airport "+code)
			return
		}
		respondWithSuccess(w, http.StatusOK, ap)
	}
}

// ImportAirportsHandler handles POST /api/v1/admin/data/import-airports
// The request body is the airports dataset keyed by ICAO code.
func ImportAirportsHandler(loader *airports.LoaderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := loader.LoadFromJSON(r.Context(), r.Body)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Failed to import airports: "+err.Error())
			return
		}

		response := map[string]interface{}{
			"imported": count,
		}
		respondWithSuccess(w, http.StatusOK, &response)
	}
}
