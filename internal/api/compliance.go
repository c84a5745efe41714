package api

import (
	"net/http"
	"time"

	"github.com/md80av8r/propilot-core/internal/compliance"
	"github.com/md80av8r/propilot-core/internal/logbook"
)

// ComplianceHandler handles GET /api/v1/compliance
//
// @Summary Rolling limit status
// @Description Reports block and duty usage against the Part 117 rolling windows.
// @Tags Compliance
// @Produce json
// @Success 200 {object} APIResponse[compliance.Report]
// @Router /api/v1/compliance [get]
func ComplianceHandler(svc *logbook.Service, checker *compliance.Checker, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trips, err := svc.ListTrips(r.Context())
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to list trips: "+err.Error())
			return
		}
		rep := checker.Evaluate(trips, now())
		respondWithSuccess(w, http.StatusOK, &rep)
	}
}
