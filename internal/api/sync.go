package api

import (
	"net/http"
	"time"

	"github.com/md80av8r/propilot-core/internal/syncengine"
)

type SyncStatusResponse struct {
	Role           string     `json:"role"`
	Paired         bool       `json:"paired"`
	Reachable      bool       `json:"reachable"`
	OutOfSync      bool       `json:"out_of_sync"`
	LastSync       *time.Time `json:"last_sync,omitempty"`
	LocalTripID    string     `json:"local_trip_id,omitempty"`
	LocalLegIndex  *int       `json:"local_leg_index,omitempty"`
	RemoteLegIndex *int       `json:"remote_leg_index,omitempty"`
}

// SyncStatusHandler handles GET /api/v1/sync/status
func SyncStatusHandler(engine *syncengine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := engine.State()
		resp := SyncStatusResponse{
			Role:      string(st.Role),
			Paired:    st.Paired,
			Reachable: st.Reachable,
			OutOfSync: st.OutOfSync,
		}
		if !st.LastSync.IsZero() {
			ls := st.LastSync
			resp.LastSync = &ls
		}
		if st.LocalHasActive {
			idx := st.LocalLegIndex
			resp.LocalTripID = st.LocalTripID
			resp.LocalLegIndex = &idx
		}
		if st.RemoteKnown {
			idx := st.RemoteLegIndex
			resp.RemoteLegIndex = &idx
		}
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}

// ForceResyncHandler handles POST /api/v1/sync/force
//
// @Summary Force a resync
// @Description Retransmits the authoritative leg snapshot to the counterpart regardless of divergence state.
// @Tags Sync
// @Produce json
// @Success 200 {object} APIResponse[SyncStatusResponse]
// @Router /api/v1/sync/force [post]
func ForceResyncHandler(engine *syncengine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.ForceResync(r.Context()); err != nil {
			respondWithError(w, http.StatusBadGateway, "Resync failed: "+err.Error())
			return
		}
		st := engine.State()
		resp := SyncStatusResponse{
			Role:      string(st.Role),
			Paired:    st.Paired,
			Reachable: st.Reachable,
			OutOfSync: st.OutOfSync,
		}
		if !st.LastSync.IsZero() {
			ls := st.LastSync
			resp.LastSync = &ls
		}
		respondWithSuccess(w, http.StatusOK, &resp)
	}
}
