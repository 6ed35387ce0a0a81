package server

import (
	"net/http"
)

// handleState is the HTTP side of the resync protocol: reconnecting clients
// that have not reopened their socket yet can fetch the same snapshot the
// sync_state socket event returns. Pass ?playerId= to include that player's
// own graded answers.
func handleState(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := hub.Snapshot(r.Context(), r.URL.Query().Get("playerId"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
