package server

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// adminKeyMiddleware guards the admin HTTP endpoints with a bearer key
// compared against the bcrypt hash from configuration. With no hash
// configured the admin API is disabled outright.
func adminKeyMiddleware(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				writeError(w, http.StatusUnauthorized, "admin API is not configured")
				return
			}

			auth := r.Header.Get("Authorization")
			key, found := strings.CutPrefix(auth, "Bearer ")
			if !found || key == "" {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleAdminReset is the HTTP fallback for the reset_all socket command:
// same transactional wipe, same broadcast to every connected client.
func handleAdminReset(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Reset(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "reset failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
