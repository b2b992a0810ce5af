package api

import "net/http"

// status serves GET /. The body is static: the operator dashboard polls
// it for liveness, and a degraded agent still reports the process as up.
func status(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "Server is running",
			"version": version,
		})
	}
}
