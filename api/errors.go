package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rvaughn/gatewarden/auth"
)

// maxBodyBytes caps request bodies; every accepted body is small JSON.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeLoginFailure is the failure half of the login contract: the body
// always carries an explicit "success": false next to the error message.
func writeLoginFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, LoginResponse{Success: false, Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeUnauthorized sends the uniform 401 denial: a method-agnostic message
// plus the configured method list. WWW-Authenticate is advertised only when
// basic credentials are configured.
func (a *API) writeUnauthorized(w http.ResponseWriter, methods []auth.Method) {
	if a.authn.BasicConfigured() {
		w.Header().Set("WWW-Authenticate", `Basic realm="gatewarden"`)
	}
	names := make([]string, 0, len(methods))
	for _, m := range methods {
		names = append(names, string(m))
	}
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:       "authentication required",
		AuthMethods: names,
	})
}

// writeRateLimited sends a 429 with the window remainder in Retry-After.
func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", retryAfterString(retryAfter))
	writeError(w, http.StatusTooManyRequests, "too many requests; try again later")
}

func retryAfterString(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
