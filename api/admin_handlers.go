package api

import (
	"net/http"
	"strconv"
)

const defaultAuditLimit = 100

// AdminSessions handles GET /admin/sessions.
func (a *API) AdminSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AdminSessionsResponse{Sessions: a.sessions.Len()})
}

// AdminRevokeSessions handles DELETE /admin/sessions: the emergency
// revoke-all switch. Vault entries die with their sessions on the next
// sweep; revocation does not wait for them.
func (a *API) AdminRevokeSessions(w http.ResponseWriter, r *http.Request) {
	n := a.sessions.DestroyAll()
	a.audit.log(AuditSessionsRevoked, auditRecord{
		clientIP: a.extractClientIP(r),
		detail:   strconv.Itoa(n) + " sessions",
	})
	writeJSON(w, http.StatusOK, RevokeSessionsResponse{Revoked: n})
}

// AdminAudit handles GET /admin/audit, returning recent trail entries
// newest first. The limit query parameter caps the result.
func (a *API) AdminAudit(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := a.audit.recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read audit trail")
		return
	}
	writeJSON(w, http.StatusOK, AuditListResponse{Entries: entries})
}
