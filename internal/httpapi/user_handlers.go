package httpapi

import (
	"net/http"
	"strings"

	"coremd.cloud/internal/audit"
	"coremd.cloud/internal/auth"
)

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := a.auth.Authorize(r.Context(), auth.RoleAdmin); err != nil {
		handleAuthError(w, r, err)
		return
	}
	users, err := a.auth.ListUsers(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// handleUserByID serves /v1/users/{id}. Reads are open to any authenticated
// caller looking at their own record; everything else is admin only.
func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "Not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, id)
	case http.MethodPut:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	if !a.selfOrAdmin(w, r, id) {
		return
	}
	user, err := a.auth.GetUser(r.Context(), id)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	if !a.selfOrAdmin(w, r, id) {
		return
	}
	var in auth.UpdateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// Only an admin may reassign roles.
	if in.RoleID != nil {
		if err := a.auth.Authorize(r.Context(), auth.RoleAdmin); err != nil {
			handleAuthError(w, r, err)
			return
		}
	}
	user, err := a.auth.UpdateUser(r.Context(), id, in)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.update", map[string]any{"target_user_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.auth.Authorize(r.Context(), auth.RoleAdmin); err != nil {
		handleAuthError(w, r, err)
		return
	}
	if err := a.auth.DeleteUser(r.Context(), id); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "user.delete", map[string]any{"target_user_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"message": "User deleted."})
}

// selfOrAdmin authorizes access to a user record: the record's own user, or
// an admin. Writes an error response and returns false when denied.
func (a *API) selfOrAdmin(w http.ResponseWriter, r *http.Request, id string) bool {
	current, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated.Status, auth.ErrUnauthenticated.Message)
		return false
	}
	if current.ID == id {
		return true
	}
	if err := a.auth.Authorize(r.Context(), auth.RoleAdmin); err != nil {
		handleAuthError(w, r, err)
		return false
	}
	return true
}
