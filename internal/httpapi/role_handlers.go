package httpapi

import (
	"net/http"
	"strings"

	"coremd.cloud/internal/audit"
	"coremd.cloud/internal/auth"
)

// Role catalog routes. Listing is open to any authenticated caller (signup
// needs role ids); everything else is admin only.

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		roles, err := a.auth.ListRoles(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
	case http.MethodPost:
		if err := a.auth.Authorize(r.Context(), auth.RoleAdmin); err != nil {
			handleAuthError(w, r, err)
			return
		}
		var in auth.RoleInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.auth.CreateRole(r.Context(), in)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "role.create", map[string]any{"role_id": role.ID})
		writeJSON(w, http.StatusCreated, map[string]any{"role": role})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRoleByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "Not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		role, err := a.auth.GetRole(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"role": role})
	case http.MethodPut:
		if err := a.auth.Authorize(r.Context(), auth.RoleAdmin); err != nil {
			handleAuthError(w, r, err)
			return
		}
		var in auth.UpdateRoleInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.auth.UpdateRole(r.Context(), id, in)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "role.update", map[string]any{"role_id": id})
		writeJSON(w, http.StatusOK, map[string]any{"role": role})
	case http.MethodDelete:
		if err := a.auth.Authorize(r.Context(), auth.RoleAdmin); err != nil {
			handleAuthError(w, r, err)
			return
		}
		if err := a.auth.DeleteRole(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "role.delete", map[string]any{"role_id": id})
		writeJSON(w, http.StatusOK, map[string]any{"message": "Role deleted."})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
