package httpapi

import (
	"net/http"
	"strings"

	"coremd.cloud/internal/auth"
)

// publicPath reports whether a request may proceed without a bearer token.
// Everything under /v1/auth is public except logout, which needs the access
// token it is revoking.
func publicPath(method, path string) bool {
	switch path {
	case "/", "/healthz", "/readyz", "/metrics", "/openapi.yaml",
		"/v1/info", "/v1/health-check":
		return true
	}
	if strings.HasPrefix(path, "/v1/auth/") {
		return path != "/v1/auth/logout"
	}
	return false
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}

// withAuth authenticates every non-public request. On success the resolved
// user and the raw access token travel in the request context so handlers
// and the authorization gate can reach them.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPath(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, auth.ErrMissingToken.Status, auth.ErrMissingToken.Message)
			return
		}
		user, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		ctx := auth.ContextWithUser(r.Context(), user)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
