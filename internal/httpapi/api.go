// Package httpapi exposes the authentication, user, role and course
// surfaces over HTTP. Routing is plain net/http with manual path parsing;
// every mutating route sits behind the bearer-token gate and a role check.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"coremd.cloud/internal/auth"
	"coremd.cloud/internal/course"
	"coremd.cloud/internal/obs"
)

// ReadyProbe reports whether downstream dependencies can serve traffic.
type ReadyProbe func(ctx context.Context) error

// API is the HTTP surface. Construct with New, serve via Handler.
type API struct {
	mux     *http.ServeMux
	auth    *auth.Service
	courses *course.Service
	ready   ReadyProbe
	version string
	commit  string

	corsOrigin string
	rateRPS    rate.Limit
	rateBurst  int
}

// Option configures the API.
type Option func(*API)

// WithReadyProbe wires the readiness check used by /readyz.
func WithReadyProbe(p ReadyProbe) Option {
	return func(a *API) { a.ready = p }
}

// WithVersion stamps /v1/info with build metadata.
func WithVersion(version, commit string) Option {
	return func(a *API) {
		a.version = version
		a.commit = commit
	}
}

// WithCORSOrigin enables CORS for the given origin.
func WithCORSOrigin(origin string) Option {
	return func(a *API) { a.corsOrigin = origin }
}

// WithRateLimit overrides the per-client request budget.
func WithRateLimit(rps rate.Limit, burst int) Option {
	return func(a *API) {
		a.rateRPS = rps
		a.rateBurst = burst
	}
}

// New builds the API and registers all routes.
func New(authSvc *auth.Service, courseSvc *course.Service, opts ...Option) (*API, error) {
	if authSvc == nil {
		return nil, errors.New("httpapi: auth service is required")
	}
	if courseSvc == nil {
		return nil, errors.New("httpapi: course service is required")
	}
	a := &API{
		mux:       http.NewServeMux(),
		auth:      authSvc,
		courses:   courseSvc,
		version:   "dev",
		rateRPS:   50,
		rateBurst: 100,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.routes()
	return a, nil
}

func (a *API) routes() {
	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReadyz)
	a.mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		obs.Handler().ServeHTTP(w, r)
	})
	a.mux.HandleFunc("/openapi.yaml", a.handleOpenAPI)
	a.mux.HandleFunc("/v1/info", a.handleInfo)
	a.mux.HandleFunc("/v1/health-check", a.handleHealthCheck)

	a.mux.HandleFunc("/v1/auth/signup", a.handleSignup)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/refresh-token", a.handleRefreshToken)
	a.mux.HandleFunc("/v1/auth/forgot-password", a.handleForgotPassword)
	a.mux.HandleFunc("/v1/auth/reset-password", a.handleResetPassword)
	a.mux.HandleFunc("/v1/auth/verify-email", a.handleVerifyEmail)

	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserByID)
	a.mux.HandleFunc("/v1/roles", a.handleRoles)
	a.mux.HandleFunc("/v1/roles/", a.handleRoleByID)
	a.mux.HandleFunc("/v1/courses", a.handleCourses)
	a.mux.HandleFunc("/v1/courses/", a.handleCourseSubtree)
}

// Handler returns the fully wrapped handler chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RateLimit(a.rateRPS, a.rateBurst)(h)
	h = CORS(a.corsOrigin)(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}
