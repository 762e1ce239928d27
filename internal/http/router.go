// v0
// internal/http/router.go
package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/MayorChristopher/poultry-management-system/internal/auth"
	"github.com/MayorChristopher/poultry-management-system/internal/dashboard"
	"github.com/MayorChristopher/poultry-management-system/internal/logfeed"
	"github.com/MayorChristopher/poultry-management-system/internal/metrics"
	"github.com/MayorChristopher/poultry-management-system/internal/state"
)

// StateSource exposes the store snapshot.
type StateSource interface {
	State() state.SystemState
}

// ControlExecutor runs control actions.
type ControlExecutor interface {
	Execute(ctx context.Context, name string) (state.ControlAction, error)
}

// DashboardSource exposes the rolling dashboard view.
type DashboardSource interface {
	View() dashboard.View
}

// LogSource exposes the activity log feed.
type LogSource interface {
	Entries(cat logfeed.Category) []logfeed.Entry
	Counts() map[logfeed.Category]int
	Refresh()
}

// Deps are the collaborators the router serves from. Stream and Metrics may
// be nil.
type Deps struct {
	Logger      *slog.Logger
	Health      *HealthState
	State       StateSource
	Controls    ControlExecutor
	Dashboard   DashboardSource
	Logs        LogSource
	Auth        auth.Provider
	Stream      http.Handler
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

// NewRouter wires every route and the shared middleware chain.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Health == nil {
		d.Health = NewHealthState()
	}
	api := &api{deps: d, log: logger}
	user := func(h http.HandlerFunc) http.Handler { return requireUser(logger, d.Auth, h) }
	admin := func(h http.HandlerFunc) http.Handler {
		return requireUser(logger, d.Auth, requireRole(logger, auth.RoleAdmin, h))
	}

	r := mux.NewRouter()
	r.Handle("/health", healthLiveHandler()).Methods(http.MethodGet)
	r.Handle("/health/live", healthLiveHandler()).Methods(http.MethodGet)
	r.Handle("/health/ready", healthReadyHandler(d.Health)).Methods(http.MethodGet)

	r.HandleFunc("/auth/signup", api.signUp).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", api.signIn).Methods(http.MethodPost)
	r.Handle("/auth/logout", user(api.signOut)).Methods(http.MethodPost)
	r.Handle("/auth/me", user(api.me)).Methods(http.MethodGet)

	r.Handle("/api/state", user(api.getState)).Methods(http.MethodGet)
	r.Handle("/api/dashboard", user(api.getDashboard)).Methods(http.MethodGet)
	r.Handle("/api/status", user(api.getStatus)).Methods(http.MethodGet)
	r.Handle("/api/controls", admin(api.listControls)).Methods(http.MethodGet)
	r.Handle("/api/controls", admin(api.executeControl)).Methods(http.MethodPost)
	r.Handle("/api/logs", user(api.listLogs)).Methods(http.MethodGet)
	r.Handle("/api/logs/refresh", user(api.refreshLogs)).Methods(http.MethodPost)

	if d.Stream != nil {
		r.Handle("/ws", requireUser(logger, d.Auth, d.Stream)).Methods(http.MethodGet)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
		r.Use(routeMetrics(d.Metrics))
	}

	var notFound, notAllowed http.Handler
	notFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, logger, http.StatusNotFound, "not found")
	})
	notAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, logger, http.StatusMethodNotAllowed, "method not allowed")
	})
	if d.Metrics != nil {
		// Router middleware only runs for matched routes.
		notFound = d.Metrics.WrapHandler(unmatchedRoute, notFound)
		notAllowed = d.Metrics.WrapHandler(unmatchedRoute, notAllowed)
	}
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notAllowed

	var h http.Handler = r
	h = handlers.CORS(
		handlers.AllowedOrigins(d.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger}),
		handlers.PrintRecoveryStack(false),
	)(h)
	return WrapWithLogging(logger, h)
}

// unmatchedRoute labels 404 and 405 responses.
const unmatchedRoute = "unmatched"

// routeMetrics labels requests by their route template.
func routeMetrics(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cur := mux.CurrentRoute(r)
			if cur == nil {
				next.ServeHTTP(w, r)
				return
			}
			tpl, err := cur.GetPathTemplate()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			m.WrapHandler(tpl, next).ServeHTTP(w, r)
		})
	}
}

type recoveryLogger struct{ log *slog.Logger }

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error("http_panic_recovered", slog.Any("panic", v))
}

func healthLiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func healthReadyHandler(health *HealthState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if !health.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
