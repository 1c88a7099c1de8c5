// Package api implements the ceremony control plane's HTTP RPC surface:
// verifyContribution, finalizeCircuit, a read-only query surface, and the
// operational endpoints (/ping, /metrics).
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zkceremony/coordinator/ceremony"
	"github.com/zkceremony/coordinator/log"
	"github.com/zkceremony/coordinator/store"
)

// Config configures the API HTTP server.
type Config struct {
	ListenAddr string
	JWTSecret  []byte

	Store     *store.Store
	Verifier  *ceremony.Verifier
	Finalizer *ceremony.Finalizer
}

// API is the ceremony control plane's HTTP RPC server.
type API struct {
	router    *chi.Mux
	store     *store.Store
	verifier  *ceremony.Verifier
	finalizer *ceremony.Finalizer
}

// New creates an API instance and starts serving on conf.ListenAddr.
func New(conf *Config) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("api: missing configuration")
	}
	if conf.Store == nil || conf.Verifier == nil || conf.Finalizer == nil {
		return nil, fmt.Errorf("api: missing store, verifier, or finalizer")
	}

	a := &API{
		store:     conf.Store,
		verifier:  conf.Verifier,
		finalizer: conf.Finalizer,
	}
	a.initRouter(conf.JWTSecret)

	go func() {
		log.Infow("starting API server", "addr", conf.ListenAddr)
		if err := http.ListenAndServe(conf.ListenAddr, a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router, for tests.
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers(jwtSecret []byte) {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})

	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	a.router.Handle(MetricsEndpoint, promhttp.Handler())

	log.Infow("register handler", "endpoint", CeremonyEndpoint, "method", "GET")
	a.router.Get(CeremonyEndpoint, a.getCeremony)
	log.Infow("register handler", "endpoint", CircuitsEndpoint, "method", "GET")
	a.router.Get(CircuitsEndpoint, a.listCircuits)

	a.router.Group(func(r chi.Router) {
		r.Use(authMiddleware(jwtSecret))

		log.Infow("register handler", "endpoint", VerifyContributionEndpoint, "method", "POST")
		r.Post(VerifyContributionEndpoint, requireRole(a.verifyContribution, RoleParticipant, RoleCoordinator))

		log.Infow("register handler", "endpoint", FinalizeCircuitEndpoint, "method", "POST")
		r.Post(FinalizeCircuitEndpoint, requireRole(a.finalizeCircuit, RoleCoordinator))
	})
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter(jwtSecret []byte) {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(70 * time.Minute))

	a.registerHandlers(jwtSecret)
}
