package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/secret-ballot/log"
	"github.com/vocdoni/secret-ballot/round"
	stg "github.com/vocdoni/secret-ballot/storage"
	"github.com/vocdoni/secret-ballot/types"
)

// Ballot is the round sequencer the API forwards the user actions to.
type Ballot interface {
	CastVote(ctx context.Context, voter common.Address, roundID uint32, vote bool) error
	StartCounting(ctx context.Context) error
	State() *round.State
	Phase() types.Phase
	Nodes() []common.Address
}

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port, the storage and the ballot sequencer.
type APIConfig struct {
	Host    string
	Port    int
	Storage *stg.Storage
	Ballot  Ballot
}

// API type represents the API HTTP server.
type API struct {
	router  *chi.Mux
	server  *http.Server
	storage *stg.Storage
	ballot  Ballot
}

// New creates a new API instance with the given configuration and starts
// the HTTP server. A zero port skips the listener, which is useful to test
// the router alone.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Ballot == nil {
		return nil, fmt.Errorf("missing ballot instance")
	}
	a := &API{
		storage: conf.Storage,
		ballot:  conf.Ballot,
	}

	// Initialize router
	a.initRouter()
	if conf.Port == 0 {
		return a, nil
	}
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Stop shuts down the HTTP server, if any.
func (a *API) Stop(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", RoundsEndpoint, "method", "GET")
	a.router.Get(RoundsEndpoint, a.rounds)
	log.Infow("register handler", "endpoint", RoundEndpoint, "method", "GET")
	a.router.Get(RoundEndpoint, a.round)
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.newVote)
	log.Infow("register handler", "endpoint", CountingEndpoint, "method", "POST")
	a.router.Post(CountingEndpoint, a.startCounting)
	log.Infow("register handler", "endpoint", NodesEndpoint, "method", "GET")
	a.router.Get(NodesEndpoint, a.nodes)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
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
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
