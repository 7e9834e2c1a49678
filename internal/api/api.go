// Package api exposes the chat service over HTTP/JSON and WebSocket.
package api

import (
	"fmt"
	"io/fs"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lewisedginton/mood_mate/internal/chat"
	"github.com/lewisedginton/mood_mate/internal/web"
	"github.com/lewisedginton/mood_mate/pkg/health"
	"github.com/lewisedginton/mood_mate/pkg/httpmiddleware"
	"github.com/lewisedginton/mood_mate/pkg/logger"
)

// Config wires an API.
type Config struct {
	Service *chat.Service
	Logger  logger.Logger
	// Health serves /health/live and /health/ready when set
	Health     *health.HealthChecker
	Middleware httpmiddleware.Config
	// CheckOrigin overrides the websocket same-origin check
	CheckOrigin func(r *http.Request) bool
}

// API is the root HTTP handler of the service.
type API struct {
	router   chi.Router
	chat     *chat.Service
	log      logger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	done    chan struct{}
	closed  bool
	sockets sync.WaitGroup
}

// New builds the router: middleware stack, JSON routes, websocket chat, probes and
// the embedded web client.
func New(config Config) (*API, error) {
	if config.Service == nil {
		return nil, fmt.Errorf("chat service is required")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	a := &API{
		router: chi.NewRouter(),
		chat:   config.Service,
		log:    config.Logger.WithFields(logger.StringField("component", "api")),
		done:   make(chan struct{}),
	}
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     config.CheckOrigin,
		Error: func(w http.ResponseWriter, _ *http.Request, status int, reason error) {
			writeJSON(w, status, errorResponse{Error: reason.Error()})
		},
	}

	httpmiddleware.ApplyToRouter(a.router, config.Middleware)

	a.router.NotFound(routeNotFound)
	a.router.MethodNotAllowed(routeNotFound)

	a.router.Route("/api", func(r chi.Router) {
		r.Post("/session/start", a.startSession)
		r.Get("/session/{sessionId}/history", a.sessionHistory)
		r.Post("/chat/message", a.sendMessage)
		r.Get("/chat/ws", a.chatSocket)
		r.Get("/analytics/mood", a.moodAnalytics)
		r.Get("/analytics/trends", a.moodTrends)
		r.Get("/health", a.serviceHealth)
	})

	if config.Health != nil {
		a.router.Get("/health/live", config.Health.LivenessHandler())
		a.router.Get("/health/ready", config.Health.ReadinessHandler())
	}

	if err := a.mountWebClient(); err != nil {
		return nil, err
	}
	return a, nil
}

// mountWebClient registers each embedded asset by name so unknown paths still reach
// the JSON not-found handler.
func (a *API) mountWebClient() error {
	files := web.Handler()
	entries, err := fs.ReadDir(web.Files(), ".")
	if err != nil {
		return fmt.Errorf("failed to list web client assets: %w", err)
	}
	a.router.Get("/", files.ServeHTTP)
	for _, e := range entries {
		if e.IsDir() || e.Name() == "index.html" {
			continue
		}
		a.router.Get("/"+e.Name(), files.ServeHTTP)
	}
	return nil
}

// Router exposes the chi router, e.g. to mount extra routes.
func (a *API) Router() chi.Router {
	return a.router
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// CloseSockets sends a close frame to every open websocket and waits for their
// handlers to return. http.Server.Shutdown does not track hijacked connections, so
// the server registers this with RegisterOnShutdown.
func (a *API) CloseSockets() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.done)
	}
	a.mu.Unlock()
	a.sockets.Wait()
}
