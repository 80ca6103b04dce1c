// Package httpapi exposes the agent turn and the execution controls over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"browser-agent/internal/application/port/input"
	"browser-agent/internal/application/port/output"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
)

const requestTimeout = 120 * time.Second

type Handlers struct {
	turns     input.TurnHandler
	execution input.ExecutionController
	inspector output.PageInspector
	logger    output.LoggerPort
}

// NewHandlers wires the routes. inspector may be nil when no page lives in
// this process.
func NewHandlers(turns input.TurnHandler, execution input.ExecutionController, inspector output.PageInspector, logger output.LoggerPort) *Handlers {
	return &Handlers{
		turns:     turns,
		execution: execution,
		inspector: inspector,
		logger:    logger.WithField("component", "httpapi"),
	}
}

type RouterConfig struct {
	AccessLog bool
	LogLevel  string
	LogJSON   bool
}

func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.AccessLog {
		r.Use(httplog.RequestLogger(httplog.NewLogger("browser-agent", httplog.Options{
			LogLevel: cfg.LogLevel,
			JSON:     cfg.LogJSON,
			Concise:  true,
		})))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	h.RegisterRoutes(r)
	return r
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.HandleHealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/agent/message", h.HandleMessage)
		r.Post("/agent/feedback", h.HandleFeedback)

		r.Post("/execution/start", h.HandleStart)
		r.Post("/execution/stop", h.HandleStop)
		r.Get("/execution/status", h.HandleStatus)

		r.Get("/sessions/{sessionID}/conversations", h.HandleConversations)
		r.Get("/page/snapshot", h.HandleSnapshot)
	})
}
