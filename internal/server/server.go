// Package server exposes the engine over HTTP. The surface is small and
// local-first: one agent, one open document, routes for chat, action review,
// sessions, and provider settings.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/yacchin1205/jupyter-mynerva/internal/agent"
	"github.com/yacchin1205/jupyter-mynerva/internal/session"
	"github.com/yacchin1205/jupyter-mynerva/internal/settings"
)

// Deps carries everything the routes need.
type Deps struct {
	Agent    *agent.Agent
	Sessions *session.Store
	Settings *settings.Store
	Logger   *zap.Logger
}

// Server wraps the fiber app.
type Server struct {
	app  *fiber.App
	deps Deps
	log  *zap.Logger
}

// New builds the app and registers every route under /mynerva.
func New(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:      "mynerva",
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New())
	app.Use(cors.New())

	s := &Server{app: app, deps: deps, log: log}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.app.Group("/mynerva")

	r.Get("/providers", s.getProviders)
	r.Get("/config", s.getConfig)
	r.Post("/config", s.postConfig)

	r.Post("/chat", s.postChat)
	r.Post("/chat/cancel", s.postCancel)
	r.Post("/chat/continue", s.postContinue)

	r.Get("/actions", s.getActions)
	r.Post("/actions/accept-all", s.postAcceptAll)
	r.Post("/actions/reject-all", s.postRejectAll)
	r.Post("/actions/:id/approve", s.postApprove)
	r.Post("/actions/:id/reject", s.postReject)

	r.Post("/redaction", s.postRedaction)

	r.Get("/sessions", s.listSessions)
	r.Post("/sessions", s.createSession)
	r.Post("/sessions/:id/load", s.loadSession)
	r.Delete("/sessions/:id", s.deleteSession)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving on addr.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// errorHandler maps the engine's sentinel errors onto statuses and keeps the
// body shape uniform.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, agent.ErrBusy), errors.Is(err, agent.ErrAwaitingReview), errors.Is(err, agent.ErrBatchUndecided):
			code = fiber.StatusConflict
		case errors.Is(err, agent.ErrNothingPending), errors.Is(err, session.ErrNotFound):
			code = fiber.StatusNotFound
		case errors.Is(err, settings.ErrSecretKeyRequired):
			code = fiber.StatusPreconditionFailed
		default:
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
		}
		if code >= 500 {
			log.Error("request failed", zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
