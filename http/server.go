// http/server.go
package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/ViniZap4/notes-server/auth"
	"github.com/ViniZap4/notes-server/domain"
	"github.com/ViniZap4/notes-server/repository"
	"github.com/ViniZap4/notes-server/ws"
)

type Server struct {
	repo *repository.Repository
	hub  *ws.Hub
	auth *auth.Authenticator
	log  zerolog.Logger
	app  *fiber.App
}

func NewServer(repo *repository.Repository, hub *ws.Hub, authn *auth.Authenticator, log zerolog.Logger) *Server {
	s := &Server{repo: repo, hub: hub, auth: authn, log: log.With().Str("component", "http").Logger()}

	s.app = fiber.New(fiber.Config{
		AppName:               "notes",
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
	})
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + auth.TokenHeader,
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	s.app.Use(s.logRequests)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Post("/api/login", s.handleLogin)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}, s.auth.Middleware())
	s.app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		s.hub.HandleConnection(conn)
	}))

	api := s.app.Group("/api", s.auth.Middleware())

	api.Get("/tree", s.handleRootTree)

	folders := api.Group("/folders")
	folders.Get("/", s.handleListFolders)
	folders.Post("/", s.handleCreateFolder)
	folders.Get("/all", s.handleAllFolders)
	folders.Get("/:id", s.handleGetFolder)
	folders.Put("/:id", s.handleUpdateFolder)
	folders.Delete("/:id", s.handleDeleteFolder)
	folders.Post("/:id/rename", s.handleRenameFolder)
	folders.Post("/:id/move", s.handleMoveFolder)
	folders.Get("/:id/move-targets", s.handleMoveTargets)
	folders.Post("/:id/copy", s.handleCopyFolder)
	folders.Post("/:id/recover", s.handleRecoverFolder)
	folders.Delete("/:id/purge", s.handlePurgeFolder)
	folders.Get("/:id/tree", s.handleFolderTree)
	folders.Get("/:id/notes", s.handleFolderNotes)

	notes := api.Group("/notes")
	notes.Get("/", s.handleListNotes)
	notes.Post("/", s.handleCreateNote)
	notes.Get("/:id", s.handleGetNote)
	notes.Put("/:id", s.handleUpdateNote)
	notes.Delete("/:id", s.handleDeleteNote)
	notes.Post("/:id/pin", s.handleTogglePin)
	notes.Post("/:id/move", s.handleMoveNote)
	notes.Post("/:id/copy", s.handleCopyNote)
	notes.Post("/:id/recover", s.handleRecoverNote)
	notes.Delete("/:id/purge", s.handlePurgeNote)

	api.Get("/trash", s.handleTrash)
	api.Delete("/trash", s.handleEmptyTrash)
	api.Post("/copies/discard", s.handleDiscardCopy)
	api.Get("/search", s.handleSearch)
	api.Get("/preferences", s.handleGetPreferences)
	api.Put("/preferences", s.handlePutPreferences)
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.log.Info().Str("addr", addr).Msg("server starting")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

type errorBody struct {
	Error   string             `json:"error"`
	Kind    string             `json:"kind,omitempty"`
	Partial *domain.CopyResult `json:"partial,omitempty"`
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindInvalidTarget:
		return fiber.StatusUnprocessableEntity
	case domain.KindInvalidState:
		return fiber.StatusConflict
	case domain.KindInvalidInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorBody{Error: fe.Message})
	}

	kind := domain.KindOf(err)
	body := errorBody{Error: err.Error(), Kind: kind.String()}
	if pe, ok := repository.IsPartialCopy(err); ok {
		body.Partial = &pe.Partial
	}
	status := statusFor(kind)
	if status >= fiber.StatusInternalServerError {
		s.log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(body)
}

// logRequests writes one line per request. Errors are rendered here so the
// logged status is the one the client sees.
func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if herr := s.handleError(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	evt := s.log.Debug()
	if status >= fiber.StatusInternalServerError {
		evt = s.log.Warn()
	}
	evt.Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("request")
	return nil
}
