// Package server exposes review sessions over HTTP with fiber.
//
// Flow:
//  1. POST /api/sessions uploads a complaint export and opens a session
//  2. The reviewer filters, pages and records verdicts through the session
//  3. POST .../save flushes verdicts to the durable store
//  4. GET .../export downloads the colour-coded QC log
//
// Thread-safety:
//   - Sessions live in a mutex-guarded registry keyed by UUID
//   - Sessions idle longer than SESSION_TTL are dropped when a new one opens
//   - Each session has its own lock; handlers hold it for the whole request
package server

import (
	"errors"
	"sync"
	"time"

	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/config"
	qcerrors "github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/errors"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/health"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/ingest"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/photos"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/telegram"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Config   *config.Config
	Repo     verdict.Repository
	Reader   *ingest.Reader
	Monitor  *health.Monitor
	Telegram *telegram.Client // nil disables notifications
	Checker  *photos.Checker
	Logger   *zap.Logger
}

// Server is the review HTTP API.
type Server struct {
	cfg      *config.Config
	repo     verdict.Repository
	reader   *ingest.Reader
	monitor  *health.Monitor
	tg       *telegram.Client
	checker  *photos.Checker
	logger   *zap.Logger
	validate *validator.Validate
	sessions *registry
	app      *fiber.App

	notifications sync.WaitGroup // in-flight Telegram sends
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

// New builds the fiber app and registers every route.
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Monitor == nil {
		d.Monitor = health.NewMonitor()
	}
	if d.Reader == nil {
		d.Reader = ingest.NewReader(d.Config.HeaderScanRows, d.Config.FallbackHeaderRow, d.Logger)
	}
	if d.Checker == nil {
		d.Checker = photos.NewChecker(nil, d.Config.WorkerPoolSize, d.Logger)
	}

	s := &Server{
		cfg:      d.Config,
		repo:     d.Repo,
		reader:   d.Reader,
		monitor:  d.Monitor,
		tg:       d.Telegram,
		checker:  d.Checker,
		logger:   d.Logger,
		validate: newValidator(),
		sessions: newRegistry(d.Config.SessionTTL),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "qc-review",
		BodyLimit:             d.Config.MaxUploadMB * 1024 * 1024,
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	s.app.Use(s.requestLogger())

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)

	api := s.app.Group("/api")
	api.Get("/reasons", s.reasons)
	api.Post("/sessions", s.createSession)

	// Session routes run loadSession first, which holds the session lock.
	sess := api.Group("/sessions/:id")
	sess.Get("/options", s.loadSession, s.options)
	sess.Put("/filter", s.loadSession, s.setFilter)
	sess.Get("/page", s.loadSession, s.page)
	sess.Post("/page/next", s.loadSession, s.nextPage)
	sess.Post("/page/prev", s.loadSession, s.prevPage)
	sess.Put("/page/:n", s.loadSession, s.gotoPage)
	sess.Put("/verdicts", s.loadSession, s.setVerdict)
	sess.Get("/summary", s.loadSession, s.summary)
	sess.Get("/report.png", s.loadSession, s.report)
	sess.Post("/save", s.loadSession, s.save)
	sess.Get("/export", s.loadSession, s.export)
	sess.Get("/photos", s.loadSession, s.photos)
}

// App returns the fiber app, e.g. for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("✓ Review server started", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones, including
// pending Telegram notifications.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	s.notifications.Wait()
	return err
}

// handleError maps typed errors to HTTP status codes.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	resp := ErrorResponse{Error: err.Error()}
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	var ve *qcerrors.ValidationError
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &ve):
		code = fiber.StatusUnprocessableEntity
		resp.Missing = ve.Missing
	case qcerrors.IsIngestion(err):
		code = fiber.StatusUnprocessableEntity
	case qcerrors.IsPersistence(err):
		code = fiber.StatusInternalServerError
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("❌ Request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(resp)
}

// requestLogger logs one line per request, skipping /health.
func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if c.Path() == "/health" {
			return err
		}

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		s.logger.Debug("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)))
		return err
	}
}
