package server

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/ai"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/leads"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/notify"
	"github.com/pantechsoftware2/Scholarship-Finder/internal/scholarship"
)

const serviceName = "Scholarship Finder API"

// DevOrigins are always allowed by CORS for local frontend development.
var DevOrigins = []string{"http://localhost:3000", "http://localhost:3001"}

// LeadPersister stores a submitted lead.
type LeadPersister interface {
	Persist(ctx context.Context, lead scholarship.Lead) leads.PersistOutcome
}

// Scheduler queues a notification without waiting for it.
type Scheduler interface {
	Schedule(job notify.Job) bool
}

// Config holds the HTTP surface settings.
type Config struct {
	FrontendURL  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server sequences match generation, lead persistence and notifications
// behind a JSON API.
type Server struct {
	app      *fiber.App
	matcher  ai.Matcher
	store    LeadPersister
	notifier Scheduler
	logger   *zap.Logger
}

func New(matcher ai.Matcher, store LeadPersister, notifier Scheduler, cfg Config, logger *zap.Logger) (*Server, error) {
	if matcher == nil {
		return nil, errors.New("matcher is required")
	}
	if store == nil {
		return nil, errors.New("lead store is required")
	}
	if notifier == nil {
		return nil, errors.New("notification scheduler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		matcher:  matcher,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          errorHandler(logger),
	})

	s.app.Use(requestLogger(logger))
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOrigins(cfg.FrontendURL, logger), ","),
		AllowCredentials: true,
	}))

	s.routes()

	return s, nil
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api")
	api.Post("/calculate-scholarships", failureDetail("Unable to calculate scholarships at this time."), s.calculate)
	api.Post("/submit-lead", failureDetail("Unable to submit lead at this time."), s.submitLead)
	api.Post("/send-email", failureDetail("Unable to send email"), s.sendEmail)
}

// App exposes the fiber application, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("server starting", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			var validation *ValidationError
			switch {
			case errors.As(err, &validation):
				status = fiber.StatusBadRequest
			case errors.As(err, &fiberErr):
				status = fiberErr.Code
			}
		}

		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(started)),
			zap.String("ip", c.IP()),
		)

		return err
	}
}

// allowedOrigins keeps the dev origins plus the configured frontend URL when
// it is a valid http(s) origin.
func allowedOrigins(frontendURL string, logger *zap.Logger) []string {
	origins := append([]string{}, DevOrigins...)

	frontendURL = strings.TrimSpace(frontendURL)
	if frontendURL == "" {
		return origins
	}

	u, err := url.Parse(frontendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		logger.Warn("ignoring invalid frontend url for cors", zap.String("frontend_url", frontendURL))
		return origins
	}

	origin := u.Scheme + "://" + u.Host
	for _, o := range origins {
		if o == origin {
			return origins
		}
	}

	return append(origins, origin)
}
