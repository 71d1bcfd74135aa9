package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/phiface/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/phiface/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/phiface/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/phiface/internal/domain"
	"github.com/saturnino-fabrica-de-software/phiface/internal/imagesrc"
	"github.com/saturnino-fabrica-de-software/phiface/internal/ws"
)

type Dependencies struct {
	Analyzer handler.Analyzer
	Sessions handler.SessionManager
	Models   handler.ModelStatus
	Hub      *ws.Hub
	// Usage is optional; /v1/usage answers USAGE_DISABLED without it.
	Usage    handler.UsageService
	Gatherer prometheus.Gatherer

	MaxImageBytes  int64
	MaxImagePixels int64
	RateLimitMax   int
	Version        string
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
	cancelHub   context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "phiface API",
		BodyLimit:    bodyLimit(deps),
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

// bodyLimit leaves room for multipart framing and base64 data URLs around the
// image itself.
func bodyLimit(deps *Dependencies) int {
	if deps == nil || deps.MaxImageBytes <= 0 {
		return fiber.DefaultBodyLimit
	}
	return int(deps.MaxImageBytes)*4/3 + 64<<10
}

func (r *Router) imageLimits() imagesrc.Limits {
	return imagesrc.Limits{MaxBytes: r.deps.MaxImageBytes, MaxPixels: r.deps.MaxImagePixels}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var models handler.ModelStatus
	if r.deps != nil {
		models = r.deps.Models
	}
	version := "dev"
	if r.deps != nil && r.deps.Version != "" {
		version = r.deps.Version
	}
	healthHandler := handler.NewHealthHandler(models, version)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	if r.deps.Gatherer != nil {
		r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(r.deps.Gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		})))
	}

	v1 := r.app.Group("/v1")

	// Rate limiting (per client IP), stricter on endpoints that run a detection
	r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Max:         r.deps.RateLimitMax,
		PerEndpoint: middleware.AnalysisRateLimits(),
	})
	v1.Use(r.rateLimiter.Handler())

	if r.deps.Analyzer != nil {
		analysisHandler := handler.NewAnalysisHandler(r.deps.Analyzer, r.imageLimits(), r.logger)
		v1.Post("/analyses", analysisHandler.Create)
	}

	if r.deps.Sessions != nil {
		r.setupSessionRoutes(v1)
	}

	if r.deps.Usage != nil {
		usageHandler := handler.NewUsageHandler(r.deps.Usage)
		v1.Get("/usage", usageHandler.GetUsage)
	} else {
		v1.Get("/usage", func(c *fiber.Ctx) error {
			return domain.ErrUsageDisabled
		})
	}
}

func (r *Router) setupSessionRoutes(v1 fiber.Router) {
	sessionHandler := handler.NewSessionHandler(r.deps.Sessions, r.imageLimits())

	sessions := v1.Group("/sessions")
	sessions.Post("/", sessionHandler.Create)
	sessions.Get("/:id", sessionHandler.Get)
	sessions.Delete("/:id", sessionHandler.Delete)
	sessions.Post("/:id/camera", sessionHandler.StartCamera)
	sessions.Post("/:id/camera/capture", sessionHandler.Capture)
	sessions.Delete("/:id/camera", sessionHandler.CancelCamera)
	sessions.Post("/:id/image", sessionHandler.LoadImage)
	sessions.Post("/:id/reset", sessionHandler.Reset)

	if r.deps.Hub != nil {
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.deps.Hub.Run(hubCtx)

		sessions.Get("/:id/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub, r.deps.Sessions))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop WebSocket hub
	if r.cancelHub != nil {
		r.cancelHub()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
