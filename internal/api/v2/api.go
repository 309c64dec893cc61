// internal/api/v2/api.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/bytes"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/helmetwatch/internal/conf"
	"github.com/tphakala/helmetwatch/internal/coordinator"
	"github.com/tphakala/helmetwatch/internal/logger"
	"github.com/tphakala/helmetwatch/internal/monitor"
	"github.com/tphakala/helmetwatch/internal/observability/metrics"
)

// Defaults used when the webserver section leaves a value unset
const (
	defaultBodyLimit      = "1M"
	defaultIdempotencyTTL = 10 * time.Minute
	healthCheckTimeout    = 2 * time.Second
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HostMonitor reports host resource usage for the health endpoint.
type HostMonitor interface {
	Snapshot(ctx context.Context) (monitor.Snapshot, error)
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Core     *coordinator.Coordinator
	Settings *conf.Settings

	logger  logger.Logger
	metrics *metrics.HTTPMetrics
	db      Pinger
	host    HostMonitor

	idempotency *cache.Cache // replayed responses keyed by Idempotency-Key
	startTime   time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger sets the logger used for request and error logging.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records request counters and latencies.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithDatabase enables the database ping in the health endpoint.
func WithDatabase(p Pinger) Option {
	return func(c *Controller) {
		c.db = p
	}
}

// WithHostMonitor adds host resource usage to the health endpoint.
func WithHostMonitor(h HostMonitor) Option {
	return func(c *Controller) {
		c.host = h
	}
}

// New creates the API controller and registers all /api/v2 routes on e.
func New(e *echo.Echo, core *coordinator.Coordinator, settings *conf.Settings, opts ...Option) (*Controller, error) {
	if core == nil {
		return nil, fmt.Errorf("api controller requires a coordinator")
	}
	if settings == nil {
		return nil, fmt.Errorf("api controller requires settings")
	}

	bodyLimit := settings.WebServer.BodyLimit
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}
	if _, err := bytes.Parse(bodyLimit); err != nil {
		return nil, fmt.Errorf("invalid webserver.bodylimit %q: %w", bodyLimit, err)
	}

	ttl := settings.WebServer.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}

	c := &Controller{
		Echo:        e,
		Core:        core,
		Settings:    settings,
		logger:      logger.Global().Module("api"),
		idempotency: cache.New(ttl, 2*ttl),
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	e.IPExtractor = echo.ExtractIPFromXFFHeader()

	c.Group = e.Group("/api/v2")

	// Recover should be early
	c.Group.Use(middleware.Recover())
	c.Group.Use(c.RequestIDMiddleware())
	c.Group.Use(c.LoggingMiddleware())
	c.Group.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins(settings.WebServer.AllowOrigins),
	}))
	c.Group.Use(middleware.BodyLimit(bodyLimit))
	if settings.WebServer.RateLimit > 0 {
		c.Group.Use(c.RateLimiterMiddleware())
	}

	c.initRoutes()

	return c, nil
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initSystemRoutes()
	c.initControlRoutes()
	c.initViolationRoutes()

	c.logger.Debug("API routes initialized", logger.Int("routes", len(c.Echo.Routes())))
}

// HealthResponse is the body of GET /api/v2/health
type HealthResponse struct {
	Status   string            `json:"status"`
	Database string            `json:"database"`
	Uptime   string            `json:"uptime"`
	Host     *monitor.Snapshot `json:"host,omitempty"`
}

// HealthCheck handles GET /api/v2/health
func (c *Controller) HealthCheck(ctx echo.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx.Request().Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:   "healthy",
		Database: "unchecked",
		Uptime:   time.Since(c.startTime).Truncate(time.Second).String(),
	}

	code := http.StatusOK
	if c.db != nil {
		if err := c.db.Ping(reqCtx); err != nil {
			c.logger.Warn("health check database ping failed", logger.Error(err))
			resp.Status = "unhealthy"
			resp.Database = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	if c.host != nil {
		snapshot, err := c.host.Snapshot(reqCtx)
		if err != nil {
			c.logger.Debug("host snapshot unavailable", logger.Error(err))
		} else {
			resp.Host = &snapshot
		}
	}

	return ctx.JSON(code, resp)
}

func allowOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
