// internal/api/v2/middleware.go
package api

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/tphakala/helmetwatch/internal/errors"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// Idempotency-Key handling
const (
	HeaderIdempotencyKey    = "Idempotency-Key"
	HeaderIdempotentReplay  = "Idempotent-Replayed"
	maxIdempotencyKeyLength = 128

	// pendingIdempotencyTTL bounds how long an unfinished request holds its key
	pendingIdempotencyTTL = 30 * time.Second
)

// rateLimiterExpiry drops per-client limiter state after this much inactivity
const rateLimiterExpiry = 3 * time.Minute

// RequestIDMiddleware assigns an X-Request-ID to every request that lacks one
func (c *Controller) RequestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return uuid.New().String()
		},
	})
}

// LoggingMiddleware logs API requests and records HTTP metrics by route pattern
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			req := ctx.Request()
			status := ctx.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			latency := time.Since(start)

			// route pattern keeps label cardinality bounded
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}

			if c.metrics != nil {
				c.metrics.RecordRequest(req.Method, route, status, latency)
				if status >= http.StatusBadRequest {
					c.metrics.RecordError(req.Method, route, kindForStatus(status))
				}
			}

			fields := []logger.Field{
				logger.String("request_id", ctx.Response().Header().Get(echo.HeaderXRequestID)),
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.String("query", req.URL.RawQuery),
				logger.Int("status", status),
				logger.String("ip", ctx.RealIP()),
				logger.Int64("latency_ms", latency.Milliseconds()),
			}
			if err != nil {
				fields = append(fields, logger.Error(err))
			}
			c.logger.Info("API request", fields...)

			return err
		}
	}
}

// RateLimiterMiddleware limits requests per client IP
func (c *Controller) RateLimiterMiddleware() echo.MiddlewareFunc {
	burst := c.Settings.WebServer.RateBurst
	if burst < 1 {
		burst = int(c.Settings.WebServer.RateLimit) + 1
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(c.Settings.WebServer.RateLimit),
				Burst:     burst,
				ExpiresIn: rateLimiterExpiry,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return c.HandleError(ctx, err, "Unable to identify client", http.StatusForbidden)
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return c.HandleError(ctx, err, "Too many requests, please slow down", http.StatusTooManyRequests)
		},
	})
}

// idempotentResponse is a stored response, or a marker while the first
// request with a key is still running. fingerprint is the SHA-256 of the
// request body the key was first used with.
type idempotentResponse struct {
	pending     bool
	fingerprint [sha256.Size]byte
	status      int
	contentType string
	body        []byte
}

// IdempotencyMiddleware replays the stored response for a repeated
// Idempotency-Key. Only successful responses are stored; a failed request
// may be retried with the same key. Reusing a key with a different body is
// rejected with 422.
func (c *Controller) IdempotencyMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			key := ctx.Request().Header.Get(HeaderIdempotencyKey)
			if key == "" {
				return next(ctx)
			}
			if len(key) > maxIdempotencyKeyLength {
				return c.HandleError(ctx, nil, "Idempotency-Key is too long", http.StatusBadRequest)
			}

			fingerprint, err := fingerprintBody(ctx.Request())
			if err != nil {
				code := http.StatusBadRequest
				var httpErr *echo.HTTPError
				if errors.As(err, &httpErr) {
					code = httpErr.Code
				}
				return c.HandleError(ctx, err, "Failed to read request body", code)
			}

			cacheKey := ctx.Request().Method + " " + ctx.Path() + " " + key
			marker := &idempotentResponse{pending: true, fingerprint: fingerprint}

			if err := c.idempotency.Add(cacheKey, marker, pendingIdempotencyTTL); err != nil {
				return c.replayIdempotent(ctx, cacheKey, fingerprint, next)
			}

			// released unless a successful response replaces it, also when
			// the handler panics
			stored := false
			defer func() {
				if !stored {
					c.idempotency.Delete(cacheKey)
				}
			}()

			rec := &bodyRecorder{ResponseWriter: ctx.Response().Writer}
			ctx.Response().Writer = rec

			err = next(ctx)

			status := ctx.Response().Status
			if err == nil && status >= http.StatusOK && status < http.StatusMultipleChoices {
				c.idempotency.SetDefault(cacheKey, &idempotentResponse{
					fingerprint: fingerprint,
					status:      status,
					contentType: ctx.Response().Header().Get(echo.HeaderContentType),
					body:        rec.buf.Bytes(),
				})
				stored = true
			}
			return err
		}
	}
}

// replayIdempotent answers a request whose key is already taken
func (c *Controller) replayIdempotent(ctx echo.Context, cacheKey string, fingerprint [sha256.Size]byte, next echo.HandlerFunc) error {
	stored, ok := c.idempotency.Get(cacheKey)
	if !ok {
		// expired between Add and Get
		return next(ctx)
	}
	resp, _ := stored.(*idempotentResponse)
	switch {
	case resp == nil:
		return c.HandleError(ctx, nil, "A request with this Idempotency-Key is in progress", http.StatusConflict)
	case resp.fingerprint != fingerprint:
		return c.HandleError(ctx, nil, "Idempotency-Key was already used with a different request body", http.StatusUnprocessableEntity)
	case resp.pending:
		return c.HandleError(ctx, nil, "A request with this Idempotency-Key is in progress", http.StatusConflict)
	}
	ctx.Response().Header().Set(HeaderIdempotentReplay, "true")
	return ctx.Blob(resp.status, resp.contentType, resp.body)
}

// fingerprintBody hashes the request body and puts it back for the handler
func fingerprintBody(req *http.Request) ([sha256.Size]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return sha256.Sum256(nil), nil
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	return sha256.Sum256(body), nil
}

// bodyRecorder copies the response body while it is written
type bodyRecorder struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *bodyRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}
