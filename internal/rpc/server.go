// Package rpc serves typed procedures as POST /rpc/<app>.<procedure> over gin.
//
// A procedure is a plain Go function taking a context and a pointer to its
// input struct. Register wraps it with JSON decoding, validation through gin's
// validator (`binding` tags), error rendering and metrics.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/marshallshelly/pebble-apps/internal/apperr"
	"github.com/marshallshelly/pebble-apps/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
)

const maxBodyBytes = 1 << 20

// Context keys set on the gin.Context for middleware.
const (
	requestIDKey = "request_id"
	procedureKey = "procedure"
	codeKey      = "rpc_code"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Logger      *slog.Logger
	CORSOrigins []string
	// Health is checked by GET /healthz. nil always reports ok.
	Health Pinger
	// Registry receives the RPC metrics. A fresh registry is created when nil.
	Registry *prometheus.Registry
}

// Server routes RPC calls to registered procedures.
type Server struct {
	engine  *gin.Engine
	logger  *slog.Logger
	procs   map[string]*procedure
	metrics *metrics
	health  Pinger
}

type procedure struct {
	name string
	// decode binds and validates the body into a fresh input.
	decode func(body []byte) (any, error)
	call   func(ctx context.Context, in any) (any, error)
	limit  *ratelimit.Limiter
	window time.Duration
}

// Option configures one procedure.
type Option func(*procedure)

// WithRateLimit allows one successful call per client address per window.
// The window is claimed after the input validates and released when the call fails.
func WithRateLimit(limiter *ratelimit.Limiter, window time.Duration) Option {
	return func(p *procedure) {
		p.limit = limiter
		p.window = window
	}
}

// NewServer creates a server with the standard middleware and routes.
func NewServer(opts Options) *Server {
	configureValidator()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		engine:  gin.New(),
		logger:  logger,
		procs:   make(map[string]*procedure),
		metrics: newMetrics(registry),
		health:  opts.Health,
	}

	s.engine.Use(requestID())
	s.engine.Use(accessLog(logger))
	if len(opts.CORSOrigins) > 0 {
		s.engine.Use(corsMiddleware(opts.CORSOrigins))
	}
	s.engine.Use(s.metrics.middleware())
	s.engine.Use(gin.CustomRecovery(s.recover))

	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.handler()))
	s.engine.GET("/rpc", s.list)
	s.engine.Any("/rpc/:procedure", s.dispatch)
	s.engine.NoRoute(func(c *gin.Context) {
		s.writeError(c, &apperr.Error{Kind: apperr.KindNotFound, Message: fmt.Sprintf("no route for %s", c.Request.URL.Path)})
	})
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Procedures returns the registered procedure names, sorted.
func (s *Server) Procedures() []string {
	names := make([]string, 0, len(s.procs))
	for name := range s.procs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Register exposes fn as procedure name, e.g. "gym.createBooking".
// It panics when name is registered twice.
func Register[In, Out any](s *Server, name string, fn func(ctx context.Context, in *In) (Out, error), opts ...Option) {
	if _, dup := s.procs[name]; dup {
		panic(fmt.Sprintf("rpc: procedure %q registered twice", name))
	}
	p := &procedure{name: name}
	p.decode = func(body []byte) (any, error) {
		in := new(In)
		if err := bind(body, in); err != nil {
			return nil, err
		}
		return in, nil
	}
	p.call = func(ctx context.Context, in any) (any, error) {
		return fn(ctx, in.(*In))
	}
	for _, opt := range opts {
		opt(p)
	}
	s.procs[name] = p
}

func (s *Server) dispatch(c *gin.Context) {
	name := c.Param("procedure")
	p, registered := s.procs[name]
	if registered {
		c.Set(procedureKey, name)
	}

	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		c.Set(codeKey, "method_not_allowed")
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, errorBody{Error: errorDetail{
			Code:    "method_not_allowed",
			Message: fmt.Sprintf("%s is not allowed, use POST", c.Request.Method),
		}})
		return
	}

	if !registered {
		s.writeError(c, &apperr.Error{Kind: apperr.KindNotFound, Message: fmt.Sprintf("unknown procedure %q", name)})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(c, apperr.Validation("request body exceeds %d bytes", maxBodyBytes))
			return
		}
		s.writeError(c, apperr.Validation("failed to read request body"))
		return
	}

	in, err := p.decode(body)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	limitKey := name + ":" + c.ClientIP()
	claimed := false
	if p.limit.Enabled() {
		allowed, retryAfter, err := p.limit.Allow(ctx, limitKey, p.window)
		switch {
		case err != nil:
			s.logger.Warn("Rate limit check failed, allowing call",
				slog.String("procedure", name),
				slog.String("error", err.Error()))
		case !allowed:
			s.writeError(c, apperr.RateLimited(retryAfter, "too many %s calls, retry in %ds", name, retrySeconds(retryAfter)))
			return
		default:
			claimed = true
		}
	}

	out, err := p.call(ctx, in)
	if err != nil {
		if claimed {
			if resetErr := p.limit.Reset(context.WithoutCancel(ctx), limitKey); resetErr != nil {
				s.logger.Warn("Failed to release rate limit window",
					slog.String("procedure", name),
					slog.String("error", resetErr.Error()))
			}
		}
		s.writeError(c, err)
		return
	}
	c.Set(codeKey, "ok")
	c.JSON(http.StatusOK, out)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError renders err. Unexpected errors are logged and passed through unchanged.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		s.logger.Error("RPC call failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("error", err.Error()))
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(retrySeconds(appErr.RetryAfter)))
	}

	c.Set(codeKey, string(kind))
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), errorBody{Error: errorDetail{
		Code:    string(kind),
		Message: err.Error(),
	}})
}

func (s *Server) recover(c *gin.Context, recovered any) {
	s.writeError(c, fmt.Errorf("panic: %v", recovered))
}

func (s *Server) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"procedures": s.Procedures()})
}

func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func retrySeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
