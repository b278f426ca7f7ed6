// Package status exposes a read-only HTTP view of a running session.
package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/usbtotal/internal/auth"
	"github.com/danmuck/usbtotal/internal/logging"
	"github.com/danmuck/usbtotal/internal/observability"
	"github.com/danmuck/usbtotal/internal/protocol"
	"github.com/danmuck/usbtotal/internal/protocol/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const version = "0.2.0"

type ProgressFunc func() session.Progress

// Option customizes a Server.
type Option func(*Server)

// WithToken requires a bearer token on /status and /metrics. An empty token
// leaves them open.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

type Server struct {
	Addr    string
	Started time.Time

	token    string
	progress ProgressFunc
	router   *gin.Engine
	http     *http.Server
	log      zerolog.Logger
}

func New(addr string, corsOrigins []string, progress ProgressFunc, opts ...Option) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	logger := logging.Component("status")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	if progress == nil {
		progress = func() session.Progress {
			return session.Progress{State: protocol.StateIdle, Index: -1}
		}
	}
	s := &Server{
		Addr:     addr,
		Started:  time.Now(),
		progress: progress,
		router:   r,
		log:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.http = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"service": "usbtotal",
			"version": version,
		})
	})

	// ready once a peer has been found and the session has not failed
	s.router.GET("/ready", func(c *gin.Context) {
		p := s.progress()
		ready := p.State != protocol.StateIdle && p.State != protocol.StateFailed
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"ready": ready,
			"state": p.State,
		})
	})

	guarded := s.router.Group("/")
	if s.token != "" {
		guarded.Use(auth.Require(auth.StaticToken{Token: s.token}))
	}
	guarded.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.progress())
	})
	guarded.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve listens on Addr and blocks until Shutdown.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ln)
}

func (s *Server) ServeListener(ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("status server listening")
	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
