package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jmehdipour/event-stream/internal/config"
	"github.com/jmehdipour/event-stream/internal/http/middleware"
	"github.com/jmehdipour/event-stream/internal/metrics"
	"github.com/jmehdipour/event-stream/internal/stream"
)

type Server struct{ e *echo.Echo }

// NewServer wires the thin HTTP surface over the event stream facade. All
// hard behavior (idempotency, dependencies, broadcast) lives in the facade;
// handlers only translate requests and error kinds.
func NewServer(cfg config.Config, st *stream.Stream, rds *redis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(cfg.Auth.Keys)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:sender:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/events", dispatchHandler(st))
	v1.PATCH("/events/:id", updateHandler(st))
	v1.GET("/events/:id", getHandler(st))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
