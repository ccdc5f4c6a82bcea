// Package server exposes the decision gateway's HTTP surface (spec.md §6.1):
// the decision endpoint, history and plan lookups, liveness, and Prometheus
// exposition, following the teacher's gin + fx wiring in
// internal/server/server.go.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/geraldco/bnpl-decision-gateway/internal/config"
	decisiondomain "github.com/geraldco/bnpl-decision-gateway/internal/decision/domain"
)

// Module wires the HTTP server into the fx graph.
var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

// Server holds the dependencies the route handlers need.
type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	decisionSvc decisiondomain.Service
	log        *zap.Logger
}

// NewServer registers routes against the engine and returns the Server.
func NewServer(r *gin.Engine, cfg config.Config, decisionSvc decisiondomain.Service, log *zap.Logger) *Server {
	s := &Server{
		engine:      r,
		cfg:         cfg,
		decisionSvc: decisionSvc,
		log:         log.Named("server"),
	}
	s.registerRoutes()
	return s
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

// NewEngine builds the gin engine with the teacher's middleware ordering:
// recovery, request logging, error mapping, then routes.
func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(RequestIDMiddleware())
	v1.POST("/decision", s.handleDecide)
	v1.GET("/decision/history", s.handleHistory)
	v1.GET("/plan/:plan_id", s.handleGetPlan)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
