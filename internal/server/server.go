package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/checkout/internal/checkout"
	"github.com/tournevent/checkout/internal/graphql"
	"github.com/tournevent/checkout/internal/telemetry"
	"github.com/tournevent/checkout/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Server is the HTTP server for the checkout shipping service.
type Server struct {
	cfg      Config
	service  graphql.OptionsService
	resolver *graphql.Resolver
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
}

// Config holds server configuration.
type Config struct {
	Port        int
	ServiceName string
}

// New creates a new server instance. gatherer backs GET /metrics and may be nil,
// in which case the default Prometheus registry is served.
func New(cfg Config, service graphql.OptionsService, logger *otelzap.Logger, metrics *telemetry.Metrics, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "checkout-shipping"
	}

	return &Server{
		cfg:      cfg,
		service:  service,
		resolver: graphql.NewResolver(service, logger, metrics),
		logger:   logger,
		metrics:  metrics,
		gatherer: gatherer,
	}
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(s.cfg.ServiceName))
	router.Use(s.requestID())
	router.Use(s.observe())

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	router.POST("/shipping-options", s.handleShippingOptions)
	router.POST("/graphql", s.handleGraphQL)

	return router
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)

		s.metrics.RecordRequest(route, strconv.Itoa(status), duration)
		s.logger.Ctx(c.Request.Context()).Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleShippingOptions(c *gin.Context) {
	ctx := c.Request.Context()

	var body checkout.RequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, fmt.Errorf("%w: invalid JSON body: %v", shipper.ErrRequestMalformed, err))
		return
	}

	req, err := body.ToRequest()
	if err != nil {
		s.fail(c, err)
		return
	}

	groups, err := s.service.GetShippingOptions(ctx, req)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, checkout.NewResponse(groups, nil))
}

// fail writes the failure shape: 400 for malformed requests, 500 otherwise.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, shipper.ErrRequestMalformed) {
		status = http.StatusBadRequest
	}

	log := s.logger.Ctx(c.Request.Context())
	fields := []zap.Field{zap.Error(err), zap.String("request_id", c.GetString("request_id"))}
	if status == http.StatusBadRequest {
		log.Info("Rejected shipping options request", fields...)
	} else {
		log.Error("Shipping options request failed", fields...)
	}

	c.JSON(status, checkout.NewResponse(nil, err))
}

func (s *Server) handleGraphQL(c *gin.Context) {
	var req graphql.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, graphql.Response{
			Errors: []graphql.Error{{Message: "Invalid JSON: " + err.Error()}},
		})
		return
	}

	resp, err := s.resolver.Execute(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, graphql.Response{
			Errors: []graphql.Error{{Message: err.Error()}},
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}
