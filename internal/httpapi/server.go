// Package httpapi exposes the registration, login and payment endpoints
// over HTTP using gin.
package httpapi

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mihaimyh/paygate/pkg/account"
	"github.com/mihaimyh/paygate/pkg/entitlement"
)

// Config holds dependencies and settings for the HTTP server.
type Config struct {
	// Accounts handles registration and authentication (required).
	Accounts *account.Service

	// Coordinator handles payment intents and confirmations (required).
	Coordinator *entitlement.Coordinator

	// FrontendURL is the allowed CORS origin (required).
	FrontendURL string

	// AdminToken protects POST /mark-as-paid. When empty the route is not
	// registered.
	AdminToken string

	// Logger is used for request logging.
	Logger zerolog.Logger

	// Registry serves GET /metrics when set.
	Registry *prometheus.Registry
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Accounts == nil {
		return fmt.Errorf("account service is required")
	}
	if c.Coordinator == nil {
		return fmt.Errorf("entitlement coordinator is required")
	}
	if c.FrontendURL == "" {
		return fmt.Errorf("frontend URL is required")
	}
	return nil
}

// Server is the HTTP API server.
type Server struct {
	config Config
	router *gin.Engine
}

// NewServer builds the router with all middleware and routes registered.
func NewServer(config Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(config.Logger))
	router.Use(CORSMiddleware(config.FrontendURL))

	s := &Server{config: config, router: router}

	router.GET("/health", s.handleHealth)
	if config.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(config.Registry, promhttp.HandlerOpts{})))
	}

	router.POST("/register", s.handleRegister)
	router.POST("/login", s.handleLogin)
	router.POST("/create-payment-preference", s.handleCreatePreference)
	router.POST("/payment-webhook", gin.WrapH(config.Coordinator.WebhookHandler()))
	router.POST("/confirm-payment", s.handleConfirmPayment)

	if config.AdminToken != "" {
		router.POST("/mark-as-paid", adminTokenMiddleware(config.AdminToken), s.handleMarkAsPaid)
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() *gin.Engine {
	return s.router
}
