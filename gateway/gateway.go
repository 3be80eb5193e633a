package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/meshforge/meshkit/auth"
	"github.com/meshforge/meshkit/gateway/middleware"
	"github.com/meshforge/meshkit/logger"
	"github.com/meshforge/meshkit/mesh"
	"github.com/meshforge/meshkit/registry"
)

// publicPaths bypass authentication on the gateway.
var publicPaths = []string{"/health", "/services"}

// Gateway is the API gateway server.
type Gateway struct {
	httpServer *http.Server
	engine     *gin.Engine
	cfg        Config

	registry *registry.Registry
	mesh     *mesh.Client
	tokens   *auth.Service
	log      *logger.Logger
}

// New creates a gateway. The middleware order is fixed: recovery, request id,
// auth, logging, cors, rate limit.
func New(cfg Config, reg *registry.Registry, meshClient *mesh.Client, log *logger.Logger) (*Gateway, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	tokens, err := auth.NewService(&cfg.Auth)
	if err != nil {
		return nil, err
	}

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	g := &Gateway{
		engine:   engine,
		cfg:      cfg,
		registry: reg,
		mesh:     meshClient,
		tokens:   tokens,
		log:      log.WithComponent("gateway"),
	}

	engine.Use(middleware.Recovery(g.log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Auth(middleware.AuthConfig{
		TokenValidator: tokens.ValidatorFunc(),
		SkipPaths:      publicPaths,
	}))
	engine.Use(middleware.RequestLogger(g.log))
	engine.Use(middleware.CORS(cfg.CORS))
	engine.Use(middleware.RateLimit(cfg.RateLimit))

	g.registerRoutes()

	// h2c lets HTTP/2 clients reach the gateway without TLS.
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	}
	g.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h2c.NewHandler(engine, h2s),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return g, nil
}

// Engine returns the underlying Gin engine.
func (g *Gateway) Engine() *gin.Engine {
	return g.engine
}

// Tokens returns the gateway's token service.
func (g *Gateway) Tokens() *auth.Service {
	return g.tokens
}

// Addr returns the configured listen address.
func (g *Gateway) Addr() string {
	return g.httpServer.Addr
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (g *Gateway) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", g.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("gateway failed to bind %s: %w", g.httpServer.Addr, err)
	}

	go func() {
		if err := g.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			g.log.Error("gateway server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	g.log.Info("gateway started", logger.Fields("addr", g.httpServer.Addr))
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (g *Gateway) Stop(ctx context.Context) error {
	g.log.Info("shutting down gateway")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := g.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	return nil
}
