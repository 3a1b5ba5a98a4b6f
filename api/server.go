package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Aidin1998/visitante_sonoro/common/apiutil"
	"github.com/Aidin1998/visitante_sonoro/internal/media"
	"github.com/Aidin1998/visitante_sonoro/internal/musician"
	"github.com/Aidin1998/visitante_sonoro/internal/upload"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const DefaultBasePath = "/api/musicians"

// MusicianService is the resource logic behind the musician routes
type MusicianService interface {
	Create(ctx context.Context, in musician.CreateInput, adminID string, file *media.File) (*musician.Musician, error)
	Update(ctx context.Context, id string, in musician.UpdateInput, adminID string, file *media.File) (*musician.Musician, error)
	Delete(ctx context.Context, idList string, adminID string) []musician.DeleteOutcome
	List(ctx context.Context) ([]musician.Musician, error)
	Get(ctx context.Context, id string) (*musician.Musician, error)
}

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Options struct {
	// Addr is the listen address, ":5000" when empty
	Addr        string
	BasePath    string
	CORSOrigins []string
	ServiceName string
}

// Server represents the API server
type Server struct {
	router     *gin.Engine
	logger     *zap.Logger
	musicians  MusicianService
	protect    gin.HandlerFunc
	stager     *upload.Stager
	health     HealthChecker
	opts       Options
	httpServer *http.Server
}

// NewServer creates a new API server. protect guards the mutating routes and
// stager parses their optional image field.
func NewServer(
	logger *zap.Logger,
	musicians MusicianService,
	protect gin.HandlerFunc,
	stager *upload.Stager,
	health HealthChecker,
	opts Options,
) *Server {
	if opts.Addr == "" {
		opts.Addr = ":5000"
	}
	if opts.BasePath == "" {
		opts.BasePath = DefaultBasePath
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "musicians-api"
	}

	server := &Server{
		logger:    logger,
		musicians: musicians,
		protect:   protect,
		stager:    stager,
		health:    health,
		opts:      opts,
	}

	router := gin.New()

	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(otelgin.Middleware(opts.ServiceName))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(apiutil.MetricsMiddleware())
	router.Use(apiutil.RFC7807ErrorMiddleware(logger))

	server.router = router
	server.registerRoutes()
	server.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server
}

// Router returns the internal Gin engine for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until Shutdown is called. It returns nil right away when
// Shutdown already ran.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("addr", s.opts.Addr), zap.String("base_path", s.opts.BasePath))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
