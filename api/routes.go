package api

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/Aidin1998/visitante_sonoro/api/responses"
	"github.com/Aidin1998/visitante_sonoro/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed openapi.yaml
var openAPIDocument []byte

const docsPage = `<!DOCTYPE html>
<html>
<head>
  <title>Musicians API</title>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</head>
<body>
  <redoc spec-url='/docs/openapi.yaml'></redoc>
</body>
</html>`

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(docsPage))
	})
	s.router.GET("/docs/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", openAPIDocument)
	})

	musicians := s.router.Group(s.opts.BasePath)
	{
		musicians.GET("", s.listMusicians)
		musicians.GET("/:id", s.getMusician)

		image := s.stager.Single("image")
		musicians.POST("", s.protect, image, s.createMusician)
		musicians.PATCH("/:id", s.protect, image, s.updateMusician)
		musicians.DELETE("/:id", s.protect, s.deleteMusicians)
	}
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(c *gin.Context) {
	if s.health != nil {
		if err := s.health.Ping(c.Request.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			_ = c.Error(errors.NewProblemDetails(errors.TypeInternalError, "Service Unavailable",
				http.StatusServiceUnavailable, "database unreachable", c.Request.URL.Path))
			return
		}
	}
	responses.Success(c, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
