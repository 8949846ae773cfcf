package httpserver

import (
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) setupMiddleware() {
	s.echo.Pre(middleware.RemoveTrailingSlash())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(s.middleware.Logging.RequestLogging())
	s.echo.Use(s.middleware.Metrics.CollectHTTPMetrics())

	corsCfg := middleware.DefaultCORSConfig
	if len(s.config.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = s.config.AllowedOrigins
	}
	s.echo.Use(middleware.CORSWithConfig(corsCfg))

	s.echo.Use(s.middleware.Logging.RequestMeta())
}
