package httpserver

import (
	"context"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Start serves until Shutdown is called, returning http.ErrServerClosed then.
// TLS is used when both certificate and key files are configured.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, s.config.Port)
	s.echo.Server.Addr = addr
	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	tls := s.config.TLSCertFile != "" && s.config.TLSKeyFile != ""
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"addr": addr, "tls": tls, "env": s.config.Environment}).Info("starting HTTP server")
		if !tls && s.config.Environment == "production" {
			s.logger.Warn("serving plain HTTP in production; terminate TLS upstream")
		}
	}
	if tls {
		return s.echo.StartTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	}
	return s.echo.StartServer(s.echo.Server)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Echo exposes the router, mainly for httptest.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
