package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/unibazzar/marketplace-api/internal/core/domain/policy"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/httpserver/helpers"
)

type JWTMiddleware struct {
	authService ports.AuthService
	logger      *logrus.Logger
}

func NewJWTMiddleware(authService ports.AuthService, logger *logrus.Logger) *JWTMiddleware {
	return &JWTMiddleware{authService: authService, logger: logger}
}

func (m *JWTMiddleware) authenticate(c echo.Context, token string) error {
	u, claims, err := m.authService.Authenticate(c.Request().Context(), token)
	if err != nil {
		if m.logger != nil {
			m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path}).WithError(err).Warn("JWT validation failed")
		}
		return err
	}
	helpers.SetCurrentUser(c, u)
	helpers.SetClaims(c, claims)
	if m.logger != nil {
		m.logger.WithFields(logrus.Fields{"user_id": u.ID, "jti": claims.ID}).Debug("jwt validated and user context set")
	}
	return nil
}

// RequireJWT rejects the request unless it carries a valid, unrevoked access
// token for an active user.
func (m *JWTMiddleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, present, err := helpers.GetBearerToken(c)
			if err != nil {
				return err
			}
			if !present {
				return policy.ErrAuthenticationRequired
			}
			if err := m.authenticate(c, token); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalJWT resolves the user when a bearer token is present and lets
// anonymous requests through untouched. A present but invalid token is
// still rejected.
func (m *JWTMiddleware) OptionalJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, present, err := helpers.GetBearerToken(c)
			if err != nil {
				return err
			}
			if present {
				if err := m.authenticate(c, token); err != nil {
					return err
				}
			}
			return next(c)
		}
	}
}
