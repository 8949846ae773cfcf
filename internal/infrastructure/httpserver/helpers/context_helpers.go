package helpers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/core/domain/policy"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
)

// GetBearerToken extracts the token from an "Authorization: Bearer <token>"
// header. ok is false when no Authorization header is present at all.
func GetBearerToken(c echo.Context) (token string, ok bool, err error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", false, nil
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true, apperr.ErrTokenInvalid
	}
	token = strings.TrimSpace(rest)
	if token == "" {
		return "", true, apperr.ErrTokenInvalid
	}
	return token, true, nil
}

// GetCurrentUserFromContext returns the user resolved by the JWT middleware.
func GetCurrentUserFromContext(c echo.Context) (*user.User, error) {
	u, ok := GetCurrentUserRaw(c)
	if !ok {
		return nil, policy.ErrAuthenticationRequired
	}
	return u, nil
}

// GetClaimsFromContext returns the validated access token claims.
func GetClaimsFromContext(c echo.Context) (*auth.Claims, error) {
	claims, ok := GetClaimsRaw(c)
	if !ok {
		return nil, policy.ErrAuthenticationRequired
	}
	return claims, nil
}

// GetActor returns the policy actor for the request, nil when anonymous.
func GetActor(c echo.Context) *policy.Actor {
	u, ok := GetCurrentUserRaw(c)
	if !ok {
		return nil
	}
	return &policy.Actor{UserID: u.ID}
}
