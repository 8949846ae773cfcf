package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/core/domain/policy"
	"github.com/unibazzar/marketplace-api/internal/core/domain/resource"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/httpserver"
	"github.com/unibazzar/marketplace-api/internal/testutil/mocks"
)

func newTestServer(deps httpserver.ServerDeps) *echo.Echo {
	cfg := &httpserver.ServerConfig{
		Environment: "test",
		FrontendURL: "http://app.test",
		SiteName:    "UniBazzar",
	}
	return httpserver.NewServer(cfg, nil, deps).Echo()
}

func do(t *testing.T, e *echo.Echo, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// signedIn returns an auth mock that accepts "good-token" for u.
func signedIn(u *user.User) *mocks.AuthServiceMock {
	return &mocks.AuthServiceMock{
		AuthenticateFn: func(ctx context.Context, token string) (*user.User, *auth.Claims, error) {
			if token != "good-token" {
				return nil, nil, apperr.ErrTokenInvalid
			}
			return u, &auth.Claims{UserID: u.ID, TokenType: auth.TokenTypeAccess}, nil
		},
	}
}

func TestHealth(t *testing.T) {
	e := newTestServer(httpserver.ServerDeps{
		HealthCheckers: []ports.HealthChecker{
			&mocks.HealthCheckerMock{NameValue: "postgres"},
			&mocks.HealthCheckerMock{NameValue: "redis", Err: errors.New("connection refused")},
		},
	})

	rec := do(t, e, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"postgres": "healthy", "redis": "unhealthy"}, body["dependencies"])

	e = newTestServer(httpserver.ServerDeps{
		HealthCheckers: []ports.HealthChecker{&mocks.HealthCheckerMock{NameValue: "postgres"}},
	})
	rec = do(t, e, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestServer(httpserver.ServerDeps{})
	do(t, e, http.MethodGet, "/health", nil, "")

	rec := do(t, e, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRateLimitedEndpoint(t *testing.T) {
	reset := time.Now().Add(30 * time.Second)
	var seenKey string
	limiter := &mocks.RateLimiterMock{AllowFn: func(ctx context.Context, key string) (*ports.RateLimitDecision, error) {
		seenKey = key
		return &ports.RateLimitDecision{Allowed: false, Limit: 30, Remaining: 0, Reset: reset}, nil
	}}
	e := newTestServer(httpserver.ServerDeps{RateLimiter: limiter, AuthService: &mocks.AuthServiceMock{}})

	rec := do(t, e, http.MethodPost, "/api/users/login", map[string]string{"email": "a@b.c", "password": "x"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, string(apperr.CodeRateLimited), decode(t, rec)["code"])
	assert.Equal(t, "ip:192.0.2.1", seenKey)
}

func TestRateLimiterFailOpen(t *testing.T) {
	limiter := &mocks.RateLimiterMock{AllowFn: func(ctx context.Context, key string) (*ports.RateLimitDecision, error) {
		return nil, errors.New("redis down")
	}}
	e := newTestServer(httpserver.ServerDeps{RateLimiter: limiter, AuthService: &mocks.AuthServiceMock{}})

	rec := do(t, e, http.MethodPost, "/api/users/login", map[string]string{"email": "a@b.c", "password": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestValidationErrors(t *testing.T) {
	e := newTestServer(httpserver.ServerDeps{})

	rec := do(t, e, http.MethodPost, "/api/users/register", map[string]string{
		"email": "not-an-email",
		"role":  "admin",
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	fields, ok := body["errors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "role")
	assert.Contains(t, fields, "full_name")
	assert.Contains(t, fields, "password")
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	e := newTestServer(httpserver.ServerDeps{AuthService: &mocks.AuthServiceMock{}})

	rec := do(t, e, http.MethodGet, "/api/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Basic abc")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResourceHandlers(t *testing.T) {
	owner := &user.User{ID: uuid.New(), Email: "seller@aau.edu.et", IsActive: true, IsEmailVerified: true}
	existing := &resource.Resource{ID: uuid.New(), Kind: resource.KindMerchantProducts, OwnerID: owner.ID, Payload: json.RawMessage(`{"name":"Lamp"}`)}

	var createdWith json.RawMessage
	var createActor *policy.Actor
	svc := &mocks.ResourceServiceMock{
		ListFn: func(ctx context.Context, actor *policy.Actor, filter *resource.ListFilter) ([]*resource.Resource, int, error) {
			assert.Nil(t, actor)
			assert.Equal(t, resource.KindMerchantProducts, filter.Kind)
			assert.Equal(t, 5, filter.Limit)
			assert.Equal(t, 5, filter.Offset)
			return []*resource.Resource{existing}, 6, nil
		},
		OwnerScopedFn: func(ctx context.Context, actor *policy.Actor, kind resource.Kind, limit, offset int) ([]*resource.Resource, int, error) {
			if actor == nil {
				return nil, 0, policy.ErrAuthenticationRequired
			}
			return []*resource.Resource{existing}, 1, nil
		},
		GetFn: func(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID) (*resource.Resource, error) {
			if id != existing.ID {
				return nil, apperr.ErrNotFound
			}
			return existing, nil
		},
		CreateFn: func(ctx context.Context, actor *policy.Actor, kind resource.Kind, payload json.RawMessage) (*resource.Resource, error) {
			if actor == nil {
				return nil, policy.ErrAuthenticationRequired
			}
			createActor = actor
			createdWith = payload
			return &resource.Resource{ID: uuid.New(), Kind: kind, OwnerID: actor.UserID, Payload: payload}, nil
		},
		UpdateFn: func(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID, payload json.RawMessage) (*resource.Resource, error) {
			return nil, apperr.ErrForbidden
		},
		DeleteFn: func(ctx context.Context, actor *policy.Actor, kind resource.Kind, id uuid.UUID) error {
			if actor == nil || actor.UserID != owner.ID {
				return apperr.ErrForbidden
			}
			return nil
		},
	}
	e := newTestServer(httpserver.ServerDeps{AuthService: signedIn(owner), ResourceService: svc})
	base := "/api/resources/merchant_products"

	t.Run("anonymous list", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, base+"?page=2&page_size=5", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.EqualValues(t, 6, body["count"])
		assert.Len(t, body["results"], 1)
	})

	t.Run("owner scoped list needs a user", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, base+"?owner=me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = do(t, e, http.MethodGet, base+"?owner=me", nil, "good-token")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid token on optional route", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, base, nil, "bad-token")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("get", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, base+"/"+existing.ID.String(), nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"name": "Lamp"}, decode(t, rec)["data"])

		rec = do(t, e, http.MethodGet, base+"/not-a-uuid", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("create", func(t *testing.T) {
		payload := map[string]any{"name": "Desk", "description": "Oak", "price": 1200}
		rec := do(t, e, http.MethodPost, base, payload, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = do(t, e, http.MethodPost, base, map[string]any{"data": payload}, "good-token")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"name":"Desk","description":"Oak","price":1200}`, string(createdWith))
		require.NotNil(t, createActor)
		assert.Equal(t, owner.ID, createActor.UserID)

		rec = do(t, e, http.MethodPost, base, payload, "good-token")
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"name":"Desk","description":"Oak","price":1200}`, string(createdWith))
	})

	t.Run("update forbidden", func(t *testing.T) {
		rec := do(t, e, http.MethodPatch, base+"/"+existing.ID.String(), map[string]any{"name": "x"}, "good-token")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(t, e, http.MethodDelete, base+"/"+existing.ID.String(), nil, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = do(t, e, http.MethodDelete, base+"/"+existing.ID.String(), nil, "good-token")
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestPaginationClampsHugePage(t *testing.T) {
	var got *resource.ListFilter
	svc := &mocks.ResourceServiceMock{
		ListFn: func(ctx context.Context, actor *policy.Actor, filter *resource.ListFilter) ([]*resource.Resource, int, error) {
			got = filter
			return []*resource.Resource{}, 0, nil
		},
	}
	e := newTestServer(httpserver.ServerDeps{AuthService: signedIn(&user.User{ID: uuid.New()}), ResourceService: svc})

	rec := do(t, e, http.MethodGet, "/api/resources/merchant_products?page=461168601842738800&page_size=20", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, got)
	assert.Equal(t, 20, got.Limit)
	assert.Positive(t, got.Offset)
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	svc := &mocks.ResourceServiceMock{
		ListFn: func(ctx context.Context, actor *policy.Actor, filter *resource.ListFilter) ([]*resource.Resource, int, error) {
			return nil, 0, apperr.Internal("failed to list resources", errors.New("pq: connection reset"))
		},
	}
	e := newTestServer(httpserver.ServerDeps{AuthService: &mocks.AuthServiceMock{}, ResourceService: svc})

	rec := do(t, e, http.MethodGet, "/api/resources/reviews", nil, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
	assert.Equal(t, "An unexpected error occurred.", decode(t, rec)["message"])
}
