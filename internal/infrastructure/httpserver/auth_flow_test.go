package httpserver_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/unibazzar/marketplace-api/configs"
	"github.com/unibazzar/marketplace-api/internal/application/services"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/httpserver"
	"github.com/unibazzar/marketplace-api/internal/testutil/mocks"
	"github.com/unibazzar/marketplace-api/internal/utils"
)

type flowEnv struct {
	mailer *mocks.MailerMock
	audit  *mocks.AuditServiceMock
	users  *mocks.UserRepository
}

// newFlowServer wires the real account services over in-memory stores.
func newFlowServer(t *testing.T) (*flowEnv, *echo.Echo) {
	t.Helper()
	env := &flowEnv{
		mailer: &mocks.MailerMock{},
		audit:  &mocks.AuditServiceMock{},
		users:  mocks.NewUserRepository(),
	}
	opts := []services.Option{services.WithBcryptCost(bcrypt.MinCost)}
	verifyCfg := &configs.VerificationConfig{
		Secret:        "verify-secret",
		TokenTTL:      24 * time.Hour,
		ResetTokenTTL: time.Hour,
		BaseURL:       "http://api.test",
		FrontendURL:   "http://app.test",
	}

	universities := &mocks.UniversityRepository{Items: []*user.University{{ID: 1, Name: "Addis Ababa University"}}}
	userSvc := services.NewUserService(env.users, universities, utils.DefaultPasswordPolicy, nil, opts...)
	sessions, err := services.NewTokenService(mocks.NewTokenRepository(), &configs.JWTConfig{
		Algorithm:       "HS256",
		Secret:          "session-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}, nil, opts...)
	require.NoError(t, err)
	actionTokens := services.NewActionTokenService(verifyCfg, opts...)
	limiter := &mocks.RateLimiterMock{}
	verification := services.NewVerificationService(userSvc, actionTokens, env.mailer, limiter, env.audit, verifyCfg, nil)
	authSvc := services.NewAuthService(userSvc, sessions, env.audit, configs.AuthConfig{}, nil)
	account := services.NewAccountService(services.AccountDeps{
		Users:        userSvc,
		Sessions:     sessions,
		ActionTokens: actionTokens,
		Verification: verification,
		Mailer:       env.mailer,
		MailLimiter:  limiter,
		Audit:        env.audit,
	}, verifyCfg, nil)

	srv := httpserver.NewServer(&httpserver.ServerConfig{FrontendURL: "http://app.test", SiteName: "UniBazzar"}, nil, httpserver.ServerDeps{
		UserService:         userSvc,
		AuthService:         authSvc,
		AccountService:      account,
		VerificationService: verification,
		AuditService:        env.audit,
	})
	return env, srv.Echo()
}

const flowPassword = "Str0ngPass"

func registerBody(email string) map[string]any {
	return map[string]any{
		"email":            email,
		"full_name":        "Abebe Kebede",
		"role":             "student",
		"password":         flowPassword,
		"confirm_password": flowPassword,
	}
}

func linkPath(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Path
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

func TestRegisterVerifyLoginLogout(t *testing.T) {
	env, echoSrv := newFlowServer(t)

	rec := do(t, echoSrv, http.MethodPost, "/api/users/register", registerBody("abebe@aau.edu.et"), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "abebe@aau.edu.et", body["email"])
	assert.Equal(t, "Verification email sent. Please check your inbox.", body["email_verification"])

	rec = do(t, echoSrv, http.MethodPost, "/api/users/register", registerBody("ABEBE@aau.edu.et"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	login := map[string]string{"email": "abebe@aau.edu.et", "password": flowPassword}
	rec = do(t, echoSrv, http.MethodPost, "/api/users/login", login, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "email_not_verified", decode(t, rec)["code"])

	sent := env.mailer.Last()
	require.NotNil(t, sent)
	assert.Equal(t, "verification", sent.Kind)
	verifyPath := linkPath(t, sent.Link)

	rec = do(t, echoSrv, http.MethodGet, verifyPath, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Abebe Kebede")

	rec = do(t, echoSrv, http.MethodGet, verifyPath, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a verification link works once")

	rec = do(t, echoSrv, http.MethodPost, "/api/users/login", login, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tokens := decode(t, rec)
	access, _ := tokens["access"].(string)
	refresh, _ := tokens["refresh"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	rec = do(t, echoSrv, http.MethodGet, "/api/users/me", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["is_email_verified"])

	rec = do(t, echoSrv, http.MethodPost, "/api/users/token/refresh", map[string]string{"refresh": refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode(t, rec)
	newRefresh, _ := rotated["refresh"].(string)
	newAccess, _ := rotated["access"].(string)

	rec = do(t, echoSrv, http.MethodPost, "/api/users/token/refresh", map[string]string{"refresh": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "rotated refresh token is spent")

	rec = do(t, echoSrv, http.MethodPost, "/api/users/logout", map[string]string{"refresh": newRefresh}, newAccess)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, echoSrv, http.MethodPost, "/api/users/token/refresh", map[string]string{"refresh": newRefresh}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, echoSrv, http.MethodGet, "/api/users/me", nil, newAccess)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTrailingSlashRoutes(t *testing.T) {
	_, e := newFlowServer(t)

	rec := do(t, e, http.MethodPost, "/api/users/register/", registerBody("slash@aau.edu.et"), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/api/users/universities/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/users/me/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUniversitiesHugePage(t *testing.T) {
	_, e := newFlowServer(t)

	rec := do(t, e, http.MethodGet, "/api/users/universities?page=461168601842738800", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 1, body["count"])
	assert.Empty(t, body["results"])
}

func TestVerifyEmailInvalidLink(t *testing.T) {
	_, e := newFlowServer(t)

	rec := do(t, e, http.MethodGet, "/api/users/verify-email/bm9wZQ/garbage/", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "http://app.test/resend-verification")
}

func TestLogoutWithBadRefreshToken(t *testing.T) {
	env, e := newFlowServer(t)

	do(t, e, http.MethodPost, "/api/users/register", registerBody("hana@aau.edu.et"), "")
	rec := do(t, e, http.MethodGet, linkPath(t, env.mailer.Last().Link), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/users/login", map[string]string{"email": "hana@aau.edu.et", "password": flowPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	access, _ := decode(t, rec)["access"].(string)

	rec = do(t, e, http.MethodPost, "/api/users/logout", map[string]string{"refresh": "not-a-token"}, access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	env, e := newFlowServer(t)

	do(t, e, http.MethodPost, "/api/users/register", registerBody("sara@aau.edu.et"), "")
	rec := do(t, e, http.MethodGet, linkPath(t, env.mailer.Last().Link), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/users/password-reset", map[string]string{"email": "sara@aau.edu.et"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	reset := env.mailer.Last()
	require.Equal(t, "password_reset", reset.Kind)
	segs := splitPath(linkPath(t, reset.Link))
	require.Len(t, segs, 3)

	confirm := map[string]string{
		"uid":              segs[1],
		"token":            segs[2],
		"password":         "N3wPassword",
		"confirm_password": "N3wPassword",
	}
	rec = do(t, e, http.MethodPost, "/api/users/password-reset/confirm", confirm, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/api/users/password-reset/confirm", confirm, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "reset links are single use")

	rec = do(t, e, http.MethodPost, "/api/users/login", map[string]string{"email": "sara@aau.edu.et", "password": "N3wPassword"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
