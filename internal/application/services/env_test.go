package services_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/unibazzar/marketplace-api/configs"
	impl "github.com/unibazzar/marketplace-api/internal/application/services"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/testutil/mocks"
	"github.com/unibazzar/marketplace-api/internal/utils"
)

const strongPassword = "Str0ngPass"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	clock        *fakeClock
	userRepo     *mocks.UserRepository
	tokenRepo    *mocks.TokenRepository
	mailer       *mocks.MailerMock
	mailLimiter  *mocks.RateLimiterMock
	audit        *mocks.AuditServiceMock
	users        ports.UserService
	sessions     ports.SessionTokenService
	actionTokens ports.ActionTokenService
	verification ports.VerificationService
	auth         ports.AuthService
	account      ports.AccountService
	authCfg      configs.AuthConfig
}

func jwtConfig() *configs.JWTConfig {
	return &configs.JWTConfig{
		Algorithm:       "HS256",
		Secret:          "test-secret",
		Issuer:          "unibazzar-test",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func verificationConfig() *configs.VerificationConfig {
	return &configs.VerificationConfig{
		Secret:        "verify-secret",
		TokenTTL:      24 * time.Hour,
		ResetTokenTTL: time.Hour,
		BaseURL:       "http://api.test",
		FrontendURL:   "http://app.test",
	}
}

func newEnv(t *testing.T, mutate ...func(*testEnv)) *testEnv {
	t.Helper()
	e := &testEnv{
		clock:       newClock(),
		userRepo:    mocks.NewUserRepository(),
		tokenRepo:   mocks.NewTokenRepository(),
		mailer:      &mocks.MailerMock{},
		mailLimiter: &mocks.RateLimiterMock{},
		audit:       &mocks.AuditServiceMock{},
	}
	for _, m := range mutate {
		m(e)
	}
	e.tokenRepo.Now = e.clock.Now
	opts := []impl.Option{impl.WithClock(e.clock.Now), impl.WithBcryptCost(bcrypt.MinCost)}

	universities := &mocks.UniversityRepository{Items: []*user.University{{ID: 1, Name: "Addis Ababa University"}}}
	e.users = impl.NewUserService(e.userRepo, universities, utils.DefaultPasswordPolicy, nil, opts...)

	sessions, err := impl.NewTokenService(e.tokenRepo, jwtConfig(), nil, opts...)
	require.NoError(t, err)
	e.sessions = sessions
	e.actionTokens = impl.NewActionTokenService(verificationConfig(), opts...)
	e.verification = impl.NewVerificationService(e.users, e.actionTokens, e.mailer, e.mailLimiter, e.audit, verificationConfig(), nil)
	e.auth = impl.NewAuthService(e.users, e.sessions, e.audit, e.authCfg, nil)
	e.account = impl.NewAccountService(impl.AccountDeps{
		Users:        e.users,
		Sessions:     e.sessions,
		ActionTokens: e.actionTokens,
		Verification: e.verification,
		Mailer:       e.mailer,
		MailLimiter:  e.mailLimiter,
		Audit:        e.audit,
	}, verificationConfig(), nil)
	return e
}

func registerRequest(email string) *user.RegisterRequest {
	return &user.RegisterRequest{
		Email:           email,
		FullName:        "Abebe Kebede",
		Role:            user.RoleStudent,
		Password:        strongPassword,
		ConfirmPassword: strongPassword,
	}
}

// register creates an unverified account and returns it with the mailed link.
func (e *testEnv) register(t *testing.T, email string) (*user.User, string) {
	t.Helper()
	res, err := e.verification.Register(context.Background(), registerRequest(email))
	require.NoError(t, err)
	require.True(t, res.MailSent)
	last := e.mailer.Last()
	require.NotNil(t, last)
	return res.User, last.Link
}

// registerVerified creates an account and confirms it through its emailed link.
func (e *testEnv) registerVerified(t *testing.T, email string) *user.User {
	t.Helper()
	_, link := e.register(t, email)
	uid, token := linkParts(t, link)
	u, err := e.verification.Confirm(context.Background(), uid, token)
	require.NoError(t, err)
	return u
}

// linkParts extracts the trailing uid and token path segments of a mailed link.
func linkParts(t *testing.T, link string) (string, string) {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	segs := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	require.GreaterOrEqual(t, len(segs), 2)
	return segs[len(segs)-2], segs[len(segs)-1]
}
