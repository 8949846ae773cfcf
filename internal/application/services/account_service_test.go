package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
)

const newPassword = "N3wPassword"

func TestAccount_ChangePassword(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.registerVerified(t, "pw@example.com")
	pair, err := login(env, "pw@example.com", strongPassword)
	require.NoError(t, err)
	u, err = env.users.GetUser(ctx, u.ID)
	require.NoError(t, err)

	err = env.account.ChangePassword(ctx, u, &user.ChangePasswordRequest{CurrentPassword: "Wrong1234", NewPassword: newPassword, ConfirmNewPassword: newPassword})
	require.ErrorIs(t, err, apperr.ErrWrongCurrentPassword)
	ae, _ := apperr.As(err)
	assert.Contains(t, ae.Fields, "current_password")

	err = env.account.ChangePassword(ctx, u, &user.ChangePasswordRequest{CurrentPassword: strongPassword, NewPassword: newPassword, ConfirmNewPassword: "Other1234"})
	require.ErrorIs(t, err, apperr.ErrPasswordMismatch)
	ae, _ = apperr.As(err)
	assert.Contains(t, ae.Fields, "confirm_new_password")

	err = env.account.ChangePassword(ctx, u, &user.ChangePasswordRequest{CurrentPassword: strongPassword, NewPassword: "short", ConfirmNewPassword: "short"})
	require.ErrorIs(t, err, apperr.ErrWeakPassword)
	ae, _ = apperr.As(err)
	assert.Contains(t, ae.Fields, "new_password")

	require.NoError(t, env.account.ChangePassword(ctx, u, &user.ChangePasswordRequest{CurrentPassword: strongPassword, NewPassword: newPassword, ConfirmNewPassword: newPassword}))

	_, err = login(env, "pw@example.com", strongPassword)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, err = login(env, "pw@example.com", newPassword)
	assert.NoError(t, err)

	_, err = env.auth.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, apperr.ErrTokenBlacklisted, "sessions issued before the change are revoked")
}

func TestAccount_ChangeEmail(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.registerVerified(t, "first@example.com")

	res, err := env.account.ChangeEmail(ctx, u, "Second@Example.com")
	require.NoError(t, err)
	assert.True(t, res.MailSent)
	assert.Equal(t, "second@example.com", res.User.Email)
	assert.False(t, res.User.IsEmailVerified)
	assert.Equal(t, "second@example.com", env.mailer.Last().Email)

	_, err = login(env, "second@example.com", strongPassword)
	assert.ErrorIs(t, err, apperr.ErrEmailNotVerified)

	uid, token := linkParts(t, env.mailer.Last().Link)
	_, err = env.verification.Confirm(ctx, uid, token)
	require.NoError(t, err)
	_, err = login(env, "second@example.com", strongPassword)
	assert.NoError(t, err)
}

func TestAccount_ChangePhone(t *testing.T) {
	env := newEnv(t)
	u := env.registerVerified(t, "phone@example.com")

	updated, err := env.account.ChangePhone(context.Background(), u, "0911000000")
	require.NoError(t, err)
	assert.Equal(t, "0911000000", updated.PhoneNumber)
}

func TestAccount_PasswordReset(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "forgot@example.com")
	sentBefore := len(env.mailer.Sent)

	require.NoError(t, env.account.RequestPasswordReset(ctx, "unknown@example.com"))
	assert.Len(t, env.mailer.Sent, sentBefore, "unknown address sends nothing")

	require.NoError(t, env.account.RequestPasswordReset(ctx, "Forgot@example.com"))
	last := env.mailer.Last()
	require.Equal(t, "password_reset", last.Kind)
	assert.True(t, strings.HasPrefix(last.Link, "http://app.test/reset-password/"), last.Link)
	uid, token := linkParts(t, last.Link)

	err := env.account.ConfirmPasswordReset(ctx, &user.PasswordResetConfirmRequest{UID: uid, Token: token, Password: newPassword, ConfirmPassword: "Mismatch1"})
	require.ErrorIs(t, err, apperr.ErrPasswordMismatch)

	require.NoError(t, env.account.ConfirmPasswordReset(ctx, &user.PasswordResetConfirmRequest{UID: uid, Token: token, Password: newPassword, ConfirmPassword: newPassword}))
	_, err = login(env, "forgot@example.com", newPassword)
	assert.NoError(t, err)

	err = env.account.ConfirmPasswordReset(ctx, &user.PasswordResetConfirmRequest{UID: uid, Token: token, Password: "An0therPass", ConfirmPassword: "An0therPass"})
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid, "reset links are single use")
}
