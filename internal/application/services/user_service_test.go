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

func createParams(email string) *user.CreateUserParams {
	return &user.CreateUserParams{Email: email, FullName: "Sara Tesfaye", Role: user.RoleMerchant, Password: strongPassword}
}

func TestUserService_CreateUser(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	u, err := env.users.CreateUser(ctx, createParams("  Sara@Example.COM "))
	require.NoError(t, err)
	assert.Equal(t, "sara@example.com", u.Email)
	assert.False(t, u.IsEmailVerified)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, strongPassword, u.PasswordHash)
	assert.True(t, env.users.VerifyPassword(u, strongPassword))
	assert.False(t, env.users.VerifyPassword(u, "wrong"))

	found, err := env.users.FindByEmail(ctx, "SARA@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, u.ID, found.ID)
}

func TestUserService_CreateUserDuplicateEmail(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	_, err := env.users.CreateUser(ctx, createParams("dup@example.com"))
	require.NoError(t, err)

	_, err = env.users.CreateUser(ctx, createParams("DUP@example.com"))
	require.ErrorIs(t, err, apperr.ErrDuplicateEmail)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, ae.Fields, "email")
}

func TestUserService_CreateUserValidation(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	unknownUniversity := int64(42)

	tests := []struct {
		name   string
		params *user.CreateUserParams
		field  string
	}{
		{"malformed email", createParams("not-an-email"), "email"},
		{"display name form", createParams("Sara <sara@example.com>"), "email"},
		{"bad role", &user.CreateUserParams{Email: "r@example.com", Role: "admin", Password: strongPassword}, "role"},
		{"unknown university", &user.CreateUserParams{Email: "u@example.com", Role: user.RoleTutor, UniversityID: &unknownUniversity, Password: strongPassword}, "university"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.users.CreateUser(ctx, tt.params)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			ae, _ := apperr.As(err)
			assert.Contains(t, ae.Fields, tt.field)
		})
	}
}

func TestUserService_CheckPasswordStrength(t *testing.T) {
	env := newEnv(t)

	assert.NoError(t, env.users.CheckPasswordStrength(strongPassword))

	err := env.users.CheckPasswordStrength("short")
	require.ErrorIs(t, err, apperr.ErrWeakPassword)
	ae, _ := apperr.As(err)
	assert.GreaterOrEqual(t, len(ae.Fields["password"]), 2)
	assert.Empty(t, apperr.ErrWeakPassword.Fields, "sentinel must not be mutated")

	long := "Abc1" + strings.Repeat("x", 80)
	err = env.users.CheckPasswordStrength(long)
	require.ErrorIs(t, err, apperr.ErrWeakPassword)
}

func TestUserService_OverlongPasswordIsValidationError(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	long := "Abc1" + strings.Repeat("x", 80)

	params := createParams("long@example.com")
	params.Password = long
	_, err := env.users.CreateUser(ctx, params)
	require.ErrorIs(t, err, apperr.ErrWeakPassword)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	req := registerRequest("long2@example.com")
	req.Password, req.ConfirmPassword = long, long
	_, err = env.verification.Register(ctx, req)
	require.ErrorIs(t, err, apperr.ErrWeakPassword)
	ae, _ := apperr.As(err)
	assert.Contains(t, ae.Fields, "password")
}

func TestUserService_SetEmailClearsVerification(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u := env.registerVerified(t, "old@example.com")
	require.True(t, u.IsEmailVerified)

	updated, err := env.users.SetEmail(ctx, u, "New@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.False(t, updated.IsEmailVerified)

	same, err := env.users.SetEmail(ctx, updated, " NEW@example.com")
	require.NoError(t, err, "re-submitting the current address is not a duplicate")
	assert.Equal(t, "new@example.com", same.Email)

	_, err = env.users.CreateUser(ctx, createParams("taken@example.com"))
	require.NoError(t, err)
	_, err = env.users.SetEmail(ctx, updated, "taken@example.com")
	assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)
}

func TestUserService_SetPhone(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u, err := env.users.CreateUser(ctx, createParams("p@example.com"))
	require.NoError(t, err)

	updated, err := env.users.SetPhone(ctx, u, "+251911223344")
	require.NoError(t, err)
	assert.Equal(t, "+251911223344", updated.PhoneNumber)

	_, err = env.users.SetPhone(ctx, u, strings.Repeat("9", user.MaxPhoneLength+1))
	require.Error(t, err)
	ae, _ := apperr.As(err)
	assert.Contains(t, ae.Fields, "phone_number")
}

func TestUserService_UpdateProfile(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	u, err := env.users.CreateUser(ctx, createParams("profile@example.com"))
	require.NoError(t, err)

	name := "New Name"
	dob := "2000-01-31"
	uni := int64(1)
	updated, err := env.account.UpdateProfile(ctx, u, &user.UpdateProfileRequest{FullName: &name, DateOfBirth: &dob, UniversityID: &uni})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.FullName)
	require.NotNil(t, updated.DateOfBirth)
	assert.Equal(t, 2000, updated.DateOfBirth.Year())
	assert.Equal(t, &uni, updated.UniversityID)
	assert.Equal(t, u.Email, updated.Email)

	bad := "31/01/2000"
	_, err = env.users.UpdateProfile(ctx, u, &user.UpdateProfileRequest{DateOfBirth: &bad})
	require.Error(t, err)
	ae, _ := apperr.As(err)
	assert.Contains(t, ae.Fields, "date_of_birth")
}

func TestUserService_ListUniversities(t *testing.T) {
	env := newEnv(t)
	list, total, err := env.users.ListUniversities(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Addis Ababa University", list[0].Name)
}
