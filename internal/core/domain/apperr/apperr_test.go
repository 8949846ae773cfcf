package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
)

func TestError_IsMatchesCodeAndKind(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", apperr.ErrInvalidCredentials.Wrap(errors.New("bcrypt mismatch")))

	assert.ErrorIs(t, wrapped, apperr.ErrInvalidCredentials)
	assert.NotErrorIs(t, wrapped, apperr.ErrEmailNotVerified)
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(wrapped))
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("plain")))
	assert.Contains(t, wrapped.Error(), "bcrypt mismatch")
}

func TestError_WithFieldCopies(t *testing.T) {
	e := apperr.ErrWeakPassword.WithField("password", "too short").WithField("password", "needs a digit")

	require.Len(t, e.Fields["password"], 2)
	assert.Empty(t, apperr.ErrWeakPassword.Fields)
	assert.ErrorIs(t, e, apperr.ErrWeakPassword)

	renamed := e.RenameField("password", "new_password")
	assert.Len(t, renamed.Fields["new_password"], 2)
	assert.NotContains(t, renamed.Fields, "password")
	assert.Contains(t, e.Fields, "password")

	assert.Same(t, e, e.RenameField("missing", "other"))
}

func TestConstructors(t *testing.T) {
	cause := errors.New("timeout")
	tr := apperr.Transient(apperr.CodeMailDelivery, "mail failed", cause)
	assert.Equal(t, apperr.KindTransient, tr.Kind)
	assert.ErrorIs(t, tr, cause)

	in := apperr.Internal("boom", cause)
	assert.Equal(t, apperr.CodeInternal, in.Code)

	fe := apperr.FieldError(apperr.CodeInvalidField, "email", "Required.")
	assert.Equal(t, apperr.KindValidation, fe.Kind)
	assert.Equal(t, []string{"Required."}, fe.Fields["email"])

	got, ok := apperr.As(fmt.Errorf("x: %w", fe))
	require.True(t, ok)
	assert.Same(t, fe, got)
	assert.Equal(t, "validation", apperr.KindValidation.String())
}
