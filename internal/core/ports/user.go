package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
)

// UserRepository defines the interface for user data operations.
// Create must fail with apperr.ErrDuplicateEmail when the email is taken.
type UserRepository interface {
	Create(ctx context.Context, user *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Update(ctx context.Context, user *user.User) error
}

// UniversityRepository is read-only reference data.
type UniversityRepository interface {
	GetByID(ctx context.Context, id int64) (*user.University, error)
	List(ctx context.Context, limit, offset int) ([]*user.University, error)
	Count(ctx context.Context) (int, error)
}

// UserService is the credential store: identity, password hash and verification flag.
type UserService interface {
	CreateUser(ctx context.Context, params *user.CreateUserParams) (*user.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
	// FindByEmail returns (nil, nil) when no user has the address.
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	VerifyPassword(u *user.User, rawPassword string) bool
	// CheckPasswordStrength validates a candidate password against the configured policy.
	CheckPasswordStrength(rawPassword string) error

	UpdateProfile(ctx context.Context, u *user.User, req *user.UpdateProfileRequest) (*user.User, error)
	// SetEmail changes the address and always clears the verification flag.
	SetEmail(ctx context.Context, u *user.User, email string) (*user.User, error)
	SetPhone(ctx context.Context, u *user.User, phone string) (*user.User, error)
	SetPassword(ctx context.Context, u *user.User, rawPassword string) (*user.User, error)
	MarkEmailVerified(ctx context.Context, u *user.User) (*user.User, error)
	TouchLastLogin(ctx context.Context, u *user.User) (*user.User, error)

	ListUniversities(ctx context.Context, limit, offset int) ([]*user.University, int, error)
}
