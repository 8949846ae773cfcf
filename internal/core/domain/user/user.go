package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Email           string     `json:"email" db:"email"`
	PasswordHash    string     `json:"-" db:"password_hash"`
	FullName        string     `json:"full_name" db:"full_name"`
	Role            UserRole   `json:"role" db:"role"`
	UniversityID    *int64     `json:"university,omitempty" db:"university_id"`
	PhoneNumber     string     `json:"phone_number" db:"phone_number"`
	Bio             string     `json:"bio" db:"bio"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Address         string     `json:"address" db:"address"`
	Facebook        string     `json:"facebook" db:"facebook"`
	Twitter         string     `json:"twitter" db:"twitter"`
	Instagram       string     `json:"instagram" db:"instagram"`
	LinkedIn        string     `json:"linkedin" db:"linkedin"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	IsEmailVerified bool       `json:"is_email_verified" db:"is_email_verified"`
	LastLoginAt     *time.Time `json:"last_login,omitempty" db:"last_login_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

type UserRole string

const (
	RoleStudent         UserRole = "student"
	RoleMerchant        UserRole = "merchant"
	RoleTutor           UserRole = "tutor"
	RoleServiceProvider UserRole = "service_provider"
)

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	switch r {
	case RoleStudent, RoleMerchant, RoleTutor, RoleServiceProvider:
		return true
	default:
		return false
	}
}

// MaxPhoneLength bounds PhoneNumber.
const MaxPhoneLength = 17

type University struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Location string `json:"location" db:"location"`
	Website  string `json:"website" db:"website"`
}

// RegisterRequest represents a self-service sign-up
type RegisterRequest struct {
	Email           string   `json:"email" validate:"required,email"`
	FullName        string   `json:"full_name" validate:"required,max=255"`
	Role            UserRole `json:"role" validate:"required,oneof=student merchant tutor service_provider"`
	UniversityID    *int64   `json:"university,omitempty"`
	Password        string   `json:"password" validate:"required"`
	ConfirmPassword string   `json:"confirm_password" validate:"required"`
}

// CreateUserParams is what the credential store needs to persist a new user.
type CreateUserParams struct {
	Email        string
	FullName     string
	Role         UserRole
	UniversityID *int64
	Password     string
}

// UpdateProfileRequest carries the profile fields a user may edit on themselves.
// Email, phone and verification state have dedicated flows.
type UpdateProfileRequest struct {
	FullName     *string   `json:"full_name,omitempty" validate:"omitempty,max=255"`
	Role         *UserRole `json:"role,omitempty" validate:"omitempty,oneof=student merchant tutor service_provider"`
	UniversityID *int64    `json:"university,omitempty"`
	Bio          *string   `json:"bio,omitempty"`
	DateOfBirth  *string   `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Address      *string   `json:"address,omitempty"`
	Facebook     *string   `json:"facebook,omitempty" validate:"omitempty,url"`
	Twitter      *string   `json:"twitter,omitempty" validate:"omitempty,url"`
	Instagram    *string   `json:"instagram,omitempty" validate:"omitempty,url"`
	LinkedIn     *string   `json:"linkedin,omitempty" validate:"omitempty,url"`
}

// ChangePasswordRequest represents an authenticated password change
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	ConfirmNewPassword string `json:"confirm_new_password" validate:"required"`
}

// UpdateEmailRequest represents the request to update user's email
type UpdateEmailRequest struct {
	Email string `json:"email" validate:"required"`
}

// UpdatePhoneRequest represents the request to update user's phone number
type UpdatePhoneRequest struct {
	PhoneNumber string `json:"phone_number" validate:"max=17"`
}

// ResendVerificationRequest represents the request to resend verification email
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetRequest starts the forgotten-password flow
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest completes the forgotten-password flow
type PasswordResetConfirmRequest struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}
