package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/utils"
)

type UserService struct {
	repo         ports.UserRepository
	universities ports.UniversityRepository
	policy       utils.PasswordPolicy
	bcryptCost   int
	now          func() time.Time
	logger       *logrus.Logger
}

func NewUserService(repo ports.UserRepository, universities ports.UniversityRepository, policy utils.PasswordPolicy, logger *logrus.Logger, opts ...Option) ports.UserService {
	o := buildOptions(opts)
	return &UserService{
		repo:         repo,
		universities: universities,
		policy:       policy,
		bcryptCost:   o.bcryptCost,
		now:          o.now,
		logger:       logger,
	}
}

func (s *UserService) normalizeEmail(raw string) (string, error) {
	email := utils.NormalizeEmail(raw)
	if !utils.IsValidEmail(email) {
		return "", apperr.ErrInvalidEmail.WithField("email", apperr.ErrInvalidEmail.Message)
	}
	return email, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	existing, err := s.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperr.ErrDuplicateEmail.WithField("email", apperr.ErrDuplicateEmail.Message)
	}
	return nil
}

func (s *UserService) checkUniversity(ctx context.Context, id *int64) error {
	if id == nil || s.universities == nil {
		return nil
	}
	if _, err := s.universities.GetByID(ctx, *id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			msg := fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *id)
			return apperr.FieldError(apperr.CodeInvalidField, "university", msg)
		}
		return fmt.Errorf("failed to load university: %w", err)
	}
	return nil
}

func (s *UserService) hash(raw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(raw), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.ErrWeakPassword.WithField("password",
			fmt.Sprintf("This password is too long. It must contain at most %d bytes.", utils.MaxPasswordBytes))
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func (s *UserService) CreateUser(ctx context.Context, params *user.CreateUserParams) (*user.User, error) {
	email, err := s.normalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}
	if !params.Role.IsValid() {
		return nil, apperr.FieldError(apperr.CodeInvalidField, "role", fmt.Sprintf("%q is not a valid choice.", params.Role))
	}
	if err := s.checkUniversity(ctx, params.UniversityID); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hashedPassword, err := s.hash(params.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	newUser := &user.User{
		ID:              uuid.New(),
		Email:           email,
		PasswordHash:    hashedPassword,
		FullName:        params.FullName,
		Role:            params.Role,
		UniversityID:    params.UniversityID,
		IsActive:        true,
		IsEmailVerified: false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// The unique index still backstops concurrent sign-ups for the same address.
	if err := s.repo.Create(ctx, newUser); err != nil {
		if errors.Is(err, apperr.ErrDuplicateEmail) {
			return nil, apperr.ErrDuplicateEmail.WithField("email", apperr.ErrDuplicateEmail.Message)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": newUser.ID, "role": newUser.Role}).Info("user created")
	}
	return newUser, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := s.repo.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (s *UserService) VerifyPassword(u *user.User, rawPassword string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(rawPassword)) == nil
}

func (s *UserService) CheckPasswordStrength(rawPassword string) error {
	problems := s.policy.Validate(rawPassword)
	if len(problems) == 0 {
		return nil
	}
	err := apperr.ErrWeakPassword
	for _, p := range problems {
		err = err.WithField("password", p)
	}
	return err
}

func (s *UserService) save(ctx context.Context, u *user.User) (*user.User, error) {
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrDuplicateEmail) {
			return nil, apperr.ErrDuplicateEmail.WithField("email", apperr.ErrDuplicateEmail.Message)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, u *user.User, req *user.UpdateProfileRequest) (*user.User, error) {
	updated := *u
	if req.FullName != nil {
		updated.FullName = *req.FullName
	}
	if req.Role != nil {
		if !req.Role.IsValid() {
			return nil, apperr.FieldError(apperr.CodeInvalidField, "role", fmt.Sprintf("%q is not a valid choice.", *req.Role))
		}
		updated.Role = *req.Role
	}
	if req.UniversityID != nil {
		if err := s.checkUniversity(ctx, req.UniversityID); err != nil {
			return nil, err
		}
		updated.UniversityID = req.UniversityID
	}
	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			updated.DateOfBirth = nil
		} else {
			dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
			if err != nil {
				return nil, apperr.FieldError(apperr.CodeInvalidField, "date_of_birth", "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
			}
			updated.DateOfBirth = &dob
		}
	}
	setString(&updated.Bio, req.Bio)
	setString(&updated.Address, req.Address)
	setString(&updated.Facebook, req.Facebook)
	setString(&updated.Twitter, req.Twitter)
	setString(&updated.Instagram, req.Instagram)
	setString(&updated.LinkedIn, req.LinkedIn)

	return s.save(ctx, &updated)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (s *UserService) SetEmail(ctx context.Context, u *user.User, email string) (*user.User, error) {
	normalized, err := s.normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if normalized != u.Email {
		if err := s.ensureEmailFree(ctx, normalized); err != nil {
			return nil, err
		}
	}
	updated := *u
	updated.Email = normalized
	updated.IsEmailVerified = false
	return s.save(ctx, &updated)
}

func (s *UserService) SetPhone(ctx context.Context, u *user.User, phone string) (*user.User, error) {
	if utf8.RuneCountInString(phone) > user.MaxPhoneLength {
		return nil, apperr.FieldError(apperr.CodeInvalidField, "phone_number",
			fmt.Sprintf("Ensure this field has no more than %d characters.", user.MaxPhoneLength))
	}
	updated := *u
	updated.PhoneNumber = phone
	return s.save(ctx, &updated)
}

func (s *UserService) SetPassword(ctx context.Context, u *user.User, rawPassword string) (*user.User, error) {
	hashedPassword, err := s.hash(rawPassword)
	if err != nil {
		return nil, err
	}
	updated := *u
	updated.PasswordHash = hashedPassword
	return s.save(ctx, &updated)
}

func (s *UserService) MarkEmailVerified(ctx context.Context, u *user.User) (*user.User, error) {
	updated := *u
	updated.IsEmailVerified = true
	return s.save(ctx, &updated)
}

func (s *UserService) TouchLastLogin(ctx context.Context, u *user.User) (*user.User, error) {
	updated := *u
	now := s.now()
	updated.LastLoginAt = &now
	return s.save(ctx, &updated)
}

func (s *UserService) ListUniversities(ctx context.Context, limit, offset int) ([]*user.University, int, error) {
	list, err := s.universities.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list universities: %w", err)
	}
	total, err := s.universities.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count universities: %w", err)
	}
	return list, total, nil
}
