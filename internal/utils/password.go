package utils

import (
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/unibazzar/marketplace-api/configs"
)

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

var specialCharRegex = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>\[\]\\/_\-+=~` + "`" + `';]`)

// PasswordPolicy describes the minimum strength a new password must have.
type PasswordPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPasswordPolicy accepts passwords like "Abc12345".
var DefaultPasswordPolicy = PasswordPolicy{
	MinLength:    8,
	RequireUpper: true,
	RequireLower: true,
	RequireDigit: true,
}

func NewPasswordPolicy(cfg *configs.PasswordConfig) PasswordPolicy {
	if cfg == nil {
		return DefaultPasswordPolicy
	}
	return PasswordPolicy{
		MinLength:      cfg.MinLength,
		RequireUpper:   cfg.RequireUpper,
		RequireLower:   cfg.RequireLower,
		RequireDigit:   cfg.RequireDigit,
		RequireSpecial: cfg.RequireSpecial,
	}
}

// Validate returns every rule the password breaks, in a stable order.
func (p PasswordPolicy) Validate(password string) []string {
	var problems []string
	if utf8.RuneCountInString(password) < p.MinLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", p.MinLength))
	}
	if len(password) > MaxPasswordBytes {
		problems = append(problems, fmt.Sprintf("This password is too long. It must contain at most %d bytes.", MaxPasswordBytes))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	if p.RequireUpper && !hasUpper {
		problems = append(problems, "Password must contain at least one uppercase letter.")
	}
	if p.RequireLower && !hasLower {
		problems = append(problems, "Password must contain at least one lowercase letter.")
	}
	if p.RequireDigit && !hasDigit {
		problems = append(problems, "Password must contain at least one digit.")
	}
	if p.RequireSpecial && !specialCharRegex.MatchString(password) {
		problems = append(problems, "Password must contain at least one special character.")
	}
	return problems
}
