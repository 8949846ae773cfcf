package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/audit"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/httpserver/helpers"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = 1_000_000
)

// pagination reads page/page_size query parameters (1-based pages).
func pagination(c echo.Context) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := 1
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = min(v, maxPage)
	}
	return limit, (page - 1) * limit
}

func (s *Server) getOwnProfile(c echo.Context) error {
	u, err := helpers.GetCurrentUserFromContext(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) updateOwnProfile(c echo.Context) error {
	u, err := helpers.GetCurrentUserFromContext(c)
	if err != nil {
		return err
	}

	var req user.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := s.accountSvc.UpdateProfile(c.Request().Context(), u, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) changePassword(c echo.Context) error {
	u, err := helpers.GetCurrentUserFromContext(c)
	if err != nil {
		return err
	}

	var req user.ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := s.accountSvc.ChangePassword(c.Request().Context(), u, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Password changed successfully",
	})
}

func (s *Server) changeEmail(c echo.Context) error {
	u, err := helpers.GetCurrentUserFromContext(c)
	if err != nil {
		return err
	}

	var req user.UpdateEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := s.accountSvc.ChangeEmail(c.Request().Context(), u, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":             "success",
		"message":            "Email updated. Please check your inbox to verify the new email.",
		"email":              res.User.Email,
		"email_verification": mailStatus(res),
	})
}

func (s *Server) changePhone(c echo.Context) error {
	u, err := helpers.GetCurrentUserFromContext(c)
	if err != nil {
		return err
	}

	var req user.UpdatePhoneRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := s.accountSvc.ChangePhone(c.Request().Context(), u, req.PhoneNumber)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":       "success",
		"message":      "Phone number updated successfully",
		"phone_number": updated.PhoneNumber,
	})
}

// getOwnActivity lists the caller's audit trail, newest first.
func (s *Server) getOwnActivity(c echo.Context) error {
	u, err := helpers.GetCurrentUserFromContext(c)
	if err != nil {
		return err
	}
	if s.auditSvc == nil {
		return c.JSON(http.StatusOK, map[string]any{"count": 0, "results": []*audit.AuditLog{}})
	}

	limit, offset := pagination(c)
	logs, total, err := s.auditSvc.GetAuditLogs(c.Request().Context(), &audit.AuditLogFilter{
		UserID: &u.ID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"count": total, "results": logs})
}

func (s *Server) listUniversities(c echo.Context) error {
	limit, offset := pagination(c)
	list, total, err := s.userService.ListUniversities(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"count": total, "results": list})
}

func (s *Server) requestPasswordReset(c echo.Context) error {
	var req user.PasswordResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := s.accountSvc.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "If an account exists for this email, a password reset link has been sent.",
	})
}

func (s *Server) confirmPasswordReset(c echo.Context) error {
	var req user.PasswordResetConfirmRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := s.accountSvc.ConfirmPasswordReset(c.Request().Context(), &req); err != nil {
		if apperr.KindOf(err) == apperr.KindAuthentication {
			return apperr.Validation(apperr.CodeTokenInvalid, "The reset link is invalid or has expired.").Wrap(err)
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Password has been reset successfully.",
	})
}
