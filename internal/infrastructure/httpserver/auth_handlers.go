package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/unibazzar/marketplace-api/internal/core/domain/apperr"
	"github.com/unibazzar/marketplace-api/internal/core/domain/auth"
	"github.com/unibazzar/marketplace-api/internal/core/domain/user"
	"github.com/unibazzar/marketplace-api/internal/core/ports"
	"github.com/unibazzar/marketplace-api/internal/infrastructure/httpserver/helpers"
)

var errInvalidBody = apperr.Validation(apperr.CodeInvalidField, "Invalid request body.")

// bindAndValidate decodes the JSON body into req and runs tag validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errInvalidBody.Wrap(err)
	}
	return c.Validate(req)
}

// mailStatus renders the best-effort delivery outcome shown to clients.
func mailStatus(res *ports.DispatchResult) string {
	if res.MailSent {
		return "Verification email sent. Please check your inbox."
	}
	reason := "unknown error"
	if res.MailErr != nil {
		reason = res.MailErr.Error()
		if appErr, ok := apperr.As(res.MailErr); ok {
			reason = appErr.Message
		}
	}
	return "Failed to send verification email: " + reason
}

func (s *Server) register(c echo.Context) error {
	var req user.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := s.verification.Register(c.Request().Context(), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"status":             "success",
		"message":            "User registered successfully.",
		"user_id":            res.User.ID,
		"email":              res.User.Email,
		"email_verification": mailStatus(res),
	})
}

// verifyEmail serves the link from the verification email as an HTML page.
func (s *Server) verifyEmail(c echo.Context) error {
	u, err := s.verification.Confirm(c.Request().Context(), c.Param("uid"), c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrTokenExpired):
			return s.renderVerifyFailure(c, "This verification link has expired.")
		case apperr.KindOf(err) == apperr.KindAuthentication, apperr.KindOf(err) == apperr.KindNotFound:
			return s.renderVerifyFailure(c, "This verification link is invalid or has already been used.")
		default:
			return err
		}
	}
	return s.renderVerifySuccess(c, u.FullName)
}

func (s *Server) resendVerificationEmail(c echo.Context) error {
	var req user.ResendVerificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := s.verification.Resend(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	if !res.MailSent {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "warning",
			"message": mailStatus(res),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Verification email sent successfully.",
	})
}

func (s *Server) login(c echo.Context) error {
	var req auth.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tokens, _, err := s.authSvc.Login(c.Request().Context(), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"refresh": tokens.Refresh,
		"access":  tokens.Access,
	})
}

func (s *Server) refreshToken(c echo.Context) error {
	var req auth.RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tokens, err := s.authSvc.Refresh(c.Request().Context(), req.Refresh)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"refresh": tokens.Refresh,
		"access":  tokens.Access,
	})
}

// logout revokes the posted refresh token and the access token that
// authorized the call. A bad refresh token is a client error, not a 401.
func (s *Server) logout(c echo.Context) error {
	claims, err := helpers.GetClaimsFromContext(c)
	if err != nil {
		return err
	}

	var req auth.RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := s.authSvc.Logout(c.Request().Context(), req.Refresh, claims); err != nil {
		if apperr.KindOf(err) == apperr.KindAuthentication {
			return apperr.Validation(apperr.CodeTokenInvalid, "Token is invalid or expired").Wrap(err)
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Logged out successfully",
	})
}
