package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "authsvc/internal/errors"
	"authsvc/internal/model"
	"authsvc/internal/service"
	"authsvc/internal/session"
	"authsvc/internal/validation"
)

// AuthHandler handles account endpoints.
type AuthHandler struct {
	authService service.AuthService
	sessions    *session.Manager
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, sessions *session.Manager, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{authService: authService, sessions: sessions, logger: logger}
}

// RegisterOptions holds the fields of a new account.
type RegisterOptions struct {
	Username string `json:"username" validate:"max=255"`
	Email    string `json:"email" validate:"max=255"`
	Password string `json:"password" validate:"max=1024"`
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Options RegisterOptions `json:"options"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"max=255"`
	Password        string `json:"password" validate:"max=1024"`
}

// ForgotPasswordRequest represents a password reset request.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"max=255"`
}

// ChangePasswordRequest redeems a reset token.
type ChangePasswordRequest struct {
	Token       string `json:"token" validate:"max=255"`
	NewPassword string `json:"newPassword" validate:"max=1024"`
}

// OKResponse reports whether an operation went through.
type OKResponse struct {
	OK bool `json:"ok"`
}

// MeResponse wraps the current user, null when not logged in.
type MeResponse struct {
	User *model.User `json:"user"`
}

// Register godoc
// @Summary Register a new user
// @Description Creates the account and logs it in. Rejections come back as field errors.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 200 {object} service.UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	resp, err := h.authService.Register(c.Request().Context(), h.sessions.FromContext(c), validation.RegisterInput{
		Username: req.Options.Username,
		Email:    req.Options.Email,
		Password: req.Options.Password,
	})
	if err != nil {
		return h.fail(c, "register", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} service.UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	resp, err := h.authService.Login(c.Request().Context(), h.sessions.FromContext(c), req.UsernameOrEmail, req.Password)
	if err != nil {
		return h.fail(c, "login", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout godoc
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} OKResponse
// @Router /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ok := h.authService.Logout(c.Request().Context(), h.sessions.FromContext(c))
	return c.JSON(http.StatusOK, OKResponse{OK: ok})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} MeResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.authService.Me(c.Request().Context(), h.sessions.FromContext(c))
	if err != nil {
		return h.fail(c, "me", err)
	}
	return c.JSON(http.StatusOK, MeResponse{User: user})
}

// ForgotPassword godoc
// @Summary Request a password reset email
// @Description Always answers ok, whether or not the address is registered.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Email"
// @Success 200 {object} OKResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	ok, err := h.authService.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		return h.fail(c, "forgot password", err)
	}
	return c.JSON(http.StatusOK, OKResponse{OK: ok})
}

// ChangePassword godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Token and new password"
// @Success 200 {object} service.UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	resp, err := h.authService.ChangePassword(c.Request().Context(), h.sessions.FromContext(c), req.Token, req.NewPassword)
	if err != nil {
		return h.fail(c, "change password", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// bind decodes and shape-checks the request body.
func (h *AuthHandler) bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return toEchoError(apperrors.MapErrorToHTTP(apperrors.ErrInvalidRequest))
	}
	if c.Echo().Validator != nil {
		if err := c.Validate(req); err != nil {
			return toEchoError(apperrors.NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_REQUEST"))
		}
	}
	return nil
}

// fail logs an infrastructure failure and answers with a generic error.
func (h *AuthHandler) fail(c echo.Context, operation string, err error) error {
	h.logger.ErrorContext(c.Request().Context(), "request failed",
		"operation", operation,
		"code", apperrors.Code(err),
		"error", err,
	)
	return toEchoError(apperrors.MapErrorToHTTP(err))
}

func toEchoError(httpErr *apperrors.HTTPError) *echo.HTTPError {
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
