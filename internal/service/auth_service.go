package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/oops"

	"authsvc/internal/auth"
	"authsvc/internal/mail"
	"authsvc/internal/metrics"
	"authsvc/internal/model"
	"authsvc/internal/repository"
	"authsvc/internal/validation"
)

// FieldError describes why one input was rejected.
type FieldError = validation.FieldError

// UserResponse carries either the user or the reasons the operation was
// rejected.
type UserResponse struct {
	Errors []FieldError `json:"errors,omitempty"`
	User   *model.User  `json:"user,omitempty"`
}

func fieldErrors(errs ...FieldError) *UserResponse {
	return &UserResponse{Errors: errs}
}

// Session is the authentication state of the current request.
type Session interface {
	UserID(ctx context.Context) (uint, bool, error)
	SetUser(ctx context.Context, userID uint) error
	Destroy(ctx context.Context) error
}

// Operation names used for metrics.
const (
	opRegister       = "register"
	opLogin          = "login"
	opLogout         = "logout"
	opForgotPassword = "forgot_password"
	opChangePassword = "change_password"
)

const resetEmailSubject = "Change password"

// AuthService implements the account flows.
type AuthService interface {
	Register(ctx context.Context, sess Session, in validation.RegisterInput) (*UserResponse, error)
	Login(ctx context.Context, sess Session, usernameOrEmail, password string) (*UserResponse, error)
	// Me returns nil when the request is not authenticated or the session's
	// user no longer exists.
	Me(ctx context.Context, sess Session) (*model.User, error)
	// Logout reports false when the session could not be removed; the cookie
	// is cleared regardless.
	Logout(ctx context.Context, sess Session) bool
	// ForgotPassword returns true whether or not the email is registered.
	ForgotPassword(ctx context.Context, email string) (bool, error)
	ChangePassword(ctx context.Context, sess Session, token, newPassword string) (*UserResponse, error)
}

// Options carries the optional collaborators of the auth service.
type Options struct {
	FrontendURL string
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

type authService struct {
	users       repository.UserRepository
	userSvc     UserService
	hasher      auth.PasswordHasher
	tokens      auth.ResetTokenStore
	mailer      mail.Sender
	frontendURL string
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	userSvc UserService,
	hasher auth.PasswordHasher,
	tokens auth.ResetTokenStore,
	mailer mail.Sender,
	opts Options,
) AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		users:       users,
		userSvc:     userSvc,
		hasher:      hasher,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: opts.FrontendURL,
		logger:      logger,
		metrics:     opts.Metrics,
	}
}

// Register validates the input, stores the user with a hashed password and
// logs them in.
func (s *authService) Register(ctx context.Context, sess Session, in validation.RegisterInput) (*UserResponse, error) {
	if errs := validation.ValidateRegister(in); len(errs) > 0 {
		s.metrics.Record(opRegister, metrics.OutcomeRejected)
		return fieldErrors(errs...), nil
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.metrics.Record(opRegister, metrics.OutcomeError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	user := &model.User{
		Username: in.Username,
		Email:    in.Email,
		Password: hashed,
	}

	if err := s.users.Create(ctx, user); err != nil {
		var dup *repository.DuplicateKeyError
		if errors.As(err, &dup) {
			s.metrics.Record(opRegister, metrics.OutcomeRejected)
			return fieldErrors(FieldError{Field: dup.Field, Message: dup.Field + " already taken"}), nil
		}
		s.metrics.Record(opRegister, metrics.OutcomeError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "create user").Wrap(err)
	}

	if err := sess.SetUser(ctx, user.ID); err != nil {
		s.metrics.Record(opRegister, metrics.OutcomeError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "set session").Wrap(err)
	}

	s.metrics.Record(opRegister, metrics.OutcomeSuccess)
	return &UserResponse{User: user}, nil
}

// Login resolves the user by username or email, checks the password and
// starts a session.
func (s *authService) Login(ctx context.Context, sess Session, usernameOrEmail, password string) (*UserResponse, error) {
	user, err := s.users.FindByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.Record(opLogin, metrics.OutcomeRejected)
			return fieldErrors(FieldError{Field: "usernameOrEmail", Message: "that username doesnt exist"}), nil
		}
		s.metrics.Record(opLogin, metrics.OutcomeError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "find user").Wrap(err)
	}

	valid, err := s.hasher.Verify(password, user.Password)
	if err != nil {
		// An unparseable stored hash can never match.
		s.logger.WarnContext(ctx, "stored password hash is malformed", "user_id", user.ID, "error", err)
		valid = false
	}
	if !valid {
		s.metrics.Record(opLogin, metrics.OutcomeRejected)
		return fieldErrors(FieldError{Field: "password", Message: "incorrect password"}), nil
	}

	if err := sess.SetUser(ctx, user.ID); err != nil {
		s.metrics.Record(opLogin, metrics.OutcomeError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "set session").Wrap(err)
	}

	s.metrics.Record(opLogin, metrics.OutcomeSuccess)
	return &UserResponse{User: user}, nil
}

func (s *authService) Me(ctx context.Context, sess Session) (*model.User, error) {
	id, ok, err := sess.UserID(ctx)
	if err != nil {
		return nil, oops.Code("AUTH_ME_FAILED").With("operation", "read session").Wrap(err)
	}
	if !ok {
		return nil, nil
	}

	user, err := s.userSvc.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("AUTH_ME_FAILED").With("operation", "find user").With("user_id", id).Wrap(err)
	}
	return user, nil
}

func (s *authService) Logout(ctx context.Context, sess Session) bool {
	if err := sess.Destroy(ctx); err != nil {
		s.logger.ErrorContext(ctx, "destroy session", "error", err)
		s.metrics.Record(opLogout, metrics.OutcomeError)
		return false
	}
	s.metrics.Record(opLogout, metrics.OutcomeSuccess)
	return true
}

func (s *authService) ForgotPassword(ctx context.Context, email string) (bool, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Same answer as for a known address.
			s.metrics.Record(opForgotPassword, metrics.OutcomeRejected)
			return true, nil
		}
		s.metrics.Record(opForgotPassword, metrics.OutcomeError)
		return false, oops.Code("RESET_REQUEST_FAILED").With("operation", "find user").Wrap(err)
	}

	token, err := auth.GenerateToken()
	if err != nil {
		s.metrics.Record(opForgotPassword, metrics.OutcomeError)
		return false, oops.Code("RESET_REQUEST_FAILED").With("operation", "generate token").Wrap(err)
	}

	if err := s.tokens.Put(ctx, token, user.ID, auth.ResetTokenExpiry); err != nil {
		s.metrics.Record(opForgotPassword, metrics.OutcomeError)
		return false, oops.Code("RESET_REQUEST_FAILED").With("operation", "store token").Wrap(err)
	}

	if err := s.mailer.Send(ctx, user.Email, resetEmailSubject, s.resetLink(token)); err != nil {
		s.metrics.Record(opForgotPassword, metrics.OutcomeError)
		return false, oops.Code("RESET_REQUEST_FAILED").With("operation", "send email").Wrap(err)
	}

	s.metrics.Record(opForgotPassword, metrics.OutcomeSuccess)
	return true, nil
}

func (s *authService) resetLink(token string) string {
	return fmt.Sprintf(`<a href="%s/change-password/%s">reset password</a>`, s.frontendURL, token)
}

// ChangePassword redeems a reset token, stores the new password and logs the
// user in. The token is consumed even if a later step fails.
func (s *authService) ChangePassword(ctx context.Context, sess Session, token, newPassword string) (*UserResponse, error) {
	if errs := validation.ValidatePassword("newPassword", newPassword); len(errs) > 0 {
		s.metrics.Record(opChangePassword, metrics.OutcomeRejected)
		return fieldErrors(errs...), nil
	}

	userID, ok, err := s.tokens.Redeem(ctx, token)
	if err != nil {
		s.metrics.Record(opChangePassword, metrics.OutcomeError)
		return nil, oops.Code("RESET_PASSWORD_FAILED").With("operation", "redeem token").Wrap(err)
	}
	if !ok {
		s.metrics.Record(opChangePassword, metrics.OutcomeRejected)
		return fieldErrors(FieldError{Field: "token", Message: "token expired"}), nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.Record(opChangePassword, metrics.OutcomeRejected)
			return fieldErrors(FieldError{Field: "token", Message: "user no longer exists"}), nil
		}
		s.metrics.Record(opChangePassword, metrics.OutcomeError)
		return nil, oops.Code("RESET_PASSWORD_FAILED").With("operation", "find user").Wrap(err)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.metrics.Record(opChangePassword, metrics.OutcomeError)
		return nil, oops.Code("RESET_PASSWORD_FAILED").With("operation", "hash password").Wrap(err)
	}

	user.Password = hashed
	if err := s.users.Update(ctx, user); err != nil {
		s.metrics.Record(opChangePassword, metrics.OutcomeError)
		return nil, oops.Code("RESET_PASSWORD_FAILED").With("operation", "update user").Wrap(err)
	}
	s.userSvc.Invalidate(ctx, user.ID)

	if err := sess.SetUser(ctx, user.ID); err != nil {
		s.metrics.Record(opChangePassword, metrics.OutcomeError)
		return nil, oops.Code("RESET_PASSWORD_FAILED").With("operation", "set session").Wrap(err)
	}

	s.metrics.Record(opChangePassword, metrics.OutcomeSuccess)
	return &UserResponse{User: user}, nil
}
