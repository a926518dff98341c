package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"authsvc/internal/model"
)

var (
	// ErrNotFound is returned by finders when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateKey matches any *DuplicateKeyError via errors.Is.
	ErrDuplicateKey = errors.New("duplicate key")
)

// DuplicateKeyError reports which unique column an insert collided on.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return "duplicate " + e.Field
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

// UserRepository defines persistence operations.
type UserRepository interface {
	// Create inserts a user. A unique-constraint violation comes back as a
	// *DuplicateKeyError.
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// FindByUsernameOrEmail looks up by email when s contains '@' and by
	// username otherwise.
	FindByUsernameOrEmail(ctx context.Context, s string) (*model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if field, ok := duplicateField(err); ok {
			return &DuplicateKeyError{Field: field, Err: err}
		}
		return err
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Save(user).Error
	if field, ok := duplicateField(err); ok {
		return &DuplicateKeyError{Field: field, Err: err}
	}
	return err
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findBy(ctx, "email = ?", email)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findBy(ctx, "username = ?", username)
}

func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, s string) (*model.User, error) {
	if strings.Contains(s, "@") {
		return r.FindByEmail(ctx, s)
	}
	return r.FindByUsername(ctx, s)
}

func (r *userRepository) findBy(ctx context.Context, query string, arg string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
