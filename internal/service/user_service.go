package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"authsvc/internal/cache"
	"authsvc/internal/model"
	"authsvc/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UserService is a read-through cache over the user repository. Cached
// copies never carry the password hash, so they are only fit for display.
type UserService interface {
	GetUser(ctx context.Context, id uint) (*model.User, error)
	Invalidate(ctx context.Context, id uint)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache. A nil cache
// disables caching.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// GetUser returns repository.ErrNotFound when the id does not resolve.
// Cache failures fall back to the repository.
func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	if s.cache != nil {
		if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
			var cached model.User
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(user); err == nil {
			_ = s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL)
		}
	}
	return user, nil
}

// Invalidate drops the cached copy, best effort.
func (s *userService) Invalidate(ctx context.Context, id uint) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, s.cacheKey(id))
	}
}
