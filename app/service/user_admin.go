package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/vibast-solutions/ms-go-signup/app/entity"
	"github.com/vibast-solutions/ms-go-signup/app/repository"
	"github.com/vibast-solutions/ms-go-signup/app/types"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type UserAdminRepository interface {
	FindByPublicID(ctx context.Context, publicID string) (*entity.User, error)
	List(ctx context.Context, offset, limit int, sort repository.UserSort) ([]*entity.User, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, user *entity.User) error
	DeleteByPublicID(ctx context.Context, publicID string) (bool, error)
}

type UserAdminService interface {
	ListUsers(ctx context.Context, req types.PageRequest) (*types.UserPage, error)
	GetUser(ctx context.Context, publicID string) (*entity.User, error)
	EnableUser(ctx context.Context, publicID string) (bool, error)
	DisableUser(ctx context.Context, publicID string) (bool, error)
	DeleteUser(ctx context.Context, publicID string) error
}

type userAdminService struct {
	users UserAdminRepository
}

func NewUserAdminService(users UserAdminRepository) UserAdminService {
	return &userAdminService{users: users}
}

func (s *userAdminService) ListUsers(ctx context.Context, req types.PageRequest) (*types.UserPage, error) {
	page := req.Page
	if page < 0 {
		page = 0
	}
	size := req.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page > math.MaxInt/size {
		return nil, fmt.Errorf("%w: page %d is out of range", ErrInvalidInput, page)
	}

	users, err := s.users.List(ctx, page*size, size, parseUserSort(req.Sort))
	if err != nil {
		return nil, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}

	content := make([]types.UserResponse, 0, len(users))
	for _, user := range users {
		content = append(content, types.NewUserResponse(user))
	}

	return &types.UserPage{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    int((total + int64(size) - 1) / int64(size)),
	}, nil
}

func (s *userAdminService) GetUser(ctx context.Context, publicID string) (*entity.User, error) {
	user, err := s.users.FindByPublicID(ctx, strings.TrimSpace(publicID))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// EnableUser reports false when the account was already enabled.
func (s *userAdminService) EnableUser(ctx context.Context, publicID string) (bool, error) {
	return s.setEnabled(ctx, publicID, true)
}

// DisableUser reports false when the account was already disabled.
func (s *userAdminService) DisableUser(ctx context.Context, publicID string) (bool, error) {
	return s.setEnabled(ctx, publicID, false)
}

func (s *userAdminService) DeleteUser(ctx context.Context, publicID string) error {
	deleted, err := s.users.DeleteByPublicID(ctx, strings.TrimSpace(publicID))
	if err != nil {
		return err
	}
	if !deleted {
		return ErrUserNotFound
	}

	logrus.WithField("public_id", publicID).Info("User deleted")
	return nil
}

func (s *userAdminService) setEnabled(ctx context.Context, publicID string, enabled bool) (bool, error) {
	user, err := s.GetUser(ctx, publicID)
	if err != nil {
		return false, err
	}
	if user.Enabled == enabled {
		return false, nil
	}

	user.Enabled = enabled
	if err = s.users.Update(ctx, user); err != nil {
		return false, err
	}

	logrus.WithFields(logrus.Fields{
		"public_id": user.PublicID,
		"enabled":   enabled,
	}).Info("User status changed")
	return true, nil
}

// parseUserSort accepts "field" or "field,desc".
func parseUserSort(raw string) repository.UserSort {
	field, direction, _ := strings.Cut(strings.TrimSpace(raw), ",")
	return repository.UserSort{
		Field: strings.ToLower(strings.TrimSpace(field)),
		Desc:  strings.EqualFold(strings.TrimSpace(direction), "desc"),
	}
}
