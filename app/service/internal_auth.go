package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-signup/app/entity"
	"github.com/vibast-solutions/ms-go-signup/app/types"
)

var (
	ErrInvalidInternalAPIKey    = errors.New("invalid or expired internal api key")
	ErrInternalAccessDenied     = errors.New("internal api key lacks required access")
	ErrServiceHasActiveAPIKey   = errors.New("service already has an active api key")
	ErrServiceHasNoActiveAPIKey = errors.New("service has no active api key")
)

const (
	// AccessUsersAdmin grants the user administration endpoints.
	AccessUsersAdmin = "users-admin"
	// AccessSignUp grants the gRPC sign-up service.
	AccessSignUp = "sign-up"

	internalAPIKeyPrefix = "mssgn_"
)

type InternalAPIKeyRepository interface {
	Create(ctx context.Context, key *entity.InternalAPIKey) error
	FindActiveByHash(ctx context.Context, keyHash string) (*entity.InternalAPIKey, error)
	FindActiveByServiceName(ctx context.Context, serviceName string, now time.Time) ([]*entity.InternalAPIKey, error)
	Update(ctx context.Context, key *entity.InternalAPIKey) error
}

type InternalAuthService interface {
	ValidateInternalAPIKey(ctx context.Context, apiKey string) (*types.InternalAccess, error)
	AuthorizeInternalAPIKey(ctx context.Context, apiKey, access string) (*types.InternalAccess, error)
	GenerateInternalAPIKey(ctx context.Context, serviceName string) (string, error)
	AddInternalAllowedAccess(ctx context.Context, serviceName, allowedAccess string) error
	DeactivateInternalAPIKeys(ctx context.Context, serviceName string) (int, error)
}

type internalAuthService struct {
	internalAPIKeyRepo InternalAPIKeyRepository
}

func NewInternalAuthService(internalAPIKeyRepo InternalAPIKeyRepository) InternalAuthService {
	return &internalAuthService{internalAPIKeyRepo: internalAPIKeyRepo}
}

func (s *internalAuthService) ValidateInternalAPIKey(ctx context.Context, apiKey string) (*types.InternalAccess, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" || !strings.HasPrefix(apiKey, internalAPIKeyPrefix) {
		return nil, ErrInvalidInternalAPIKey
	}

	key, err := s.internalAPIKeyRepo.FindActiveByHash(ctx, hashInternalAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrInvalidInternalAPIKey
	}

	return &types.InternalAccess{
		ServiceName:   key.ServiceName,
		AllowedAccess: key.AllowedAccess,
	}, nil
}

// AuthorizeInternalAPIKey validates the key and requires access among its grants.
func (s *internalAuthService) AuthorizeInternalAPIKey(ctx context.Context, apiKey, access string) (*types.InternalAccess, error) {
	caller, err := s.ValidateInternalAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if !caller.Allows(access) {
		return caller, ErrInternalAccessDenied
	}
	return caller, nil
}

func (s *internalAuthService) GenerateInternalAPIKey(ctx context.Context, serviceName string) (string, error) {
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		return "", errors.New("service name is required")
	}

	activeKeys, err := s.internalAPIKeyRepo.FindActiveByServiceName(ctx, serviceName, time.Now())
	if err != nil {
		return "", err
	}
	if len(activeKeys) > 0 {
		return "", ErrServiceHasActiveAPIKey
	}

	rawKey, keyHash, err := generateInternalAPIKey()
	if err != nil {
		return "", err
	}

	now := time.Now()
	internalKey := &entity.InternalAPIKey{
		ServiceName:   serviceName,
		KeyHash:       keyHash,
		AllowedAccess: []string{},
		IsActive:      true,
		ExpiresAt:     now.AddDate(100, 0, 0),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err = s.internalAPIKeyRepo.Create(ctx, internalKey); err != nil {
		return "", err
	}

	return rawKey, nil
}

func (s *internalAuthService) AddInternalAllowedAccess(ctx context.Context, serviceName, allowedAccess string) error {
	serviceName = strings.TrimSpace(serviceName)
	allowedAccess = strings.TrimSpace(allowedAccess)
	if serviceName == "" {
		return errors.New("service name is required")
	}
	if allowedAccess == "" {
		return errors.New("allowed access is required")
	}

	activeKeys, err := s.internalAPIKeyRepo.FindActiveByServiceName(ctx, serviceName, time.Now())
	if err != nil {
		return err
	}
	if len(activeKeys) == 0 {
		return ErrServiceHasNoActiveAPIKey
	}

	now := time.Now()
	for _, key := range activeKeys {
		if key.Grants(allowedAccess) {
			continue
		}

		key.AllowedAccess = append(key.AllowedAccess, allowedAccess)
		sort.Strings(key.AllowedAccess)
		key.UpdatedAt = now

		if err = s.internalAPIKeyRepo.Update(ctx, key); err != nil {
			return err
		}
	}

	return nil
}

func (s *internalAuthService) DeactivateInternalAPIKeys(ctx context.Context, serviceName string) (int, error) {
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		return 0, errors.New("service name is required")
	}

	activeKeys, err := s.internalAPIKeyRepo.FindActiveByServiceName(ctx, serviceName, time.Now())
	if err != nil {
		return 0, err
	}
	if len(activeKeys) == 0 {
		return 0, ErrServiceHasNoActiveAPIKey
	}

	now := time.Now()
	for _, key := range activeKeys {
		key.IsActive = false
		key.ExpiresAt = now
		key.UpdatedAt = now
		if err = s.internalAPIKeyRepo.Update(ctx, key); err != nil {
			return 0, err
		}
	}

	return len(activeKeys), nil
}

func generateInternalAPIKey() (string, string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}

	rawKey := internalAPIKeyPrefix + hex.EncodeToString(secret)
	return rawKey, hashInternalAPIKey(rawKey), nil
}

func hashInternalAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}
