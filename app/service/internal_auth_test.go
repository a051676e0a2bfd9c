package service_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/vibast-solutions/ms-go-signup/app/repository"
	"github.com/vibast-solutions/ms-go-signup/app/service"
)

var internalAPIKeyColumns = []string{
	"id",
	"service_name",
	"key_hash",
	"allowed_access_json",
	"is_active",
	"expires_at",
	"created_at",
	"updated_at",
}

const (
	findInternalByHashQuery   = `(?s)SELECT id, service_name, key_hash, allowed_access_json, is_active, expires_at, created_at, updated_at\s+FROM internal_api_keys\s+WHERE key_hash = \? AND is_active = 1 AND expires_at > NOW\(\)\s+ORDER BY id DESC\s+LIMIT 1`
	findInternalByServiceName = `(?s)SELECT id, service_name, key_hash, allowed_access_json, is_active, expires_at, created_at, updated_at\s+FROM internal_api_keys\s+WHERE service_name = \? AND is_active = 1 AND expires_at > \?\s+ORDER BY id DESC`
	insertInternalAPIKeyQuery = `(?s)INSERT INTO internal_api_keys \(\s+service_name, key_hash, allowed_access_json, is_active, expires_at, created_at, updated_at\s+\) VALUES \(\?, \?, \?, \?, \?, \?, \?\)`
	updateInternalAPIKeyQuery = `(?s)UPDATE internal_api_keys SET\s+allowed_access_json = \?,\s+is_active = \?,\s+expires_at = \?,\s+updated_at = \?\s+WHERE id = \?`
)

func newInternalAuthServiceWithMock(t *testing.T) (service.InternalAuthService, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	svc := service.NewInternalAuthService(repository.NewInternalAPIKeyRepository(db))
	return svc, mock, func() { _ = db.Close() }
}

func hashInternalAPIKeyForTest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func TestInternalAuthService_ValidateInternalAPIKey_Success(t *testing.T) {
	svc, mock, cleanup := newInternalAuthServiceWithMock(t)
	defer cleanup()

	rawKey := "mssgn_test_key"
	keyHash := hashInternalAPIKeyForTest(rawKey)
	now := time.Now()

	mock.ExpectQuery(findInternalByHashQuery).
		WithArgs(keyHash).
		WillReturnRows(sqlmock.NewRows(internalAPIKeyColumns).AddRow(
			uint64(1),
			"backoffice",
			keyHash,
			`["sign-up","users-admin"]`,
			true,
			now.Add(time.Hour),
			now,
			now,
		))

	res, err := svc.ValidateInternalAPIKey(context.Background(), rawKey)
	if err != nil {
		t.Fatalf("validate internal api key failed: %v", err)
	}
	if res.ServiceName != "backoffice" {
		t.Fatalf("expected service_name backoffice, got %q", res.ServiceName)
	}
	if len(res.AllowedAccess) != 2 {
		t.Fatalf("expected 2 allowed access entries, got %#v", res.AllowedAccess)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInternalAuthService_ValidateInternalAPIKey_RejectsForeignPrefix(t *testing.T) {
	svc, mock, cleanup := newInternalAuthServiceWithMock(t)
	defer cleanup()

	_, err := svc.ValidateInternalAPIKey(context.Background(), "msint_other_service_key")
	if !errors.Is(err, service.ErrInvalidInternalAPIKey) {
		t.Fatalf("expected ErrInvalidInternalAPIKey, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInternalAuthService_ValidateInternalAPIKey_Unknown(t *testing.T) {
	svc, mock, cleanup := newInternalAuthServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findInternalByHashQuery).
		WillReturnRows(sqlmock.NewRows(internalAPIKeyColumns))

	_, err := svc.ValidateInternalAPIKey(context.Background(), "mssgn_unknown")
	if !errors.Is(err, service.ErrInvalidInternalAPIKey) {
		t.Fatalf("expected ErrInvalidInternalAPIKey, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInternalAuthService_AuthorizeInternalAPIKey_DeniesMissingAccess(t *testing.T) {
	svc, mock, cleanup := newInternalAuthServiceWithMock(t)
	defer cleanup()

	rawKey := "mssgn_frontend"
	now := time.Now()
	mock.ExpectQuery(findInternalByHashQuery).
		WithArgs(hashInternalAPIKeyForTest(rawKey)).
		WillReturnRows(sqlmock.NewRows(internalAPIKeyColumns).AddRow(
			uint64(3),
			"frontend",
			hashInternalAPIKeyForTest(rawKey),
			`["sign-up"]`,
			true,
			now.Add(time.Hour),
			now,
			now,
		))

	caller, err := svc.AuthorizeInternalAPIKey(context.Background(), rawKey, service.AccessUsersAdmin)
	if !errors.Is(err, service.ErrInternalAccessDenied) {
		t.Fatalf("expected ErrInternalAccessDenied, got %v", err)
	}
	if caller == nil || caller.ServiceName != "frontend" {
		t.Fatalf("expected caller identity to be returned, got %#v", caller)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInternalAuthService_GenerateInternalAPIKey_Success(t *testing.T) {
	svc, mock, cleanup := newInternalAuthServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findInternalByServiceName).
		WithArgs("backoffice", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(internalAPIKeyColumns))
	mock.ExpectExec(insertInternalAPIKeyQuery).
		WithArgs(
			"backoffice",
			sqlmock.AnyArg(),
			`[]`,
			true,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	key, err := svc.GenerateInternalAPIKey(context.Background(), "backoffice")
	if err != nil {
		t.Fatalf("generate internal api key failed: %v", err)
	}
	if !strings.HasPrefix(key, "mssgn_") || len(key) != len("mssgn_")+64 {
		t.Fatalf("unexpected key format %q", key)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInternalAuthService_GenerateInternalAPIKey_FailsWhenActiveExists(t *testing.T) {
	svc, mock, cleanup := newInternalAuthServiceWithMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(findInternalByServiceName).
		WithArgs("backoffice", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(internalAPIKeyColumns).AddRow(
			uint64(1),
			"backoffice",
			"existing-hash",
			`[]`,
			true,
			now.Add(time.Hour),
			now,
			now,
		))

	_, err := svc.GenerateInternalAPIKey(context.Background(), "backoffice")
	if err == nil || !errors.Is(err, service.ErrServiceHasActiveAPIKey) {
		t.Fatalf("expected ErrServiceHasActiveAPIKey, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInternalAuthService_AddInternalAllowedAccess_UpdatesMissingEntries(t *testing.T) {
	svc, mock, cleanup := newInternalAuthServiceWithMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(findInternalByServiceName).
		WithArgs("backoffice", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(internalAPIKeyColumns).
			AddRow(
				uint64(2),
				"backoffice",
				"hash-2",
				`[]`,
				true,
				now.Add(time.Hour),
				now,
				now,
			).
			AddRow(
				uint64(1),
				"backoffice",
				"hash-1",
				`["users-admin"]`,
				true,
				now.Add(time.Hour),
				now,
				now,
			))

	mock.ExpectExec(updateInternalAPIKeyQuery).
		WithArgs(
			`["users-admin"]`,
			true,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			uint64(2),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.AddInternalAllowedAccess(context.Background(), "backoffice", service.AccessUsersAdmin); err != nil {
		t.Fatalf("add internal allowed access failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInternalAuthService_DeactivateInternalAPIKeys(t *testing.T) {
	svc, mock, cleanup := newInternalAuthServiceWithMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(findInternalByServiceName).
		WithArgs("backoffice", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(internalAPIKeyColumns).AddRow(
			uint64(4),
			"backoffice",
			"hash-4",
			`["users-admin"]`,
			true,
			now.Add(time.Hour),
			now,
			now,
		))
	mock.ExpectExec(updateInternalAPIKeyQuery).
		WithArgs(
			`["users-admin"]`,
			false,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			uint64(4),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := svc.DeactivateInternalAPIKeys(context.Background(), "backoffice")
	if err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 deactivated key, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInternalAuthService_DeactivateInternalAPIKeys_NoActiveKey(t *testing.T) {
	svc, mock, cleanup := newInternalAuthServiceWithMock(t)
	defer cleanup()

	mock.ExpectQuery(findInternalByServiceName).
		WithArgs("backoffice", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(internalAPIKeyColumns))

	_, err := svc.DeactivateInternalAPIKeys(context.Background(), "backoffice")
	if !errors.Is(err, service.ErrServiceHasNoActiveAPIKey) {
		t.Fatalf("expected ErrServiceHasNoActiveAPIKey, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
