package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/vibast-solutions/ms-go-signup/app/entity"
)

// ErrDuplicate is returned when an insert or update violates a unique key.
var ErrDuplicate = errors.New("duplicate entry")

const mysqlDuplicateEntry = 1062

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const userSelectColumns = `id, public_id, username, email, password_hash, enabled, verification_token, created_at, updated_at`

// UserSort selects the ordering of List results.
type UserSort struct {
	Field string
	Desc  bool
}

var sortableUserColumns = map[string]string{
	"username":   "username",
	"email":      "email",
	"created_at": "created_at",
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (public_id, username, email, password_hash, enabled, verification_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.PublicID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Enabled,
		user.VerificationToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) AddRole(ctx context.Context, userID uint64, role string) error {
	query := `INSERT INTO user_roles (user_id, role) VALUES (?, ?)`
	_, err := r.db.ExecContext(ctx, query, userID, role)
	return translateError(err)
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = ? OR email = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ExistsEnabledByUsernameOrEmail only counts verified accounts.
func (r *UserRepository) ExistsEnabledByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE (username = ? OR email = ?) AND enabled = 1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	query := `SELECT ` + userSelectColumns + ` FROM users WHERE username = ?`
	return r.findOne(ctx, query, username)
}

func (r *UserRepository) FindByPublicID(ctx context.Context, publicID string) (*entity.User, error) {
	query := `SELECT ` + userSelectColumns + ` FROM users WHERE public_id = ?`
	return r.findOne(ctx, query, publicID)
}

func (r *UserRepository) List(ctx context.Context, offset, limit int, sort UserSort) ([]*entity.User, error) {
	column, ok := sortableUserColumns[sort.Field]
	if !ok {
		column = "id"
	}
	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY %s %s LIMIT ? OFFSET ?`, userSelectColumns, column, direction)
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*entity.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			username = ?,
			email = ?,
			password_hash = ?,
			enabled = ?,
			verification_token = ?,
			updated_at = ?
		WHERE id = ?
	`
	user.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Enabled,
		user.VerificationToken,
		user.UpdatedAt,
		user.ID,
	)
	return translateError(err)
}

// EnablePending enables the user only while token is still its outstanding
// verification token, and reports whether the row changed.
func (r *UserRepository) EnablePending(ctx context.Context, userID uint64, token string) (bool, error) {
	query := `
		UPDATE users SET
			enabled = 1,
			verification_token = NULL,
			updated_at = ?
		WHERE id = ? AND enabled = 0 AND verification_token = ?
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), userID, token)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DeleteByPublicID removes the user and reports whether a row was deleted.
func (r *UserRepository) DeleteByPublicID(ctx context.Context, publicID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE public_id = ?`, publicID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	roles, err := r.listRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return user, nil
}

func (r *UserRepository) listRoles(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]string, 0)
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

type rowScanner func(dest ...interface{}) error

func scanUser(scan rowScanner) (*entity.User, error) {
	user := &entity.User{}
	if err := scan(
		&user.ID,
		&user.PublicID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Enabled,
		&user.VerificationToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return user, nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %s", ErrDuplicate, strings.TrimSpace(mysqlErr.Message))
	}
	return err
}
