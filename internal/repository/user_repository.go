package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/storefront-api/internal/domain"
	"github.com/prperemyshlev/storefront-api/pkg/database"
)

const userColumns = `id, username, email, password_hash, phone, role_id, is_active, created_at, updated_at, last_login_at`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.Account) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, phone, role_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if !user.Role.Valid() {
		return fmt.Errorf("unknown role %q", user.Role)
	}

	// Generate UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		nullString(user.Phone),
		user.Role.ID(),
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if sentinel := uniqueViolation(err); sentinel != nil {
			return fmt.Errorf("failed to create user %s: %w", user.Email, sentinel)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.Executor(ctx).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// List returns a page of users, newest first, with the total count
func (r *userRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, int, error) {
	exec := r.db.Executor(ctx)

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := exec.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.Account
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}

	return users, total, nil
}

// UpdatePassword replaces the stored password hash
func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return expectRow(result, "user", userID)
}

// UpdateProfile persists username and phone
func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.Account) error {
	query := `
		UPDATE users
		SET username = $2, phone = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, user.ID, user.Username, nullString(user.Phone))
	if err != nil {
		if sentinel := uniqueViolation(err); sentinel != nil {
			return fmt.Errorf("failed to update user %s: %w", user.ID, sentinel)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return expectRow(result, "user", user.ID)
}

// SetActive activates or deactivates an account
func (r *userRepository) SetActive(ctx context.Context, userID string, active bool) error {
	query := `
		UPDATE users
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, userID, active)
	if err != nil {
		return fmt.Errorf("failed to set user active flag: %w", err)
	}

	return expectRow(result, "user", userID)
}

// UpdateLastLogin updates the last login timestamp for a user
func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	query := `
		UPDATE users
		SET last_login_at = $1
		WHERE id = $2
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, at, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return expectRow(result, "user", userID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.Account, error) {
	user := &domain.Account{}
	var (
		phone       sql.NullString
		roleID      int
		lastLoginAt sql.NullTime
	)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&phone,
		&roleID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}

	role, ok := domain.RoleFromID(roleID)
	if !ok {
		return nil, fmt.Errorf("user %s has unknown role id %d", user.ID, roleID)
	}
	user.Role = role

	if phone.Valid {
		user.Phone = &phone.String
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	return user, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// expectRow turns a zero-row update into ErrNotFound
func expectRow(result sql.Result, entity, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s with id %s not found: %w", entity, id, ErrNotFound)
	}

	return nil
}
