package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByCarnet(ctx context.Context, carnet string) (*models.User, error)
	Search(ctx context.Context, term string, page, pageSize int) ([]*models.User, int64, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SaveResetToken(ctx context.Context, userID, tokenHash string, expiresAt sql.NullTime) error
	ConsumeResetToken(ctx context.Context, tokenHash string) (string, error)
}

type PostgresUserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, nombres, apellidos, email, carnet, password_hash, role, created_at`

func scanUser(scan func(dest ...any) error) (*models.User, error) {
	user := &models.User{}
	err := scan(
		&user.ID, &user.Nombres, &user.Apellidos, &user.Email,
		&user.Carnet, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	query := `INSERT INTO users (id, nombres, apellidos, email, carnet, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Nombres, user.Apellidos, user.Email,
		user.Carnet, user.PasswordHash, user.Role,
	).Scan(&user.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, `email = $1`, email)
}

func (r *PostgresUserRepository) GetByCarnet(ctx context.Context, carnet string) (*models.User, error) {
	return r.getBy(ctx, `carnet = $1`, carnet)
}

func (r *PostgresUserRepository) getBy(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Search matches name, email or carnet, case-insensitively.
func (r *PostgresUserRepository) Search(ctx context.Context, term string, page, pageSize int) ([]*models.User, int64, error) {
	where := ` WHERE nombres ILIKE $1 OR apellidos ILIKE $1 OR email ILIKE $1 OR carnet ILIKE $1`
	pattern := "%" + term + "%"

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + `
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, pattern, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over users: %w", err)
	}
	return users, total, nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET nombres = $1, apellidos = $2, role = $3 WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, user.Nombres, user.Apellidos, user.Role, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating user: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating password: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

// SaveResetToken stores a hashed single-use reset token, replacing any
// previous one for the user.
func (r *PostgresUserRepository) SaveResetToken(ctx context.Context, userID, tokenHash string, expiresAt sql.NullTime) error {
	query := `INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET token_hash = $2, expires_at = $3`

	if _, err := r.db.ExecContext(ctx, query, userID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken deletes a live token and returns the user it belonged to.
func (r *PostgresUserRepository) ConsumeResetToken(ctx context.Context, tokenHash string) (string, error) {
	query := `DELETE FROM password_reset_tokens
		WHERE token_hash = $1 AND expires_at > CURRENT_TIMESTAMP
		RETURNING user_id`

	var userID string
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", errors.ErrUnauthorized
		}
		return "", fmt.Errorf("failed to consume reset token: %w", err)
	}
	return userID, nil
}
