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

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByOwnerID(ctx context.Context, ownerID string) (*models.Account, error)
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id string, newBalance int64) error
	Retire(ctx context.Context, id string) error
	EnsureTreasury(ctx context.Context, symbol, network string) (*models.Account, error)
}

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

const accountColumns = `id, owner_id, symbol, balance, network, retired, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID, &account.OwnerID, &account.Symbol, &account.Balance,
		&account.Network, &account.Retired, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	query := `INSERT INTO accounts (id, owner_id, symbol, balance, network)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.OwnerID, account.Symbol, account.Balance, account.Network,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}
	return account, nil
}

func (r *PostgresAccountRepository) GetByOwnerID(ctx context.Context, ownerID string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, ownerID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by owner ID: %w", err)
	}
	return account, nil
}

// GetByIDForUpdate takes a row lock on the account. Callers locking two
// accounts must lock them in ascending id order to avoid deadlock when
// transfers cross.
func (r *PostgresAccountRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	account := &models.Account{}
	err := tx.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.OwnerID, &account.Symbol, &account.Balance,
		&account.Network, &account.Retired, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by ID for update: %w", err)
	}
	return account, nil
}

func (r *PostgresAccountRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id string, newBalance int64) error {
	query := `UPDATE accounts SET balance = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`

	result, err := tx.ExecContext(ctx, query, newBalance, id)
	if err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating account balance: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}
	return nil
}

// Retire soft-retires the account. Accounts are never deleted.
func (r *PostgresAccountRepository) Retire(ctx context.Context, id string) error {
	query := `UPDATE accounts SET retired = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to retire account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after retiring account: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}
	return nil
}

// EnsureTreasury creates the central custodial account if it does not exist yet.
func (r *PostgresAccountRepository) EnsureTreasury(ctx context.Context, symbol, network string) (*models.Account, error) {
	query := `INSERT INTO accounts (id, owner_id, symbol, balance, network)
		VALUES ($1, $1, $2, 0, $3)
		ON CONFLICT (id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, models.TreasuryAccountID, symbol, network); err != nil {
		return nil, fmt.Errorf("failed to ensure treasury account: %w", err)
	}
	return r.GetByID(ctx, models.TreasuryAccountID)
}
