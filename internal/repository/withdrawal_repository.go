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

type WithdrawalRepository interface {
	Create(ctx context.Context, request *models.WithdrawalRequest) error
	GetByID(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.WithdrawalRequest, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error)
	List(ctx context.Context, status string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error)
	MarkReviewed(ctx context.Context, tx *sql.Tx, id, status, notes, reviewedBy, transactionID string) error
	SetChainHash(ctx context.Context, id, hash string) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type PostgresWithdrawalRepository struct {
	db *sql.DB
}

func NewWithdrawalRepository(db *sql.DB) *PostgresWithdrawalRepository {
	return &PostgresWithdrawalRepository{db: db}
}

const withdrawalColumns = `id, user_id, account_id, amount, symbol, status, notes,
		reviewed_by, reviewed_at, transaction_id, chain_hash, created_at`

func scanWithdrawal(scan func(dest ...any) error) (*models.WithdrawalRequest, error) {
	w := &models.WithdrawalRequest{}
	var notes, reviewedBy, transactionID, chainHash sql.NullString
	var reviewedAt sql.NullTime

	err := scan(
		&w.ID, &w.UserID, &w.AccountID, &w.Amount, &w.Symbol, &w.Status,
		&notes, &reviewedBy, &reviewedAt, &transactionID, &chainHash, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.Notes = notes.String
	w.ReviewedBy = reviewedBy.String
	w.TransactionID = transactionID.String
	w.ChainHash = chainHash.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		w.ReviewedAt = &t
	}
	return w, nil
}

// Create inserts a new pendiente request. A partial unique index on
// (account_id) WHERE status = 'pendiente' enforces at most one outstanding
// request per account; the violation maps to ErrDuplicatePending.
func (r *PostgresWithdrawalRepository) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	request.Status = models.WithdrawalPending

	query := `INSERT INTO withdrawal_requests (id, user_id, account_id, amount, symbol, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		request.ID, request.UserID, request.AccountID, request.Amount, request.Symbol, request.Status,
	).Scan(&request.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

func (r *PostgresWithdrawalRepository) GetByID(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`

	w, err := scanWithdrawal(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request by ID: %w", err)
	}
	return w, nil
}

// GetByIDForUpdate locks the request row so two administrators cannot review
// it at the same time.
func (r *PostgresWithdrawalRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`

	w, err := scanWithdrawal(tx.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request for update: %w", err)
	}
	return w, nil
}

func (r *PostgresWithdrawalRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error) {
	return r.list(ctx, `user_id = $1`, userID, page, pageSize)
}

// List returns requests filtered by status; an empty status matches all.
func (r *PostgresWithdrawalRepository) List(ctx context.Context, status string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error) {
	return r.list(ctx, `($1::text = '' OR status = $1)`, status, page, pageSize)
}

func (r *PostgresWithdrawalRepository) list(ctx context.Context, where string, arg any, page, pageSize int) ([]*models.WithdrawalRequest, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM withdrawal_requests WHERE `+where, arg,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count withdrawal requests: %w", err)
	}

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE ` + where + `
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, arg, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		requests = append(requests, w)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over withdrawal requests: %w", err)
	}
	return requests, total, nil
}

// MarkReviewed records the administrator decision inside the caller's
// transaction. The pendiente guard belongs to the caller, which holds the
// row lock.
func (r *PostgresWithdrawalRepository) MarkReviewed(ctx context.Context, tx *sql.Tx, id, status, notes, reviewedBy, transactionID string) error {
	var txID sql.NullString
	if transactionID != "" {
		txID = sql.NullString{String: transactionID, Valid: true}
	}

	query := `UPDATE withdrawal_requests
		SET status = $1, notes = $2, reviewed_by = $3, reviewed_at = CURRENT_TIMESTAMP, transaction_id = $4
		WHERE id = $5`

	result, err := tx.ExecContext(ctx, query, status, notes, reviewedBy, txID, id)
	if err != nil {
		return fmt.Errorf("failed to mark withdrawal request reviewed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after review: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrRequestNotFound
	}
	return nil
}

func (r *PostgresWithdrawalRepository) SetChainHash(ctx context.Context, id, hash string) error {
	query := `UPDATE withdrawal_requests SET chain_hash = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, hash, id)
	if err != nil {
		return fmt.Errorf("failed to set withdrawal chain hash: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after setting chain hash: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrRequestNotFound
	}
	return nil
}

func (r *PostgresWithdrawalRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM withdrawal_requests WHERE status = $1`, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count withdrawal requests: %w", err)
	}
	return count, nil
}
