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

type SettlementRepository interface {
	Create(ctx context.Context, request *models.SettlementRequest) error
	GetByID(ctx context.Context, id string) (*models.SettlementRequest, error)
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.SettlementRequest, error)
	List(ctx context.Context, status string, page, pageSize int) ([]*models.SettlementRequest, int64, error)
	MarkReviewed(ctx context.Context, tx *sql.Tx, id, status, notes, reviewedBy, transactionID string, amount int64) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type PostgresSettlementRepository struct {
	db *sql.DB
}

func NewSettlementRepository(db *sql.DB) *PostgresSettlementRepository {
	return &PostgresSettlementRepository{db: db}
}

const settlementColumns = `id, business_id, event_id, amount, symbol, status, notes,
		reviewed_by, reviewed_at, transaction_id, created_at`

func scanSettlement(scan func(dest ...any) error) (*models.SettlementRequest, error) {
	s := &models.SettlementRequest{}
	var notes, reviewedBy, transactionID sql.NullString
	var reviewedAt sql.NullTime

	err := scan(
		&s.ID, &s.BusinessID, &s.EventID, &s.Amount, &s.Symbol, &s.Status,
		&notes, &reviewedBy, &reviewedAt, &transactionID, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Notes = notes.String
	s.ReviewedBy = reviewedBy.String
	s.TransactionID = transactionID.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		s.ReviewedAt = &t
	}
	return s, nil
}

// Create inserts a pendiente settlement. A partial unique index on
// (business_id) WHERE status = 'pendiente' blocks double submission.
func (r *PostgresSettlementRepository) Create(ctx context.Context, request *models.SettlementRequest) error {
	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	request.Status = models.SettlementPending

	query := `INSERT INTO settlement_requests (id, business_id, event_id, amount, symbol, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		request.ID, request.BusinessID, request.EventID, request.Amount, request.Symbol, request.Status,
	).Scan(&request.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create settlement request: %w", err)
	}
	return nil
}

func (r *PostgresSettlementRepository) GetByID(ctx context.Context, id string) (*models.SettlementRequest, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlement_requests WHERE id = $1`

	s, err := scanSettlement(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get settlement request by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresSettlementRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.SettlementRequest, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlement_requests WHERE id = $1 FOR UPDATE`

	s, err := scanSettlement(tx.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get settlement request for update: %w", err)
	}
	return s, nil
}

// List returns settlements filtered by status; an empty status matches all.
func (r *PostgresSettlementRepository) List(ctx context.Context, status string, page, pageSize int) ([]*models.SettlementRequest, int64, error) {
	where := `($1::text = '' OR status = $1)`

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM settlement_requests WHERE `+where, status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count settlement requests: %w", err)
	}

	query := `SELECT ` + settlementColumns + ` FROM settlement_requests WHERE ` + where + `
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list settlement requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.SettlementRequest
	for rows.Next() {
		s, err := scanSettlement(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan settlement request: %w", err)
		}
		requests = append(requests, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over settlement requests: %w", err)
	}
	return requests, total, nil
}

// MarkReviewed records the decision and the swept amount inside the caller's
// transaction.
func (r *PostgresSettlementRepository) MarkReviewed(ctx context.Context, tx *sql.Tx, id, status, notes, reviewedBy, transactionID string, amount int64) error {
	var txID sql.NullString
	if transactionID != "" {
		txID = sql.NullString{String: transactionID, Valid: true}
	}

	query := `UPDATE settlement_requests
		SET status = $1, notes = $2, reviewed_by = $3, reviewed_at = CURRENT_TIMESTAMP,
			transaction_id = $4, amount = $5
		WHERE id = $6`

	result, err := tx.ExecContext(ctx, query, status, notes, reviewedBy, txID, amount, id)
	if err != nil {
		return fmt.Errorf("failed to mark settlement request reviewed: %w", err)
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

func (r *PostgresSettlementRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM settlement_requests WHERE status = $1`, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count settlement requests: %w", err)
	}
	return count, nil
}
