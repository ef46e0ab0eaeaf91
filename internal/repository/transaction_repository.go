package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	Query(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error)
	UpdateStatus(ctx context.Context, id, newStatus string) error
	SetChainHash(ctx context.Context, id, hash string) error
	SetPayoutAttempt(ctx context.Context, id string, attempted bool) error
	ListPendingOnChain(ctx context.Context, limit int) ([]*models.Transaction, error)
	ListPendingWithoutHash(ctx context.Context, limit int) ([]*models.Transaction, error)
	CountPendingOnChain(ctx context.Context) (int64, error)
	ReconcileComplete(ctx context.Context, id string) error
	ReconcileFail(ctx context.Context, id string) error
}

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

const transactionColumns = `id, account_id, reference_id, direction, amount, symbol,
		counterparty, status, description, chain_hash, metadata, created_at`

func scanTransaction(scan func(dest ...any) error) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	var chainHash sql.NullString
	var metadata []byte

	err := scan(
		&transaction.ID, &transaction.AccountID, &transaction.ReferenceID,
		&transaction.Direction, &transaction.Amount, &transaction.Symbol,
		&transaction.Counterparty, &transaction.Status, &transaction.Description,
		&chainHash, &metadata, &transaction.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	transaction.ChainHash = chainHash.String
	transaction.Metadata = metadata
	return transaction, nil
}

// Create appends an immutable ledger row inside the caller's storage
// transaction, so a balance mutation and its row commit or roll back together.
func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error {
	if transaction.Amount <= 0 {
		return errors.ErrInvalidAmount
	}
	if transaction.Direction != models.DirectionIncoming && transaction.Direction != models.DirectionOutgoing {
		return errors.NewValidationError("direction", "must be entrante or saliente")
	}

	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	if transaction.ReferenceID == "" {
		transaction.ReferenceID = transaction.ID
	}

	var chainHash sql.NullString
	if transaction.ChainHash != "" {
		chainHash = sql.NullString{String: transaction.ChainHash, Valid: true}
	}
	var metadata any
	if transaction.Metadata != nil {
		metadata = []byte(transaction.Metadata)
	}

	query := `INSERT INTO transactions
		(id, account_id, reference_id, direction, amount, symbol, counterparty, status, description, chain_hash, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	err := tx.QueryRowContext(ctx, query,
		transaction.ID, transaction.AccountID, transaction.ReferenceID,
		transaction.Direction, transaction.Amount, transaction.Symbol,
		transaction.Counterparty, transaction.Status, transaction.Description,
		chainHash, metadata,
	).Scan(&transaction.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	transaction, err := scanTransaction(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}
	return transaction, nil
}

// Query lists ledger rows with AND-combined filters, newest first.
func (r *PostgresTransactionRepository) Query(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error) {
	where := " WHERE 1=1"
	args := []any{}

	addArg := func(clause string, value any) {
		args = append(args, value)
		where += " AND " + clause + " $" + strconv.Itoa(len(args))
	}

	if filter.AccountID != "" {
		addArg("account_id =", filter.AccountID)
	}
	if filter.Direction != "" {
		addArg("direction =", filter.Direction)
	}
	if filter.Status != "" {
		addArg("status =", filter.Status)
	}
	if filter.DateFrom != nil {
		addArg("created_at >=", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		addArg("created_at <=", *filter.DateTo)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, transaction)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return transactions, total, nil
}

// UpdateStatus moves a row forward. Only pendiente -> completada and
// pendiente -> fallida are legal; everything else is an invalid transition.
func (r *PostgresTransactionRepository) UpdateStatus(ctx context.Context, id, newStatus string) error {
	if newStatus != models.TxStatusCompleted && newStatus != models.TxStatusFailed {
		return errors.NewTransitionError("transaction", "", newStatus)
	}

	query := `UPDATE transactions SET status = $1 WHERE id = $2 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, newStatus, id, models.TxStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating transaction status: %w", err)
	}
	if rowsAffected == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return errors.NewTransitionError("transaction", current.Status, newStatus)
	}
	return nil
}

func (r *PostgresTransactionRepository) SetChainHash(ctx context.Context, id, hash string) error {
	query := `UPDATE transactions SET chain_hash = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, hash, id)
	if err != nil {
		return fmt.Errorf("failed to set transaction chain hash: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after setting chain hash: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}

// SetPayoutAttempt flags whether a payout submission was attempted for this
// row. Clearing the flag re-arms the reconciler's automatic resubmission.
func (r *PostgresTransactionRepository) SetPayoutAttempt(ctx context.Context, id string, attempted bool) error {
	query := `UPDATE transactions
		SET metadata = COALESCE(metadata, '{}'::jsonb) || jsonb_build_object('payout_attempted', $1::boolean)
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, attempted, id)
	if err != nil {
		return fmt.Errorf("failed to set payout attempt flag: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after setting payout attempt flag: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}

// ListPendingOnChain returns pendiente rows that carry a chain hash, oldest
// first, for the reconciler to re-poll.
func (r *PostgresTransactionRepository) ListPendingOnChain(ctx context.Context, limit int) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 AND chain_hash IS NOT NULL
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, models.TxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending on-chain transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, transaction)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return transactions, nil
}

// ListPendingWithoutHash returns pendiente rows whose payout submission never
// reached the node. The one-minute grace keeps the reconciler from racing a
// submission that is still in flight.
func (r *PostgresTransactionRepository) ListPendingWithoutHash(ctx context.Context, limit int) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 AND chain_hash IS NULL AND metadata IS NOT NULL
			AND created_at < CURRENT_TIMESTAMP - INTERVAL '1 minute'
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, models.TxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stranded pending transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, transaction)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}
	return transactions, nil
}

func (r *PostgresTransactionRepository) CountPendingOnChain(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE status = $1 AND chain_hash IS NOT NULL`,
		models.TxStatusPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending on-chain transactions: %w", err)
	}
	return count, nil
}

// ReconcileComplete marks a confirmed on-chain row completada and moves any
// withdrawal tied to it to completado, atomically.
func (r *PostgresTransactionRepository) ReconcileComplete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1 WHERE id = $2 AND status = $3`,
		models.TxStatusCompleted, id, models.TxStatusPending,
	)
	if err != nil {
		return errors.NewStorageError("complete transaction", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		// Already reconciled by a concurrent pass.
		return nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE withdrawal_requests SET status = $1 WHERE transaction_id = $2 AND status = $3`,
		models.WithdrawalCompleted, id, models.WithdrawalApproved,
	)
	if err != nil {
		return errors.NewStorageError("complete withdrawal", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("commit", err)
	}
	tx = nil
	return nil
}

// ReconcileFail marks a rejected on-chain row fallida, credits the debited
// amount back to the account, and surfaces any tied withdrawal as fallido.
func (r *PostgresTransactionRepository) ReconcileFail(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	var accountID, direction string
	var amount int64
	err = tx.QueryRowContext(ctx,
		`SELECT account_id, direction, amount FROM transactions WHERE id = $1 AND status = $2 FOR UPDATE`,
		id, models.TxStatusPending,
	).Scan(&accountID, &direction, &amount)
	if err != nil {
		if err == sql.ErrNoRows {
			// Already reconciled by a concurrent pass.
			return nil
		}
		return errors.NewStorageError("lock transaction", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1 WHERE id = $2`,
		models.TxStatusFailed, id,
	); err != nil {
		return errors.NewStorageError("fail transaction", err)
	}

	if direction == models.DirectionOutgoing {
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET balance = balance + $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
			amount, accountID,
		); err != nil {
			return errors.NewStorageError("compensate balance", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE withdrawal_requests SET status = $1 WHERE transaction_id = $2 AND status = $3`,
		models.WithdrawalFailed, id, models.WithdrawalApproved,
	); err != nil {
		return errors.NewStorageError("fail withdrawal", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageError("commit", err)
	}
	tx = nil
	return nil
}
