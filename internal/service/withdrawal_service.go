package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/hayekcoin/campus-wallet/internal/chain"
	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/repository"
)

type WithdrawalService interface {
	Create(ctx context.Context, userID string, amount int64) (*models.WithdrawalRequest, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error)
	List(ctx context.Context, status string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error)
	Approve(ctx context.Context, id, reviewerID, notes string) (*models.WithdrawalRequest, error)
	Reject(ctx context.Context, id, reviewerID, notes string) (*models.WithdrawalRequest, error)
}

type WithdrawalServiceImpl struct {
	db              *sql.DB
	withdrawalRepo  repository.WithdrawalRepository
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	chainClient     chain.Client
	logger          *slog.Logger
}

func NewWithdrawalService(db *sql.DB, withdrawalRepo repository.WithdrawalRepository, accountRepo repository.AccountRepository, transactionRepo repository.TransactionRepository, chainClient chain.Client, logger *slog.Logger) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		db:              db,
		withdrawalRepo:  withdrawalRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		chainClient:     chainClient,
		logger:          logger,
	}
}

// Create submits a pendiente request. The balance check here is a soft check;
// the balance may drop before approval, which re-validates under the lock.
func (s *WithdrawalServiceImpl) Create(ctx context.Context, userID string, amount int64) (*models.WithdrawalRequest, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user_id", "must be non-empty")
	}
	if amount <= 0 {
		return nil, errors.ErrInvalidAmount
	}

	account, err := s.accountRepo.GetByOwnerID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account.Retired {
		return nil, errors.ErrAccountRetired
	}
	if account.Balance < amount {
		return nil, errors.ErrInsufficientFunds
	}

	request := &models.WithdrawalRequest{
		UserID:    userID,
		AccountID: account.ID,
		Amount:    amount,
		Symbol:    account.Symbol,
	}
	if err := s.withdrawalRepo.Create(ctx, request); err != nil {
		if errors.IsConflict(err) {
			s.logger.Warn("duplicate pending withdrawal", "user_id", userID)
		}
		return nil, err
	}

	s.logger.Info("withdrawal request created",
		"request_id", request.ID,
		"user_id", userID,
		"amount", amount,
	)
	return request, nil
}

func (s *WithdrawalServiceImpl) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error) {
	return s.withdrawalRepo.ListByUser(ctx, userID, page, pageSize)
}

func (s *WithdrawalServiceImpl) List(ctx context.Context, status string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error) {
	return s.withdrawalRepo.List(ctx, status, page, pageSize)
}

// Approve re-validates the balance under the account lock (hard check),
// debits the account, and records a pendiente saliente row that tracks the
// external payout. A second approval of the same request finds it no longer
// pendiente and fails with a transition error, so funds cannot leave twice.
func (s *WithdrawalServiceImpl) Approve(ctx context.Context, id, reviewerID, notes string) (*models.WithdrawalRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	request, err := s.withdrawalRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.WithdrawalPending {
		return nil, errors.NewTransitionError("withdrawal", request.Status, models.WithdrawalApproved)
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, request.AccountID)
	if err != nil {
		return nil, err
	}
	if account.Balance < request.Amount {
		s.logger.Warn("balance dropped below requested amount since submission",
			"request_id", id,
			"available_balance", account.Balance,
			"requested_amount", request.Amount,
		)
		return nil, errors.ErrInsufficientFunds
	}

	if err := s.accountRepo.UpdateBalance(ctx, tx, account.ID, account.Balance-request.Amount); err != nil {
		return nil, errors.NewStorageError("debit account", err)
	}

	metadata, _ := json.Marshal(map[string]string{
		"withdrawal_id":  request.ID,
		"payout_from":    models.TreasuryAccountID,
		"payout_address": request.AccountID,
	})
	transaction := &models.Transaction{
		AccountID:    account.ID,
		Direction:    models.DirectionOutgoing,
		Amount:       request.Amount,
		Symbol:       request.Symbol,
		Counterparty: models.TreasuryAccountID,
		Status:       models.TxStatusPending,
		Description:  "Retiro aprobado",
		Metadata:     metadata,
	}
	if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
		return nil, errors.NewStorageError("record withdrawal leg", err)
	}

	if err := s.withdrawalRepo.MarkReviewed(ctx, tx, id, models.WithdrawalApproved, notes, reviewerID, transaction.ID); err != nil {
		return nil, errors.NewStorageError("mark reviewed", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageError("commit", err)
	}
	tx = nil

	s.logger.Info("withdrawal approved",
		"request_id", id,
		"reviewer_id", reviewerID,
		"amount", request.Amount,
	)

	// Submit the payout after the debit is durable. The attempt flag goes
	// down first: if the node accepts the payout but the response (or the
	// hash write) is lost, the flagged row waits for operator confirmation
	// instead of being blindly resubmitted by the reconciler.
	if err := s.transactionRepo.SetPayoutAttempt(ctx, transaction.ID, true); err != nil {
		s.logger.Error("failed to record payout attempt, deferring submission to reconciler",
			"request_id", id,
			"transaction_id", transaction.ID,
			"error", err.Error(),
		)
		return s.withdrawalRepo.GetByID(ctx, id)
	}
	hash, err := s.chainClient.SendTransfer(ctx, models.TreasuryAccountID, request.AccountID, request.Amount)
	if err != nil {
		s.logger.Error("payout submission failed, row held for operator confirmation",
			"request_id", id,
			"transaction_id", transaction.ID,
			"error", err.Error(),
		)
	} else {
		if err := s.transactionRepo.SetChainHash(ctx, transaction.ID, hash); err != nil {
			s.logger.Error("failed to attach chain hash", "transaction_id", transaction.ID, "error", err.Error())
		}
		if err := s.withdrawalRepo.SetChainHash(ctx, id, hash); err != nil {
			s.logger.Error("failed to attach chain hash to request", "request_id", id, "error", err.Error())
		}
	}

	return s.withdrawalRepo.GetByID(ctx, id)
}

// Reject closes the request with optional notes. No balance mutation.
func (s *WithdrawalServiceImpl) Reject(ctx context.Context, id, reviewerID, notes string) (*models.WithdrawalRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	request, err := s.withdrawalRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.WithdrawalPending {
		return nil, errors.NewTransitionError("withdrawal", request.Status, models.WithdrawalRejected)
	}

	if err := s.withdrawalRepo.MarkReviewed(ctx, tx, id, models.WithdrawalRejected, notes, reviewerID, ""); err != nil {
		return nil, errors.NewStorageError("mark reviewed", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageError("commit", err)
	}
	tx = nil

	s.logger.Info("withdrawal rejected", "request_id", id, "reviewer_id", reviewerID)
	return s.withdrawalRepo.GetByID(ctx, id)
}
