package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/repository"
)

type SettlementService interface {
	Create(ctx context.Context, businessID string) (*models.SettlementRequest, error)
	List(ctx context.Context, status string, page, pageSize int) ([]*models.SettlementRequest, int64, error)
	Approve(ctx context.Context, id, reviewerID, notes string) (*models.SettlementRequest, error)
	Reject(ctx context.Context, id, reviewerID, notes string) (*models.SettlementRequest, error)
}

type SettlementServiceImpl struct {
	db              *sql.DB
	settlementRepo  repository.SettlementRepository
	eventRepo       repository.EventRepository
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	logger          *slog.Logger
}

func NewSettlementService(db *sql.DB, settlementRepo repository.SettlementRepository, eventRepo repository.EventRepository, accountRepo repository.AccountRepository, transactionRepo repository.TransactionRepository, logger *slog.Logger) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		db:              db,
		settlementRepo:  settlementRepo,
		eventRepo:       eventRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		logger:          logger,
	}
}

// Create submits a settlement for 100% of the business's event balance. The
// recorded amount is a snapshot; approval sweeps whatever the balance is then.
func (s *SettlementServiceImpl) Create(ctx context.Context, businessID string) (*models.SettlementRequest, error) {
	if businessID == "" {
		return nil, errors.NewValidationError("business_id", "must be non-empty")
	}

	business, err := s.eventRepo.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	account, err := s.accountRepo.GetByID(ctx, business.AccountID)
	if err != nil {
		return nil, err
	}
	if account.Balance <= 0 {
		return nil, errors.ErrInsufficientFunds
	}

	request := &models.SettlementRequest{
		BusinessID: businessID,
		EventID:    business.EventID,
		Amount:     account.Balance,
		Symbol:     account.Symbol,
	}
	if err := s.settlementRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	s.logger.Info("settlement request created",
		"request_id", request.ID,
		"business_id", businessID,
		"amount", request.Amount,
	)
	return request, nil
}

func (s *SettlementServiceImpl) List(ctx context.Context, status string, page, pageSize int) ([]*models.SettlementRequest, int64, error) {
	return s.settlementRepo.List(ctx, status, page, pageSize)
}

// Approve sweeps the business's full balance into the treasury under ordered
// locks and marks the request pagado. A re-approval finds the request no
// longer pendiente and fails.
func (s *SettlementServiceImpl) Approve(ctx context.Context, id, reviewerID, notes string) (*models.SettlementRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	request, err := s.settlementRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.SettlementPending {
		return nil, errors.NewTransitionError("settlement", request.Status, models.SettlementPaid)
	}

	business, err := s.eventRepo.GetBusiness(ctx, request.BusinessID)
	if err != nil {
		return nil, err
	}

	firstID, secondID := business.AccountID, models.TreasuryAccountID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	first, err := s.accountRepo.GetByIDForUpdate(ctx, tx, firstID)
	if err != nil {
		return nil, err
	}
	second, err := s.accountRepo.GetByIDForUpdate(ctx, tx, secondID)
	if err != nil {
		return nil, err
	}

	businessAccount, treasury := first, second
	if first.ID == models.TreasuryAccountID {
		businessAccount, treasury = second, first
	}

	amount := businessAccount.Balance
	if amount <= 0 {
		return nil, errors.ErrInsufficientFunds
	}

	if err := s.accountRepo.UpdateBalance(ctx, tx, businessAccount.ID, 0); err != nil {
		return nil, errors.NewStorageError("debit business account", err)
	}
	if err := s.accountRepo.UpdateBalance(ctx, tx, treasury.ID, treasury.Balance+amount); err != nil {
		return nil, errors.NewStorageError("credit treasury", err)
	}

	referenceID := uuid.New().String()
	outgoing := &models.Transaction{
		AccountID:    businessAccount.ID,
		ReferenceID:  referenceID,
		Direction:    models.DirectionOutgoing,
		Amount:       amount,
		Symbol:       businessAccount.Symbol,
		Counterparty: treasury.ID,
		Status:       models.TxStatusCompleted,
		Description:  "Liquidación de evento",
	}
	incoming := &models.Transaction{
		AccountID:    treasury.ID,
		ReferenceID:  referenceID,
		Direction:    models.DirectionIncoming,
		Amount:       amount,
		Symbol:       treasury.Symbol,
		Counterparty: businessAccount.ID,
		Status:       models.TxStatusCompleted,
		Description:  "Liquidación de evento",
	}
	if err := s.transactionRepo.Create(ctx, tx, outgoing); err != nil {
		return nil, errors.NewStorageError("record outgoing leg", err)
	}
	if err := s.transactionRepo.Create(ctx, tx, incoming); err != nil {
		return nil, errors.NewStorageError("record incoming leg", err)
	}

	if err := s.settlementRepo.MarkReviewed(ctx, tx, id, models.SettlementPaid, notes, reviewerID, outgoing.ID, amount); err != nil {
		return nil, errors.NewStorageError("mark reviewed", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageError("commit", err)
	}
	tx = nil

	s.logger.Info("settlement paid",
		"request_id", id,
		"business_id", request.BusinessID,
		"amount", amount,
		"reviewer_id", reviewerID,
	)
	return s.settlementRepo.GetByID(ctx, id)
}

func (s *SettlementServiceImpl) Reject(ctx context.Context, id, reviewerID, notes string) (*models.SettlementRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	request, err := s.settlementRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.SettlementPending {
		return nil, errors.NewTransitionError("settlement", request.Status, models.SettlementRejected)
	}

	if err := s.settlementRepo.MarkReviewed(ctx, tx, id, models.SettlementRejected, notes, reviewerID, "", request.Amount); err != nil {
		return nil, errors.NewStorageError("mark reviewed", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageError("commit", err)
	}
	tx = nil

	s.logger.Info("settlement rejected", "request_id", id, "reviewer_id", reviewerID)
	return s.settlementRepo.GetByID(ctx, id)
}
