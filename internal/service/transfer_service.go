package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/repository"
)

type TransferService interface {
	Transfer(ctx context.Context, fromAccountID, toAccountID string, amount int64, description string) (*models.TransferResponse, error)
	Recharge(ctx context.Context, accountID string, amount int64, externalReference string) (*models.Transaction, error)
}

type TransferServiceImpl struct {
	db              *sql.DB
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	configRepo      repository.ConfigRepository
	logger          *slog.Logger
}

func NewTransferService(db *sql.DB, accountRepo repository.AccountRepository, transactionRepo repository.TransactionRepository, configRepo repository.ConfigRepository, logger *slog.Logger) *TransferServiceImpl {
	return &TransferServiceImpl{
		db:              db,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		configRepo:      configRepo,
		logger:          logger,
	}
}

// Transfer atomically moves HC between two accounts. Both row locks are taken
// in ascending account-id order so crossed transfers cannot deadlock. A failed
// check rolls the whole unit back; no ledger rows survive a failed transfer.
func (s *TransferServiceImpl) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount int64, description string) (*models.TransferResponse, error) {
	if err := s.validateTransfer(ctx, fromAccountID, toAccountID, amount); err != nil {
		s.logger.Warn("invalid transfer request",
			"from_account_id", fromAccountID,
			"to_account_id", toAccountID,
			"amount", amount,
			"error", err.Error(),
		)
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("failed to begin transaction", "error", err.Error())
		return nil, errors.NewStorageError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	fromAccount, toAccount, err := s.lockAccountPair(ctx, tx, fromAccountID, toAccountID)
	if err != nil {
		return nil, err
	}

	if fromAccount.Retired || toAccount.Retired {
		return nil, errors.ErrAccountRetired
	}
	if fromAccount.Balance < amount {
		s.logger.Warn("insufficient funds for transfer",
			"from_account_id", fromAccountID,
			"available_balance", fromAccount.Balance,
			"requested_amount", amount,
		)
		return nil, errors.ErrInsufficientFunds
	}

	if err := s.accountRepo.UpdateBalance(ctx, tx, fromAccountID, fromAccount.Balance-amount); err != nil {
		return nil, errors.NewStorageError("debit source account", err)
	}
	if err := s.accountRepo.UpdateBalance(ctx, tx, toAccountID, toAccount.Balance+amount); err != nil {
		return nil, errors.NewStorageError("credit destination account", err)
	}

	referenceID := uuid.New().String()
	outgoing := &models.Transaction{
		AccountID:    fromAccountID,
		ReferenceID:  referenceID,
		Direction:    models.DirectionOutgoing,
		Amount:       amount,
		Symbol:       fromAccount.Symbol,
		Counterparty: toAccountID,
		Status:       models.TxStatusCompleted,
		Description:  description,
	}
	incoming := &models.Transaction{
		AccountID:    toAccountID,
		ReferenceID:  referenceID,
		Direction:    models.DirectionIncoming,
		Amount:       amount,
		Symbol:       toAccount.Symbol,
		Counterparty: fromAccountID,
		Status:       models.TxStatusCompleted,
		Description:  description,
	}

	if err := s.transactionRepo.Create(ctx, tx, outgoing); err != nil {
		return nil, errors.NewStorageError("record outgoing leg", err)
	}
	if err := s.transactionRepo.Create(ctx, tx, incoming); err != nil {
		return nil, errors.NewStorageError("record incoming leg", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transfer", "reference_id", referenceID, "error", err.Error())
		return nil, errors.NewStorageError("commit", err)
	}
	tx = nil

	s.logger.Info("transfer completed",
		"reference_id", referenceID,
		"from_account_id", fromAccountID,
		"to_account_id", toAccountID,
		"amount", amount,
	)
	return &models.TransferResponse{
		ReferenceID: referenceID,
		Outgoing:    outgoing,
		Incoming:    incoming,
	}, nil
}

// Recharge credits an account from an external payment source. Single-sided:
// one credit plus one entrante row, in one storage transaction.
func (s *TransferServiceImpl) Recharge(ctx context.Context, accountID string, amount int64, externalReference string) (*models.Transaction, error) {
	if accountID == "" {
		return nil, errors.NewValidationError("account_id", "must be non-empty")
	}
	if amount <= 0 {
		return nil, errors.ErrInvalidAmount
	}
	if externalReference == "" {
		return nil, errors.NewValidationError("external_reference", "must be non-empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageError("begin", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Retired {
		return nil, errors.ErrAccountRetired
	}

	if err := s.accountRepo.UpdateBalance(ctx, tx, accountID, account.Balance+amount); err != nil {
		return nil, errors.NewStorageError("credit account", err)
	}

	metadata, _ := json.Marshal(map[string]string{"external_reference": externalReference})
	transaction := &models.Transaction{
		AccountID:    accountID,
		Direction:    models.DirectionIncoming,
		Amount:       amount,
		Symbol:       account.Symbol,
		Counterparty: "recharge",
		Status:       models.TxStatusCompleted,
		Description:  "Recarga de saldo",
		Metadata:     metadata,
	}
	if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
		return nil, errors.NewStorageError("record recharge", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageError("commit", err)
	}
	tx = nil

	s.logger.Info("recharge completed",
		"account_id", accountID,
		"amount", amount,
		"external_reference", externalReference,
	)
	return transaction, nil
}

// lockAccountPair takes both row locks in ascending id order and returns the
// accounts mapped back to their transfer roles.
func (s *TransferServiceImpl) lockAccountPair(ctx context.Context, tx *sql.Tx, fromAccountID, toAccountID string) (*models.Account, *models.Account, error) {
	firstID, secondID := fromAccountID, toAccountID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	first, err := s.accountRepo.GetByIDForUpdate(ctx, tx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.accountRepo.GetByIDForUpdate(ctx, tx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if first.ID == fromAccountID {
		return first, second, nil
	}
	return second, first, nil
}

func (s *TransferServiceImpl) validateTransfer(ctx context.Context, fromAccountID, toAccountID string, amount int64) error {
	if fromAccountID == "" {
		return errors.NewValidationError("from_account_id", "must be non-empty")
	}
	if toAccountID == "" {
		return errors.NewValidationError("to_account_id", "must be non-empty")
	}
	if fromAccountID == toAccountID {
		return errors.ErrSameAccount
	}
	if amount <= 0 {
		return errors.ErrInvalidAmount
	}

	if s.configRepo != nil {
		config, err := s.configRepo.Get(ctx)
		if err != nil {
			return err
		}
		if config.MaxTransferAmount > 0 && amount > config.MaxTransferAmount {
			return errors.ErrTransferLimit
		}
	}
	return nil
}
