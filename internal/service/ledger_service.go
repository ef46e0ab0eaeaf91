package service

import (
	"context"
	"log/slog"

	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/repository"
)

type LedgerService interface {
	History(ctx context.Context, accountID string, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error)
	Query(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error)
	TreasuryStatus(ctx context.Context) (*models.TreasuryStatus, error)
	ResubmitPayout(ctx context.Context, id string) (*models.Transaction, error)
	GetConfig(ctx context.Context) (*models.WalletConfig, error)
	UpdateConfig(ctx context.Context, config *models.WalletConfig) (*models.WalletConfig, error)
}

type LedgerServiceImpl struct {
	accountRepo     repository.AccountRepository
	transactionRepo repository.TransactionRepository
	withdrawalRepo  repository.WithdrawalRepository
	settlementRepo  repository.SettlementRepository
	configRepo      repository.ConfigRepository
	logger          *slog.Logger
}

func NewLedgerService(accountRepo repository.AccountRepository, transactionRepo repository.TransactionRepository, withdrawalRepo repository.WithdrawalRepository, settlementRepo repository.SettlementRepository, configRepo repository.ConfigRepository, logger *slog.Logger) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		withdrawalRepo:  withdrawalRepo,
		settlementRepo:  settlementRepo,
		configRepo:      configRepo,
		logger:          logger,
	}
}

// History lists one account's ledger rows; the account filter is forced so a
// caller can never read another account's history through extra filters.
func (s *LedgerServiceImpl) History(ctx context.Context, accountID string, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error) {
	if accountID == "" {
		return nil, 0, errors.NewValidationError("account_id", "must be non-empty")
	}
	filter.AccountID = accountID
	return s.transactionRepo.Query(ctx, filter, page, pageSize)
}

func (s *LedgerServiceImpl) Query(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error) {
	return s.transactionRepo.Query(ctx, filter, page, pageSize)
}

func (s *LedgerServiceImpl) TreasuryStatus(ctx context.Context) (*models.TreasuryStatus, error) {
	treasury, err := s.accountRepo.GetByID(ctx, models.TreasuryAccountID)
	if err != nil {
		return nil, err
	}

	pendingOnChain, err := s.transactionRepo.CountPendingOnChain(ctx)
	if err != nil {
		return nil, err
	}
	pendingWithdrawals, err := s.withdrawalRepo.CountByStatus(ctx, models.WithdrawalPending)
	if err != nil {
		return nil, err
	}
	pendingSettlements, err := s.settlementRepo.CountByStatus(ctx, models.SettlementPending)
	if err != nil {
		return nil, err
	}

	return &models.TreasuryStatus{
		Balance:            treasury.Balance,
		Symbol:             treasury.Symbol,
		Network:            treasury.Network,
		PendingOnChain:     pendingOnChain,
		PendingWithdrawals: pendingWithdrawals,
		PendingSettlements: pendingSettlements,
	}, nil
}

// ResubmitPayout re-arms a held payout for the reconciler after an operator
// has confirmed on the explorer that the funds never left the treasury.
func (s *LedgerServiceImpl) ResubmitPayout(ctx context.Context, id string) (*models.Transaction, error) {
	transaction, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if transaction.Status != models.TxStatusPending {
		return nil, errors.NewTransitionError("transaction", transaction.Status, models.TxStatusPending)
	}
	if transaction.ChainHash != "" {
		return nil, errors.NewValidationError("transaction", "already has a chain hash; the reconciler will resolve it")
	}

	if err := s.transactionRepo.SetPayoutAttempt(ctx, id, false); err != nil {
		return nil, err
	}
	s.logger.Info("payout re-armed for resubmission", "transaction_id", id)
	return s.transactionRepo.GetByID(ctx, id)
}

func (s *LedgerServiceImpl) GetConfig(ctx context.Context) (*models.WalletConfig, error) {
	return s.configRepo.Get(ctx)
}

func (s *LedgerServiceImpl) UpdateConfig(ctx context.Context, config *models.WalletConfig) (*models.WalletConfig, error) {
	if config.MaxTransferAmount < 0 {
		return nil, errors.NewValidationError("max_transfer_amount", "must not be negative")
	}
	if config.ConfirmationTimeout <= 0 {
		return nil, errors.NewValidationError("confirmation_timeout_seconds", "must be positive")
	}
	if config.Network == "" {
		return nil, errors.NewValidationError("network", "must be non-empty")
	}

	if err := s.configRepo.Update(ctx, config); err != nil {
		return nil, err
	}
	s.logger.Info("wallet config updated",
		"max_transfer_amount", config.MaxTransferAmount,
		"confirmation_timeout_seconds", config.ConfirmationTimeout,
	)
	return config, nil
}
