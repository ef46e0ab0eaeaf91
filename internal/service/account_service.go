package service

import (
	"context"
	"log/slog"

	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/repository"
)

type AccountService interface {
	CreateForOwner(ctx context.Context, ownerID, symbol, network string) (*models.Account, error)
	GetByOwner(ctx context.Context, ownerID string) (*models.Account, error)
	GetBalance(ctx context.Context, accountID string) (int64, error)
	Retire(ctx context.Context, accountID string) error
}

type AccountServiceImpl struct {
	accountRepo repository.AccountRepository
	logger      *slog.Logger
}

func NewAccountService(accountRepo repository.AccountRepository, logger *slog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// CreateForOwner opens a zero-balance account at registration time. Balances
// only ever change through the transfer engine afterwards.
func (s *AccountServiceImpl) CreateForOwner(ctx context.Context, ownerID, symbol, network string) (*models.Account, error) {
	if ownerID == "" {
		return nil, errors.NewValidationError("owner_id", "must be non-empty")
	}

	account := &models.Account{
		OwnerID: ownerID,
		Symbol:  symbol,
		Balance: 0,
		Network: network,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		s.logger.Error("failed to create account", "owner_id", ownerID, "error", err.Error())
		return nil, err
	}

	s.logger.Info("account created", "account_id", account.ID, "owner_id", ownerID)
	return account, nil
}

func (s *AccountServiceImpl) GetByOwner(ctx context.Context, ownerID string) (*models.Account, error) {
	if ownerID == "" {
		return nil, errors.NewValidationError("owner_id", "must be non-empty")
	}
	return s.accountRepo.GetByOwnerID(ctx, ownerID)
}

func (s *AccountServiceImpl) GetBalance(ctx context.Context, accountID string) (int64, error) {
	if accountID == "" {
		return 0, errors.NewValidationError("account_id", "must be non-empty")
	}
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Retire soft-retires an account on closure; the row and its history remain.
func (s *AccountServiceImpl) Retire(ctx context.Context, accountID string) error {
	if accountID == "" {
		return errors.NewValidationError("account_id", "must be non-empty")
	}
	if err := s.accountRepo.Retire(ctx, accountID); err != nil {
		return err
	}
	s.logger.Info("account retired", "account_id", accountID)
	return nil
}
