package service

import (
	"context"
	"testing"

	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
)

func TestHistoryForcesAccountFilter(t *testing.T) {
	var gotFilter models.LedgerFilter
	transactionRepo := &fakeTransactionRepo{
		queryFn: func(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error) {
			gotFilter = filter
			return nil, 0, nil
		},
	}
	svc := NewLedgerService(&fakeAccountRepo{}, transactionRepo, &fakeWithdrawalRepo{}, &fakeSettlementRepo{}, &fakeConfigRepo{}, testLogger())

	// A caller-supplied account filter must not survive.
	filter := models.LedgerFilter{AccountID: "someone-else", Direction: models.DirectionIncoming}
	if _, _, err := svc.History(context.Background(), "acct-1", filter, 1, 20); err != nil {
		t.Fatalf("history: %v", err)
	}
	if gotFilter.AccountID != "acct-1" {
		t.Fatalf("expected forced account filter acct-1, got %s", gotFilter.AccountID)
	}
	if gotFilter.Direction != models.DirectionIncoming {
		t.Fatal("other filters must pass through")
	}

	if _, _, err := svc.History(context.Background(), "", filter, 1, 20); !errors.IsValidationError(err) {
		t.Fatalf("expected validation error for empty account, got %v", err)
	}
}

func TestTreasuryStatus(t *testing.T) {
	accountRepo := &fakeAccountRepo{
		getByIDFn: func(ctx context.Context, id string) (*models.Account, error) {
			if id != models.TreasuryAccountID {
				t.Fatalf("expected treasury lookup, got %s", id)
			}
			return &models.Account{ID: id, Balance: 9000, Symbol: "HC", Network: "hayeknet"}, nil
		},
	}
	transactionRepo := &fakeTransactionRepo{
		countPendingOnChainFn: func(ctx context.Context) (int64, error) { return 3, nil },
	}
	withdrawalRepo := &fakeWithdrawalRepo{
		countByStatusFn: func(ctx context.Context, status string) (int64, error) {
			if status != models.WithdrawalPending {
				t.Fatalf("expected pendiente count, got %s", status)
			}
			return 2, nil
		},
	}
	settlementRepo := &fakeSettlementRepo{
		countByStatusFn: func(ctx context.Context, status string) (int64, error) { return 1, nil },
	}
	svc := NewLedgerService(accountRepo, transactionRepo, withdrawalRepo, settlementRepo, &fakeConfigRepo{}, testLogger())

	status, err := svc.TreasuryStatus(context.Background())
	if err != nil {
		t.Fatalf("treasury status: %v", err)
	}
	if status.Balance != 9000 || status.PendingOnChain != 3 || status.PendingWithdrawals != 2 || status.PendingSettlements != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestResubmitPayoutClearsAttemptFlag(t *testing.T) {
	var clearedID string
	transactionRepo := &fakeTransactionRepo{
		getByIDFn: func(ctx context.Context, id string) (*models.Transaction, error) {
			return &models.Transaction{ID: id, Status: models.TxStatusPending}, nil
		},
		setPayoutAttemptFn: func(ctx context.Context, id string, attempted bool) error {
			if attempted {
				t.Fatal("resubmission must clear the flag, not set it")
			}
			clearedID = id
			return nil
		},
	}
	svc := NewLedgerService(&fakeAccountRepo{}, transactionRepo, &fakeWithdrawalRepo{}, &fakeSettlementRepo{}, &fakeConfigRepo{}, testLogger())

	if _, err := svc.ResubmitPayout(context.Background(), "tx-held"); err != nil {
		t.Fatalf("resubmit payout: %v", err)
	}
	if clearedID != "tx-held" {
		t.Fatalf("expected flag cleared on tx-held, got %q", clearedID)
	}
}

func TestResubmitPayoutRejectsResolvedRows(t *testing.T) {
	transactionRepo := &fakeTransactionRepo{
		getByIDFn: func(ctx context.Context, id string) (*models.Transaction, error) {
			return &models.Transaction{ID: id, Status: models.TxStatusCompleted}, nil
		},
	}
	svc := NewLedgerService(&fakeAccountRepo{}, transactionRepo, &fakeWithdrawalRepo{}, &fakeSettlementRepo{}, &fakeConfigRepo{}, testLogger())

	if _, err := svc.ResubmitPayout(context.Background(), "tx-done"); !errors.IsTransitionError(err) {
		t.Fatalf("expected transition error for completed row, got %v", err)
	}
}

func TestResubmitPayoutRejectsRowsWithHash(t *testing.T) {
	transactionRepo := &fakeTransactionRepo{
		getByIDFn: func(ctx context.Context, id string) (*models.Transaction, error) {
			return &models.Transaction{ID: id, Status: models.TxStatusPending, ChainHash: "0xaaa"}, nil
		},
	}
	svc := NewLedgerService(&fakeAccountRepo{}, transactionRepo, &fakeWithdrawalRepo{}, &fakeSettlementRepo{}, &fakeConfigRepo{}, testLogger())

	if _, err := svc.ResubmitPayout(context.Background(), "tx-inflight"); !errors.IsValidationError(err) {
		t.Fatalf("expected validation error for row with a hash, got %v", err)
	}
}

func TestUpdateConfigValidation(t *testing.T) {
	svc := NewLedgerService(&fakeAccountRepo{}, &fakeTransactionRepo{}, &fakeWithdrawalRepo{}, &fakeSettlementRepo{}, &fakeConfigRepo{}, testLogger())
	ctx := context.Background()

	tests := []struct {
		name   string
		config models.WalletConfig
	}{
		{"negative limit", models.WalletConfig{MaxTransferAmount: -1, ConfirmationTimeout: 600, Network: "hayeknet"}},
		{"zero timeout", models.WalletConfig{MaxTransferAmount: 1000, ConfirmationTimeout: 0, Network: "hayeknet"}},
		{"empty network", models.WalletConfig{MaxTransferAmount: 1000, ConfirmationTimeout: 600}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateConfig(ctx, &tt.config); !errors.IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdateConfigPersists(t *testing.T) {
	var updated *models.WalletConfig
	configRepo := &fakeConfigRepo{
		updateFn: func(ctx context.Context, config *models.WalletConfig) error {
			updated = config
			return nil
		},
	}
	svc := NewLedgerService(&fakeAccountRepo{}, &fakeTransactionRepo{}, &fakeWithdrawalRepo{}, &fakeSettlementRepo{}, configRepo, testLogger())

	config := &models.WalletConfig{MaxTransferAmount: 5000, ConfirmationTimeout: 300, Network: "hayeknet"}
	if _, err := svc.UpdateConfig(context.Background(), config); err != nil {
		t.Fatalf("update config: %v", err)
	}
	if updated == nil || updated.MaxTransferAmount != 5000 {
		t.Fatalf("expected config persisted, got %+v", updated)
	}
}
