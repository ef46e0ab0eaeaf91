package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hayekcoin/campus-wallet/internal/auth"
	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/metrics"
	"github.com/hayekcoin/campus-wallet/internal/models"
)

type adminFixture struct {
	ledger      *stubLedgerService
	transfers   *stubTransferService
	withdrawals *stubWithdrawalService
	settlements *stubSettlementService
	accounts    *stubAccountService
	users       *stubUserService
	audit       *recordingAuditService
	reports     *stubReportService
}

func newAdminRouter(f *adminFixture) *mux.Router {
	h := NewAdminHandler(
		f.ledger, f.transfers, f.withdrawals, f.settlements, f.accounts,
		f.users, f.audit, f.reports,
		metrics.New(prometheus.NewRegistry()), testLogger(),
	)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func TestAdminRoutesEnforceCapabilities(t *testing.T) {
	f := &adminFixture{
		ledger: &stubLedgerService{
			treasuryStatusFn: func(ctx context.Context) (*models.TreasuryStatus, error) {
				return &models.TreasuryStatus{Balance: 100000, Symbol: "HC"}, nil
			},
		},
		audit: &recordingAuditService{},
	}
	router := newAdminRouter(f)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asActor(httptest.NewRequest(http.MethodGet, "/central-wallet/status", nil), "user-1", auth.RoleStudent))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("student must not see treasury status, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asActor(httptest.NewRequest(http.MethodGet, "/central-wallet/status", nil), "admin-1", auth.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestConfigRequiresSuperAdmin(t *testing.T) {
	f := &adminFixture{
		ledger: &stubLedgerService{
			getConfigFn: func(ctx context.Context) (*models.WalletConfig, error) {
				return &models.WalletConfig{MaxTransferAmount: 1000}, nil
			},
		},
		audit: &recordingAuditService{},
	}
	router := newAdminRouter(f)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asActor(httptest.NewRequest(http.MethodGet, "/central-wallet/config", nil), "admin-1", auth.RoleAdmin))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin must not read config, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asActor(httptest.NewRequest(http.MethodGet, "/central-wallet/config", nil), "root-1", auth.RoleSuperAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("super_admin expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestApproveWithdrawal(t *testing.T) {
	var gotID, gotReviewer, gotNotes string
	f := &adminFixture{
		withdrawals: &stubWithdrawalService{
			approveFn: func(ctx context.Context, id, reviewerID, notes string) (*models.WithdrawalRequest, error) {
				gotID, gotReviewer, gotNotes = id, reviewerID, notes
				return &models.WithdrawalRequest{ID: id, Status: models.WithdrawalApproved}, nil
			},
		},
		audit: &recordingAuditService{},
	}
	router := newAdminRouter(f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/central-wallet/withdrawals/wd-1/approve",
		strings.NewReader(`{"notes":"verificado"}`))
	router.ServeHTTP(rec, asActor(req, "admin-1", auth.RoleAdmin))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotID != "wd-1" || gotReviewer != "admin-1" || gotNotes != "verificado" {
		t.Fatalf("approve called with id=%q reviewer=%q notes=%q", gotID, gotReviewer, gotNotes)
	}
	if len(f.audit.entries) != 1 || f.audit.entries[0].Action != "withdrawal.aprobado" {
		t.Fatalf("expected withdrawal.aprobado audit entry, got %+v", f.audit.entries)
	}
}

func TestReviewWithdrawalTransitionConflict(t *testing.T) {
	f := &adminFixture{
		withdrawals: &stubWithdrawalService{
			approveFn: func(ctx context.Context, id, reviewerID, notes string) (*models.WithdrawalRequest, error) {
				return nil, errors.NewTransitionError("withdrawal_request", models.WithdrawalApproved, models.WithdrawalApproved)
			},
		},
		audit: &recordingAuditService{},
	}
	router := newAdminRouter(f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/central-wallet/withdrawals/wd-1/approve", strings.NewReader(`{}`))
	router.ServeHTTP(rec, asActor(req, "admin-1", auth.RoleAdmin))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for repeated review, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.audit.entries) != 0 {
		t.Fatal("failed review must not be audited")
	}
}

func TestRejectSettlement(t *testing.T) {
	f := &adminFixture{
		settlements: &stubSettlementService{
			rejectFn: func(ctx context.Context, id, reviewerID, notes string) (*models.SettlementRequest, error) {
				return &models.SettlementRequest{ID: id, Status: models.SettlementRejected}, nil
			},
		},
		audit: &recordingAuditService{},
	}
	router := newAdminRouter(f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/central-wallet/settlements/st-1/reject",
		strings.NewReader(`{"notes":"saldo en disputa"}`))
	router.ServeHTTP(rec, asActor(req, "admin-1", auth.RoleAdmin))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.audit.entries) != 1 || f.audit.entries[0].Action != "settlement.rechazado" {
		t.Fatalf("expected settlement.rechazado audit entry, got %+v", f.audit.entries)
	}
}

func TestResubmitPayout(t *testing.T) {
	var resubmitted string
	f := &adminFixture{
		ledger: &stubLedgerService{
			resubmitPayoutFn: func(ctx context.Context, id string) (*models.Transaction, error) {
				resubmitted = id
				return &models.Transaction{ID: id, Status: models.TxStatusPending}, nil
			},
		},
		audit: &recordingAuditService{},
	}
	router := newAdminRouter(f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/transactions/tx-held/resubmit", nil)
	router.ServeHTTP(rec, asActor(req, "admin-1", auth.RoleAdmin))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resubmitted != "tx-held" {
		t.Fatalf("expected tx-held re-armed, got %q", resubmitted)
	}
	if len(f.audit.entries) != 1 || f.audit.entries[0].Action != "payout.resubmit" {
		t.Fatalf("expected payout.resubmit audit entry, got %+v", f.audit.entries)
	}
}

func TestRechargeUnknownCarnet(t *testing.T) {
	f := &adminFixture{
		users: &stubUserService{
			getByCarnetFn: func(ctx context.Context, carnet string) (*models.User, error) {
				return nil, errors.ErrUserNotFound
			},
		},
		audit: &recordingAuditService{},
	}
	router := newAdminRouter(f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/central-wallet/recharges",
		strings.NewReader(`{"carnet":"99999999","amount":1000,"external_reference":"dep-1"}`))
	router.ServeHTTP(rec, asActor(req, "admin-1", auth.RoleAdmin))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTreasuryActivityScopedToTreasury(t *testing.T) {
	var queried string
	f := &adminFixture{
		ledger: &stubLedgerService{
			queryFn: func(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error) {
				queried = filter.AccountID
				return nil, 0, nil
			},
		},
		audit: &recordingAuditService{},
	}
	router := newAdminRouter(f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/central-wallet/activity?account_id=acct-user-1", nil)
	router.ServeHTTP(rec, asActor(req, "admin-1", auth.RoleAdmin))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if queried != models.TreasuryAccountID {
		t.Fatalf("activity must be pinned to the treasury account, got %q", queried)
	}
}

func TestTransactionsReport(t *testing.T) {
	f := &adminFixture{
		reports: &stubReportService{
			writeFn: func(ctx context.Context, w io.Writer, filter models.LedgerFilter) error {
				_, err := w.Write([]byte("id,account_id\n"))
				return err
			},
		},
		audit: &recordingAuditService{},
	}
	router := newAdminRouter(f)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/reports/transactions.csv", nil)
	router.ServeHTTP(rec, asActor(req, "admin-1", auth.RoleAdmin))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "transactions.csv") {
		t.Fatalf("unexpected disposition %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "id,account_id") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
