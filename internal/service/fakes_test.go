package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/hayekcoin/campus-wallet/internal/chain"
	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Function-field fakes. Tests set only the calls they expect; an unexpected
// call hits the nil field and panics, which is the failure we want.

type fakeAccountRepo struct {
	createFn         func(ctx context.Context, account *models.Account) error
	getByIDFn        func(ctx context.Context, id string) (*models.Account, error)
	getByOwnerIDFn   func(ctx context.Context, ownerID string) (*models.Account, error)
	getForUpdateFn   func(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error)
	updateBalanceFn  func(ctx context.Context, tx *sql.Tx, id string, newBalance int64) error
	retireFn         func(ctx context.Context, id string) error
	ensureTreasuryFn func(ctx context.Context, symbol, network string) (*models.Account, error)
}

func (f *fakeAccountRepo) Create(ctx context.Context, account *models.Account) error {
	return f.createFn(ctx, account)
}
func (f *fakeAccountRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return f.getByIDFn(ctx, id)
}
func (f *fakeAccountRepo) GetByOwnerID(ctx context.Context, ownerID string) (*models.Account, error) {
	return f.getByOwnerIDFn(ctx, ownerID)
}
func (f *fakeAccountRepo) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error) {
	return f.getForUpdateFn(ctx, tx, id)
}
func (f *fakeAccountRepo) UpdateBalance(ctx context.Context, tx *sql.Tx, id string, newBalance int64) error {
	return f.updateBalanceFn(ctx, tx, id, newBalance)
}
func (f *fakeAccountRepo) Retire(ctx context.Context, id string) error {
	return f.retireFn(ctx, id)
}
func (f *fakeAccountRepo) EnsureTreasury(ctx context.Context, symbol, network string) (*models.Account, error) {
	return f.ensureTreasuryFn(ctx, symbol, network)
}

type fakeTransactionRepo struct {
	createFn                 func(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error
	getByIDFn                func(ctx context.Context, id string) (*models.Transaction, error)
	queryFn                  func(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error)
	updateStatusFn           func(ctx context.Context, id, newStatus string) error
	setChainHashFn           func(ctx context.Context, id, hash string) error
	setPayoutAttemptFn       func(ctx context.Context, id string, attempted bool) error
	listPendingOnChainFn     func(ctx context.Context, limit int) ([]*models.Transaction, error)
	listPendingWithoutHashFn func(ctx context.Context, limit int) ([]*models.Transaction, error)
	countPendingOnChainFn    func(ctx context.Context) (int64, error)
	reconcileCompleteFn      func(ctx context.Context, id string) error
	reconcileFailFn          func(ctx context.Context, id string) error
}

func (f *fakeTransactionRepo) Create(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error {
	return f.createFn(ctx, tx, transaction)
}
func (f *fakeTransactionRepo) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	return f.getByIDFn(ctx, id)
}
func (f *fakeTransactionRepo) Query(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error) {
	return f.queryFn(ctx, filter, page, pageSize)
}
func (f *fakeTransactionRepo) UpdateStatus(ctx context.Context, id, newStatus string) error {
	return f.updateStatusFn(ctx, id, newStatus)
}
func (f *fakeTransactionRepo) SetChainHash(ctx context.Context, id, hash string) error {
	return f.setChainHashFn(ctx, id, hash)
}
func (f *fakeTransactionRepo) SetPayoutAttempt(ctx context.Context, id string, attempted bool) error {
	return f.setPayoutAttemptFn(ctx, id, attempted)
}
func (f *fakeTransactionRepo) ListPendingOnChain(ctx context.Context, limit int) ([]*models.Transaction, error) {
	return f.listPendingOnChainFn(ctx, limit)
}
func (f *fakeTransactionRepo) ListPendingWithoutHash(ctx context.Context, limit int) ([]*models.Transaction, error) {
	return f.listPendingWithoutHashFn(ctx, limit)
}
func (f *fakeTransactionRepo) CountPendingOnChain(ctx context.Context) (int64, error) {
	return f.countPendingOnChainFn(ctx)
}
func (f *fakeTransactionRepo) ReconcileComplete(ctx context.Context, id string) error {
	return f.reconcileCompleteFn(ctx, id)
}
func (f *fakeTransactionRepo) ReconcileFail(ctx context.Context, id string) error {
	return f.reconcileFailFn(ctx, id)
}

type fakeWithdrawalRepo struct {
	createFn        func(ctx context.Context, request *models.WithdrawalRequest) error
	getByIDFn       func(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	getForUpdateFn  func(ctx context.Context, tx *sql.Tx, id string) (*models.WithdrawalRequest, error)
	listByUserFn    func(ctx context.Context, userID string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error)
	listFn          func(ctx context.Context, status string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error)
	markReviewedFn  func(ctx context.Context, tx *sql.Tx, id, status, notes, reviewedBy, transactionID string) error
	setChainHashFn  func(ctx context.Context, id, hash string) error
	countByStatusFn func(ctx context.Context, status string) (int64, error)
}

func (f *fakeWithdrawalRepo) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	return f.createFn(ctx, request)
}
func (f *fakeWithdrawalRepo) GetByID(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	return f.getByIDFn(ctx, id)
}
func (f *fakeWithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.WithdrawalRequest, error) {
	return f.getForUpdateFn(ctx, tx, id)
}
func (f *fakeWithdrawalRepo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error) {
	return f.listByUserFn(ctx, userID, page, pageSize)
}
func (f *fakeWithdrawalRepo) List(ctx context.Context, status string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error) {
	return f.listFn(ctx, status, page, pageSize)
}
func (f *fakeWithdrawalRepo) MarkReviewed(ctx context.Context, tx *sql.Tx, id, status, notes, reviewedBy, transactionID string) error {
	return f.markReviewedFn(ctx, tx, id, status, notes, reviewedBy, transactionID)
}
func (f *fakeWithdrawalRepo) SetChainHash(ctx context.Context, id, hash string) error {
	return f.setChainHashFn(ctx, id, hash)
}
func (f *fakeWithdrawalRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	return f.countByStatusFn(ctx, status)
}

type fakeSettlementRepo struct {
	createFn        func(ctx context.Context, request *models.SettlementRequest) error
	getByIDFn       func(ctx context.Context, id string) (*models.SettlementRequest, error)
	getForUpdateFn  func(ctx context.Context, tx *sql.Tx, id string) (*models.SettlementRequest, error)
	listFn          func(ctx context.Context, status string, page, pageSize int) ([]*models.SettlementRequest, int64, error)
	markReviewedFn  func(ctx context.Context, tx *sql.Tx, id, status, notes, reviewedBy, transactionID string, amount int64) error
	countByStatusFn func(ctx context.Context, status string) (int64, error)
}

func (f *fakeSettlementRepo) Create(ctx context.Context, request *models.SettlementRequest) error {
	return f.createFn(ctx, request)
}
func (f *fakeSettlementRepo) GetByID(ctx context.Context, id string) (*models.SettlementRequest, error) {
	return f.getByIDFn(ctx, id)
}
func (f *fakeSettlementRepo) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*models.SettlementRequest, error) {
	return f.getForUpdateFn(ctx, tx, id)
}
func (f *fakeSettlementRepo) List(ctx context.Context, status string, page, pageSize int) ([]*models.SettlementRequest, int64, error) {
	return f.listFn(ctx, status, page, pageSize)
}
func (f *fakeSettlementRepo) MarkReviewed(ctx context.Context, tx *sql.Tx, id, status, notes, reviewedBy, transactionID string, amount int64) error {
	return f.markReviewedFn(ctx, tx, id, status, notes, reviewedBy, transactionID, amount)
}
func (f *fakeSettlementRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	return f.countByStatusFn(ctx, status)
}

type fakeUserRepo struct {
	createFn            func(ctx context.Context, user *models.User) error
	getByIDFn           func(ctx context.Context, id string) (*models.User, error)
	getByEmailFn        func(ctx context.Context, email string) (*models.User, error)
	getByCarnetFn       func(ctx context.Context, carnet string) (*models.User, error)
	searchFn            func(ctx context.Context, term string, page, pageSize int) ([]*models.User, int64, error)
	updateFn            func(ctx context.Context, user *models.User) error
	updatePasswordFn    func(ctx context.Context, id, passwordHash string) error
	saveResetTokenFn    func(ctx context.Context, userID, tokenHash string, expiresAt sql.NullTime) error
	consumeResetTokenFn func(ctx context.Context, tokenHash string) (string, error)
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	return f.createFn(ctx, user)
}
func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return f.getByIDFn(ctx, id)
}
func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.getByEmailFn(ctx, email)
}
func (f *fakeUserRepo) GetByCarnet(ctx context.Context, carnet string) (*models.User, error) {
	return f.getByCarnetFn(ctx, carnet)
}
func (f *fakeUserRepo) Search(ctx context.Context, term string, page, pageSize int) ([]*models.User, int64, error) {
	return f.searchFn(ctx, term, page, pageSize)
}
func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	return f.updateFn(ctx, user)
}
func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return f.updatePasswordFn(ctx, id, passwordHash)
}
func (f *fakeUserRepo) SaveResetToken(ctx context.Context, userID, tokenHash string, expiresAt sql.NullTime) error {
	return f.saveResetTokenFn(ctx, userID, tokenHash, expiresAt)
}
func (f *fakeUserRepo) ConsumeResetToken(ctx context.Context, tokenHash string) (string, error) {
	return f.consumeResetTokenFn(ctx, tokenHash)
}

type fakeEventRepo struct {
	createEventFn    func(ctx context.Context, event *models.Event) error
	getEventFn       func(ctx context.Context, id string) (*models.Event, error)
	listEventsFn     func(ctx context.Context, page, pageSize int) ([]*models.Event, int64, error)
	updateEventFn    func(ctx context.Context, event *models.Event) error
	deleteEventFn    func(ctx context.Context, id string) error
	createBusinessFn func(ctx context.Context, business *models.Business) error
	getBusinessFn    func(ctx context.Context, id string) (*models.Business, error)
	listBusinessesFn func(ctx context.Context, eventID string) ([]*models.Business, error)
	updateBusinessFn func(ctx context.Context, business *models.Business) error
	deleteBusinessFn func(ctx context.Context, id string) error
	addMemberFn      func(ctx context.Context, member *models.BusinessMember) error
	listMembersFn    func(ctx context.Context, businessID string) ([]*models.BusinessMember, error)
	removeMemberFn   func(ctx context.Context, businessID, userID string) error
}

func (f *fakeEventRepo) CreateEvent(ctx context.Context, event *models.Event) error {
	return f.createEventFn(ctx, event)
}
func (f *fakeEventRepo) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return f.getEventFn(ctx, id)
}
func (f *fakeEventRepo) ListEvents(ctx context.Context, page, pageSize int) ([]*models.Event, int64, error) {
	return f.listEventsFn(ctx, page, pageSize)
}
func (f *fakeEventRepo) UpdateEvent(ctx context.Context, event *models.Event) error {
	return f.updateEventFn(ctx, event)
}
func (f *fakeEventRepo) DeleteEvent(ctx context.Context, id string) error {
	return f.deleteEventFn(ctx, id)
}
func (f *fakeEventRepo) CreateBusiness(ctx context.Context, business *models.Business) error {
	return f.createBusinessFn(ctx, business)
}
func (f *fakeEventRepo) GetBusiness(ctx context.Context, id string) (*models.Business, error) {
	return f.getBusinessFn(ctx, id)
}
func (f *fakeEventRepo) ListBusinesses(ctx context.Context, eventID string) ([]*models.Business, error) {
	return f.listBusinessesFn(ctx, eventID)
}
func (f *fakeEventRepo) UpdateBusiness(ctx context.Context, business *models.Business) error {
	return f.updateBusinessFn(ctx, business)
}
func (f *fakeEventRepo) DeleteBusiness(ctx context.Context, id string) error {
	return f.deleteBusinessFn(ctx, id)
}
func (f *fakeEventRepo) AddMember(ctx context.Context, member *models.BusinessMember) error {
	return f.addMemberFn(ctx, member)
}
func (f *fakeEventRepo) ListMembers(ctx context.Context, businessID string) ([]*models.BusinessMember, error) {
	return f.listMembersFn(ctx, businessID)
}
func (f *fakeEventRepo) RemoveMember(ctx context.Context, businessID, userID string) error {
	return f.removeMemberFn(ctx, businessID, userID)
}

type fakeAuditRepo struct {
	createFn func(ctx context.Context, log *models.AuditLog) error
	listFn   func(ctx context.Context, page, pageSize int) ([]*models.AuditLog, int64, error)
}

func (f *fakeAuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	return f.createFn(ctx, log)
}
func (f *fakeAuditRepo) List(ctx context.Context, page, pageSize int) ([]*models.AuditLog, int64, error) {
	return f.listFn(ctx, page, pageSize)
}

type fakeConfigRepo struct {
	getFn    func(ctx context.Context) (*models.WalletConfig, error)
	updateFn func(ctx context.Context, config *models.WalletConfig) error
}

func (f *fakeConfigRepo) Get(ctx context.Context) (*models.WalletConfig, error) {
	return f.getFn(ctx)
}
func (f *fakeConfigRepo) Update(ctx context.Context, config *models.WalletConfig) error {
	return f.updateFn(ctx, config)
}

type fakeChainClient struct {
	sendTransferFn func(ctx context.Context, from, to string, amount int64) (string, error)
	statusFn       func(ctx context.Context, hash string) (chain.TxState, error)
}

func (f *fakeChainClient) SendTransfer(ctx context.Context, from, to string, amount int64) (string, error) {
	return f.sendTransferFn(ctx, from, to, amount)
}
func (f *fakeChainClient) TransactionStatus(ctx context.Context, hash string) (chain.TxState, error) {
	return f.statusFn(ctx, hash)
}

// accountRepoWithAccounts is a minimal in-memory account lookup keyed by id
// and owner.
func accountRepoWithAccounts(t *testing.T, accounts ...*models.Account) *fakeAccountRepo {
	t.Helper()
	return &fakeAccountRepo{
		getByIDFn: func(ctx context.Context, id string) (*models.Account, error) {
			for _, a := range accounts {
				if a.ID == id {
					return a, nil
				}
			}
			return nil, errors.ErrAccountNotFound
		},
		getByOwnerIDFn: func(ctx context.Context, ownerID string) (*models.Account, error) {
			for _, a := range accounts {
				if a.OwnerID == ownerID {
					return a, nil
				}
			}
			return nil, errors.ErrAccountNotFound
		},
	}
}
