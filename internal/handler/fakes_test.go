package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/hayekcoin/campus-wallet/internal/auth"
	"github.com/hayekcoin/campus-wallet/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func asActor(req *http.Request, id string, role auth.Role) *http.Request {
	return req.WithContext(auth.WithActor(req.Context(), auth.Actor{ID: id, Role: role}))
}

// Function-field stubs for the service interfaces. Tests set only the calls
// they expect.

type stubAuthService struct {
	registerFn       func(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	loginFn          func(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	meFn             func(ctx context.Context, userID string) (*models.User, error)
	forgotPasswordFn func(ctx context.Context, email string) (string, error)
	resetPasswordFn  func(ctx context.Context, token, newPassword string) error
}

func (s *stubAuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	return s.registerFn(ctx, req)
}
func (s *stubAuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	return s.loginFn(ctx, req)
}
func (s *stubAuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.meFn(ctx, userID)
}
func (s *stubAuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	return s.forgotPasswordFn(ctx, email)
}
func (s *stubAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.resetPasswordFn(ctx, token, newPassword)
}

type stubAccountService struct {
	createForOwnerFn func(ctx context.Context, ownerID, symbol, network string) (*models.Account, error)
	getByOwnerFn     func(ctx context.Context, ownerID string) (*models.Account, error)
	getBalanceFn     func(ctx context.Context, accountID string) (int64, error)
	retireFn         func(ctx context.Context, accountID string) error
}

func (s *stubAccountService) CreateForOwner(ctx context.Context, ownerID, symbol, network string) (*models.Account, error) {
	return s.createForOwnerFn(ctx, ownerID, symbol, network)
}
func (s *stubAccountService) GetByOwner(ctx context.Context, ownerID string) (*models.Account, error) {
	return s.getByOwnerFn(ctx, ownerID)
}
func (s *stubAccountService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	return s.getBalanceFn(ctx, accountID)
}
func (s *stubAccountService) Retire(ctx context.Context, accountID string) error {
	return s.retireFn(ctx, accountID)
}

type stubLedgerService struct {
	historyFn        func(ctx context.Context, accountID string, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error)
	queryFn          func(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error)
	treasuryStatusFn func(ctx context.Context) (*models.TreasuryStatus, error)
	resubmitPayoutFn func(ctx context.Context, id string) (*models.Transaction, error)
	getConfigFn      func(ctx context.Context) (*models.WalletConfig, error)
	updateConfigFn   func(ctx context.Context, config *models.WalletConfig) (*models.WalletConfig, error)
}

func (s *stubLedgerService) History(ctx context.Context, accountID string, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error) {
	return s.historyFn(ctx, accountID, filter, page, pageSize)
}
func (s *stubLedgerService) Query(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error) {
	return s.queryFn(ctx, filter, page, pageSize)
}
func (s *stubLedgerService) TreasuryStatus(ctx context.Context) (*models.TreasuryStatus, error) {
	return s.treasuryStatusFn(ctx)
}
func (s *stubLedgerService) ResubmitPayout(ctx context.Context, id string) (*models.Transaction, error) {
	return s.resubmitPayoutFn(ctx, id)
}
func (s *stubLedgerService) GetConfig(ctx context.Context) (*models.WalletConfig, error) {
	return s.getConfigFn(ctx)
}
func (s *stubLedgerService) UpdateConfig(ctx context.Context, config *models.WalletConfig) (*models.WalletConfig, error) {
	return s.updateConfigFn(ctx, config)
}

type stubTransferService struct {
	transferFn func(ctx context.Context, fromAccountID, toAccountID string, amount int64, description string) (*models.TransferResponse, error)
	rechargeFn func(ctx context.Context, accountID string, amount int64, externalReference string) (*models.Transaction, error)
}

func (s *stubTransferService) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount int64, description string) (*models.TransferResponse, error) {
	return s.transferFn(ctx, fromAccountID, toAccountID, amount, description)
}
func (s *stubTransferService) Recharge(ctx context.Context, accountID string, amount int64, externalReference string) (*models.Transaction, error) {
	return s.rechargeFn(ctx, accountID, amount, externalReference)
}

type stubWithdrawalService struct {
	createFn     func(ctx context.Context, userID string, amount int64) (*models.WithdrawalRequest, error)
	listByUserFn func(ctx context.Context, userID string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error)
	listFn       func(ctx context.Context, status string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error)
	approveFn    func(ctx context.Context, id, reviewerID, notes string) (*models.WithdrawalRequest, error)
	rejectFn     func(ctx context.Context, id, reviewerID, notes string) (*models.WithdrawalRequest, error)
}

func (s *stubWithdrawalService) Create(ctx context.Context, userID string, amount int64) (*models.WithdrawalRequest, error) {
	return s.createFn(ctx, userID, amount)
}
func (s *stubWithdrawalService) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error) {
	return s.listByUserFn(ctx, userID, page, pageSize)
}
func (s *stubWithdrawalService) List(ctx context.Context, status string, page, pageSize int) ([]*models.WithdrawalRequest, int64, error) {
	return s.listFn(ctx, status, page, pageSize)
}
func (s *stubWithdrawalService) Approve(ctx context.Context, id, reviewerID, notes string) (*models.WithdrawalRequest, error) {
	return s.approveFn(ctx, id, reviewerID, notes)
}
func (s *stubWithdrawalService) Reject(ctx context.Context, id, reviewerID, notes string) (*models.WithdrawalRequest, error) {
	return s.rejectFn(ctx, id, reviewerID, notes)
}

type stubSettlementService struct {
	createFn  func(ctx context.Context, businessID string) (*models.SettlementRequest, error)
	listFn    func(ctx context.Context, status string, page, pageSize int) ([]*models.SettlementRequest, int64, error)
	approveFn func(ctx context.Context, id, reviewerID, notes string) (*models.SettlementRequest, error)
	rejectFn  func(ctx context.Context, id, reviewerID, notes string) (*models.SettlementRequest, error)
}

func (s *stubSettlementService) Create(ctx context.Context, businessID string) (*models.SettlementRequest, error) {
	return s.createFn(ctx, businessID)
}
func (s *stubSettlementService) List(ctx context.Context, status string, page, pageSize int) ([]*models.SettlementRequest, int64, error) {
	return s.listFn(ctx, status, page, pageSize)
}
func (s *stubSettlementService) Approve(ctx context.Context, id, reviewerID, notes string) (*models.SettlementRequest, error) {
	return s.approveFn(ctx, id, reviewerID, notes)
}
func (s *stubSettlementService) Reject(ctx context.Context, id, reviewerID, notes string) (*models.SettlementRequest, error) {
	return s.rejectFn(ctx, id, reviewerID, notes)
}

type stubUserService struct {
	searchFn      func(ctx context.Context, term string, page, pageSize int) ([]*models.User, int64, error)
	updateFn      func(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error)
	getByCarnetFn func(ctx context.Context, carnet string) (*models.User, error)
}

func (s *stubUserService) Search(ctx context.Context, term string, page, pageSize int) ([]*models.User, int64, error) {
	return s.searchFn(ctx, term, page, pageSize)
}
func (s *stubUserService) Update(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error) {
	return s.updateFn(ctx, id, req)
}
func (s *stubUserService) GetByCarnet(ctx context.Context, carnet string) (*models.User, error) {
	return s.getByCarnetFn(ctx, carnet)
}

// recordingAuditService collects entries so tests can assert admin and wallet
// actions were audited.
type recordingAuditService struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (s *recordingAuditService) Record(entry *models.AuditLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *recordingAuditService) List(ctx context.Context, page, pageSize int) ([]*models.AuditLog, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries, int64(len(s.entries)), nil
}

type stubReportService struct {
	writeFn func(ctx context.Context, w io.Writer, filter models.LedgerFilter) error
}

func (s *stubReportService) WriteTransactionsCSV(ctx context.Context, w io.Writer, filter models.LedgerFilter) error {
	return s.writeFn(ctx, w, filter)
}

type stubEventService struct {
	createEventFn    func(ctx context.Context, req *models.EventRequest) (*models.Event, error)
	getEventFn       func(ctx context.Context, id string) (*models.Event, error)
	listEventsFn     func(ctx context.Context, page, pageSize int) ([]*models.Event, int64, error)
	updateEventFn    func(ctx context.Context, id string, req *models.EventRequest) (*models.Event, error)
	deleteEventFn    func(ctx context.Context, id string) error
	createBusinessFn func(ctx context.Context, eventID string, req *models.BusinessRequest) (*models.Business, error)
	listBusinessesFn func(ctx context.Context, eventID string) ([]*models.Business, error)
	updateBusinessFn func(ctx context.Context, id string, req *models.BusinessRequest) (*models.Business, error)
	deleteBusinessFn func(ctx context.Context, id string) error
	addMemberFn      func(ctx context.Context, businessID, userID string) (*models.BusinessMember, error)
	listMembersFn    func(ctx context.Context, businessID string) ([]*models.BusinessMember, error)
	removeMemberFn   func(ctx context.Context, businessID, userID string) error
}

func (s *stubEventService) CreateEvent(ctx context.Context, req *models.EventRequest) (*models.Event, error) {
	return s.createEventFn(ctx, req)
}
func (s *stubEventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.getEventFn(ctx, id)
}
func (s *stubEventService) ListEvents(ctx context.Context, page, pageSize int) ([]*models.Event, int64, error) {
	return s.listEventsFn(ctx, page, pageSize)
}
func (s *stubEventService) UpdateEvent(ctx context.Context, id string, req *models.EventRequest) (*models.Event, error) {
	return s.updateEventFn(ctx, id, req)
}
func (s *stubEventService) DeleteEvent(ctx context.Context, id string) error {
	return s.deleteEventFn(ctx, id)
}
func (s *stubEventService) CreateBusiness(ctx context.Context, eventID string, req *models.BusinessRequest) (*models.Business, error) {
	return s.createBusinessFn(ctx, eventID, req)
}
func (s *stubEventService) ListBusinesses(ctx context.Context, eventID string) ([]*models.Business, error) {
	return s.listBusinessesFn(ctx, eventID)
}
func (s *stubEventService) UpdateBusiness(ctx context.Context, id string, req *models.BusinessRequest) (*models.Business, error) {
	return s.updateBusinessFn(ctx, id, req)
}
func (s *stubEventService) DeleteBusiness(ctx context.Context, id string) error {
	return s.deleteBusinessFn(ctx, id)
}
func (s *stubEventService) AddMember(ctx context.Context, businessID, userID string) (*models.BusinessMember, error) {
	return s.addMemberFn(ctx, businessID, userID)
}
func (s *stubEventService) ListMembers(ctx context.Context, businessID string) ([]*models.BusinessMember, error) {
	return s.listMembersFn(ctx, businessID)
}
func (s *stubEventService) RemoveMember(ctx context.Context, businessID, userID string) error {
	return s.removeMemberFn(ctx, businessID, userID)
}
