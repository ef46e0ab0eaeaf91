package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hayekcoin/campus-wallet/internal/auth"
	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/metrics"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/service"
	u "github.com/hayekcoin/campus-wallet/internal/utils"
)

// AdminHandler serves the central-wallet operations surface: treasury status,
// request review, recharges, configuration, reports and audit.
type AdminHandler struct {
	ledgerService     service.LedgerService
	transferService   service.TransferService
	withdrawalService service.WithdrawalService
	settlementService service.SettlementService
	accountService    service.AccountService
	userService       service.UserService
	auditService      service.AuditService
	reportService     service.ReportService
	metrics           *metrics.Metrics
	logger            *slog.Logger
}

func NewAdminHandler(
	ledgerService service.LedgerService,
	transferService service.TransferService,
	withdrawalService service.WithdrawalService,
	settlementService service.SettlementService,
	accountService service.AccountService,
	userService service.UserService,
	auditService service.AuditService,
	reportService service.ReportService,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		ledgerService:     ledgerService,
		transferService:   transferService,
		withdrawalService: withdrawalService,
		settlementService: settlementService,
		accountService:    accountService,
		userService:       userService,
		auditService:      auditService,
		reportService:     reportService,
		metrics:           m,
		logger:            logger,
	}
}

// RegisterRoutes mounts the admin surface. Each route is gated on the
// capability its action needs, so an organizer reviewing settlements cannot
// touch user management.
func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	gate := func(cap auth.Capability, fn http.HandlerFunc) http.Handler {
		return auth.Require(cap)(fn)
	}

	router.Handle("/central-wallet/status", gate(auth.CapViewTreasury, h.TreasuryStatus)).Methods(http.MethodGet)
	router.Handle("/central-wallet/activity", gate(auth.CapViewTreasury, h.TreasuryActivity)).Methods(http.MethodGet)
	router.Handle("/central-wallet/recharges", gate(auth.CapViewTreasury, h.Recharge)).Methods(http.MethodPost)

	router.Handle("/central-wallet/config", gate(auth.CapManageConfig, h.GetConfig)).Methods(http.MethodGet)
	router.Handle("/central-wallet/config", gate(auth.CapManageConfig, h.UpdateConfig)).Methods(http.MethodPut)

	router.Handle("/central-wallet/withdrawals", gate(auth.CapReviewRequests, h.ListWithdrawals)).Methods(http.MethodGet)
	router.Handle("/central-wallet/withdrawals/{id}/approve", gate(auth.CapReviewRequests, h.ApproveWithdrawal)).Methods(http.MethodPost)
	router.Handle("/central-wallet/withdrawals/{id}/reject", gate(auth.CapReviewRequests, h.RejectWithdrawal)).Methods(http.MethodPost)
	router.Handle("/central-wallet/settlements", gate(auth.CapReviewRequests, h.ListSettlements)).Methods(http.MethodGet)
	router.Handle("/central-wallet/settlements/{id}/approve", gate(auth.CapReviewRequests, h.ApproveSettlement)).Methods(http.MethodPost)
	router.Handle("/central-wallet/settlements/{id}/reject", gate(auth.CapReviewRequests, h.RejectSettlement)).Methods(http.MethodPost)

	router.Handle("/transactions", gate(auth.CapViewTreasury, h.ListTransactions)).Methods(http.MethodGet)
	router.Handle("/transactions/{id}/resubmit", gate(auth.CapReviewRequests, h.ResubmitPayout)).Methods(http.MethodPost)
	router.Handle("/reports/transactions.csv", gate(auth.CapViewTreasury, h.TransactionsReport)).Methods(http.MethodGet)

	router.Handle("/audit/logs", gate(auth.CapViewAudit, h.ListAuditLogs)).Methods(http.MethodGet)

	router.Handle("/users/search", gate(auth.CapManageUsers, h.SearchUsers)).Methods(http.MethodGet)
	router.Handle("/users/{id}", gate(auth.CapManageUsers, h.UpdateUser)).Methods(http.MethodPut)
}

func (h *AdminHandler) TreasuryStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.ledgerService.TreasuryStatus(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "treasury status")
		return
	}
	u.WriteJSON(w, http.StatusOK, status)
}

func (h *AdminHandler) TreasuryActivity(w http.ResponseWriter, r *http.Request) {
	filter := parseLedgerFilter(r)
	filter.AccountID = models.TreasuryAccountID

	page, pageSize := u.ParsePagination(r)
	rows, total, err := h.ledgerService.Query(r.Context(), filter, page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "treasury activity")
		return
	}
	u.WriteJSON(w, http.StatusOK, models.PageResponse{
		Rows:     rows,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Recharge credits a student's wallet from the treasury after an external
// payment has been verified out of band.
func (h *AdminHandler) Recharge(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var req models.RechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	user, err := h.userService.GetByCarnet(r.Context(), req.Carnet)
	if err != nil {
		if errors.IsNotFound(err) {
			u.WriteError(w, http.StatusNotFound, "not found", "no wallet registered for that carnet")
			return
		}
		handleServiceError(w, h.logger, err, "recharge")
		return
	}
	account, err := h.accountService.GetByOwner(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, h.logger, err, "recharge")
		return
	}

	transaction, err := h.transferService.Recharge(r.Context(), account.ID, req.Amount, req.ExternalReference)
	if err != nil {
		handleServiceError(w, h.logger, err, "recharge")
		return
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "wallet.recharge",
		EntityType:  models.EntityTypeTransaction,
		EntityID:    transaction.ID,
		Description: "recarga de saldo",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusCreated, transaction)
}

func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	config, err := h.ledgerService.GetConfig(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err, "get config")
		return
	}
	u.WriteJSON(w, http.StatusOK, config)
}

func (h *AdminHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var config models.WalletConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	updated, err := h.ledgerService.UpdateConfig(r.Context(), &config)
	if err != nil {
		handleServiceError(w, h.logger, err, "update config")
		return
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "config.update",
		EntityType:  models.EntityTypeConfig,
		EntityID:    "singleton",
		Description: "configuración de billetera actualizada",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	page, pageSize := u.ParsePagination(r)
	rows, total, err := h.withdrawalService.List(r.Context(), r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list withdrawals")
		return
	}
	u.WriteJSON(w, http.StatusOK, models.PageResponse{
		Rows:     rows,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *AdminHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.reviewWithdrawal(w, r, models.WithdrawalApproved)
}

func (h *AdminHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.reviewWithdrawal(w, r, models.WithdrawalRejected)
}

func (h *AdminHandler) reviewWithdrawal(w http.ResponseWriter, r *http.Request, outcome string) {
	actor, _ := auth.ActorFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var req models.ReviewRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	var request *models.WithdrawalRequest
	var err error
	if outcome == models.WithdrawalApproved {
		request, err = h.withdrawalService.Approve(r.Context(), id, actor.ID, req.Notes)
	} else {
		request, err = h.withdrawalService.Reject(r.Context(), id, actor.ID, req.Notes)
	}
	if err != nil {
		if h.metrics != nil {
			h.metrics.ReviewsTotal.WithLabelValues("withdrawal", "error").Inc()
		}
		handleServiceError(w, h.logger, err, "review withdrawal")
		return
	}
	if h.metrics != nil {
		h.metrics.ReviewsTotal.WithLabelValues("withdrawal", outcome).Inc()
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "withdrawal." + outcome,
		EntityType:  models.EntityTypeWithdrawal,
		EntityID:    id,
		Description: "revisión de solicitud de retiro",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusOK, request)
}

func (h *AdminHandler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	page, pageSize := u.ParsePagination(r)
	rows, total, err := h.settlementService.List(r.Context(), r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list settlements")
		return
	}
	u.WriteJSON(w, http.StatusOK, models.PageResponse{
		Rows:     rows,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *AdminHandler) ApproveSettlement(w http.ResponseWriter, r *http.Request) {
	h.reviewSettlement(w, r, models.SettlementPaid)
}

func (h *AdminHandler) RejectSettlement(w http.ResponseWriter, r *http.Request) {
	h.reviewSettlement(w, r, models.SettlementRejected)
}

func (h *AdminHandler) reviewSettlement(w http.ResponseWriter, r *http.Request, outcome string) {
	actor, _ := auth.ActorFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var req models.ReviewRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	var request *models.SettlementRequest
	var err error
	if outcome == models.SettlementPaid {
		request, err = h.settlementService.Approve(r.Context(), id, actor.ID, req.Notes)
	} else {
		request, err = h.settlementService.Reject(r.Context(), id, actor.ID, req.Notes)
	}
	if err != nil {
		if h.metrics != nil {
			h.metrics.ReviewsTotal.WithLabelValues("settlement", "error").Inc()
		}
		handleServiceError(w, h.logger, err, "review settlement")
		return
	}
	if h.metrics != nil {
		h.metrics.ReviewsTotal.WithLabelValues("settlement", outcome).Inc()
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "settlement." + outcome,
		EntityType:  models.EntityTypeSettlement,
		EntityID:    id,
		Description: "revisión de liquidación de evento",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusOK, request)
}

func (h *AdminHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page, pageSize := u.ParsePagination(r)
	rows, total, err := h.ledgerService.Query(r.Context(), parseLedgerFilter(r), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list transactions")
		return
	}
	u.WriteJSON(w, http.StatusOK, models.PageResponse{
		Rows:     rows,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// ResubmitPayout re-arms a held payout after the operator confirmed the funds
// never left the treasury.
func (h *AdminHandler) ResubmitPayout(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id := mux.Vars(r)["id"]

	transaction, err := h.ledgerService.ResubmitPayout(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "resubmit payout")
		return
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "payout.resubmit",
		EntityType:  models.EntityTypeTransaction,
		EntityID:    id,
		Description: "pago reenviado tras confirmación del operador",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusOK, transaction)
}

// TransactionsReport streams the filtered ledger as a CSV download.
func (h *AdminHandler) TransactionsReport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)

	if err := h.reportService.WriteTransactionsCSV(r.Context(), w, parseLedgerFilter(r)); err != nil {
		// Headers may already be out; just log.
		h.logger.Error("failed to stream transactions report", "error", err.Error())
	}
}

func (h *AdminHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, pageSize := u.ParsePagination(r)
	rows, total, err := h.auditService.List(r.Context(), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list audit logs")
		return
	}
	u.WriteJSON(w, http.StatusOK, models.PageResponse{
		Rows:     rows,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *AdminHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := u.ParsePagination(r)
	rows, total, err := h.userService.Search(r.Context(), r.URL.Query().Get("q"), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "search users")
		return
	}
	u.WriteJSON(w, http.StatusOK, models.PageResponse{
		Rows:     rows,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id := mux.Vars(r)["id"]

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	user, err := h.userService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update user")
		return
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "user.update",
		EntityType:  models.EntityTypeUser,
		EntityID:    id,
		Description: "usuario actualizado",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusOK, user)
}
