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

// WalletHandler serves the student-facing wallet surface. Every endpoint acts
// on the authenticated actor's own account; account ids never come from the
// client.
type WalletHandler struct {
	accountService    service.AccountService
	ledgerService     service.LedgerService
	transferService   service.TransferService
	withdrawalService service.WithdrawalService
	userService       service.UserService
	auditService      service.AuditService
	metrics           *metrics.Metrics
	logger            *slog.Logger
}

func NewWalletHandler(
	accountService service.AccountService,
	ledgerService service.LedgerService,
	transferService service.TransferService,
	withdrawalService service.WithdrawalService,
	userService service.UserService,
	auditService service.AuditService,
	m *metrics.Metrics,
	logger *slog.Logger,
) *WalletHandler {
	return &WalletHandler{
		accountService:    accountService,
		ledgerService:     ledgerService,
		transferService:   transferService,
		withdrawalService: withdrawalService,
		userService:       userService,
		auditService:      auditService,
		metrics:           m,
		logger:            logger,
	}
}

func (h *WalletHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/balance", h.GetBalance).Methods(http.MethodGet)
	router.HandleFunc("/history", h.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/send", h.Send).Methods(http.MethodPost)
	router.HandleFunc("/withdrawals", h.ListWithdrawals).Methods(http.MethodGet)
	router.HandleFunc("/withdrawals", h.CreateWithdrawal).Methods(http.MethodPost)
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	account, err := h.accountService.GetByOwner(r.Context(), actor.ID)
	if err != nil {
		handleServiceError(w, h.logger, err, "get balance")
		return
	}
	u.WriteJSON(w, http.StatusOK, models.BalanceResponse{
		AccountID: account.ID,
		Symbol:    account.Symbol,
		Balance:   account.Balance,
		Network:   account.Network,
	})
}

func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	account, err := h.accountService.GetByOwner(r.Context(), actor.ID)
	if err != nil {
		handleServiceError(w, h.logger, err, "get history")
		return
	}

	page, pageSize := u.ParsePagination(r)
	rows, total, err := h.ledgerService.History(r.Context(), account.ID, parseLedgerFilter(r), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "get history")
		return
	}
	u.WriteJSON(w, http.StatusOK, models.PageResponse{
		Rows:     rows,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Send transfers HC to another student addressed by carnet.
func (h *WalletHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	fromAccount, err := h.accountService.GetByOwner(r.Context(), actor.ID)
	if err != nil {
		handleServiceError(w, h.logger, err, "send")
		return
	}

	recipient, err := h.userService.GetByCarnet(r.Context(), req.Carnet)
	if err != nil {
		if errors.IsNotFound(err) {
			u.WriteError(w, http.StatusNotFound, "not found", "no wallet registered for that carnet")
			return
		}
		handleServiceError(w, h.logger, err, "send")
		return
	}
	toAccount, err := h.accountService.GetByOwner(r.Context(), recipient.ID)
	if err != nil {
		handleServiceError(w, h.logger, err, "send")
		return
	}

	resp, err := h.transferService.Transfer(r.Context(), fromAccount.ID, toAccount.ID, req.Amount, req.Description)
	if err != nil {
		if h.metrics != nil {
			h.metrics.TransfersTotal.WithLabelValues("failed").Inc()
		}
		handleServiceError(w, h.logger, err, "send")
		return
	}
	if h.metrics != nil {
		h.metrics.TransfersTotal.WithLabelValues("completed").Inc()
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "transfer.send",
		EntityType:  models.EntityTypeTransaction,
		EntityID:    resp.ReferenceID,
		Description: "transferencia entre cuentas",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusCreated, resp)
}

func (h *WalletHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	page, pageSize := u.ParsePagination(r)
	rows, total, err := h.withdrawalService.ListByUser(r.Context(), actor.ID, page, pageSize)
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

func (h *WalletHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		u.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req models.CreateWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	request, err := h.withdrawalService.Create(r.Context(), actor.ID, req.Amount)
	if err != nil {
		if err == errors.ErrDuplicatePending {
			u.WriteError(w, http.StatusConflict, "conflict", "a pending withdrawal already exists for this account")
			return
		}
		handleServiceError(w, h.logger, err, "create withdrawal")
		return
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "withdrawal.create",
		EntityType:  models.EntityTypeWithdrawal,
		EntityID:    request.ID,
		Description: "solicitud de retiro",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusCreated, request)
}
