package models

import (
	"encoding/json"
	"time"
)

// All HC amounts are int64 minor units (centavos of HayekCoin).

// TreasuryAccountID is the fixed id of the central custodial account.
const TreasuryAccountID = "treasury"

// Transaction directions.
const (
	DirectionIncoming = "entrante"
	DirectionOutgoing = "saliente"
)

// Transaction statuses.
const (
	TxStatusPending   = "pendiente"
	TxStatusCompleted = "completada"
	TxStatusFailed    = "fallida"
)

// Withdrawal request statuses.
const (
	WithdrawalPending   = "pendiente"
	WithdrawalApproved  = "aprobado"
	WithdrawalRejected  = "rechazado"
	WithdrawalCompleted = "completado"
	WithdrawalFailed    = "fallido"
)

// Settlement request statuses.
const (
	SettlementPending  = "pendiente"
	SettlementPaid     = "pagado"
	SettlementRejected = "rechazado"
)

type Account struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Symbol    string    `json:"symbol"`
	Balance   int64     `json:"balance"`
	Network   string    `json:"network"`
	Retired   bool      `json:"retired"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Transaction struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	ReferenceID  string          `json:"reference_id"`
	Direction    string          `json:"direction"`
	Amount       int64           `json:"amount"`
	Symbol       string          `json:"symbol"`
	Counterparty string          `json:"counterparty"`
	Status       string          `json:"status"`
	Description  string          `json:"description"`
	ChainHash    string          `json:"token_transfer_hash,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

type WithdrawalRequest struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	AccountID     string     `json:"account_id"`
	Amount        int64      `json:"amount"`
	Symbol        string     `json:"symbol"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes,omitempty"`
	ReviewedBy    string     `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	ChainHash     string     `json:"token_transfer_hash,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type SettlementRequest struct {
	ID            string     `json:"id"`
	BusinessID    string     `json:"business_id"`
	EventID       string     `json:"event_id"`
	Amount        int64      `json:"amount"`
	Symbol        string     `json:"symbol"`
	Status        string     `json:"status"`
	Notes         string     `json:"notes,omitempty"`
	ReviewedBy    string     `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Business struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Name          string    `json:"name"`
	GroupID       string    `json:"group_id"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	AccountID     string    `json:"account_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type BusinessMember struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type User struct {
	ID           string    `json:"id"`
	Nombres      string    `json:"nombres"`
	Apellidos    string    `json:"apellidos"`
	Email        string    `json:"email"`
	Carnet       string    `json:"carnet_universitario"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type AuditLog struct {
	ID          string          `json:"id"`
	ActorID     string          `json:"actor_id,omitempty"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	IP          string          `json:"ip,omitempty"`
	UserAgent   string          `json:"user_agent,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// WalletConfig is the single-row central wallet configuration.
type WalletConfig struct {
	MaxTransferAmount   int64     `json:"max_transfer_amount"`
	ConfirmationTimeout int64     `json:"confirmation_timeout_seconds"`
	Network             string    `json:"network"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// LedgerFilter selects transactions for history, admin listings and reports.
// Zero values mean "no constraint"; combined filters are ANDed.
type LedgerFilter struct {
	AccountID string
	Direction string
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// Request / response payloads.

type RegisterRequest struct {
	Nombres   string `json:"nombres"`
	Apellidos string `json:"apellidos"`
	Email     string `json:"email"`
	Carnet    string `json:"carnet_universitario"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type SendRequest struct {
	Carnet      string `json:"carnet"`
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
}

type RechargeRequest struct {
	Carnet            string `json:"carnet"`
	Amount            int64  `json:"amount"`
	ExternalReference string `json:"external_reference"`
}

type CreateWithdrawalRequest struct {
	Amount int64 `json:"amount"`
}

type ReviewRequest struct {
	Notes string `json:"notes,omitempty"`
}

type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Symbol    string `json:"symbol"`
	Balance   int64  `json:"balance"`
	Network   string `json:"network"`
}

type TransferResponse struct {
	ReferenceID string       `json:"reference_id"`
	Outgoing    *Transaction `json:"outgoing"`
	Incoming    *Transaction `json:"incoming"`
}

type PageResponse struct {
	Rows     any   `json:"rows"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

type TreasuryStatus struct {
	Balance            int64  `json:"balance"`
	Symbol             string `json:"symbol"`
	Network            string `json:"network"`
	PendingOnChain     int64  `json:"pending_on_chain"`
	PendingWithdrawals int64  `json:"pending_withdrawals"`
	PendingSettlements int64  `json:"pending_settlements"`
}

type EventRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active,omitempty"`
}

type BusinessRequest struct {
	Name          string `json:"name"`
	GroupID       string `json:"group_id"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

type MemberRequest struct {
	UserID string `json:"user_id"`
}

type UpdateUserRequest struct {
	Nombres   string `json:"nombres,omitempty"`
	Apellidos string `json:"apellidos,omitempty"`
	Role      string `json:"role,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

const (
	EntityTypeAccount     = "account"
	EntityTypeTransaction = "transaction"
	EntityTypeWithdrawal  = "withdrawal_request"
	EntityTypeSettlement  = "settlement_request"
	EntityTypeEvent       = "event"
	EntityTypeBusiness    = "business"
	EntityTypeUser        = "user"
	EntityTypeConfig      = "wallet_config"
)
