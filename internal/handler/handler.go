package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
	u "github.com/hayekcoin/campus-wallet/internal/utils"
)

// handleServiceError maps domain errors onto HTTP statuses. Anything
// unrecognized is logged and surfaced as a generic 500 so internals never
// leak to the client.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error, operation string) {
	switch {
	case errors.IsValidationError(err):
		u.WriteError(w, http.StatusBadRequest, "validation error", err.Error())
	case err == errors.ErrInvalidAmount,
		err == errors.ErrSameAccount,
		err == errors.ErrTransferLimit,
		err == errors.ErrAccountRetired:
		u.WriteError(w, http.StatusBadRequest, err.Error(), "")
	case errors.IsInsufficientFunds(err):
		u.WriteError(w, http.StatusBadRequest, "insufficient funds", "the account does not hold enough HC for this operation")
	case errors.IsAuthError(err):
		u.WriteError(w, http.StatusUnauthorized, "unauthorized", "")
	case errors.IsForbidden(err):
		u.WriteError(w, http.StatusForbidden, "forbidden", "")
	case errors.IsNotFound(err):
		u.WriteError(w, http.StatusNotFound, "not found", err.Error())
	case errors.IsTransitionError(err):
		u.WriteError(w, http.StatusConflict, "invalid transition", err.Error())
	case errors.IsConflict(err):
		u.WriteError(w, http.StatusConflict, "conflict", err.Error())
	case errors.IsExternalError(err):
		u.WriteError(w, http.StatusBadGateway, "external service error", "the operation stays pending and will be retried")
	default:
		logger.Error("internal server error during "+operation, "error", err.Error())
		u.WriteError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

// parseLedgerFilter reads the optional history/report filters from the query
// string. Unknown keys are ignored, not errored.
func parseLedgerFilter(r *http.Request) models.LedgerFilter {
	q := r.URL.Query()
	filter := models.LedgerFilter{
		AccountID: q.Get("account_id"),
		Direction: q.Get("direction"),
		Status:    q.Get("status"),
	}
	if v := q.Get("date_from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateFrom = &t
		}
	}
	if v := q.Get("date_to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.DateTo = &t
		}
	}
	return filter
}
