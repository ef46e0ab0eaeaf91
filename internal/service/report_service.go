package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/repository"
)

const reportPageSize = 500

type ReportService interface {
	WriteTransactionsCSV(ctx context.Context, w io.Writer, filter models.LedgerFilter) error
}

type ReportServiceImpl struct {
	transactionRepo repository.TransactionRepository
}

func NewReportService(transactionRepo repository.TransactionRepository) *ReportServiceImpl {
	return &ReportServiceImpl{transactionRepo: transactionRepo}
}

// WriteTransactionsCSV streams the filtered ledger as CSV, paging through the
// repository so large exports do not load everything at once.
func (s *ReportServiceImpl) WriteTransactionsCSV(ctx context.Context, w io.Writer, filter models.LedgerFilter) error {
	writer := csv.NewWriter(w)

	header := []string{
		"id", "account_id", "reference_id", "direction", "amount", "symbol",
		"counterparty", "status", "description", "token_transfer_hash", "created_at",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for page := 1; ; page++ {
		rows, _, err := s.transactionRepo.Query(ctx, filter, page, reportPageSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			break
		}

		for _, t := range rows {
			record := []string{
				t.ID, t.AccountID, t.ReferenceID, t.Direction,
				strconv.FormatInt(t.Amount, 10), t.Symbol,
				t.Counterparty, t.Status, t.Description, t.ChainHash,
				t.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		if len(rows) < reportPageSize {
			break
		}
	}

	writer.Flush()
	return writer.Error()
}
