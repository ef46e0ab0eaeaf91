package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/hayekcoin/campus-wallet/internal/models"
)

func TestWriteTransactionsCSV(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	page1 := make([]*models.Transaction, reportPageSize)
	for i := range page1 {
		page1[i] = &models.Transaction{
			ID: fmt.Sprintf("tx-%d", i), AccountID: "acct-1", ReferenceID: "ref",
			Direction: models.DirectionIncoming, Amount: 100, Symbol: "HC",
			Status: models.TxStatusCompleted, CreatedAt: now,
		}
	}
	page2 := []*models.Transaction{{
		ID: "tx-last", AccountID: "acct-1", ReferenceID: "ref",
		Direction: models.DirectionOutgoing, Amount: 250, Symbol: "HC",
		Status: models.TxStatusCompleted, CreatedAt: now,
	}}

	transactionRepo := &fakeTransactionRepo{
		queryFn: func(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error) {
			switch page {
			case 1:
				return page1, int64(len(page1) + 1), nil
			case 2:
				return page2, int64(len(page1) + 1), nil
			default:
				return nil, int64(len(page1) + 1), nil
			}
		},
	}
	svc := NewReportService(transactionRepo)

	var buf bytes.Buffer
	if err := svc.WriteTransactionsCSV(context.Background(), &buf, models.LedgerFilter{}); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}

	wantRows := 1 + reportPageSize + 1
	if len(records) != wantRows {
		t.Fatalf("expected %d rows including header, got %d", wantRows, len(records))
	}
	if records[0][0] != "id" || records[0][4] != "amount" {
		t.Fatalf("unexpected header: %v", records[0])
	}

	last := records[len(records)-1]
	if last[0] != "tx-last" || last[4] != "250" {
		t.Fatalf("unexpected last row: %v", last)
	}
	if last[10] != "2026-08-30T12:00:00Z" {
		t.Fatalf("expected RFC3339 UTC timestamp, got %s", last[10])
	}
}

func TestWriteTransactionsCSVPassesFilter(t *testing.T) {
	var gotFilter models.LedgerFilter
	transactionRepo := &fakeTransactionRepo{
		queryFn: func(ctx context.Context, filter models.LedgerFilter, page, pageSize int) ([]*models.Transaction, int64, error) {
			gotFilter = filter
			return nil, 0, nil
		},
	}
	svc := NewReportService(transactionRepo)

	filter := models.LedgerFilter{AccountID: "acct-1", Status: models.TxStatusCompleted}
	var buf bytes.Buffer
	if err := svc.WriteTransactionsCSV(context.Background(), &buf, filter); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if gotFilter.AccountID != "acct-1" || gotFilter.Status != models.TxStatusCompleted {
		t.Fatalf("filter not passed through: %+v", gotFilter)
	}
}
