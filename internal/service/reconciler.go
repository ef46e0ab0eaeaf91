package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hayekcoin/campus-wallet/internal/chain"
	"github.com/hayekcoin/campus-wallet/internal/metrics"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/repository"
)

const reconcileBatchSize = 50

// Reconciler re-polls pendiente on-chain ledger rows against the chain node.
// A row only leaves pendiente on a confirmed outcome: receipts decide, never
// client-side timeouts, so a late confirmation cannot double-credit.
type Reconciler struct {
	transactionRepo repository.TransactionRepository
	chainClient     chain.Client
	metrics         *metrics.Metrics
	interval        time.Duration
	logger          *slog.Logger
}

func NewReconciler(transactionRepo repository.TransactionRepository, chainClient chain.Client, m *metrics.Metrics, interval time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		transactionRepo: transactionRepo,
		chainClient:     chainClient,
		metrics:         m,
		interval:        interval,
		logger:          logger,
	}
}

// Run loops until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Pass(ctx); err != nil {
				r.logger.Error("reconcile pass failed", "error", err.Error())
				if r.metrics != nil {
					r.metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
				}
				continue
			}
			if r.metrics != nil {
				r.metrics.ReconcileRunsTotal.WithLabelValues("ok").Inc()
			}
		}
	}
}

// Pass runs one reconciliation sweep: resolve rows with a hash, then resubmit
// rows whose payout submission previously failed.
func (r *Reconciler) Pass(ctx context.Context) error {
	pending, err := r.transactionRepo.ListPendingOnChain(ctx, reconcileBatchSize)
	if err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.PendingOnChain.Set(float64(len(pending)))
	}

	for _, transaction := range pending {
		state, err := r.chainClient.TransactionStatus(ctx, transaction.ChainHash)
		if err != nil {
			// Node unreachable or flaky: leave the row pendiente and
			// try again next pass.
			r.logger.Warn("chain status check failed",
				"transaction_id", transaction.ID,
				"chain_hash", transaction.ChainHash,
				"error", err.Error(),
			)
			continue
		}

		switch state {
		case chain.StateConfirmed:
			if err := r.transactionRepo.ReconcileComplete(ctx, transaction.ID); err != nil {
				r.logger.Error("failed to complete confirmed transaction",
					"transaction_id", transaction.ID,
					"error", err.Error(),
				)
				continue
			}
			r.logger.Info("on-chain transfer confirmed",
				"transaction_id", transaction.ID,
				"chain_hash", transaction.ChainHash,
			)
		case chain.StateRejected:
			if err := r.transactionRepo.ReconcileFail(ctx, transaction.ID); err != nil {
				r.logger.Error("failed to fail rejected transaction",
					"transaction_id", transaction.ID,
					"error", err.Error(),
				)
				continue
			}
			r.logger.Warn("on-chain transfer rejected, balance compensated",
				"transaction_id", transaction.ID,
				"chain_hash", transaction.ChainHash,
			)
		case chain.StatePending:
			// No receipt yet. Nothing to do.
		}
	}

	return r.resubmit(ctx)
}

// resubmit retries payout submissions that never reached the node, using the
// payout addresses recorded in the row metadata at approval time. Rows whose
// previous attempt may have reached the node (flag set, no hash) are held for
// operator confirmation; re-sending those could pay out twice.
func (r *Reconciler) resubmit(ctx context.Context) error {
	stranded, err := r.transactionRepo.ListPendingWithoutHash(ctx, reconcileBatchSize)
	if err != nil {
		return err
	}

	for _, transaction := range stranded {
		var meta struct {
			PayoutFrom      string `json:"payout_from"`
			PayoutAddress   string `json:"payout_address"`
			PayoutAttempted bool   `json:"payout_attempted"`
		}
		if transaction.Metadata == nil {
			continue
		}
		if err := json.Unmarshal(transaction.Metadata, &meta); err != nil || meta.PayoutAddress == "" {
			continue
		}
		if meta.PayoutAttempted {
			r.logger.Warn("payout attempted but no hash recorded, waiting for operator confirmation",
				"transaction_id", transaction.ID,
			)
			continue
		}
		from := meta.PayoutFrom
		if from == "" {
			from = models.TreasuryAccountID
		}

		if err := r.transactionRepo.SetPayoutAttempt(ctx, transaction.ID, true); err != nil {
			r.logger.Error("failed to record payout attempt before resubmission",
				"transaction_id", transaction.ID,
				"error", err.Error(),
			)
			continue
		}
		hash, err := r.chainClient.SendTransfer(ctx, from, meta.PayoutAddress, transaction.Amount)
		if err != nil {
			r.logger.Warn("payout resubmission failed",
				"transaction_id", transaction.ID,
				"error", err.Error(),
			)
			continue
		}
		if err := r.transactionRepo.SetChainHash(ctx, transaction.ID, hash); err != nil {
			r.logger.Error("failed to attach chain hash after resubmission",
				"transaction_id", transaction.ID,
				"error", err.Error(),
			)
			continue
		}
		r.logger.Info("payout resubmitted",
			"transaction_id", transaction.ID,
			"chain_hash", hash,
		)
	}
	return nil
}
