package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/repository"
)

type AuditService interface {
	Record(entry *models.AuditLog)
	List(ctx context.Context, page, pageSize int) ([]*models.AuditLog, int64, error)
}

type AuditServiceImpl struct {
	auditRepo repository.AuditRepository
	logger    *slog.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, logger *slog.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Record appends an audit row. Fire-and-forget: audit is observability, not a
// ledger correctness guarantee, so a failure here is logged and never rolls
// back or fails the business action it accompanies.
func (s *AuditServiceImpl) Record(entry *models.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to record audit log",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"error", err.Error(),
		)
	}
}

func (s *AuditServiceImpl) List(ctx context.Context, page, pageSize int) ([]*models.AuditLog, int64, error) {
	return s.auditRepo.List(ctx, page, pageSize)
}
