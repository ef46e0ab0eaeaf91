package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/hayekcoin/campus-wallet/internal/models"
)

type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, page, pageSize int) ([]*models.AuditLog, int64, error)
}

type PostgresAuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

// Create appends one audit row. Audit rows are never updated or deleted.
func (r *PostgresAuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	var actorID sql.NullString
	if log.ActorID != "" {
		actorID = sql.NullString{String: log.ActorID, Valid: true}
	}
	var metadata any
	if log.Metadata != nil {
		metadata = []byte(log.Metadata)
	}

	query := `INSERT INTO audit_logs
		(id, actor_id, action, entity_type, entity_id, description, metadata, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		log.ID, actorID, log.Action, log.EntityType, log.EntityID,
		log.Description, metadata, log.IP, log.UserAgent,
	).Scan(&log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *PostgresAuditRepository) List(ctx context.Context, page, pageSize int) ([]*models.AuditLog, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query := `SELECT id, actor_id, action, entity_type, entity_id, description, metadata, ip, user_agent, created_at
		FROM audit_logs
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		var actorID sql.NullString
		var metadata []byte

		err := rows.Scan(
			&log.ID, &actorID, &log.Action, &log.EntityType, &log.EntityID,
			&log.Description, &metadata, &log.IP, &log.UserAgent, &log.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log: %w", err)
		}
		log.ActorID = actorID.String
		if metadata != nil {
			log.Metadata = json.RawMessage(metadata)
		}
		logs = append(logs, log)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over audit logs: %w", err)
	}
	return logs, total, nil
}
