package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hayekcoin/campus-wallet/internal/errors"
	"github.com/hayekcoin/campus-wallet/internal/models"
)

type EventRepository interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context, page, pageSize int) ([]*models.Event, int64, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id string) error

	CreateBusiness(ctx context.Context, business *models.Business) error
	GetBusiness(ctx context.Context, id string) (*models.Business, error)
	ListBusinesses(ctx context.Context, eventID string) ([]*models.Business, error)
	UpdateBusiness(ctx context.Context, business *models.Business) error
	DeleteBusiness(ctx context.Context, id string) error

	AddMember(ctx context.Context, member *models.BusinessMember) error
	ListMembers(ctx context.Context, businessID string) ([]*models.BusinessMember, error)
	RemoveMember(ctx context.Context, businessID, userID string) error
}

type PostgresEventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

func (r *PostgresEventRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	query := `INSERT INTO events (id, name, description, active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		event.ID, event.Name, event.Description, event.Active,
	).Scan(&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *PostgresEventRepository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT id, name, description, active, created_at, updated_at FROM events WHERE id = $1`

	event := &models.Event{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID, &event.Name, &event.Description, &event.Active,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (r *PostgresEventRepository) ListEvents(ctx context.Context, page, pageSize int) ([]*models.Event, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	query := `SELECT id, name, description, active, created_at, updated_at FROM events
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		err := rows.Scan(
			&event.ID, &event.Name, &event.Description, &event.Active,
			&event.CreatedAt, &event.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over events: %w", err)
	}
	return events, total, nil
}

func (r *PostgresEventRepository) UpdateEvent(ctx context.Context, event *models.Event) error {
	query := `UPDATE events SET name = $1, description = $2, active = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, event.Name, event.Description, event.Active, event.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating event: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrEventNotFound
	}
	return nil
}

func (r *PostgresEventRepository) DeleteEvent(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after deleting event: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrEventNotFound
	}
	return nil
}

func (r *PostgresEventRepository) CreateBusiness(ctx context.Context, business *models.Business) error {
	if business.ID == "" {
		business.ID = uuid.New().String()
	}

	query := `INSERT INTO businesses (id, event_id, name, group_id, wallet_address, account_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		business.ID, business.EventID, business.Name, business.GroupID,
		business.WalletAddress, business.AccountID,
	).Scan(&business.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create business: %w", err)
	}
	return nil
}

func (r *PostgresEventRepository) GetBusiness(ctx context.Context, id string) (*models.Business, error) {
	query := `SELECT id, event_id, name, group_id, wallet_address, account_id, created_at
		FROM businesses WHERE id = $1`

	business := &models.Business{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&business.ID, &business.EventID, &business.Name, &business.GroupID,
		&business.WalletAddress, &business.AccountID, &business.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return business, nil
}

func (r *PostgresEventRepository) ListBusinesses(ctx context.Context, eventID string) ([]*models.Business, error) {
	query := `SELECT id, event_id, name, group_id, wallet_address, account_id, created_at
		FROM businesses WHERE event_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	var businesses []*models.Business
	for rows.Next() {
		business := &models.Business{}
		err := rows.Scan(
			&business.ID, &business.EventID, &business.Name, &business.GroupID,
			&business.WalletAddress, &business.AccountID, &business.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		businesses = append(businesses, business)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over businesses: %w", err)
	}
	return businesses, nil
}

func (r *PostgresEventRepository) UpdateBusiness(ctx context.Context, business *models.Business) error {
	query := `UPDATE businesses SET name = $1, group_id = $2, wallet_address = $3 WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query,
		business.Name, business.GroupID, business.WalletAddress, business.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update business: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating business: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrBusinessNotFound
	}
	return nil
}

func (r *PostgresEventRepository) DeleteBusiness(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM businesses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete business: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after deleting business: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrBusinessNotFound
	}
	return nil
}

func (r *PostgresEventRepository) AddMember(ctx context.Context, member *models.BusinessMember) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}

	query := `INSERT INTO business_members (id, business_id, user_id)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, member.ID, member.BusinessID, member.UserID).
		Scan(&member.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.ErrAlreadyExists
		}
		return fmt.Errorf("failed to add business member: %w", err)
	}
	return nil
}

func (r *PostgresEventRepository) ListMembers(ctx context.Context, businessID string) ([]*models.BusinessMember, error) {
	query := `SELECT id, business_id, user_id, created_at
		FROM business_members WHERE business_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list business members: %w", err)
	}
	defer rows.Close()

	var members []*models.BusinessMember
	for rows.Next() {
		member := &models.BusinessMember{}
		if err := rows.Scan(&member.ID, &member.BusinessID, &member.UserID, &member.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan business member: %w", err)
		}
		members = append(members, member)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over business members: %w", err)
	}
	return members, nil
}

func (r *PostgresEventRepository) RemoveMember(ctx context.Context, businessID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM business_members WHERE business_id = $1 AND user_id = $2`,
		businessID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove business member: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after removing member: %w", err)
	}
	if rowsAffected == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}
