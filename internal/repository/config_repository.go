package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hayekcoin/campus-wallet/internal/models"
)

type ConfigRepository interface {
	Get(ctx context.Context) (*models.WalletConfig, error)
	Update(ctx context.Context, config *models.WalletConfig) error
}

type PostgresConfigRepository struct {
	db *sql.DB
}

func NewConfigRepository(db *sql.DB) *PostgresConfigRepository {
	return &PostgresConfigRepository{db: db}
}

// Get returns the single wallet_config row, inserting defaults on first use.
func (r *PostgresConfigRepository) Get(ctx context.Context) (*models.WalletConfig, error) {
	query := `INSERT INTO wallet_config (singleton, max_transfer_amount, confirmation_timeout_seconds, network)
		VALUES (TRUE, 1000000, 600, 'hayeknet')
		ON CONFLICT (singleton) DO UPDATE SET singleton = TRUE
		RETURNING max_transfer_amount, confirmation_timeout_seconds, network, updated_at`

	config := &models.WalletConfig{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&config.MaxTransferAmount, &config.ConfirmationTimeout, &config.Network, &config.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet config: %w", err)
	}
	return config, nil
}

func (r *PostgresConfigRepository) Update(ctx context.Context, config *models.WalletConfig) error {
	query := `INSERT INTO wallet_config (singleton, max_transfer_amount, confirmation_timeout_seconds, network)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (singleton) DO UPDATE SET
			max_transfer_amount = $1, confirmation_timeout_seconds = $2, network = $3,
			updated_at = CURRENT_TIMESTAMP
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		config.MaxTransferAmount, config.ConfirmationTimeout, config.Network,
	).Scan(&config.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update wallet config: %w", err)
	}
	return nil
}
