package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tailorline/settlement-api/internal/database"
	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/pkg/logger"
)

// WalletRepository handles database operations for actor wallets
type WalletRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewWalletRepository creates a new WalletRepository
func NewWalletRepository(db *database.Database, logger logger.Logger) *WalletRepository {
	return &WalletRepository{
		db:     db,
		logger: logger,
	}
}

// GetByActorID retrieves the wallet of an actor
func (r *WalletRepository) GetByActorID(ctx context.Context, actorID string) (*models.Wallet, error) {
	query := `
		SELECT actor_id, address, signing_key, created_at
		FROM wallets
		WHERE actor_id = $1
	`

	var wallet models.Wallet
	err := r.db.DB.GetContext(ctx, &wallet, query, actorID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get wallet", "error", err, "actorID", actorID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &wallet, nil
}

// Upsert stores or replaces an actor's wallet record
func (r *WalletRepository) Upsert(ctx context.Context, wallet *models.Wallet) error {
	query := `
		INSERT INTO wallets (actor_id, address, signing_key, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (actor_id) DO UPDATE SET address = $2, signing_key = $3
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		wallet.ActorID,
		wallet.Address,
		wallet.SigningKey,
		wallet.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to upsert wallet", "error", err, "actorID", wallet.ActorID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
