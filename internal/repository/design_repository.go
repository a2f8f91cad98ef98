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

// DesignRepository handles database operations for designs
type DesignRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewDesignRepository creates a new DesignRepository
func NewDesignRepository(db *database.Database, logger logger.Logger) *DesignRepository {
	return &DesignRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new design into the database
func (r *DesignRepository) Create(ctx context.Context, design *models.Design) error {
	query := `
		INSERT INTO designs (id, name, description, price, tailor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		design.ID,
		design.Name,
		design.Description,
		design.Price,
		design.TailorID,
		design.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create design", "error", err, "designID", design.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a design by its ID
func (r *DesignRepository) GetByID(ctx context.Context, id string) (*models.Design, error) {
	query := `
		SELECT id, name, description, price, tailor_id, created_at
		FROM designs
		WHERE id = $1
	`

	var design models.Design
	err := r.db.DB.GetContext(ctx, &design, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get design by ID", "error", err, "designID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &design, nil
}

// GetByTailorID retrieves all designs owned by a tailor
func (r *DesignRepository) GetByTailorID(ctx context.Context, tailorID string) ([]*models.Design, error) {
	query := `
		SELECT id, name, description, price, tailor_id, created_at
		FROM designs
		WHERE tailor_id = $1
		ORDER BY created_at DESC
	`

	var designs []*models.Design
	err := r.db.DB.SelectContext(ctx, &designs, query, tailorID)

	if err != nil {
		r.logger.Error("Failed to get designs by tailor ID", "error", err, "tailorID", tailorID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return designs, nil
}
