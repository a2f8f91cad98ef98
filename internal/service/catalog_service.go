package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tailorline/settlement-api/internal/ledger"
	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/internal/repository"
	"github.com/tailorline/settlement-api/pkg/errors"
	"github.com/tailorline/settlement-api/pkg/logger"
)

// CatalogService handles the tailor-facing side of the marketplace: catalog
// entries and wallet registration. Without these nothing can be ordered,
// since order placement requires an existing design and a tailor wallet.
type CatalogService struct {
	designRepo *repository.DesignRepository
	walletRepo *repository.WalletRepository
	logger     logger.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(
	designRepo *repository.DesignRepository,
	walletRepo *repository.WalletRepository,
	logger logger.Logger,
) *CatalogService {
	return &CatalogService{
		designRepo: designRepo,
		walletRepo: walletRepo,
		logger:     logger,
	}
}

// CreateDesign adds a catalog entry for the tailor
func (s *CatalogService) CreateDesign(ctx context.Context, actor models.Actor, name, description string, price decimal.Decimal) (*models.Design, error) {
	if actor.Role != models.RoleTailor {
		return nil, errors.NewForbiddenError("only tailors can create designs")
	}

	if name == "" {
		return nil, errors.NewInvalidInputError("design name is required")
	}

	if !price.IsPositive() {
		return nil, errors.NewInvalidInputError("design price must be positive")
	}

	design := models.NewDesign(actor.ID, name, description, price)

	if err := s.designRepo.Create(ctx, design); err != nil {
		return nil, err
	}

	s.logger.Info("Design created",
		"designID", design.ID,
		"tailorID", actor.ID,
		"price", price)

	return design, nil
}

// GetDesignsForTailor lists the tailor's own catalog
func (s *CatalogService) GetDesignsForTailor(ctx context.Context, actor models.Actor) ([]*models.Design, error) {
	if actor.Role != models.RoleTailor {
		return nil, errors.NewForbiddenError("only tailors have a catalog")
	}

	return s.designRepo.GetByTailorID(ctx, actor.ID)
}

// RegisterWallet stores or replaces the actor's ledger wallet. The signing
// credential is validated before it lands in the database, so a settlement
// never fails at signing time over a malformed key.
func (s *CatalogService) RegisterWallet(ctx context.Context, actor models.Actor, address, signingKey string) (*models.Wallet, error) {
	if address == "" {
		return nil, errors.NewInvalidInputError("wallet address is required")
	}

	if _, err := ledger.DecodeSigningKey(signingKey); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("invalid signing key: %v", err))
	}

	wallet := &models.Wallet{
		ActorID:    actor.ID,
		Address:    address,
		SigningKey: signingKey,
		CreatedAt:  models.GetCurrentTime(),
	}

	if err := s.walletRepo.Upsert(ctx, wallet); err != nil {
		return nil, err
	}

	s.logger.Info("Wallet registered", "actorID", actor.ID, "address", address)
	return wallet, nil
}
