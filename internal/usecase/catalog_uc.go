package usecase

import (
	"context"

	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/domain/ports/repository"
)

// CatalogUseCase exposes the read-only event and product listings for the
// admin surface. Writes go through the back office directly; this service
// only sells what is already in the catalog.
type CatalogUseCase struct {
	events   repository.EventRepository
	products repository.ProductRepository
}

func NewCatalogUseCase(events repository.EventRepository, products repository.ProductRepository) *CatalogUseCase {
	return &CatalogUseCase{events: events, products: products}
}

func (uc *CatalogUseCase) ListUpcomingEvents(ctx context.Context) ([]*model.Event, error) {
	return uc.events.ListUpcoming(ctx, repository.NoTX)
}

func (uc *CatalogUseCase) ListProducts(ctx context.Context) ([]*model.Product, error) {
	return uc.products.ListActive(ctx, repository.NoTX)
}
