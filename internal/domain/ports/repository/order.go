package repository

import (
	"context"
	"time"

	"club-payment-service/internal/domain/model"
)

// -----------------------------
// Products & shop orders
// -----------------------------

type ProductRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Product, error)

	// DecrementStock reduces stock by qty, clamped at zero. Overselling is
	// accepted (physical fulfilment reconciles), stock just never goes
	// negative.
	DecrementStock(ctx context.Context, tx Tx, id string, qty int) error
}

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	CompleteIfPending(ctx context.Context, tx Tx, id string) (bool, error)
	CancelOrphanedPending(ctx context.Context, tx Tx, olderThan time.Time, limit int) (int, error)
}
