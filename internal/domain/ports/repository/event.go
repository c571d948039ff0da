package repository

import (
	"context"
	"time"

	"club-payment-service/internal/domain/model"
)

// -----------------------------
// Events & tickets
// -----------------------------

type EventRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Event, error)
	ListUpcoming(ctx context.Context, tx Tx) ([]*model.Event, error)

	// IncrementSoldIfAvailable bumps the sold counter only while it is below
	// capacity. Returns false when the event is sold out at this moment.
	IncrementSoldIfAvailable(ctx context.Context, tx Tx, id string) (bool, error)
}

type TicketRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Ticket) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Ticket, error)
	ActivateIfPending(ctx context.Context, tx Tx, id string) (bool, error)
	CancelOrphanedPending(ctx context.Context, tx Tx, olderThan time.Time, limit int) (int, error)
}
