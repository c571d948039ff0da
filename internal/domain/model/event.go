package model

import (
	"time"

	"club-payment-service/internal/domain"
)

// Event is a capacity-bounded happening tickets are sold for.
type Event struct {
	ID         string
	Name       string
	StartsAt   time.Time
	Capacity   int
	Sold       int
	PriceCents int64
	Currency   string
	Active     bool
	CreatedAt  time.Time
}

func (e *Event) IsZero() bool { return e == nil || e.ID == "" }

// HasCapacity reports whether at least one more ticket can be sold. The
// confirmation flow re-checks this with a conditional update; this is only
// the cheap checkout-time gate.
func (e *Event) HasCapacity() bool { return e.Sold < e.Capacity }

type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusActive    TicketStatus = "active"
	TicketStatusCancelled TicketStatus = "cancelled"
)

type Ticket struct {
	ID         string
	EventID    string
	IdentityID string
	Status     TicketStatus
	CreatedAt  time.Time
}

func NewPendingTicket(id, eventID, identityID string) (*Ticket, error) {
	if id == "" || eventID == "" || identityID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Ticket{
		ID:         id,
		EventID:    eventID,
		IdentityID: identityID,
		Status:     TicketStatusPending,
		CreatedAt:  time.Now(),
	}, nil
}

func (t *Ticket) IsZero() bool { return t == nil || t.ID == "" }
