package model

import (
	"time"

	"club-payment-service/internal/domain"
)

// Product is a shop item with a finite stock.
type Product struct {
	ID         string
	Name       string
	PriceCents int64
	Currency   string
	Stock      int
	Active     bool
	CreatedAt  time.Time
}

func (p *Product) IsZero() bool { return p == nil || p.ID == "" }

// OrderLine is one product position frozen at checkout time.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitCents int64  `json:"unit_cents"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID            string
	IdentityID    string
	Lines         []OrderLine
	SubtotalCents int64
	ShippingCents int64
	TotalCents    int64
	Currency      string
	Status        OrderStatus
	CreatedAt     time.Time
}

func NewPendingOrder(id, identityID string, lines []OrderLine, shippingCents int64, currency string) (*Order, error) {
	if id == "" || identityID == "" || len(lines) == 0 || len(currency) != 3 {
		return nil, domain.ErrInvalidArgument
	}
	var subtotal int64
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity <= 0 || l.UnitCents <= 0 {
			return nil, domain.ErrInvalidArgument
		}
		subtotal += l.UnitCents * int64(l.Quantity)
	}
	return &Order{
		ID:            id,
		IdentityID:    identityID,
		Lines:         lines,
		SubtotalCents: subtotal,
		ShippingCents: shippingCents,
		TotalCents:    subtotal + shippingCents,
		Currency:      currency,
		Status:        OrderStatusPending,
		CreatedAt:     time.Now(),
	}, nil
}

func (o *Order) IsZero() bool { return o == nil || o.ID == "" }
