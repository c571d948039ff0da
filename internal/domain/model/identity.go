package model

import (
	"strings"
	"time"

	"club-payment-service/internal/domain"

	"github.com/google/uuid"
)

// Identity is the purchasing user, keyed by email. Created on first
// reference and never deleted.
type Identity struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

func NewIdentity(id, email, name string) (*Identity, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return nil, domain.ErrInvalidArgument
	}
	return &Identity{
		ID:        id,
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now(),
	}, nil
}

func (i *Identity) IsZero() bool { return i == nil || i.ID == "" }

// CustomerRef is the stable reference we register at the payment provider
// for recurring charges.
func (i *Identity) CustomerRef() string { return "cust-" + i.ID }

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail is a light-weight syntactic check: one '@', non-empty local
// and domain parts, domain contains a dot. Deliverability is the mail
// provider's problem.
func ValidEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	dom := email[at+1:]
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	dot := strings.IndexByte(dom, '.')
	return dot > 0 && dot < len(dom)-1
}
