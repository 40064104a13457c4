package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"netaccess-billing/internal/domain"
)

// Payment is a row of the payment catalog offered at checkout. It may be
// linked to at most one PaymentMethod; without a method, ending a payment
// validates the invoice directly.
type Payment struct {
	ID                   string
	DisplayName          string
	AvailableForEveryone bool
	IsBalance            bool // at most one row system-wide
	CreatedAt            time.Time
}

func NewPayment(name string, everyone bool) (*Payment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Payment{
		ID:                   uuid.NewString(),
		DisplayName:          name,
		AvailableForEveryone: everyone,
		CreatedAt:            time.Now(),
	}, nil
}

func (p *Payment) AvailableFor(actorIsAdmin bool) bool {
	return p.AvailableForEveryone || actorIsAdmin
}
