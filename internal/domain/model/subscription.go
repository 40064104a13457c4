package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"netaccess-billing/internal/domain"
)

// SubscriptionType partitions access intervals. An interval of type Both
// grants membership and connection at once.
type SubscriptionType string

const (
	SubscriptionConnection SubscriptionType = "connection"
	SubscriptionMembership SubscriptionType = "membership"
	SubscriptionBoth       SubscriptionType = "both"
)

func (t SubscriptionType) Valid() bool {
	switch t {
	case SubscriptionConnection, SubscriptionMembership, SubscriptionBoth:
		return true
	}
	return false
}

// ParseSubscriptionType accepts the stored representation; the empty string
// means "not a subscription".
func ParseSubscriptionType(s string) (*SubscriptionType, error) {
	if s == "" {
		return nil, nil
	}
	t := SubscriptionType(s)
	if !t.Valid() {
		return nil, fmt.Errorf("%w: subscription type %q", domain.ErrInvalidArgument, s)
	}
	return &t, nil
}

// Matches reports whether an existing interval of type other must be chained
// after when computing the start of a purchase of type t.
// Both-type intervals block every type; a Both purchase only chains after
// other Both intervals.
func (t SubscriptionType) Matches(other SubscriptionType) bool {
	return other == t || other == SubscriptionBoth
}

// SubscriptionInterval is the access window granted by one subscription purchase.
type SubscriptionInterval struct {
	ID         string
	PurchaseID string // unique: at most one interval per purchase
	Type       SubscriptionType
	Start      time.Time
	End        time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewSubscriptionInterval(purchaseID string, t SubscriptionType, start, end time.Time) (*SubscriptionInterval, error) {
	if purchaseID == "" || !t.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if !end.After(start) {
		return nil, domain.ErrInvalidInterval
	}
	now := time.Now()
	return &SubscriptionInterval{
		ID:         uuid.NewString(),
		PurchaseID: purchaseID,
		Type:       t,
		Start:      start,
		End:        end,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Covers reports whether the interval grants access at instant at.
func (i *SubscriptionInterval) Covers(at time.Time) bool {
	return !at.Before(i.Start) && at.Before(i.End)
}
