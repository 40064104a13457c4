package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
)

// Article is a catalog item. Articles carrying a subscription type grant
// access for DurationMonths per unit bought.
type Article struct {
	ID                    string
	Name                  string
	UnitPrice             decimal.Decimal // 2 decimal places
	DurationMonths        *int            // set iff SubscriptionType is set
	SubscriptionType      *SubscriptionType
	EligibleUserType      EligibleUserType
	PurchasableByEveryone bool
	CreatedAt             time.Time
}

// NewArticle validates the catalog invariants and returns a new Article.
func NewArticle(name string, unitPrice decimal.Decimal, duration *int, st *SubscriptionType, eligible EligibleUserType, everyone bool) (*Article, error) {
	name = strings.TrimSpace(name)
	if name == "" || unitPrice.IsNegative() || !eligible.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if st != nil && !st.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if (st != nil) != (duration != nil) {
		return nil, domain.ErrDurationRequiredForSubscription
	}
	if duration != nil && *duration < 1 {
		return nil, domain.ErrDurationRequiredForSubscription
	}
	return &Article{
		ID:                    uuid.NewString(),
		Name:                  name,
		UnitPrice:             unitPrice.Round(2),
		DurationMonths:        duration,
		SubscriptionType:      st,
		EligibleUserType:      eligible,
		PurchasableByEveryone: everyone,
		CreatedAt:             time.Now(),
	}, nil
}

// AvailableFor reports whether user may buy the article. Admins bypass the
// PurchasableByEveryone restriction but not the user type eligibility.
func (a *Article) AvailableFor(u *User, actorIsAdmin bool) bool {
	if !a.PurchasableByEveryone && !actorIsAdmin {
		return false
	}
	return a.EligibleUserType.Accepts(u.Type)
}
