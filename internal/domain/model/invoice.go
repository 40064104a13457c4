package model

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
)

// Invoice groups purchases paid through one catalog Payment. The ID is a
// ULID so it is sortable and safe to hand to gateways as transaction id.
// Valid flips false -> true exactly once; a rejected invoice is deleted.
type Invoice struct {
	ID           string
	UserID       string
	PaymentID    string
	Bank         *string
	ChequeNumber *string
	Valid        bool
	Controlled   bool // audit flag, independent of Valid
	// LedgerClaimed is set while a ledger debit is in flight and stays set
	// once LedgerRef records the performed debit.
	LedgerClaimed bool
	LedgerRef     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Purchases []*Purchase // loaded on demand
}

func NewInvoice(userID, paymentID string) (*Invoice, error) {
	if userID == "" || paymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Invoice{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		UserID:    userID,
		PaymentID: paymentID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Total sums price*quantity over the loaded purchases.
func (i *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range i.Purchases {
		total = total.Add(p.Total())
	}
	return total
}

// HasSubscription reports whether any loaded purchase grants access.
func (i *Invoice) HasSubscription() bool {
	for _, p := range i.Purchases {
		if p.IsSubscription() {
			return true
		}
	}
	return false
}

// Purchase is one invoice line. Name, price, duration and type are copied
// from the article at purchase time so later catalog edits do not rewrite
// history.
type Purchase struct {
	ID               string
	InvoiceID        string
	ArticleName      string
	UnitPrice        decimal.Decimal
	Quantity         int
	DurationMonths   *int
	SubscriptionType *SubscriptionType
	CreatedAt        time.Time
}

// NewPurchase captures an article line. Validation of quantity and duration
// is left to the subscription engine so that bad rows coming from the store
// fail the same way.
func NewPurchase(invoiceID string, a *Article, quantity int) (*Purchase, error) {
	if invoiceID == "" || a == nil || strings.TrimSpace(a.Name) == "" {
		return nil, domain.ErrInvalidArgument
	}
	if quantity < 1 {
		return nil, domain.ErrNegativeQuantity
	}
	return &Purchase{
		ID:               uuid.NewString(),
		InvoiceID:        invoiceID,
		ArticleName:      a.Name,
		UnitPrice:        a.UnitPrice,
		Quantity:         quantity,
		DurationMonths:   a.DurationMonths,
		SubscriptionType: a.SubscriptionType,
		CreatedAt:        time.Now(),
	}, nil
}

func (p *Purchase) IsSubscription() bool { return p.SubscriptionType != nil }

func (p *Purchase) Total() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// Months is the total access duration granted by the purchase.
func (p *Purchase) Months() (int, error) {
	if p.DurationMonths == nil {
		return 0, domain.ErrInvalidSubscriptionPurchase
	}
	if p.Quantity < 1 {
		return 0, domain.ErrNegativeQuantity
	}
	return *p.DurationMonths * p.Quantity, nil
}
