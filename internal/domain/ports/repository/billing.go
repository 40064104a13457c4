package repository

import (
	"context"
	"time"

	"netaccess-billing/internal/domain/model"
)

// -----------------------------
// Articles
// -----------------------------

type ArticleRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Article) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Article, error)
	List(ctx context.Context, tx Tx) ([]*model.Article, error)
}

// -----------------------------
// Invoices
// -----------------------------

type InvoiceRepository interface {
	Save(ctx context.Context, tx Tx, inv *model.Invoice) error
	// FindByID locks the row when tx is a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Invoice, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Invoice, error)
	// MarkValidIfPending flips valid to true only if it is still false and
	// reports whether this call performed the flip.
	MarkValidIfPending(ctx context.Context, tx Tx, id string) (bool, error)
	// ClaimLedgerDebit marks a pending, unclaimed invoice as being debited on
	// a ledger and reports whether this call took the claim.
	ClaimLedgerDebit(ctx context.Context, tx Tx, id string) (bool, error)
	// SetLedgerRef records the reference of a performed ledger debit.
	SetLedgerRef(ctx context.Context, tx Tx, id, ref string) error
	// ReleaseLedgerClaim drops a claim that has no recorded debit.
	ReleaseLedgerClaim(ctx context.Context, tx Tx, id string) error
	UpdateCheque(ctx context.Context, tx Tx, id, bank, chequeNumber string) error
	SetControlled(ctx context.Context, tx Tx, id string, controlled bool) error
	// Delete removes the invoice with its purchases and their intervals.
	Delete(ctx context.Context, tx Tx, id string) error
	// DeleteIfPending deletes only a not yet validated invoice.
	DeleteIfPending(ctx context.Context, tx Tx, id string) (bool, error)
}

// -----------------------------
// Purchases
// -----------------------------

type PurchaseRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Purchase) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Purchase, error)
	ListByInvoice(ctx context.Context, tx Tx, invoiceID string) ([]*model.Purchase, error)
	Delete(ctx context.Context, tx Tx, id string) error
}

// -----------------------------
// Subscription intervals
// -----------------------------

// IntervalQuery selects the intervals a new interval must chain after.
type IntervalQuery struct {
	UserID string
	Types  []model.SubscriptionType
	// Intervals of valid invoices are always considered; those of this
	// invoice are considered even while it is not valid yet.
	IncludeInvoiceID  string
	ExcludePurchaseID string
	// StartedBefore, when set, keeps only intervals starting strictly before it.
	StartedBefore *time.Time
}

type IntervalRepository interface {
	// FindByPurchase returns domain.ErrNotFound when the purchase has no interval.
	FindByPurchase(ctx context.Context, tx Tx, purchaseID string) (*model.SubscriptionInterval, error)
	// Save inserts or replaces the interval of iv.PurchaseID.
	Save(ctx context.Context, tx Tx, iv *model.SubscriptionInterval) error
	DeleteByPurchase(ctx context.Context, tx Tx, purchaseID string) error
	// MaxEnd returns the latest end among matching intervals, nil when none.
	MaxEnd(ctx context.Context, tx Tx, q IntervalQuery) (*time.Time, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.SubscriptionInterval, error)
}
