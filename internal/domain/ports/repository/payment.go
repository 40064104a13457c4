package repository

import (
	"context"

	"netaccess-billing/internal/domain/model"
)

// -----------------------------
// Payment catalog
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	List(ctx context.Context, tx Tx) ([]*model.Payment, error)
	SetBalance(ctx context.Context, tx Tx, id string, isBalance bool) error
}

// PaymentMethodRepository stores the variant linked to a catalog Payment.
// Find* return domain.ErrNotFound when nothing is linked.
type PaymentMethodRepository interface {
	Save(ctx context.Context, tx Tx, m model.PaymentMethod) error
	FindByID(ctx context.Context, tx Tx, id string) (model.PaymentMethod, error)
	FindByPayment(ctx context.Context, tx Tx, paymentID string) (model.PaymentMethod, error)
	ListByKind(ctx context.Context, tx Tx, kind model.MethodKind) ([]model.PaymentMethod, error)
}
