package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/adapter"
	"netaccess-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PurchaseUseCase = (*purchaseUC)(nil)

// PurchaseUpdate lists the editable fields of a purchase. Nil fields are
// left untouched.
type PurchaseUpdate struct {
	ArticleName    *string
	UnitPrice      *decimal.Decimal
	Quantity       *int
	DurationMonths *int
}

// PurchaseUseCase runs the purchase lifecycle. Each operation commits the
// purchase and its interval together; directory resyncs are dispatched only
// after that commit and only for already valid invoices.
type PurchaseUseCase interface {
	Create(ctx context.Context, actor Actor, p *model.Purchase, explicitStart *time.Time) (*model.Purchase, error)
	Update(ctx context.Context, actor Actor, purchaseID string, upd PurchaseUpdate) (*model.Purchase, error)
	Delete(ctx context.Context, actor Actor, purchaseID string) error
}

type purchaseUC struct {
	invoices  repository.InvoiceRepository
	purchases repository.PurchaseRepository
	intervals repository.IntervalRepository
	engine    *SubscriptionEngine
	tm        repository.TransactionManager
	fx        *effects
	log       *zerolog.Logger
}

func NewPurchaseUseCase(
	invoices repository.InvoiceRepository,
	purchases repository.PurchaseRepository,
	intervals repository.IntervalRepository,
	engine *SubscriptionEngine,
	tm repository.TransactionManager,
	fx Effects,
	logger *zerolog.Logger,
) *purchaseUC {
	l := logger.With().Str("component", "purchases").Logger()
	return &purchaseUC{
		invoices:  invoices,
		purchases: purchases,
		intervals: intervals,
		engine:    engine,
		tm:        tm,
		fx:        newEffects(fx, &l),
		log:       &l,
	}
}

var accessResync = adapter.ResyncOptions{AccessRefresh: true}

// Create adds a purchase to an existing invoice. Administrative only: the
// regular path is checkout.
func (u *purchaseUC) Create(ctx context.Context, actor Actor, p *model.Purchase, explicitStart *time.Time) (*model.Purchase, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	if p == nil || p.InvoiceID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if p.Quantity < 1 {
		return nil, domain.ErrNegativeQuantity
	}

	var inv *model.Invoice
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		inv, err = u.invoices.FindByID(ctx, tx, p.InvoiceID)
		if err != nil {
			return err
		}
		return createPurchaseTx(ctx, tx, u.purchases, u.engine, p, inv, explicitStart)
	})
	if err != nil {
		return nil, err
	}
	if inv.Valid && p.IsSubscription() {
		u.fx.resync(inv.UserID, accessResync)
	}
	return p, nil
}

// createPurchaseTx persists p and, for a subscription purchase, its interval.
func createPurchaseTx(ctx context.Context, tx repository.Tx, purchases repository.PurchaseRepository, engine *SubscriptionEngine, p *model.Purchase, inv *model.Invoice, explicitStart *time.Time) error {
	if p.IsSubscription() {
		if err := checkSubscriptionPurchase(p); err != nil {
			return err
		}
	}
	if err := purchases.Save(ctx, tx, p); err != nil {
		return err
	}
	_, err := engine.Refresh(ctx, tx, p, inv, explicitStart)
	return err
}

func (u *purchaseUC) Update(ctx context.Context, actor Actor, purchaseID string, upd PurchaseUpdate) (*model.Purchase, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	if upd.Quantity != nil && *upd.Quantity < 1 {
		return nil, domain.ErrNegativeQuantity
	}

	var (
		p       *model.Purchase
		inv     *model.Invoice
		touched bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		p, err = u.purchases.FindByID(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		inv, err = u.invoices.FindByID(ctx, tx, p.InvoiceID)
		if err != nil {
			return err
		}

		if upd.ArticleName != nil {
			p.ArticleName = *upd.ArticleName
		}
		if upd.UnitPrice != nil {
			p.UnitPrice = upd.UnitPrice.Round(2)
		}
		if upd.Quantity != nil && *upd.Quantity != p.Quantity {
			p.Quantity = *upd.Quantity
			touched = true
		}
		if upd.DurationMonths != nil && (p.DurationMonths == nil || *upd.DurationMonths != *p.DurationMonths) {
			d := *upd.DurationMonths
			p.DurationMonths = &d
			touched = true
		}
		if p.IsSubscription() {
			if err := checkSubscriptionPurchase(p); err != nil {
				return err
			}
		}
		if err := u.purchases.Save(ctx, tx, p); err != nil {
			return err
		}
		if touched && p.IsSubscription() {
			_, err = u.engine.Refresh(ctx, tx, p, inv, nil)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if inv.Valid && touched && p.IsSubscription() {
		u.fx.resync(inv.UserID, accessResync)
	}
	return p, nil
}

func (u *purchaseUC) Delete(ctx context.Context, actor Actor, purchaseID string) error {
	if !actor.IsAdmin {
		return domain.ErrForbidden
	}
	var (
		p   *model.Purchase
		inv *model.Invoice
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		p, err = u.purchases.FindByID(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		inv, err = u.invoices.FindByID(ctx, tx, p.InvoiceID)
		if err != nil {
			return err
		}
		if p.IsSubscription() {
			if err := u.intervals.DeleteByPurchase(ctx, tx, p.ID); err != nil {
				return err
			}
		}
		return u.purchases.Delete(ctx, tx, p.ID)
	})
	if err != nil {
		return err
	}
	if inv.Valid && p.IsSubscription() {
		u.fx.resync(inv.UserID, accessResync)
	}
	u.log.Info().Str("purchase_id", purchaseID).Str("invoice_id", inv.ID).Msg("purchase deleted")
	return nil
}
