package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ InvoiceUseCase = (*invoiceUC)(nil)

type PurchaseLine struct {
	ArticleID string
	Quantity  int
}

type CheckoutRequest struct {
	UserID    string
	PaymentID string
	Lines     []PurchaseLine
	// ExplicitStart backdates every subscription line. Admin only.
	ExplicitStart *time.Time
}

type InvoiceUseCase interface {
	// Checkout creates a pending invoice with its purchases and their
	// intervals. Payment is a separate step (PaymentUseCase.EndPayment).
	Checkout(ctx context.Context, actor Actor, req CheckoutRequest) (*model.Invoice, error)
	Get(ctx context.Context, actor Actor, invoiceID string) (*model.Invoice, error)
	ListByUser(ctx context.Context, actor Actor, userID string) ([]*model.Invoice, error)
	// Delete removes an invoice with its purchases and intervals.
	Delete(ctx context.Context, actor Actor, invoiceID string) error
	SetControlled(ctx context.Context, actor Actor, invoiceID string, controlled bool) error
	Intervals(ctx context.Context, actor Actor, userID string) ([]*model.SubscriptionInterval, error)
}

type invoiceUC struct {
	invoices  repository.InvoiceRepository
	purchases repository.PurchaseRepository
	intervals repository.IntervalRepository
	articles  repository.ArticleRepository
	payments  repository.PaymentRepository
	methods   repository.PaymentMethodRepository
	users     repository.UserRepository
	engine    *SubscriptionEngine
	tm        repository.TransactionManager
	fx        *effects
	log       *zerolog.Logger
}

type InvoiceDeps struct {
	Invoices  repository.InvoiceRepository
	Purchases repository.PurchaseRepository
	Intervals repository.IntervalRepository
	Articles  repository.ArticleRepository
	Payments  repository.PaymentRepository
	Methods   repository.PaymentMethodRepository
	Users     repository.UserRepository
	Engine    *SubscriptionEngine
	TM        repository.TransactionManager
	Effects   Effects
}

func NewInvoiceUseCase(d InvoiceDeps, logger *zerolog.Logger) *invoiceUC {
	l := logger.With().Str("component", "invoices").Logger()
	return &invoiceUC{
		invoices:  d.Invoices,
		purchases: d.Purchases,
		intervals: d.Intervals,
		articles:  d.Articles,
		payments:  d.Payments,
		methods:   d.Methods,
		users:     d.Users,
		engine:    d.Engine,
		tm:        d.TM,
		fx:        newEffects(d.Effects, &l),
		log:       &l,
	}
}

func (u *invoiceUC) Checkout(ctx context.Context, actor Actor, req CheckoutRequest) (*model.Invoice, error) {
	if !actor.canAccess(req.UserID) {
		return nil, domain.ErrForbidden
	}
	if req.ExplicitStart != nil && !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: empty checkout", domain.ErrInvalidArgument)
	}

	usr, err := u.users.FindByID(ctx, repository.NoTX, req.UserID)
	if err != nil {
		return nil, err
	}
	payment, err := u.payments.FindByID(ctx, repository.NoTX, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if !payment.AvailableFor(actor.IsAdmin) {
		return nil, domain.ErrForbidden
	}

	inv, err := model.NewInvoice(usr.ID, payment.ID)
	if err != nil {
		return nil, err
	}
	for _, line := range req.Lines {
		a, err := u.articles.FindByID(ctx, repository.NoTX, line.ArticleID)
		if err != nil {
			return nil, err
		}
		if !a.AvailableFor(usr, actor.IsAdmin) {
			return nil, fmt.Errorf("%w: article %q is not available", domain.ErrForbidden, a.Name)
		}
		p, err := model.NewPurchase(inv.ID, a, line.Quantity)
		if err != nil {
			return nil, err
		}
		inv.Purchases = append(inv.Purchases, p)
	}

	// check_price
	method, err := ResolveMethod(ctx, u.methods, repository.NoTX, payment.ID)
	if err != nil {
		return nil, err
	}
	if method != nil {
		if err := checkPrice(method, usr, inv.Total()); err != nil {
			return nil, err
		}
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.invoices.Save(ctx, tx, inv); err != nil {
			return err
		}
		for _, p := range inv.Purchases {
			if err := createPurchaseTx(ctx, tx, u.purchases, u.engine, p, inv, req.ExplicitStart); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().
		Str("invoice_id", inv.ID).
		Str("user_id", usr.ID).
		Str("total", inv.Total().StringFixed(2)).
		Int("lines", len(inv.Purchases)).
		Msg("invoice created")
	return inv, nil
}

func (u *invoiceUC) Get(ctx context.Context, actor Actor, invoiceID string) (*model.Invoice, error) {
	inv, err := loadInvoice(ctx, repository.NoTX, u.invoices, u.purchases, invoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(inv.UserID) {
		return nil, domain.ErrForbidden
	}
	return inv, nil
}

func (u *invoiceUC) ListByUser(ctx context.Context, actor Actor, userID string) ([]*model.Invoice, error) {
	if !actor.canAccess(userID) {
		return nil, domain.ErrForbidden
	}
	return u.invoices.ListByUser(ctx, repository.NoTX, userID)
}

func (u *invoiceUC) Delete(ctx context.Context, actor Actor, invoiceID string) error {
	if !actor.IsAdmin {
		return domain.ErrForbidden
	}
	var inv *model.Invoice
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		inv, err = loadInvoice(ctx, tx, u.invoices, u.purchases, invoiceID)
		if err != nil {
			return err
		}
		return u.invoices.Delete(ctx, tx, invoiceID)
	})
	if err != nil {
		return err
	}
	if inv.Valid {
		u.fx.resync(inv.UserID, accessResync)
	}
	u.log.Info().Str("invoice_id", invoiceID).Bool("was_valid", inv.Valid).Msg("invoice deleted")
	return nil
}

func (u *invoiceUC) SetControlled(ctx context.Context, actor Actor, invoiceID string, controlled bool) error {
	if !actor.IsAdmin {
		return domain.ErrForbidden
	}
	return u.invoices.SetControlled(ctx, repository.NoTX, invoiceID, controlled)
}

func (u *invoiceUC) Intervals(ctx context.Context, actor Actor, userID string) ([]*model.SubscriptionInterval, error) {
	if !actor.canAccess(userID) {
		return nil, domain.ErrForbidden
	}
	return u.intervals.ListByUser(ctx, repository.NoTX, userID)
}
