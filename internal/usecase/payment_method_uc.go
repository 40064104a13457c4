package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentMethodUseCase = (*paymentMethodUC)(nil)

type PaymentMethodUseCase interface {
	CreatePayment(ctx context.Context, actor Actor, name string, availableForEveryone bool) (*model.Payment, error)
	// Attach links a method variant to a catalog Payment. Validation, the
	// single-balance-method check and the catalog update share one
	// transaction.
	Attach(ctx context.Context, actor Actor, paymentID string, m model.PaymentMethod) error
	// Available lists the catalog rows the actor may pay with.
	Available(ctx context.Context, actor Actor) ([]*model.Payment, error)
}

type paymentMethodUC struct {
	payments repository.PaymentRepository
	methods  repository.PaymentMethodRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewPaymentMethodUseCase(payments repository.PaymentRepository, methods repository.PaymentMethodRepository, tm repository.TransactionManager, logger *zerolog.Logger) *paymentMethodUC {
	l := logger.With().Str("component", "payment_methods").Logger()
	return &paymentMethodUC{payments: payments, methods: methods, tm: tm, log: &l}
}

func (u *paymentMethodUC) CreatePayment(ctx context.Context, actor Actor, name string, everyone bool) (*model.Payment, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	p, err := model.NewPayment(name, everyone)
	if err != nil {
		return nil, err
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *paymentMethodUC) Attach(ctx context.Context, actor Actor, paymentID string, m model.PaymentMethod) error {
	if !actor.IsAdmin {
		return domain.ErrForbidden
	}
	m = bindMethod(m, paymentID)
	if m == nil {
		return domain.ErrInvalidArgument
	}

	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.payments.FindByID(ctx, tx, paymentID); err != nil {
			return err
		}
		existing, err := ResolveMethod(ctx, u.methods, tx, paymentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: payment %s already has a %s method", domain.ErrAlreadyExists, paymentID, existing.Kind())
		}

		// valid_form
		if err := m.Validate(); err != nil {
			return err
		}
		if m.Kind() == model.MethodBalance {
			others, err := u.methods.ListByKind(ctx, tx, model.MethodBalance)
			if err != nil {
				return err
			}
			if len(others) > 0 {
				return domain.ErrBalanceMethodExists
			}
		}

		if err := u.methods.Save(ctx, tx, m); err != nil {
			return err
		}
		// alter_payment
		if m.Kind() == model.MethodBalance {
			return u.payments.SetBalance(ctx, tx, paymentID, true)
		}
		return nil
	})
	if err != nil {
		return err
	}
	u.log.Info().Str("payment_id", paymentID).Str("kind", string(m.Kind())).Msg("payment method attached")
	return nil
}

func (u *paymentMethodUC) Available(ctx context.Context, actor Actor) ([]*model.Payment, error) {
	all, err := u.payments.List(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Payment, 0, len(all))
	for _, p := range all {
		if p.AvailableFor(actor.IsAdmin) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ResolveMethod returns the variant linked to a catalog Payment, or nil
// when the payment validates invoices directly.
func ResolveMethod(ctx context.Context, methods repository.PaymentMethodRepository, tx repository.Tx, paymentID string) (model.PaymentMethod, error) {
	m, err := methods.FindByPayment(ctx, tx, paymentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// checkPrice asks the method whether amount may be paid by u.
func checkPrice(m model.PaymentMethod, u *model.User, amount decimal.Decimal) error {
	switch m := m.(type) {
	case *model.BalanceMethod:
		if ok, reason := CheckDebit(amount, u.Balance, m.MinimumBalance); !ok {
			return fmt.Errorf("%w: %s", domain.ErrInsufficientBalance, reason)
		}
	case *model.GatewayMethod:
		if amount.LessThan(m.MinimumPayment) {
			return fmt.Errorf("%w: minimum payment is %s", domain.ErrPriceRejected, m.MinimumPayment.StringFixed(2))
		}
	}
	return nil
}

// bindMethod sets the owner and a fresh id on a method supplied by a caller.
func bindMethod(m model.PaymentMethod, paymentID string) model.PaymentMethod {
	id := uuid.NewString()
	switch v := m.(type) {
	case *model.ChequeMethod:
		v.ID, v.PaymentID = id, paymentID
	case *model.BalanceMethod:
		v.ID, v.PaymentID = id, paymentID
	case *model.GatewayMethod:
		v.ID, v.PaymentID = id, paymentID
	case *model.LedgerMethod:
		v.ID, v.PaymentID = id, paymentID
	default:
		return nil
	}
	return m
}
