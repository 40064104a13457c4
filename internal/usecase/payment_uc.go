package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/adapter"
	"netaccess-billing/internal/domain/ports/repository"
	"netaccess-billing/internal/infra/logging"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type EndKind string

const (
	// EndValidated: the invoice is valid when EndPayment returns.
	EndValidated EndKind = "validated"
	// EndForm: the payer must submit FormFields (cheque details).
	EndForm EndKind = "form"
	// EndRedirect: the payer's browser must post Redirect to the gateway;
	// the invoice stays pending until the gateway notification arrives.
	EndRedirect EndKind = "redirect"
)

type EndResult struct {
	Kind       EndKind
	Invoice    *model.Invoice
	Redirect   *adapter.GatewayRedirect
	FormFields []string
}

type PaymentUseCase interface {
	// EndPayment settles a pending invoice through the method linked to its
	// catalog Payment, or validates it directly when none is linked.
	EndPayment(ctx context.Context, actor Actor, invoiceID string) (*EndResult, error)
	// SubmitCheque records cheque details and validates the invoice.
	SubmitCheque(ctx context.Context, actor Actor, invoiceID, bank, chequeNumber string) (*model.Invoice, error)
	// Finalize validates the invoice at most once. It reports whether this
	// call performed the validation; an already valid invoice is a no-op.
	Finalize(ctx context.Context, invoiceID string) (bool, error)
}

type paymentUC struct {
	invoices  repository.InvoiceRepository
	purchases repository.PurchaseRepository
	users     repository.UserRepository
	methods   repository.PaymentMethodRepository
	locker    repository.UserLocker
	engine    *SubscriptionEngine
	tm        repository.TransactionManager
	gateway   adapter.PaymentGateway
	ledger    adapter.LedgerClient
	fx        *effects
	log       *zerolog.Logger
}

// PaymentDeps groups the collaborators of NewPaymentUseCase.
type PaymentDeps struct {
	Invoices  repository.InvoiceRepository
	Purchases repository.PurchaseRepository
	Users     repository.UserRepository
	Methods   repository.PaymentMethodRepository
	Locker    repository.UserLocker
	Engine    *SubscriptionEngine
	TM        repository.TransactionManager
	Gateway   adapter.PaymentGateway
	Ledger    adapter.LedgerClient
	Effects   Effects
}

func NewPaymentUseCase(d PaymentDeps, logger *zerolog.Logger) *paymentUC {
	l := logger.With().Str("component", "payments").Logger()
	return &paymentUC{
		invoices:  d.Invoices,
		purchases: d.Purchases,
		users:     d.Users,
		methods:   d.Methods,
		locker:    d.Locker,
		engine:    d.Engine,
		tm:        d.TM,
		gateway:   d.Gateway,
		ledger:    d.Ledger,
		fx:        newEffects(d.Effects, &l),
		log:       &l,
	}
}

// errNotFlipped rolls back a finalization whose invoice was already valid.
var errNotFlipped = errors.New("invoice already validated")

func (u *paymentUC) EndPayment(ctx context.Context, actor Actor, invoiceID string) (*EndResult, error) {
	inv, err := loadInvoice(ctx, repository.NoTX, u.invoices, u.purchases, invoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(inv.UserID) {
		return nil, domain.ErrForbidden
	}
	if inv.Valid {
		return nil, domain.ErrInvoiceAlreadyValid
	}
	method, err := ResolveMethod(ctx, u.methods, repository.NoTX, inv.PaymentID)
	if err != nil {
		return nil, err
	}

	log := logging.With(logging.WithInvoiceID(ctx, inv.ID), u.log)
	switch m := method.(type) {
	case nil:
		return u.finalizeResult(ctx, inv.ID, nil)

	case *model.ChequeMethod:
		return &EndResult{Kind: EndForm, Invoice: inv, FormFields: []string{"bank", "cheque_number"}}, nil

	case *model.BalanceMethod:
		return u.payWithBalance(ctx, inv, m)

	case *model.GatewayMethod:
		usr, err := u.users.FindByID(ctx, repository.NoTX, inv.UserID)
		if err != nil {
			return nil, err
		}
		total := inv.Total()
		if err := checkPrice(m, usr, total); err != nil {
			return nil, err
		}
		redirect, err := u.gateway.Redirect(m, inv.ID, total)
		if err != nil {
			return nil, err
		}
		log.Info().Str("method_id", m.ID).Msg("payer redirected to gateway")
		return &EndResult{Kind: EndRedirect, Invoice: inv, Redirect: &redirect}, nil

	case *model.LedgerMethod:
		return u.payWithLedger(ctx, inv, m)

	default:
		return nil, fmt.Errorf("%w: unsupported payment method %T", domain.ErrInvalidMethodSetting, m)
	}
}

func (u *paymentUC) payWithBalance(ctx context.Context, inv *model.Invoice, m *model.BalanceMethod) (*EndResult, error) {
	total := inv.Total()
	usr, err := u.users.FindByID(ctx, repository.NoTX, inv.UserID)
	if err != nil {
		return nil, err
	}
	// pre-flight, without mutation
	if err := checkPrice(m, usr, total); err != nil {
		return nil, err
	}

	return u.finalizeResult(ctx, inv.ID, func(ctx context.Context, tx repository.Tx, locked *model.Invoice) error {
		if err := u.locker.LockUser(ctx, tx, locked.UserID); err != nil {
			return err
		}
		current, err := u.users.FindByID(ctx, tx, locked.UserID)
		if err != nil {
			return err
		}
		if ok, reason := CheckDebit(total, current.Balance, m.MinimumBalance); !ok {
			return fmt.Errorf("%w: %s", domain.ErrInsufficientBalance, reason)
		}
		_, err = u.users.AdjustBalance(ctx, tx, locked.UserID, total.Neg())
		return err
	})
}

// payWithLedger claims the invoice before debiting so that concurrent or
// retried attempts never debit the ledger twice. A debit whose validation
// failed is recorded on the invoice and only the validation is retried.
func (u *paymentUC) payWithLedger(ctx context.Context, inv *model.Invoice, m *model.LedgerMethod) (*EndResult, error) {
	log := logging.With(logging.WithInvoiceID(ctx, inv.ID), u.log)
	if inv.LedgerRef != nil {
		log.Info().Str("ledger_ref", *inv.LedgerRef).Msg("ledger already debited, retrying validation")
		return u.finalizeResult(ctx, inv.ID, nil)
	}
	usr, err := u.users.FindByID(ctx, repository.NoTX, inv.UserID)
	if err != nil {
		return nil, err
	}

	claimed, err := u.invoices.ClaimLedgerDebit(ctx, repository.NoTX, inv.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		current, err := u.invoices.FindByID(ctx, repository.NoTX, inv.ID)
		if err != nil {
			return nil, err
		}
		if current.Valid {
			return nil, domain.ErrInvoiceAlreadyValid
		}
		return nil, fmt.Errorf("%w: ledger debit of invoice %s already in progress", domain.ErrConflict, inv.ID)
	}

	ref, err := u.ledger.Debit(ctx, m, adapter.LedgerDebit{
		Account:   usr.Pseudo,
		Amount:    inv.Total(),
		Reference: inv.ID,
		Label:     "invoice " + inv.ID,
	})
	if err != nil {
		if rerr := u.invoices.ReleaseLedgerClaim(context.WithoutCancel(ctx), repository.NoTX, inv.ID); rerr != nil {
			log.Error().Err(rerr).Msg("ledger claim not released")
		}
		log.Warn().Err(err).Msg("ledger debit failed")
		u.fx.alert(fmt.Sprintf("Ledger debit failed for invoice %s (%s): %v", inv.ID, usr.Pseudo, err))
		if errors.Is(err, domain.ErrLedgerRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerRejected, err)
	}
	if err := u.invoices.SetLedgerRef(context.WithoutCancel(ctx), repository.NoTX, inv.ID, ref); err != nil {
		log.Error().Err(err).Str("ledger_ref", ref).Msg("ledger debited but reference not recorded")
		u.fx.alert(fmt.Sprintf("Ledger debit %s for invoice %s was not recorded, check it by hand", ref, inv.ID))
		return nil, err
	}
	res, err := u.finalizeResult(ctx, inv.ID, nil)
	if err != nil {
		log.Error().Err(err).Str("ledger_ref", ref).Msg("ledger debited but invoice not validated")
		return nil, err
	}
	return res, nil
}

func (u *paymentUC) SubmitCheque(ctx context.Context, actor Actor, invoiceID, bank, chequeNumber string) (*model.Invoice, error) {
	bank, chequeNumber = strings.TrimSpace(bank), strings.TrimSpace(chequeNumber)
	if bank == "" || chequeNumber == "" {
		return nil, domain.ErrInvalidArgument
	}
	inv, err := u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(inv.UserID) {
		return nil, domain.ErrForbidden
	}
	method, err := ResolveMethod(ctx, u.methods, repository.NoTX, inv.PaymentID)
	if err != nil {
		return nil, err
	}
	if _, ok := method.(*model.ChequeMethod); !ok {
		return nil, fmt.Errorf("%w: invoice %s is not paid by cheque", domain.ErrInvalidArgument, invoiceID)
	}
	if inv.Valid {
		return nil, domain.ErrInvoiceAlreadyValid
	}

	res, err := u.finalizeResult(ctx, invoiceID, func(ctx context.Context, tx repository.Tx, locked *model.Invoice) error {
		locked.Bank, locked.ChequeNumber = &bank, &chequeNumber
		return u.invoices.UpdateCheque(ctx, tx, locked.ID, bank, chequeNumber)
	})
	if err != nil {
		return nil, err
	}
	return res.Invoice, nil
}

func (u *paymentUC) Finalize(ctx context.Context, invoiceID string) (bool, error) {
	flipped, _, err := u.finalize(ctx, invoiceID, nil)
	return flipped, err
}

func (u *paymentUC) finalizeResult(ctx context.Context, invoiceID string, hook finalizeHook) (*EndResult, error) {
	_, inv, err := u.finalize(ctx, invoiceID, hook)
	if err != nil {
		return nil, err
	}
	return &EndResult{Kind: EndValidated, Invoice: inv}, nil
}

// finalizeHook runs inside the finalization transaction, after intervals
// are ensured and before the valid flag flips. An error aborts everything.
type finalizeHook func(ctx context.Context, tx repository.Tx, inv *model.Invoice) error

// finalize is the only place an invoice becomes valid.
func (u *paymentUC) finalize(ctx context.Context, invoiceID string, hook finalizeHook) (bool, *model.Invoice, error) {
	defer logging.TraceDuration(u.log, "payments.finalize")()
	var inv *model.Invoice
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		inv, err = loadInvoice(ctx, tx, u.invoices, u.purchases, invoiceID)
		if err != nil {
			return err
		}
		if inv.Valid {
			return errNotFlipped
		}
		for _, p := range inv.Purchases {
			if _, err := u.engine.Refresh(ctx, tx, p, inv, nil); err != nil {
				return fmt.Errorf("interval for purchase %s: %w", p.ID, err)
			}
		}
		if hook != nil {
			if err := hook(ctx, tx, inv); err != nil {
				return err
			}
		}
		flipped, err := u.invoices.MarkValidIfPending(ctx, tx, inv.ID)
		if err != nil {
			return err
		}
		if !flipped {
			return errNotFlipped
		}
		inv.Valid = true
		return nil
	})
	if errors.Is(err, errNotFlipped) {
		u.log.Debug().Str("invoice_id", invoiceID).Msg("invoice already valid, finalization skipped")
		return false, inv, nil
	}
	if err != nil {
		return false, nil, err
	}

	u.afterValidation(ctx, inv)
	return true, inv, nil
}

// afterValidation dispatches the effects of a first validation.
func (u *paymentUC) afterValidation(ctx context.Context, inv *model.Invoice) {
	log := logging.With(logging.WithInvoiceID(ctx, inv.ID), u.log)
	log.Info().Str("total", inv.Total().StringFixed(2)).Msg("invoice validated")

	u.fx.resync(inv.UserID, adapter.ResyncOptions{Base: true, AccessRefresh: inv.HasSubscription()})

	usr, err := u.users.FindByID(ctx, repository.NoTX, inv.UserID)
	if err != nil {
		log.Warn().Err(err).Msg("notifications not sent: user lookup failed")
		return
	}
	// only subscribers are mailed; other purchases are settled on the spot
	if inv.HasSubscription() {
		u.fx.mail(receiptMail(usr, inv))
	}
	u.fx.alert(fmt.Sprintf("Invoice %s validated for %s: %s", inv.ID, usr.Pseudo, inv.Total().StringFixed(2)))
}

func receiptMail(usr *model.User, inv *model.Invoice) adapter.Mail {
	lines := make([]map[string]any, 0, len(inv.Purchases))
	for _, p := range inv.Purchases {
		lines = append(lines, map[string]any{
			"name":     p.ArticleName,
			"quantity": p.Quantity,
			"price":    p.UnitPrice.StringFixed(2),
			"total":    p.Total().StringFixed(2),
		})
	}
	return adapter.Mail{
		Template:  "invoice_receipt",
		Recipient: usr.Email,
		Context: map[string]any{
			"pseudo":     usr.Pseudo,
			"invoice_id": inv.ID,
			"total":      inv.Total().StringFixed(2),
			"lines":      lines,
			"date":       inv.CreatedAt.Format("2006-01-02"),
		},
	}
}

func loadInvoice(ctx context.Context, tx repository.Tx, invoices repository.InvoiceRepository, purchases repository.PurchaseRepository, id string) (*model.Invoice, error) {
	inv, err := invoices.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	inv.Purchases, err = purchases.ListByInvoice(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}
