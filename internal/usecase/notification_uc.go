package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/adapter"
	"netaccess-billing/internal/domain/ports/repository"
	"netaccess-billing/internal/infra/logging"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationFields lists, in signing order, the fields a gateway
// notification must carry.
var NotificationFields = []string{"terminal_id", "transaction_id", "amount", "result", "signature"}

type NotifyOutcome string

const (
	NotifyValidated NotifyOutcome = "validated"
	NotifyDuplicate NotifyOutcome = "duplicate"
	NotifyRejected  NotifyOutcome = "rejected"
)

type NotificationUseCase interface {
	// HandleGateway processes a gateway callback addressed to the gateway
	// method methodID. Any returned error means the notification must be
	// refused; a nil error means it must be acknowledged.
	HandleGateway(ctx context.Context, methodID string, fields map[string]string) (NotifyOutcome, error)
}

type notificationUC struct {
	methods   repository.PaymentMethodRepository
	invoices  repository.InvoiceRepository
	purchases repository.PurchaseRepository
	payments  PaymentUseCase
	gateway   adapter.PaymentGateway
	locker    adapter.Locker
	fx        *effects
	log       *zerolog.Logger
}

// NewNotificationUseCase wires the callback handler. locker may be nil; it
// only collapses concurrent duplicate deliveries, finalization stays
// at-most-once without it.
func NewNotificationUseCase(
	methods repository.PaymentMethodRepository,
	invoices repository.InvoiceRepository,
	purchases repository.PurchaseRepository,
	payments PaymentUseCase,
	gateway adapter.PaymentGateway,
	locker adapter.Locker,
	fx Effects,
	logger *zerolog.Logger,
) *notificationUC {
	l := logger.With().Str("component", "gateway_notifications").Logger()
	return &notificationUC{
		methods:   methods,
		invoices:  invoices,
		purchases: purchases,
		payments:  payments,
		gateway:   gateway,
		locker:    locker,
		fx:        newEffects(fx, &l),
		log:       &l,
	}
}

// ParseGatewayNotification extracts the required fields, failing on the
// first missing one.
func ParseGatewayNotification(fields map[string]string) (adapter.GatewayNotification, error) {
	vals := make([]string, len(NotificationFields))
	for i, name := range NotificationFields {
		v := strings.TrimSpace(fields[name])
		if v == "" {
			return adapter.GatewayNotification{}, fmt.Errorf("%w: missing %s", domain.ErrMalformedNotification, name)
		}
		vals[i] = v
	}
	return adapter.GatewayNotification{
		TerminalID:    vals[0],
		TransactionID: vals[1],
		Amount:        vals[2],
		Result:        vals[3],
		Signature:     vals[4],
	}, nil
}

func (u *notificationUC) HandleGateway(ctx context.Context, methodID string, fields map[string]string) (NotifyOutcome, error) {
	n, err := ParseGatewayNotification(fields)
	if err != nil {
		return "", err
	}

	// Authenticity is settled before any invoice is read.
	m, err := u.gatewayMethod(ctx, methodID)
	if err != nil {
		return "", err
	}
	if !u.gateway.Verify(m, n) {
		return "", domain.ErrUnauthorizedNotification
	}
	if n.TerminalID != m.TerminalID {
		return "", domain.ErrForeignNotification
	}

	ctx = logging.WithInvoiceID(ctx, n.TransactionID)
	log := logging.With(ctx, u.log)

	if u.locker != nil {
		key := "notify:" + n.TransactionID
		token, err := u.locker.TryLock(ctx, key, 30*time.Second)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
		defer func() {
			if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warn().Err(err).Msg("notification lock release failed")
			}
		}()
	}

	inv, err := loadInvoice(ctx, repository.NoTX, u.invoices, u.purchases, n.TransactionID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrUnknownInvoice
	}
	if err != nil {
		return "", err
	}
	if inv.PaymentID != m.PaymentID {
		return "", domain.ErrForeignNotification
	}

	if !u.gateway.Succeeded(n) {
		if inv.Valid {
			log.Warn().Str("result", n.Result).Msg("failure notification for a valid invoice ignored")
			return NotifyDuplicate, nil
		}
		deleted, err := u.invoices.DeleteIfPending(ctx, repository.NoTX, inv.ID)
		if err != nil {
			return "", err
		}
		if deleted {
			log.Info().Str("result", n.Result).Msg("payment refused, invoice deleted")
			u.fx.alert(fmt.Sprintf("Gateway refused invoice %s (result %s)", inv.ID, n.Result))
		}
		return NotifyRejected, nil
	}

	amount, err := decimal.NewFromString(n.Amount)
	if err != nil {
		return "", fmt.Errorf("%w: amount %q", domain.ErrMalformedNotification, n.Amount)
	}
	if !amount.Equal(inv.Total()) {
		log.Warn().Str("amount", n.Amount).Str("expected", inv.Total().StringFixed(2)).Msg("notification amount mismatch")
		return "", domain.ErrUnauthorizedNotification
	}

	flipped, err := u.payments.Finalize(ctx, inv.ID)
	if err != nil {
		return "", err
	}
	if !flipped {
		return NotifyDuplicate, nil
	}
	return NotifyValidated, nil
}

// gatewayMethod resolves the addressed method. An unknown method cannot
// authenticate anything, so it is reported as unauthorized.
func (u *notificationUC) gatewayMethod(ctx context.Context, methodID string) (*model.GatewayMethod, error) {
	pm, err := u.methods.FindByID(ctx, repository.NoTX, methodID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorizedNotification
	}
	if err != nil {
		return nil, err
	}
	m, ok := pm.(*model.GatewayMethod)
	if !ok {
		return nil, domain.ErrUnauthorizedNotification
	}
	return m, nil
}
