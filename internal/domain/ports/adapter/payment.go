package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain/model"
)

// GatewayRedirect is what the payer's browser posts to the card gateway.
type GatewayRedirect struct {
	URL    string
	Fields map[string]string
}

// GatewayNotification carries the ordered fields of a gateway callback.
type GatewayNotification struct {
	TerminalID    string
	TransactionID string
	Amount        string
	Result        string
	Signature     string
}

// PaymentGateway is the hex port for the card gateway protocol.
type PaymentGateway interface {
	// Redirect builds the signed form sending the payer to the gateway.
	Redirect(m *model.GatewayMethod, invoiceID string, amount decimal.Decimal) (GatewayRedirect, error)
	// Verify checks the notification signature against the method secret.
	Verify(m *model.GatewayMethod, n GatewayNotification) bool
	// Succeeded reports whether the notification result means "paid".
	Succeeded(n GatewayNotification) bool
}

// LedgerDebit asks an external ledger to charge the user's account.
type LedgerDebit struct {
	Account   string
	Amount    decimal.Decimal
	Reference string // invoice id
	Label     string
}

// LedgerClient talks to an external association ledger.
type LedgerClient interface {
	// Debit logs in with the method credentials and charges the account.
	// It returns the ledger reference of the operation.
	Debit(ctx context.Context, m *model.LedgerMethod, d LedgerDebit) (string, error)
}

// Locker is a short-lived distributed lock, used to collapse duplicate
// concurrent deliveries of the same callback.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
