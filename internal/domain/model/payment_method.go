package model

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
)

type MethodKind string

const (
	MethodCheque  MethodKind = "cheque"
	MethodBalance MethodKind = "balance"
	MethodGateway MethodKind = "gateway"
	MethodLedger  MethodKind = "ledger"
)

// PaymentMethod is the closed set of ways a catalog Payment can be settled.
// Implementations live in this package only; callers switch on the
// concrete type.
type PaymentMethod interface {
	MethodID() string
	OwnerPaymentID() string
	Kind() MethodKind
	// Validate checks the method's own settings.
	Validate() error

	sealed()
}

var (
	_ PaymentMethod = (*ChequeMethod)(nil)
	_ PaymentMethod = (*BalanceMethod)(nil)
	_ PaymentMethod = (*GatewayMethod)(nil)
	_ PaymentMethod = (*LedgerMethod)(nil)
)

// ChequeMethod asks the payer for a bank name and cheque number; the
// invoice is validated once they are recorded.
type ChequeMethod struct {
	ID        string
	PaymentID string
}

func (m *ChequeMethod) MethodID() string       { return m.ID }
func (m *ChequeMethod) OwnerPaymentID() string { return m.PaymentID }
func (m *ChequeMethod) Kind() MethodKind       { return MethodCheque }
func (m *ChequeMethod) Validate() error        { return nil }
func (*ChequeMethod) sealed()                  {}

// BalanceMethod debits the user's prepaid balance.
type BalanceMethod struct {
	ID                   string
	PaymentID            string
	MinimumBalance       decimal.Decimal
	MaximumBalance       *decimal.Decimal
	CreditBalanceAllowed bool
}

func (m *BalanceMethod) MethodID() string       { return m.ID }
func (m *BalanceMethod) OwnerPaymentID() string { return m.PaymentID }
func (m *BalanceMethod) Kind() MethodKind       { return MethodBalance }
func (*BalanceMethod) sealed()                  {}

func (m *BalanceMethod) Validate() error {
	if m.MaximumBalance != nil && m.MaximumBalance.LessThan(m.MinimumBalance) {
		return fmt.Errorf("%w: maximum balance below minimum", domain.ErrInvalidMethodSetting)
	}
	return nil
}

// GatewayMethod redirects the payer to a card gateway which later calls the
// notification endpoint. Secret signs both directions.
type GatewayMethod struct {
	ID             string
	PaymentID      string
	GatewayURL     string
	TerminalID     string
	Secret         string
	MinimumPayment decimal.Decimal
}

func (m *GatewayMethod) MethodID() string       { return m.ID }
func (m *GatewayMethod) OwnerPaymentID() string { return m.PaymentID }
func (m *GatewayMethod) Kind() MethodKind       { return MethodGateway }
func (*GatewayMethod) sealed()                  {}

func (m *GatewayMethod) Validate() error {
	if strings.TrimSpace(m.TerminalID) == "" || m.Secret == "" {
		return fmt.Errorf("%w: terminal id and secret are required", domain.ErrInvalidMethodSetting)
	}
	if _, err := url.ParseRequestURI(m.GatewayURL); err != nil {
		return fmt.Errorf("%w: gateway url: %v", domain.ErrInvalidMethodSetting, err)
	}
	if m.MinimumPayment.IsNegative() {
		return fmt.Errorf("%w: negative minimum payment", domain.ErrInvalidMethodSetting)
	}
	return nil
}

// LedgerMethod pays through an external association ledger that holds the
// user's account.
type LedgerMethod struct {
	ID        string
	PaymentID string
	ServerURL string
	Login     string
	Password  string
}

func (m *LedgerMethod) MethodID() string       { return m.ID }
func (m *LedgerMethod) OwnerPaymentID() string { return m.PaymentID }
func (m *LedgerMethod) Kind() MethodKind       { return MethodLedger }
func (*LedgerMethod) sealed()                  {}

func (m *LedgerMethod) Validate() error {
	if _, err := url.ParseRequestURI(m.ServerURL); err != nil {
		return fmt.Errorf("%w: server url: %v", domain.ErrInvalidMethodSetting, err)
	}
	if m.Login == "" {
		return fmt.Errorf("%w: login is required", domain.ErrInvalidMethodSetting)
	}
	return nil
}
