package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*HMACGateway)(nil)

// ResultSuccess is the notification result code of an accepted payment.
const ResultSuccess = "00"

// HMACGateway speaks the signed form protocol of the card gateway: the
// payer's browser posts a signed form, the gateway later posts back a
// notification signed with the same per-method secret.
type HMACGateway struct {
	publicURL string
}

// NewHMACGateway builds return and notification URLs under publicURL.
func NewHMACGateway(publicURL string) *HMACGateway {
	return &HMACGateway{publicURL: strings.TrimRight(publicURL, "/")}
}

func (g *HMACGateway) Redirect(m *model.GatewayMethod, invoiceID string, amount decimal.Decimal) (adapter.GatewayRedirect, error) {
	if m == nil || invoiceID == "" {
		return adapter.GatewayRedirect{}, domain.ErrInvalidArgument
	}
	if amount.IsNegative() {
		return adapter.GatewayRedirect{}, fmt.Errorf("%w: negative amount", domain.ErrInvalidArgument)
	}
	amt := amount.StringFixed(2)
	base := g.publicURL + "/payments/gateway/" + url.PathEscape(m.ID)
	notifyURL := base + "/notify"
	fields := map[string]string{
		"terminal_id":    m.TerminalID,
		"transaction_id": invoiceID,
		"amount":         amt,
		"notify_url":     notifyURL,
		"accept_url":     base + "/accept?invoice=" + url.QueryEscape(invoiceID),
		"refuse_url":     base + "/refuse?invoice=" + url.QueryEscape(invoiceID),
	}
	fields["signature"] = Sign(m.Secret, m.TerminalID, invoiceID, amt, notifyURL)
	return adapter.GatewayRedirect{URL: m.GatewayURL, Fields: fields}, nil
}

// Verify recomputes the notification signature over the ordered fields.
func (g *HMACGateway) Verify(m *model.GatewayMethod, n adapter.GatewayNotification) bool {
	if m == nil || m.Secret == "" {
		return false
	}
	expected := Sign(m.Secret, n.TerminalID, n.TransactionID, n.Amount, n.Result)
	got, err := hex.DecodeString(strings.ToLower(n.Signature))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(expected)
	return hmac.Equal(want, got)
}

func (g *HMACGateway) Succeeded(n adapter.GatewayNotification) bool {
	return n.Result == ResultSuccess
}

// Sign returns the hex HMAC-SHA256 of the "|"-joined parts.
func Sign(secret string, parts ...string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}
