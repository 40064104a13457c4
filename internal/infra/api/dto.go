package api

import (
	"time"

	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/usecase"
)

type purchaseDTO struct {
	ID               string  `json:"id"`
	InvoiceID        string  `json:"invoice_id"`
	ArticleName      string  `json:"article_name"`
	UnitPrice        string  `json:"unit_price"`
	Quantity         int     `json:"quantity"`
	DurationMonths   *int    `json:"duration_months,omitempty"`
	SubscriptionType *string `json:"subscription_type,omitempty"`
	Total            string  `json:"total"`
}

func toPurchaseDTO(p *model.Purchase) purchaseDTO {
	out := purchaseDTO{
		ID:             p.ID,
		InvoiceID:      p.InvoiceID,
		ArticleName:    p.ArticleName,
		UnitPrice:      p.UnitPrice.StringFixed(2),
		Quantity:       p.Quantity,
		DurationMonths: p.DurationMonths,
		Total:          p.Total().StringFixed(2),
	}
	if p.SubscriptionType != nil {
		s := string(*p.SubscriptionType)
		out.SubscriptionType = &s
	}
	return out
}

type invoiceDTO struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	PaymentID    string        `json:"payment_id"`
	Bank         *string       `json:"bank,omitempty"`
	ChequeNumber *string       `json:"cheque_number,omitempty"`
	Valid        bool          `json:"valid"`
	Controlled   bool          `json:"controlled"`
	LedgerRef    *string       `json:"ledger_ref,omitempty"`
	Total        string        `json:"total"`
	CreatedAt    time.Time     `json:"created_at"`
	Purchases    []purchaseDTO `json:"purchases"`
}

func toInvoiceDTO(inv *model.Invoice) invoiceDTO {
	out := invoiceDTO{
		ID:           inv.ID,
		UserID:       inv.UserID,
		PaymentID:    inv.PaymentID,
		Bank:         inv.Bank,
		ChequeNumber: inv.ChequeNumber,
		Valid:        inv.Valid,
		Controlled:   inv.Controlled,
		LedgerRef:    inv.LedgerRef,
		Total:        inv.Total().StringFixed(2),
		CreatedAt:    inv.CreatedAt,
		Purchases:    make([]purchaseDTO, 0, len(inv.Purchases)),
	}
	for _, p := range inv.Purchases {
		out.Purchases = append(out.Purchases, toPurchaseDTO(p))
	}
	return out
}

type intervalDTO struct {
	PurchaseID string    `json:"purchase_id"`
	Type       string    `json:"type"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Active     bool      `json:"active"`
}

func toIntervalDTO(iv *model.SubscriptionInterval, now time.Time) intervalDTO {
	return intervalDTO{PurchaseID: iv.PurchaseID, Type: string(iv.Type), Start: iv.Start, End: iv.End, Active: iv.Covers(now)}
}

type paymentDTO struct {
	ID                   string `json:"id"`
	DisplayName          string `json:"display_name"`
	AvailableForEveryone bool   `json:"available_for_everyone"`
	IsBalance            bool   `json:"is_balance"`
}

func toPaymentDTO(p *model.Payment) paymentDTO {
	return paymentDTO{ID: p.ID, DisplayName: p.DisplayName, AvailableForEveryone: p.AvailableForEveryone, IsBalance: p.IsBalance}
}

type articleDTO struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	UnitPrice             string  `json:"unit_price"`
	DurationMonths        *int    `json:"duration_months,omitempty"`
	SubscriptionType      *string `json:"subscription_type,omitempty"`
	EligibleUserType      string  `json:"eligible_user_type"`
	PurchasableByEveryone bool    `json:"purchasable_by_everyone"`
}

func toArticleDTO(a *model.Article) articleDTO {
	out := articleDTO{
		ID:                    a.ID,
		Name:                  a.Name,
		UnitPrice:             a.UnitPrice.StringFixed(2),
		DurationMonths:        a.DurationMonths,
		EligibleUserType:      string(a.EligibleUserType),
		PurchasableByEveryone: a.PurchasableByEveryone,
	}
	if a.SubscriptionType != nil {
		s := string(*a.SubscriptionType)
		out.SubscriptionType = &s
	}
	return out
}

type endDTO struct {
	Kind       string            `json:"kind"`
	Invoice    *invoiceDTO       `json:"invoice,omitempty"`
	RedirectTo string            `json:"redirect_to,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	FormFields []string          `json:"form_fields,omitempty"`
}

func toEndDTO(res *usecase.EndResult) endDTO {
	out := endDTO{Kind: string(res.Kind), FormFields: res.FormFields}
	if res.Invoice != nil {
		inv := toInvoiceDTO(res.Invoice)
		out.Invoice = &inv
	}
	if res.Redirect != nil {
		out.RedirectTo = res.Redirect.URL
		out.Fields = res.Redirect.Fields
	}
	return out
}

type balanceDTO struct {
	UserID  string `json:"user_id"`
	Balance string `json:"balance"`
}

func newBalanceDTO(userID string, b decimal.Decimal) balanceDTO {
	return balanceDTO{UserID: userID, Balance: b.StringFixed(2)}
}

// Requests.

type checkoutRequest struct {
	UserID    string `json:"user_id"`
	PaymentID string `json:"payment_id"`
	Lines     []struct {
		ArticleID string `json:"article_id"`
		Quantity  int    `json:"quantity"`
	} `json:"lines"`
	Start *time.Time `json:"start,omitempty"`
}

type createPaymentRequest struct {
	DisplayName          string `json:"display_name"`
	AvailableForEveryone bool   `json:"available_for_everyone"`
}

// attachMethodRequest is a flat union of the method settings, selected by Kind.
type attachMethodRequest struct {
	Kind                 string           `json:"kind"`
	MinimumBalance       *decimal.Decimal `json:"minimum_balance,omitempty"`
	MaximumBalance       *decimal.Decimal `json:"maximum_balance,omitempty"`
	CreditBalanceAllowed bool             `json:"credit_balance_allowed,omitempty"`
	GatewayURL           string           `json:"gateway_url,omitempty"`
	TerminalID           string           `json:"terminal_id,omitempty"`
	Secret               string           `json:"secret,omitempty"`
	MinimumPayment       *decimal.Decimal `json:"minimum_payment,omitempty"`
	ServerURL            string           `json:"server_url,omitempty"`
	Login                string           `json:"login,omitempty"`
	Password             string           `json:"password,omitempty"`
}

func (r attachMethodRequest) method() (model.PaymentMethod, bool) {
	orZero := func(d *decimal.Decimal) decimal.Decimal {
		if d == nil {
			return decimal.Zero
		}
		return *d
	}
	switch model.MethodKind(r.Kind) {
	case model.MethodCheque:
		return &model.ChequeMethod{}, true
	case model.MethodBalance:
		return &model.BalanceMethod{
			MinimumBalance:       orZero(r.MinimumBalance),
			MaximumBalance:       r.MaximumBalance,
			CreditBalanceAllowed: r.CreditBalanceAllowed,
		}, true
	case model.MethodGateway:
		return &model.GatewayMethod{
			GatewayURL:     r.GatewayURL,
			TerminalID:     r.TerminalID,
			Secret:         r.Secret,
			MinimumPayment: orZero(r.MinimumPayment),
		}, true
	case model.MethodLedger:
		return &model.LedgerMethod{ServerURL: r.ServerURL, Login: r.Login, Password: r.Password}, true
	default:
		return nil, false
	}
}

type createArticleRequest struct {
	Name                  string          `json:"name"`
	UnitPrice             decimal.Decimal `json:"unit_price"`
	DurationMonths        *int            `json:"duration_months,omitempty"`
	SubscriptionType      *string         `json:"subscription_type,omitempty"`
	EligibleUserType      string          `json:"eligible_user_type"`
	PurchasableByEveryone bool            `json:"purchasable_by_everyone"`
}

type createPurchaseRequest struct {
	InvoiceID        string          `json:"invoice_id"`
	ArticleName      string          `json:"article_name"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	DurationMonths   *int            `json:"duration_months,omitempty"`
	SubscriptionType *string         `json:"subscription_type,omitempty"`
	Start            *time.Time      `json:"start,omitempty"`
}

type updatePurchaseRequest struct {
	ArticleName    *string          `json:"article_name,omitempty"`
	UnitPrice      *decimal.Decimal `json:"unit_price,omitempty"`
	Quantity       *int             `json:"quantity,omitempty"`
	DurationMonths *int             `json:"duration_months,omitempty"`
}

type chequeRequest struct {
	Bank         string `json:"bank"`
	ChequeNumber string `json:"cheque_number"`
}

type controlledRequest struct {
	Controlled bool `json:"controlled"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
