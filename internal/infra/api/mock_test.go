//go:build !integration

package api_test

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockInvoiceUC struct {
	CheckoutFunc      func(ctx context.Context, actor usecase.Actor, req usecase.CheckoutRequest) (*model.Invoice, error)
	GetFunc           func(ctx context.Context, actor usecase.Actor, id string) (*model.Invoice, error)
	ListByUserFunc    func(ctx context.Context, actor usecase.Actor, userID string) ([]*model.Invoice, error)
	DeleteFunc        func(ctx context.Context, actor usecase.Actor, id string) error
	SetControlledFunc func(ctx context.Context, actor usecase.Actor, id string, controlled bool) error
	IntervalsFunc     func(ctx context.Context, actor usecase.Actor, userID string) ([]*model.SubscriptionInterval, error)
}

func (m *mockInvoiceUC) Checkout(ctx context.Context, actor usecase.Actor, req usecase.CheckoutRequest) (*model.Invoice, error) {
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, actor, req)
	}
	return nil, domain.ErrOperationFailed
}

func (m *mockInvoiceUC) Get(ctx context.Context, actor usecase.Actor, id string) (*model.Invoice, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, actor, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockInvoiceUC) ListByUser(ctx context.Context, actor usecase.Actor, userID string) ([]*model.Invoice, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, actor, userID)
	}
	return nil, nil
}

func (m *mockInvoiceUC) Delete(ctx context.Context, actor usecase.Actor, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, actor, id)
	}
	return nil
}

func (m *mockInvoiceUC) SetControlled(ctx context.Context, actor usecase.Actor, id string, controlled bool) error {
	if m.SetControlledFunc != nil {
		return m.SetControlledFunc(ctx, actor, id, controlled)
	}
	return nil
}

func (m *mockInvoiceUC) Intervals(ctx context.Context, actor usecase.Actor, userID string) ([]*model.SubscriptionInterval, error) {
	if m.IntervalsFunc != nil {
		return m.IntervalsFunc(ctx, actor, userID)
	}
	return nil, nil
}

type mockPurchaseUC struct {
	CreateFunc func(ctx context.Context, actor usecase.Actor, p *model.Purchase, start *time.Time) (*model.Purchase, error)
	UpdateFunc func(ctx context.Context, actor usecase.Actor, id string, upd usecase.PurchaseUpdate) (*model.Purchase, error)
	DeleteFunc func(ctx context.Context, actor usecase.Actor, id string) error
}

func (m *mockPurchaseUC) Create(ctx context.Context, actor usecase.Actor, p *model.Purchase, start *time.Time) (*model.Purchase, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, actor, p, start)
	}
	return p, nil
}

func (m *mockPurchaseUC) Update(ctx context.Context, actor usecase.Actor, id string, upd usecase.PurchaseUpdate) (*model.Purchase, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, actor, id, upd)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPurchaseUC) Delete(ctx context.Context, actor usecase.Actor, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, actor, id)
	}
	return nil
}

type mockPaymentUC struct {
	EndPaymentFunc   func(ctx context.Context, actor usecase.Actor, id string) (*usecase.EndResult, error)
	SubmitChequeFunc func(ctx context.Context, actor usecase.Actor, id, bank, number string) (*model.Invoice, error)
}

func (m *mockPaymentUC) EndPayment(ctx context.Context, actor usecase.Actor, id string) (*usecase.EndResult, error) {
	if m.EndPaymentFunc != nil {
		return m.EndPaymentFunc(ctx, actor, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPaymentUC) SubmitCheque(ctx context.Context, actor usecase.Actor, id, bank, number string) (*model.Invoice, error) {
	if m.SubmitChequeFunc != nil {
		return m.SubmitChequeFunc(ctx, actor, id, bank, number)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPaymentUC) Finalize(ctx context.Context, id string) (bool, error) { return false, nil }

type mockNotificationUC struct {
	HandleGatewayFunc func(ctx context.Context, methodID string, fields map[string]string) (usecase.NotifyOutcome, error)
}

func (m *mockNotificationUC) HandleGateway(ctx context.Context, methodID string, fields map[string]string) (usecase.NotifyOutcome, error) {
	if m.HandleGatewayFunc != nil {
		return m.HandleGatewayFunc(ctx, methodID, fields)
	}
	return "", domain.ErrMalformedNotification
}

type mockMethodUC struct {
	CreatePaymentFunc func(ctx context.Context, actor usecase.Actor, name string, everyone bool) (*model.Payment, error)
	AttachFunc        func(ctx context.Context, actor usecase.Actor, paymentID string, m model.PaymentMethod) error
	AvailableFunc     func(ctx context.Context, actor usecase.Actor) ([]*model.Payment, error)
}

func (m *mockMethodUC) CreatePayment(ctx context.Context, actor usecase.Actor, name string, everyone bool) (*model.Payment, error) {
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, actor, name, everyone)
	}
	return model.NewPayment(name, everyone)
}

func (m *mockMethodUC) Attach(ctx context.Context, actor usecase.Actor, paymentID string, pm model.PaymentMethod) error {
	if m.AttachFunc != nil {
		return m.AttachFunc(ctx, actor, paymentID, pm)
	}
	return nil
}

func (m *mockMethodUC) Available(ctx context.Context, actor usecase.Actor) ([]*model.Payment, error) {
	if m.AvailableFunc != nil {
		return m.AvailableFunc(ctx, actor)
	}
	return nil, nil
}

type mockBalanceUC struct {
	BalanceFunc func(ctx context.Context, actor usecase.Actor, userID string) (decimal.Decimal, error)
	CreditFunc  func(ctx context.Context, actor usecase.Actor, userID string, amount decimal.Decimal) (decimal.Decimal, error)
}

func (m *mockBalanceUC) Balance(ctx context.Context, actor usecase.Actor, userID string) (decimal.Decimal, error) {
	if m.BalanceFunc != nil {
		return m.BalanceFunc(ctx, actor, userID)
	}
	return decimal.Zero, nil
}

func (m *mockBalanceUC) Credit(ctx context.Context, actor usecase.Actor, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, actor, userID, amount)
	}
	return amount, nil
}

type mockArticleUC struct {
	CreateFunc func(ctx context.Context, actor usecase.Actor, in usecase.ArticleInput) (*model.Article, error)
	ListFunc   func(ctx context.Context, actor usecase.Actor) ([]*model.Article, error)
}

func (m *mockArticleUC) Create(ctx context.Context, actor usecase.Actor, in usecase.ArticleInput) (*model.Article, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, actor, in)
	}
	return model.NewArticle(in.Name, in.UnitPrice, in.DurationMonths, in.SubscriptionType, in.EligibleUserType, in.PurchasableByEveryone)
}

func (m *mockArticleUC) List(ctx context.Context, actor usecase.Actor) ([]*model.Article, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, actor)
	}
	return nil, nil
}

type mockLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, nil
}
