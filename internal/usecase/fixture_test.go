//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
	"netaccess-billing/internal/usecase"
)

// fixture wires every use case over one in-memory store.
type fixture struct {
	db         *memDB
	users      *MockUserRepo
	invoices   *MockInvoiceRepo
	purchases  *MockPurchaseRepo
	intervals  *MockIntervalRepo
	payments   *MockPaymentRepo
	methods    *MockPaymentMethodRepo
	tm         *MockTxManager
	userLocker *MockUserLocker
	locker     *MockLocker
	dir        *MockDirectory
	mailer     *MockMailer
	alerter    *MockAlerter
	gateway    *MockGateway
	ledger     *MockLedger

	engine   *usecase.SubscriptionEngine
	invUC    usecase.InvoiceUseCase
	purUC    usecase.PurchaseUseCase
	payUC    usecase.PaymentUseCase
	notifUC  usecase.NotificationUseCase
	methodUC usecase.PaymentMethodUseCase
	balUC    usecase.BalanceUseCase

	admin usecase.Actor
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	return newFixtureWithPool(t, now, syncDispatcher{})
}

// newFixtureWithPool is newFixture with a custom side-effect dispatcher.
func newFixtureWithPool(t *testing.T, now time.Time, pool usecase.Dispatcher) *fixture {
	t.Helper()
	db := newMemDB()
	f := &fixture{
		db:         db,
		users:      &MockUserRepo{db: db},
		invoices:   &MockInvoiceRepo{db: db},
		purchases:  &MockPurchaseRepo{db: db},
		intervals:  &MockIntervalRepo{db: db},
		payments:   &MockPaymentRepo{db: db},
		methods:    &MockPaymentMethodRepo{db: db},
		tm:         NewMockTxManager(),
		userLocker: &MockUserLocker{},
		locker:     NewMockLocker(),
		dir:        &MockDirectory{},
		mailer:     &MockMailer{},
		alerter:    &MockAlerter{},
		gateway:    &MockGateway{GoodSignature: "good-sig"},
		ledger:     &MockLedger{},
		admin:      usecase.Actor{UserID: "admin", IsAdmin: true},
	}
	logger := newTestLogger()
	fx := usecase.Effects{Directory: f.dir, Mailer: f.mailer, Alerter: f.alerter, Pool: pool}

	f.engine = usecase.NewSubscriptionEngine(f.intervals, f.users, f.userLocker, logger).
		WithClock(func() time.Time { return now })
	f.invUC = usecase.NewInvoiceUseCase(usecase.InvoiceDeps{
		Invoices:  f.invoices,
		Purchases: f.purchases,
		Intervals: f.intervals,
		Articles:  newArticleCatalog(),
		Payments:  f.payments,
		Methods:   f.methods,
		Users:     f.users,
		Engine:    f.engine,
		TM:        f.tm,
		Effects:   fx,
	}, logger)
	f.purUC = usecase.NewPurchaseUseCase(f.invoices, f.purchases, f.intervals, f.engine, f.tm, fx, logger)
	f.payUC = usecase.NewPaymentUseCase(usecase.PaymentDeps{
		Invoices:  f.invoices,
		Purchases: f.purchases,
		Users:     f.users,
		Methods:   f.methods,
		Locker:    f.userLocker,
		Engine:    f.engine,
		TM:        f.tm,
		Gateway:   f.gateway,
		Ledger:    f.ledger,
		Effects:   fx,
	}, logger)
	f.notifUC = usecase.NewNotificationUseCase(f.methods, f.invoices, f.purchases, f.payUC, f.gateway, f.locker, fx, logger)
	f.methodUC = usecase.NewPaymentMethodUseCase(f.payments, f.methods, f.tm, logger)
	f.balUC = usecase.NewBalanceUseCase(f.users, f.methods, f.userLocker, f.tm, logger)
	return f
}

func (f *fixture) addUser(t *testing.T, id string, balance decimal.Decimal) *model.User {
	t.Helper()
	u, err := model.NewUser(id, id, id+"@example.org", model.UserTypeMember)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	u.Balance = balance
	_ = f.users.Save(context.Background(), repository.NoTX, u)
	return u
}

// addPayment creates a catalog row and links m to it when m is not nil.
func (f *fixture) addPayment(t *testing.T, m model.PaymentMethod) *model.Payment {
	t.Helper()
	ctx := context.Background()
	p, err := model.NewPayment("pay", true)
	if err != nil {
		t.Fatalf("NewPayment: %v", err)
	}
	_ = f.payments.Save(ctx, repository.NoTX, p)
	if m != nil {
		if err := f.methodUC.Attach(ctx, f.admin, p.ID, m); err != nil {
			t.Fatalf("Attach: %v", err)
		}
	}
	return p
}

func (f *fixture) checkout(t *testing.T, userID, paymentID string, lines ...usecase.PurchaseLine) *model.Invoice {
	t.Helper()
	inv, err := f.invUC.Checkout(context.Background(), f.admin, usecase.CheckoutRequest{
		UserID:    userID,
		PaymentID: paymentID,
		Lines:     lines,
	})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	return inv
}

func (f *fixture) interval(t *testing.T, purchaseID string) *model.SubscriptionInterval {
	t.Helper()
	iv, err := f.intervals.FindByPurchase(context.Background(), repository.NoTX, purchaseID)
	if err != nil {
		t.Fatalf("interval of %s: %v", purchaseID, err)
	}
	return iv
}

func (f *fixture) storedInvoice(id string) (model.Invoice, bool) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	inv, ok := f.db.invoices[id]
	return inv, ok
}

func (f *fixture) balanceOf(id string) decimal.Decimal {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.users[id].Balance
}

// ---- Article catalog used by checkout ----

const (
	artMembership = "art-membership-1m"
	artConnection = "art-connection-1m"
	artBoth       = "art-both-1m"
	artCable      = "art-cable"
)

type articleCatalog map[string]*model.Article

var _ repository.ArticleRepository = articleCatalog(nil)

func newArticleCatalog() articleCatalog {
	one := 1
	return articleCatalog{
		artMembership: {ID: artMembership, Name: "Membership 1 month", UnitPrice: decimal.RequireFromString("10.00"), DurationMonths: &one, SubscriptionType: stp(model.SubscriptionMembership), EligibleUserType: model.EligibleBoth, PurchasableByEveryone: true},
		artConnection: {ID: artConnection, Name: "Connection 1 month", UnitPrice: decimal.RequireFromString("5.00"), DurationMonths: &one, SubscriptionType: stp(model.SubscriptionConnection), EligibleUserType: model.EligibleBoth, PurchasableByEveryone: true},
		artBoth:       {ID: artBoth, Name: "Membership + connection 1 month", UnitPrice: decimal.RequireFromString("14.00"), DurationMonths: &one, SubscriptionType: stp(model.SubscriptionBoth), EligibleUserType: model.EligibleMember, PurchasableByEveryone: true},
		artCable:      {ID: artCable, Name: "RJ45 cable", UnitPrice: decimal.RequireFromString("2.50"), EligibleUserType: model.EligibleBoth, PurchasableByEveryone: false},
	}
}

func (c articleCatalog) Save(ctx context.Context, tx repository.Tx, a *model.Article) error {
	c[a.ID] = a
	return nil
}

func (c articleCatalog) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Article, error) {
	a, ok := c[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (c articleCatalog) List(ctx context.Context, tx repository.Tx) ([]*model.Article, error) {
	out := make([]*model.Article, 0, len(c))
	for _, a := range c {
		out = append(out, a)
	}
	return out, nil
}
