//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/adapter"
	"netaccess-billing/internal/domain/ports/repository"
)

// -----------------------------
// In-memory store shared by the repository mocks
// -----------------------------

// memDB keeps copies of every entity, like a database would, so callers
// cannot mutate stored state by accident.
type memDB struct {
	mu        sync.Mutex
	users     map[string]model.User
	invoices  map[string]model.Invoice
	purchases map[string]model.Purchase
	intervals map[string]model.SubscriptionInterval // by purchase id
	payments  map[string]model.Payment
	methods   map[string]model.PaymentMethod
}

func newMemDB() *memDB {
	return &memDB{
		users:     map[string]model.User{},
		invoices:  map[string]model.Invoice{},
		purchases: map[string]model.Purchase{},
		intervals: map[string]model.SubscriptionInterval{},
		payments:  map[string]model.Payment{},
		methods:   map[string]model.PaymentMethod{},
	}
}

// =============================
// Repositories
// =============================

// ---- Users ----

type MockUserRepo struct {
	db *memDB

	AdjustCalls       int
	FindByIDFunc      func(ctx context.Context, tx repository.Tx, id string) (*model.User, error)
	AdjustBalanceFunc func(ctx context.Context, tx repository.Tx, id string, delta decimal.Decimal) (decimal.Decimal, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.users[u.ID] = *u
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *MockUserRepo) AdjustBalance(ctx context.Context, tx repository.Tx, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	if m.AdjustBalanceFunc != nil {
		return m.AdjustBalanceFunc(ctx, tx, id, delta)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[id]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	m.AdjustCalls++
	u.Balance = u.Balance.Add(delta)
	m.db.users[id] = u
	return u.Balance, nil
}

// ---- Invoices ----

type MockInvoiceRepo struct {
	db *memDB

	MarkValidIfPendingFunc func(ctx context.Context, tx repository.Tx, id string) (bool, error)
}

var _ repository.InvoiceRepository = (*MockInvoiceRepo)(nil)

func (m *MockInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c := *inv
	c.Purchases = nil
	m.db.invoices[inv.ID] = c
	return nil
}

func (m *MockInvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	inv, ok := m.db.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &inv, nil
}

func (m *MockInvoiceRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Invoice, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range m.db.invoices {
		if inv.UserID == userID {
			c := inv
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *MockInvoiceRepo) MarkValidIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if m.MarkValidIfPendingFunc != nil {
		return m.MarkValidIfPendingFunc(ctx, tx, id)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	inv, ok := m.db.invoices[id]
	if !ok || inv.Valid {
		return false, nil
	}
	inv.Valid = true
	m.db.invoices[id] = inv
	return true, nil
}

func (m *MockInvoiceRepo) ClaimLedgerDebit(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	inv, ok := m.db.invoices[id]
	if !ok || inv.Valid || inv.LedgerClaimed {
		return false, nil
	}
	inv.LedgerClaimed = true
	m.db.invoices[id] = inv
	return true, nil
}

func (m *MockInvoiceRepo) SetLedgerRef(ctx context.Context, tx repository.Tx, id, ref string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	inv, ok := m.db.invoices[id]
	if !ok || !inv.LedgerClaimed {
		return domain.ErrNotFound
	}
	inv.LedgerRef = &ref
	m.db.invoices[id] = inv
	return nil
}

func (m *MockInvoiceRepo) ReleaseLedgerClaim(ctx context.Context, tx repository.Tx, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	inv, ok := m.db.invoices[id]
	if ok && inv.LedgerRef == nil {
		inv.LedgerClaimed = false
		m.db.invoices[id] = inv
	}
	return nil
}

func (m *MockInvoiceRepo) UpdateCheque(ctx context.Context, tx repository.Tx, id, bank, number string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	inv, ok := m.db.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.Bank, inv.ChequeNumber = &bank, &number
	m.db.invoices[id] = inv
	return nil
}

func (m *MockInvoiceRepo) SetControlled(ctx context.Context, tx repository.Tx, id string, controlled bool) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	inv, ok := m.db.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.Controlled = controlled
	m.db.invoices[id] = inv
	return nil
}

func (m *MockInvoiceRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.invoices[id]; !ok {
		return domain.ErrNotFound
	}
	m.db.cascadeInvoice(id)
	return nil
}

func (m *MockInvoiceRepo) DeleteIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	inv, ok := m.db.invoices[id]
	if !ok || inv.Valid {
		return false, nil
	}
	m.db.cascadeInvoice(id)
	return true, nil
}

// cascadeInvoice mirrors the ON DELETE CASCADE chain. Caller holds mu.
func (db *memDB) cascadeInvoice(id string) {
	for pid, p := range db.purchases {
		if p.InvoiceID == id {
			delete(db.intervals, pid)
			delete(db.purchases, pid)
		}
	}
	delete(db.invoices, id)
}

// ---- Purchases ----

type MockPurchaseRepo struct {
	db *memDB

	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.Purchase) error
}

var _ repository.PurchaseRepository = (*MockPurchaseRepo)(nil)

func (m *MockPurchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.purchases[p.ID] = *p
	return nil
}

func (m *MockPurchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p, ok := m.db.purchases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *MockPurchaseRepo) ListByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) ([]*model.Purchase, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*model.Purchase
	for _, p := range m.db.purchases {
		if p.InvoiceID == invoiceID {
			c := p
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.Purchase) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *MockPurchaseRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.intervals[id]; ok {
		return errors.New("fk violation: interval still references purchase")
	}
	delete(m.db.purchases, id)
	return nil
}

// ---- Intervals ----

type MockIntervalRepo struct {
	db *memDB

	Saves      int
	MaxEndFunc func(ctx context.Context, tx repository.Tx, q repository.IntervalQuery) (*time.Time, error)
}

var _ repository.IntervalRepository = (*MockIntervalRepo)(nil)

func (m *MockIntervalRepo) FindByPurchase(ctx context.Context, tx repository.Tx, purchaseID string) (*model.SubscriptionInterval, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	iv, ok := m.db.intervals[purchaseID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &iv, nil
}

func (m *MockIntervalRepo) Save(ctx context.Context, tx repository.Tx, iv *model.SubscriptionInterval) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.purchases[iv.PurchaseID]; !ok {
		return errors.New("fk violation: unknown purchase")
	}
	m.Saves++
	m.db.intervals[iv.PurchaseID] = *iv
	return nil
}

func (m *MockIntervalRepo) DeleteByPurchase(ctx context.Context, tx repository.Tx, purchaseID string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	delete(m.db.intervals, purchaseID)
	return nil
}

func (m *MockIntervalRepo) MaxEnd(ctx context.Context, tx repository.Tx, q repository.IntervalQuery) (*time.Time, error) {
	if m.MaxEndFunc != nil {
		return m.MaxEndFunc(ctx, tx, q)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var maxEnd *time.Time
	for pid, iv := range m.db.intervals {
		if pid == q.ExcludePurchaseID || !slices.Contains(q.Types, iv.Type) {
			continue
		}
		p, ok := m.db.purchases[pid]
		if !ok {
			continue
		}
		inv, ok := m.db.invoices[p.InvoiceID]
		if !ok || inv.UserID != q.UserID {
			continue
		}
		if !inv.Valid && inv.ID != q.IncludeInvoiceID {
			continue
		}
		if q.StartedBefore != nil && !iv.Start.Before(*q.StartedBefore) {
			continue
		}
		if maxEnd == nil || iv.End.After(*maxEnd) {
			end := iv.End
			maxEnd = &end
		}
	}
	return maxEnd, nil
}

func (m *MockIntervalRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SubscriptionInterval, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*model.SubscriptionInterval
	for pid, iv := range m.db.intervals {
		p := m.db.purchases[pid]
		if m.db.invoices[p.InvoiceID].UserID == userID {
			c := iv
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.SubscriptionInterval) int { return a.Start.Compare(b.Start) })
	return out, nil
}

// ---- Payment catalog ----

type MockPaymentRepo struct {
	db *memDB
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.payments[p.ID] = *p
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p, ok := m.db.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *MockPaymentRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Payment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.db.payments {
		c := p
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *model.Payment) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *MockPaymentRepo) SetBalance(ctx context.Context, tx repository.Tx, id string, isBalance bool) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p, ok := m.db.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.IsBalance = isBalance
	m.db.payments[id] = p
	return nil
}

type MockPaymentMethodRepo struct {
	db *memDB
}

var _ repository.PaymentMethodRepository = (*MockPaymentMethodRepo)(nil)

func (m *MockPaymentMethodRepo) Save(ctx context.Context, tx repository.Tx, pm model.PaymentMethod) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.methods[pm.MethodID()] = pm
	return nil
}

func (m *MockPaymentMethodRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (model.PaymentMethod, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	pm, ok := m.db.methods[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return pm, nil
}

func (m *MockPaymentMethodRepo) FindByPayment(ctx context.Context, tx repository.Tx, paymentID string) (model.PaymentMethod, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, pm := range m.db.methods {
		if pm.OwnerPaymentID() == paymentID {
			return pm, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentMethodRepo) ListByKind(ctx context.Context, tx repository.Tx, kind model.MethodKind) ([]model.PaymentMethod, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.PaymentMethod
	for _, pm := range m.db.methods {
		if pm.Kind() == kind {
			out = append(out, pm)
		}
	}
	return out, nil
}

// ---- Transactions and locks ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

type MockUserLocker struct {
	mu     sync.Mutex
	Locked []string
}

var _ repository.UserLocker = (*MockUserLocker)(nil)

func (m *MockUserLocker) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Locked = append(m.Locked, userID)
	return nil
}

// ---- In-memory Locker (implements adapter.Locker) ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ErrOn[key]; err != nil {
		return "", err
	}
	if _, ok := m.held[key]; ok {
		return "", errors.New("lock busy")
	}
	tok := uuid.NewString()
	m.held[key] = tok
	return tok, nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

// =============================
// Adapters
// =============================

type resyncCall struct {
	UserID string
	Opts   adapter.ResyncOptions
}

type MockDirectory struct {
	mu    sync.Mutex
	Calls []resyncCall
}

var _ adapter.DirectorySync = (*MockDirectory)(nil)

func (m *MockDirectory) ResyncAccess(ctx context.Context, userID string, opts adapter.ResyncOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, resyncCall{UserID: userID, Opts: opts})
	return nil
}

type MockMailer struct {
	mu   sync.Mutex
	Sent []adapter.Mail
}

var _ adapter.Mailer = (*MockMailer)(nil)

func (m *MockMailer) Send(ctx context.Context, mail adapter.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, mail)
	return nil
}

type MockAlerter struct {
	mu    sync.Mutex
	Texts []string
}

var _ adapter.AdminAlerter = (*MockAlerter)(nil)

func (m *MockAlerter) Alert(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Texts = append(m.Texts, text)
	return nil
}

// MockGateway accepts a notification whose signature equals GoodSignature.
type MockGateway struct {
	GoodSignature string
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Redirect(gm *model.GatewayMethod, invoiceID string, amount decimal.Decimal) (adapter.GatewayRedirect, error) {
	return adapter.GatewayRedirect{
		URL: gm.GatewayURL,
		Fields: map[string]string{
			"terminal_id":    gm.TerminalID,
			"transaction_id": invoiceID,
			"amount":         amount.StringFixed(2),
		},
	}, nil
}

func (m *MockGateway) Verify(gm *model.GatewayMethod, n adapter.GatewayNotification) bool {
	return n.Signature == m.GoodSignature
}

func (m *MockGateway) Succeeded(n adapter.GatewayNotification) bool { return n.Result == "00" }

type MockLedger struct {
	mu        sync.Mutex
	Calls     []adapter.LedgerDebit
	DebitFunc func(ctx context.Context, lm *model.LedgerMethod, d adapter.LedgerDebit) (string, error)
}

var _ adapter.LedgerClient = (*MockLedger)(nil)

func (m *MockLedger) Debit(ctx context.Context, lm *model.LedgerMethod, d adapter.LedgerDebit) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, d)
	m.mu.Unlock()
	if m.DebitFunc != nil {
		return m.DebitFunc(ctx, lm, d)
	}
	return "ledger-ref-1", nil
}

// syncDispatcher runs side effects inline so tests can assert on them.
type syncDispatcher struct{}

func (syncDispatcher) Submit(task func(ctx context.Context) error) error {
	return task(context.Background())
}

// -----------------------------
// Fixture
// -----------------------------

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func intp(i int) *int { return &i }

func stp(t model.SubscriptionType) *model.SubscriptionType { return &t }
