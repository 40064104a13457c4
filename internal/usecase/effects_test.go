//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"netaccess-billing/internal/usecase"
)

// saturatedDispatcher refuses every task, like a pool whose queue is full.
type saturatedDispatcher struct {
	refused atomic.Int32
}

func (s *saturatedDispatcher) Submit(task func(ctx context.Context) error) error {
	s.refused.Add(1)
	return errors.New("worker queue is full")
}

func TestEffects_SaturatedPoolStillResyncsAndMails(t *testing.T) {
	ctx := context.Background()
	pool := &saturatedDispatcher{}
	f := newFixtureWithPool(t, day(2024, 1, 15), pool)
	f.addUser(t, "u1", decimal.Zero)
	pay := f.addPayment(t, nil)
	inv := f.checkout(t, "u1", pay.ID, usecase.PurchaseLine{ArticleID: artMembership, Quantity: 1})

	ok, err := f.payUC.Finalize(ctx, inv.ID)
	if err != nil || !ok {
		t.Fatalf("Finalize: (%v, %v)", ok, err)
	}

	if len(f.dir.Calls) != 1 || f.dir.Calls[0].UserID != "u1" || !f.dir.Calls[0].Opts.AccessRefresh {
		t.Errorf("expected the access resync to run inline, got %+v", f.dir.Calls)
	}
	if len(f.mailer.Sent) != 1 {
		t.Errorf("expected the subscriber mail to run inline, got %d", len(f.mailer.Sent))
	}
	if len(f.alerter.Texts) != 0 {
		t.Errorf("admin alerts may be dropped, got %v", f.alerter.Texts)
	}
	if got := pool.refused.Load(); got != 3 {
		t.Errorf("expected every effect to be offered to the pool first, got %d", got)
	}
}
