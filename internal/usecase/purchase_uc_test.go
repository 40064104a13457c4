//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
	"netaccess-billing/internal/usecase"
)

func TestPurchaseUseCase_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, 1, 15))
	f.addUser(t, "u1", decimal.Zero)
	pay := f.addPayment(t, nil)
	inv := f.checkout(t, "u1", pay.ID, usecase.PurchaseLine{ArticleID: artConnection, Quantity: 1})
	catalog := newArticleCatalog()

	t.Run("pending invoice gets an interval but no resync", func(t *testing.T) {
		p, err := model.NewPurchase(inv.ID, catalog[artConnection], 2)
		if err != nil {
			t.Fatalf("NewPurchase: %v", err)
		}
		if _, err := f.purUC.Create(ctx, f.admin, p, nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
		iv := f.interval(t, p.ID)
		// chained after the first line of the same invoice
		if !iv.Start.Equal(day(2024, 2, 15)) || !iv.End.Equal(day(2024, 4, 15)) {
			t.Errorf("unexpected interval [%v, %v)", iv.Start, iv.End)
		}
		if len(f.dir.Calls) != 0 {
			t.Errorf("pending invoices are not resynced, got %+v", f.dir.Calls)
		}
	})

	t.Run("valid invoice is resynced after commit", func(t *testing.T) {
		if _, err := f.payUC.Finalize(ctx, inv.ID); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		before := len(f.dir.Calls)
		p, _ := model.NewPurchase(inv.ID, catalog[artMembership], 1)
		if _, err := f.purUC.Create(ctx, f.admin, p, nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if len(f.dir.Calls) != before+1 || !f.dir.Calls[before].Opts.AccessRefresh {
			t.Errorf("expected one access resync, got %+v", f.dir.Calls[before:])
		}
	})

	t.Run("non-subscription purchase has no interval", func(t *testing.T) {
		before := len(f.dir.Calls)
		p, _ := model.NewPurchase(inv.ID, catalog[artCable], 1)
		if _, err := f.purUC.Create(ctx, f.admin, p, nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := f.intervals.FindByPurchase(ctx, repository.NoTX, p.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected no interval, got %v", err)
		}
		if len(f.dir.Calls) != before {
			t.Error("non-subscription purchases never trigger a resync")
		}
	})

	t.Run("rejected before anything is stored", func(t *testing.T) {
		p, _ := model.NewPurchase(inv.ID, catalog[artMembership], 1)
		p.DurationMonths = nil
		_, err := f.purUC.Create(ctx, f.admin, p, nil)
		if !errors.Is(err, domain.ErrInvalidSubscriptionPurchase) {
			t.Fatalf("want ErrInvalidSubscriptionPurchase, got %v", err)
		}
		if _, err := f.purchases.FindByID(ctx, repository.NoTX, p.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Error("the purchase must not be stored")
		}
	})

	t.Run("forbidden for members", func(t *testing.T) {
		p, _ := model.NewPurchase(inv.ID, catalog[artMembership], 1)
		if _, err := f.purUC.Create(ctx, usecase.Actor{UserID: "u1"}, p, nil); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("want ErrForbidden, got %v", err)
		}
	})
}

func TestPurchaseUseCase_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, 1, 15))
	f.addUser(t, "u1", decimal.Zero)
	pay := f.addPayment(t, nil)
	inv := f.checkout(t, "u1", pay.ID, usecase.PurchaseLine{ArticleID: artMembership, Quantity: 1})
	pid := inv.Purchases[0].ID
	if _, err := f.payUC.Finalize(ctx, inv.ID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	t.Run("price only keeps the interval", func(t *testing.T) {
		saves, calls := f.intervals.Saves, len(f.dir.Calls)
		price := d("9.99")
		if _, err := f.purUC.Update(ctx, f.admin, pid, usecase.PurchaseUpdate{UnitPrice: &price}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if f.intervals.Saves != saves || len(f.dir.Calls) != calls {
			t.Error("a price change must not touch the interval nor resync")
		}
	})

	t.Run("duration extends the end", func(t *testing.T) {
		got, err := f.purUC.Update(ctx, f.admin, pid, usecase.PurchaseUpdate{DurationMonths: intp(6)})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if *got.DurationMonths != 6 {
			t.Errorf("expected duration 6, got %d", *got.DurationMonths)
		}
		iv := f.interval(t, pid)
		if !iv.Start.Equal(day(2024, 1, 15)) || !iv.End.Equal(day(2024, 7, 15)) {
			t.Errorf("unexpected interval [%v, %v)", iv.Start, iv.End)
		}
		last := f.dir.Calls[len(f.dir.Calls)-1]
		if last.UserID != "u1" || !last.Opts.AccessRefresh {
			t.Errorf("expected an access resync for u1, got %+v", last)
		}
	})

	t.Run("zero quantity", func(t *testing.T) {
		if _, err := f.purUC.Update(ctx, f.admin, pid, usecase.PurchaseUpdate{Quantity: intp(0)}); !errors.Is(err, domain.ErrNegativeQuantity) {
			t.Errorf("want ErrNegativeQuantity, got %v", err)
		}
	})
}

func TestPurchaseUseCase_DeleteRemovesInterval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, 1, 15))
	f.addUser(t, "u1", decimal.Zero)
	pay := f.addPayment(t, nil)
	inv := f.checkout(t, "u1", pay.ID,
		usecase.PurchaseLine{ArticleID: artMembership, Quantity: 1},
		usecase.PurchaseLine{ArticleID: artCable, Quantity: 1},
	)
	if _, err := f.payUC.Finalize(ctx, inv.ID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	calls := len(f.dir.Calls)

	for _, p := range inv.Purchases {
		if err := f.purUC.Delete(ctx, f.admin, p.ID); err != nil {
			t.Fatalf("Delete %s: %v", p.ArticleName, err)
		}
		if _, err := f.intervals.FindByPurchase(ctx, repository.NoTX, p.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("interval of %s survived", p.ArticleName)
		}
	}
	// only the subscription line resyncs
	if got := len(f.dir.Calls) - calls; got != 1 {
		t.Errorf("expected one resync, got %d", got)
	}
	if err := f.purUC.Delete(ctx, f.admin, inv.Purchases[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: want ErrNotFound, got %v", err)
	}
}
