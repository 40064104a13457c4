package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
)

// SubscriptionEngine computes the access interval granted by a subscription
// purchase. Intervals of one subscription type chain one after another; an
// interval of type Both blocks every type.
//
// All methods taking a tx expect to run inside a transaction. Refresh takes
// the per-user lock itself so the read-max-then-write sequence is serialized
// across concurrent validations for the same user.
type SubscriptionEngine struct {
	intervals repository.IntervalRepository
	users     repository.UserRepository
	locker    repository.UserLocker
	log       *zerolog.Logger
	now       func() time.Time
}

func NewSubscriptionEngine(intervals repository.IntervalRepository, users repository.UserRepository, locker repository.UserLocker, logger *zerolog.Logger) *SubscriptionEngine {
	l := logger.With().Str("component", "subscription_engine").Logger()
	return &SubscriptionEngine{intervals: intervals, users: users, locker: locker, log: &l, now: time.Now}
}

// WithClock replaces the engine clock. Intended for tests and replays.
func (e *SubscriptionEngine) WithClock(now func() time.Time) *SubscriptionEngine {
	e.now = now
	return e
}

func checkSubscriptionPurchase(p *model.Purchase) error {
	if p.SubscriptionType == nil {
		return fmt.Errorf("%w: purchase %s has no subscription type", domain.ErrInvalidArgument, p.ID)
	}
	if _, err := p.Months(); err != nil {
		return err
	}
	return nil
}

// ComputeStart returns when the access bought by p begins.
//
// Without an explicit start it is the latest of: the end of the last
// matching interval (of a valid invoice, or of inv itself), the user's
// imported access expiry when no such interval exists, and now.
// An explicit start backdates the interval; it is only pushed forward by
// matching intervals that started before it.
func (e *SubscriptionEngine) ComputeStart(ctx context.Context, tx repository.Tx, p *model.Purchase, inv *model.Invoice, explicitStart *time.Time) (time.Time, error) {
	if err := checkSubscriptionPurchase(p); err != nil {
		return time.Time{}, err
	}
	st := *p.SubscriptionType
	q := repository.IntervalQuery{
		UserID:            inv.UserID,
		Types:             matchingTypes(st),
		IncludeInvoiceID:  inv.ID,
		ExcludePurchaseID: p.ID,
	}

	if explicitStart != nil {
		q.StartedBefore = explicitStart
	}
	maxEnd, err := e.intervals.MaxEnd(ctx, tx, q)
	if err != nil {
		return time.Time{}, err
	}
	if explicitStart != nil {
		return latest(*explicitStart, maxEnd), nil
	}
	if maxEnd == nil {
		u, err := e.users.FindByID(ctx, tx, inv.UserID)
		if err != nil {
			return time.Time{}, fmt.Errorf("load user %s: %w", inv.UserID, err)
		}
		maxEnd = u.EndOfAccess(st)
	}
	return latest(e.now().Truncate(time.Microsecond), maxEnd), nil
}

// ComputeEnd adds duration*quantity calendar months to start.
func (e *SubscriptionEngine) ComputeEnd(start time.Time, p *model.Purchase) (time.Time, error) {
	months, err := p.Months()
	if err != nil {
		return time.Time{}, err
	}
	end, err := model.AddMonths(start, months)
	if err != nil {
		return time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, domain.ErrInvalidInterval
	}
	return end, nil
}

// Refresh makes the interval of p reflect its current quantity and
// duration. An existing interval keeps its start; only its end moves. A
// missing interval is computed from scratch. Calling Refresh twice without
// changes is a no-op. Non-subscription purchases have no interval and are
// ignored.
func (e *SubscriptionEngine) Refresh(ctx context.Context, tx repository.Tx, p *model.Purchase, inv *model.Invoice, explicitStart *time.Time) (*model.SubscriptionInterval, error) {
	if !p.IsSubscription() {
		return nil, nil
	}
	if err := checkSubscriptionPurchase(p); err != nil {
		return nil, err
	}
	if err := e.locker.LockUser(ctx, tx, inv.UserID); err != nil {
		return nil, err
	}

	existing, err := e.intervals.FindByPurchase(ctx, tx, p.ID)
	switch {
	case err == nil:
		end, err := e.ComputeEnd(existing.Start, p)
		if err != nil {
			return nil, err
		}
		if end.Equal(existing.End) && existing.Type == *p.SubscriptionType {
			return existing, nil
		}
		existing.End = end
		existing.Type = *p.SubscriptionType
		existing.UpdatedAt = e.now()
		if err := e.intervals.Save(ctx, tx, existing); err != nil {
			return nil, err
		}
		e.log.Debug().Str("purchase_id", p.ID).Time("end", end).Msg("interval end recomputed")
		return existing, nil
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}

	start, err := e.ComputeStart(ctx, tx, p, inv, explicitStart)
	if err != nil {
		return nil, err
	}
	end, err := e.ComputeEnd(start, p)
	if err != nil {
		return nil, err
	}
	iv, err := model.NewSubscriptionInterval(p.ID, *p.SubscriptionType, start, end)
	if err != nil {
		return nil, err
	}
	if err := e.intervals.Save(ctx, tx, iv); err != nil {
		return nil, err
	}
	e.log.Debug().
		Str("purchase_id", p.ID).
		Str("type", string(iv.Type)).
		Time("start", start).
		Time("end", end).
		Msg("interval created")
	return iv, nil
}

// matchingTypes lists the interval types a purchase of type t chains after.
func matchingTypes(t model.SubscriptionType) []model.SubscriptionType {
	var out []model.SubscriptionType
	for _, other := range []model.SubscriptionType{model.SubscriptionConnection, model.SubscriptionMembership, model.SubscriptionBoth} {
		if t.Matches(other) {
			out = append(out, other)
		}
	}
	return out
}

func latest(t time.Time, other *time.Time) time.Time {
	if other != nil && other.After(t) {
		return *other
	}
	return t
}
