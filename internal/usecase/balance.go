package usecase

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
)

// CheckDebit reports whether debiting amount keeps balance at or above
// minimum. The reason is meant for the payer.
func CheckDebit(amount, balance, minimum decimal.Decimal) (bool, string) {
	if balance.Sub(amount).LessThan(minimum) {
		return false, fmt.Sprintf("balance %s would fall below the minimum of %s", balance.StringFixed(2), minimum.StringFixed(2))
	}
	return true, ""
}

// CheckCredit reports whether crediting amount keeps balance at or below
// maximum. A nil maximum means unbounded. Only credits are checked against
// the maximum; debits never are.
func CheckCredit(amount, balance decimal.Decimal, maximum *decimal.Decimal) (bool, string) {
	if maximum != nil && balance.Add(amount).GreaterThan(*maximum) {
		return false, fmt.Sprintf("balance would exceed the maximum of %s", maximum.StringFixed(2))
	}
	return true, ""
}

// Compile-time check
var _ BalanceUseCase = (*balanceUC)(nil)

type BalanceUseCase interface {
	Balance(ctx context.Context, actor Actor, userID string) (decimal.Decimal, error)
	// Credit tops up a user's balance. Admins may always credit; users only
	// when the balance method allows self credit.
	Credit(ctx context.Context, actor Actor, userID string, amount decimal.Decimal) (decimal.Decimal, error)
}

type balanceUC struct {
	users   repository.UserRepository
	methods repository.PaymentMethodRepository
	locker  repository.UserLocker
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewBalanceUseCase(users repository.UserRepository, methods repository.PaymentMethodRepository, locker repository.UserLocker, tm repository.TransactionManager, logger *zerolog.Logger) *balanceUC {
	l := logger.With().Str("component", "balance").Logger()
	return &balanceUC{users: users, methods: methods, locker: locker, tm: tm, log: &l}
}

func (u *balanceUC) Balance(ctx context.Context, actor Actor, userID string) (decimal.Decimal, error) {
	if !actor.canAccess(userID) {
		return decimal.Zero, domain.ErrForbidden
	}
	usr, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return usr.Balance, nil
}

func (u *balanceUC) Credit(ctx context.Context, actor Actor, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidArgument
	}
	if !actor.canAccess(userID) {
		return decimal.Zero, domain.ErrForbidden
	}
	method, err := balanceMethod(ctx, u.methods, repository.NoTX)
	if err != nil {
		return decimal.Zero, err
	}
	if !actor.IsAdmin && !method.CreditBalanceAllowed {
		return decimal.Zero, domain.ErrForbidden
	}

	var newBalance decimal.Decimal
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.locker.LockUser(ctx, tx, userID); err != nil {
			return err
		}
		usr, err := u.users.FindByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if ok, reason := CheckCredit(amount, usr.Balance, method.MaximumBalance); !ok {
			return fmt.Errorf("%w: %s", domain.ErrBalanceAboveMaximum, reason)
		}
		newBalance, err = u.users.AdjustBalance(ctx, tx, userID, amount)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	u.log.Info().Str("user_id", userID).Str("amount", amount.StringFixed(2)).Msg("balance credited")
	return newBalance, nil
}

// balanceMethod returns the single balance method of the catalog.
func balanceMethod(ctx context.Context, methods repository.PaymentMethodRepository, tx repository.Tx) (*model.BalanceMethod, error) {
	ms, err := methods.ListByKind(ctx, tx, model.MethodBalance)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, fmt.Errorf("%w: no balance payment method", domain.ErrNotFound)
	}
	bm, ok := ms[0].(*model.BalanceMethod)
	if !ok {
		return nil, domain.ErrInvalidMethodSetting
	}
	return bm, nil
}
