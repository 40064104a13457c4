package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
	"netaccess-billing/internal/infra/metrics"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, pseudo, email, user_type, is_admin, balance, membership_until, connection_until, created_at`

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  pseudo=$2, email=$3, user_type=$4, is_admin=$5, balance=$6, membership_until=$7, connection_until=$8;`
	_, err := execSQL(ctx, r.pool, tx, q,
		u.ID, u.Pseudo, u.Email, string(u.Type), u.IsAdmin, u.Balance, u.MembershipUntil, u.ConnectionUntil, u.CreatedAt)
	return err
}

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	q := forUpdate(`SELECT `+userColumns+` FROM users WHERE id=$1`, tx)
	var u model.User
	err := queryRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return scanUser(row, &u)
	}, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AdjustBalance moves the balance in one statement so concurrent debits
// cannot lose updates.
func (r *userRepo) AdjustBalance(ctx context.Context, tx repository.Tx, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	const q = `UPDATE users SET balance = balance + $2 WHERE id=$1 RETURNING balance;`
	var bal decimal.Decimal
	err := queryRow(ctx, r.pool, tx, q, func(row pgx.Row) error { return row.Scan(&bal) }, id, delta)
	if err != nil {
		return decimal.Zero, err
	}
	if delta.IsNegative() {
		metrics.AddBalanceMovement("debit", delta.InexactFloat64())
	} else {
		metrics.AddBalanceMovement("credit", delta.InexactFloat64())
	}
	return bal, nil
}

func scanUser(row pgx.Row, u *model.User) error {
	var t string
	if err := row.Scan(&u.ID, &u.Pseudo, &u.Email, &t, &u.IsAdmin, &u.Balance, &u.MembershipUntil, &u.ConnectionUntil, &u.CreatedAt); err != nil {
		return err
	}
	u.Type = model.UserType(t)
	if !u.Type.Valid() {
		return domain.ErrReadDatabaseRow
	}
	return nil
}
