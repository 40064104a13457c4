package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, display_name, available_for_everyone, is_balance, created_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET
  display_name=$2, available_for_everyone=$3;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.DisplayName, p.AvailableForEveryone, p.IsBalance, p.CreatedAt)
	return err
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := forUpdate(`SELECT `+paymentColumns+` FROM payments WHERE id=$1`, tx)
	var p model.Payment
	err := queryRow(ctx, r.pool, tx, q, func(row pgx.Row) error { return scanPayment(row, &p) }, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Payment, error) {
	var out []*model.Payment
	err := queryAll(ctx, r.pool, tx, `SELECT `+paymentColumns+` FROM payments ORDER BY display_name`, func(rows pgx.Rows) error {
		p := new(model.Payment)
		if err := scanPayment(rows, p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// SetBalance relies on payments_single_balance to refuse a second balance row.
func (r *paymentRepo) SetBalance(ctx context.Context, tx repository.Tx, id string, isBalance bool) error {
	return expectOne(execSQL(ctx, r.pool, tx, `UPDATE payments SET is_balance=$2 WHERE id=$1`, id, isBalance))
}

func scanPayment(row pgx.Row, p *model.Payment) error {
	return row.Scan(&p.ID, &p.DisplayName, &p.AvailableForEveryone, &p.IsBalance, &p.CreatedAt)
}
