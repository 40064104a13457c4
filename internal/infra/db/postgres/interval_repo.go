package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
	"netaccess-billing/internal/infra/metrics"
)

var _ repository.IntervalRepository = (*intervalRepo)(nil)

type intervalRepo struct{ pool *pgxpool.Pool }

func NewIntervalRepo(pool *pgxpool.Pool) *intervalRepo {
	return &intervalRepo{pool: pool}
}

const intervalColumns = `id, purchase_id, subscription_type, start_at, end_at, created_at, updated_at`

func (r *intervalRepo) FindByPurchase(ctx context.Context, tx repository.Tx, purchaseID string) (*model.SubscriptionInterval, error) {
	q := forUpdate(`SELECT `+intervalColumns+` FROM subscription_intervals WHERE purchase_id=$1`, tx)
	var iv model.SubscriptionInterval
	err := queryRow(ctx, r.pool, tx, q, func(row pgx.Row) error { return scanInterval(row, &iv) }, purchaseID)
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

// Save upserts on purchase_id: a purchase has at most one interval.
func (r *intervalRepo) Save(ctx context.Context, tx repository.Tx, iv *model.SubscriptionInterval) error {
	const q = `
INSERT INTO subscription_intervals (` + intervalColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (purchase_id) DO UPDATE SET
  subscription_type=$3, start_at=$4, end_at=$5, updated_at=$7;`
	_, err := execSQL(ctx, r.pool, tx, q,
		iv.ID, iv.PurchaseID, string(iv.Type), iv.Start, iv.End, iv.CreatedAt, iv.UpdatedAt)
	if err != nil {
		return err
	}
	metrics.IncIntervalWrite(string(iv.Type), "save")
	return nil
}

func (r *intervalRepo) DeleteByPurchase(ctx context.Context, tx repository.Tx, purchaseID string) error {
	const q = `DELETE FROM subscription_intervals WHERE purchase_id=$1 RETURNING subscription_type`
	var st string
	err := queryRow(ctx, r.pool, tx, q, func(row pgx.Row) error { return row.Scan(&st) }, purchaseID)
	switch {
	case err == nil:
		metrics.IncIntervalWrite(st, "delete")
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

// MaxEnd scans intervals of valid invoices plus those of
// q.IncludeInvoiceID, restricted to q.Types.
func (r *intervalRepo) MaxEnd(ctx context.Context, tx repository.Tx, q repository.IntervalQuery) (*time.Time, error) {
	const sql = `
SELECT MAX(si.end_at)
  FROM subscription_intervals si
  JOIN purchases p ON p.id = si.purchase_id
  JOIN invoices i  ON i.id = p.invoice_id
 WHERE i.user_id = $1
   AND si.subscription_type = ANY($2)
   AND (i.valid OR i.id = $3)
   AND si.purchase_id <> $4
   AND ($5::timestamptz IS NULL OR si.start_at < $5)`
	types := make([]string, len(q.Types))
	for i, t := range q.Types {
		types[i] = string(t)
	}
	var maxEnd *time.Time
	err := queryRow(ctx, r.pool, tx, sql, func(row pgx.Row) error { return row.Scan(&maxEnd) },
		q.UserID, types, q.IncludeInvoiceID, q.ExcludePurchaseID, q.StartedBefore)
	if err != nil {
		return nil, err
	}
	return maxEnd, nil
}

func (r *intervalRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SubscriptionInterval, error) {
	const q = `
SELECT si.id, si.purchase_id, si.subscription_type, si.start_at, si.end_at, si.created_at, si.updated_at
  FROM subscription_intervals si
  JOIN purchases p ON p.id = si.purchase_id
  JOIN invoices i  ON i.id = p.invoice_id
 WHERE i.user_id = $1
 ORDER BY si.start_at`
	var out []*model.SubscriptionInterval
	err := queryAll(ctx, r.pool, tx, q, func(rows pgx.Rows) error {
		iv := new(model.SubscriptionInterval)
		if err := scanInterval(rows, iv); err != nil {
			return err
		}
		out = append(out, iv)
		return nil
	}, userID)
	return out, err
}

func scanInterval(row pgx.Row, iv *model.SubscriptionInterval) error {
	var st string
	if err := row.Scan(&iv.ID, &iv.PurchaseID, &st, &iv.Start, &iv.End, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
		return err
	}
	iv.Type = model.SubscriptionType(st)
	if !iv.Type.Valid() {
		return domain.ErrReadDatabaseRow
	}
	return nil
}
