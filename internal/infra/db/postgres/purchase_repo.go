package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct{ pool *pgxpool.Pool }

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `id, invoice_id, article_name, unit_price, quantity, duration_months, subscription_type, created_at`

func (r *purchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	const q = `
INSERT INTO purchases (` + purchaseColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  article_name=$3, unit_price=$4, quantity=$5, duration_months=$6, subscription_type=$7;`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.InvoiceID, p.ArticleName, p.UnitPrice, p.Quantity, p.DurationMonths, subTypeArg(p.SubscriptionType), p.CreatedAt)
	return err
}

func (r *purchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	q := forUpdate(`SELECT `+purchaseColumns+` FROM purchases WHERE id=$1`, tx)
	var p model.Purchase
	err := queryRow(ctx, r.pool, tx, q, func(row pgx.Row) error { return scanPurchase(row, &p) }, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepo) ListByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) ([]*model.Purchase, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE invoice_id=$1 ORDER BY created_at, id`
	var out []*model.Purchase
	err := queryAll(ctx, r.pool, tx, q, func(rows pgx.Rows) error {
		p := new(model.Purchase)
		if err := scanPurchase(rows, p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}, invoiceID)
	return out, err
}

func (r *purchaseRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	return expectOne(execSQL(ctx, r.pool, tx, `DELETE FROM purchases WHERE id=$1`, id))
}

func scanPurchase(row pgx.Row, p *model.Purchase) error {
	var st *string
	if err := row.Scan(&p.ID, &p.InvoiceID, &p.ArticleName, &p.UnitPrice, &p.Quantity, &p.DurationMonths, &st, &p.CreatedAt); err != nil {
		return err
	}
	t, err := parseSubType(st)
	if err != nil {
		return err
	}
	p.SubscriptionType = t
	return nil
}
