package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

type invoiceRepo struct{ pool *pgxpool.Pool }

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

const invoiceColumns = `id, user_id, payment_id, bank, cheque_number, valid, controlled, ledger_claimed, ledger_ref, created_at, updated_at`

func (r *invoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	// valid and the ledger claim are never written here.
	const q = `
INSERT INTO invoices (` + invoiceColumns + `)
VALUES ($1,$2,$3,$4,$5,FALSE,$6,FALSE,NULL,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  payment_id=$3, bank=$4, cheque_number=$5, controlled=$6, updated_at=NOW();`
	_, err := execSQL(ctx, r.pool, tx, q,
		inv.ID, inv.UserID, inv.PaymentID, inv.Bank, inv.ChequeNumber, inv.Controlled, inv.CreatedAt, inv.UpdatedAt)
	return err
}

func (r *invoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	q := forUpdate(`SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, tx)
	var inv model.Invoice
	err := queryRow(ctx, r.pool, tx, q, func(row pgx.Row) error { return scanInvoice(row, &inv) }, id)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id=$1 ORDER BY created_at DESC`
	var out []*model.Invoice
	err := queryAll(ctx, r.pool, tx, q, func(rows pgx.Rows) error {
		inv := new(model.Invoice)
		if err := scanInvoice(rows, inv); err != nil {
			return err
		}
		out = append(out, inv)
		return nil
	}, userID)
	return out, err
}

// MarkValidIfPending atomically flips valid only while it is still false.
func (r *invoiceRepo) MarkValidIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE invoices SET valid = TRUE, updated_at = NOW() WHERE id = $1 AND valid = FALSE`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() >= 1, nil
}

// ClaimLedgerDebit is a compare-and-set on ledger_claimed, so of two
// concurrent payers only one reaches the ledger.
func (r *invoiceRepo) ClaimLedgerDebit(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `UPDATE invoices SET ledger_claimed = TRUE, updated_at = NOW()
WHERE id = $1 AND valid = FALSE AND ledger_claimed = FALSE`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *invoiceRepo) SetLedgerRef(ctx context.Context, tx repository.Tx, id, ref string) error {
	const q = `UPDATE invoices SET ledger_ref=$2, updated_at=NOW() WHERE id=$1 AND ledger_claimed`
	return expectOne(execSQL(ctx, r.pool, tx, q, id, ref))
}

func (r *invoiceRepo) ReleaseLedgerClaim(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE invoices SET ledger_claimed=FALSE, updated_at=NOW() WHERE id=$1 AND ledger_ref IS NULL`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	return err
}

func (r *invoiceRepo) UpdateCheque(ctx context.Context, tx repository.Tx, id, bank, number string) error {
	const q = `UPDATE invoices SET bank=$2, cheque_number=$3, updated_at=NOW() WHERE id=$1`
	return expectOne(execSQL(ctx, r.pool, tx, q, id, bank, number))
}

func (r *invoiceRepo) SetControlled(ctx context.Context, tx repository.Tx, id string, controlled bool) error {
	const q = `UPDATE invoices SET controlled=$2, updated_at=NOW() WHERE id=$1`
	return expectOne(execSQL(ctx, r.pool, tx, q, id, controlled))
}

// Delete relies on ON DELETE CASCADE for purchases and intervals.
func (r *invoiceRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	return expectOne(execSQL(ctx, r.pool, tx, `DELETE FROM invoices WHERE id=$1`, id))
}

func (r *invoiceRepo) DeleteIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM invoices WHERE id=$1 AND valid = FALSE`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() >= 1, nil
}

func scanInvoice(row pgx.Row, inv *model.Invoice) error {
	return row.Scan(&inv.ID, &inv.UserID, &inv.PaymentID, &inv.Bank, &inv.ChequeNumber, &inv.Valid, &inv.Controlled, &inv.LedgerClaimed, &inv.LedgerRef, &inv.CreatedAt, &inv.UpdatedAt)
}

// expectOne turns "no row touched" into domain.ErrNotFound.
func expectOne(cmd interface{ RowsAffected() int64 }, err error) error {
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
