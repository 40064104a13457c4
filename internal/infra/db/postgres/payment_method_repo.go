package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
)

var _ repository.PaymentMethodRepository = (*paymentMethodRepo)(nil)

// Sealer encrypts credentials at rest. aad binds a ciphertext to its row.
type Sealer interface {
	Seal(plaintext, aad string) (string, error)
	Open(stored, aad string) (string, error)
}

// paymentMethodRepo keeps every variant in one table; columns that do not
// apply to a kind keep their defaults.
type paymentMethodRepo struct {
	pool   *pgxpool.Pool
	sealer Sealer
}

func NewPaymentMethodRepo(pool *pgxpool.Pool, sealer Sealer) *paymentMethodRepo {
	return &paymentMethodRepo{pool: pool, sealer: sealer}
}

const methodColumns = `id, payment_id, kind, minimum_balance, maximum_balance, credit_balance_allowed,
  gateway_url, terminal_id, secret, minimum_payment, server_url, login, password`

type methodRow struct {
	ID, PaymentID, Kind  string
	MinimumBalance       decimal.Decimal
	MaximumBalance       *decimal.Decimal
	CreditBalanceAllowed bool
	GatewayURL           string
	TerminalID           string
	Secret               string
	MinimumPayment       decimal.Decimal
	ServerURL            string
	Login                string
	Password             string
}

func (r *paymentMethodRepo) Save(ctx context.Context, tx repository.Tx, m model.PaymentMethod) error {
	row, err := r.toRow(m)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO payment_methods (` + methodColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  minimum_balance=$4, maximum_balance=$5, credit_balance_allowed=$6,
  gateway_url=$7, terminal_id=$8, secret=$9, minimum_payment=$10,
  server_url=$11, login=$12, password=$13;`
	_, err = execSQL(ctx, r.pool, tx, q,
		row.ID, row.PaymentID, row.Kind, row.MinimumBalance, row.MaximumBalance, row.CreditBalanceAllowed,
		row.GatewayURL, row.TerminalID, row.Secret, row.MinimumPayment, row.ServerURL, row.Login, row.Password)
	return err
}

func (r *paymentMethodRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (model.PaymentMethod, error) {
	return r.findOne(ctx, tx, `SELECT `+methodColumns+` FROM payment_methods WHERE id=$1`, id)
}

func (r *paymentMethodRepo) FindByPayment(ctx context.Context, tx repository.Tx, paymentID string) (model.PaymentMethod, error) {
	return r.findOne(ctx, tx, `SELECT `+methodColumns+` FROM payment_methods WHERE payment_id=$1`, paymentID)
}

func (r *paymentMethodRepo) ListByKind(ctx context.Context, tx repository.Tx, kind model.MethodKind) ([]model.PaymentMethod, error) {
	var out []model.PaymentMethod
	err := queryAll(ctx, r.pool, tx, `SELECT `+methodColumns+` FROM payment_methods WHERE kind=$1 ORDER BY created_at`,
		func(rows pgx.Rows) error {
			var mr methodRow
			if err := scanMethod(rows, &mr); err != nil {
				return err
			}
			m, err := r.fromRow(mr)
			if err != nil {
				return err
			}
			out = append(out, m)
			return nil
		}, string(kind))
	return out, err
}

func (r *paymentMethodRepo) findOne(ctx context.Context, tx repository.Tx, q, arg string) (model.PaymentMethod, error) {
	var mr methodRow
	if err := queryRow(ctx, r.pool, tx, q, func(row pgx.Row) error { return scanMethod(row, &mr) }, arg); err != nil {
		return nil, err
	}
	return r.fromRow(mr)
}

func scanMethod(row pgx.Row, mr *methodRow) error {
	return row.Scan(&mr.ID, &mr.PaymentID, &mr.Kind, &mr.MinimumBalance, &mr.MaximumBalance, &mr.CreditBalanceAllowed,
		&mr.GatewayURL, &mr.TerminalID, &mr.Secret, &mr.MinimumPayment, &mr.ServerURL, &mr.Login, &mr.Password)
}

func (r *paymentMethodRepo) toRow(m model.PaymentMethod) (methodRow, error) {
	row := methodRow{ID: m.MethodID(), PaymentID: m.OwnerPaymentID(), Kind: string(m.Kind())}
	var err error
	switch v := m.(type) {
	case *model.ChequeMethod:
	case *model.BalanceMethod:
		row.MinimumBalance = v.MinimumBalance
		row.MaximumBalance = v.MaximumBalance
		row.CreditBalanceAllowed = v.CreditBalanceAllowed
	case *model.GatewayMethod:
		row.GatewayURL, row.TerminalID, row.MinimumPayment = v.GatewayURL, v.TerminalID, v.MinimumPayment
		row.Secret, err = r.sealer.Seal(v.Secret, v.ID)
	case *model.LedgerMethod:
		row.ServerURL, row.Login = v.ServerURL, v.Login
		row.Password, err = r.sealer.Seal(v.Password, v.ID)
	default:
		return row, fmt.Errorf("%w: method %T", domain.ErrInvalidArgument, m)
	}
	if err != nil {
		return row, fmt.Errorf("%w: seal credentials: %v", domain.ErrOperationFailed, err)
	}
	return row, nil
}

func (r *paymentMethodRepo) fromRow(mr methodRow) (model.PaymentMethod, error) {
	switch model.MethodKind(mr.Kind) {
	case model.MethodCheque:
		return &model.ChequeMethod{ID: mr.ID, PaymentID: mr.PaymentID}, nil
	case model.MethodBalance:
		return &model.BalanceMethod{
			ID:                   mr.ID,
			PaymentID:            mr.PaymentID,
			MinimumBalance:       mr.MinimumBalance,
			MaximumBalance:       mr.MaximumBalance,
			CreditBalanceAllowed: mr.CreditBalanceAllowed,
		}, nil
	case model.MethodGateway:
		secret, err := r.sealer.Open(mr.Secret, mr.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: open gateway secret: %v", domain.ErrReadDatabaseRow, err)
		}
		return &model.GatewayMethod{
			ID:             mr.ID,
			PaymentID:      mr.PaymentID,
			GatewayURL:     mr.GatewayURL,
			TerminalID:     mr.TerminalID,
			Secret:         secret,
			MinimumPayment: mr.MinimumPayment,
		}, nil
	case model.MethodLedger:
		password, err := r.sealer.Open(mr.Password, mr.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: open ledger password: %v", domain.ErrReadDatabaseRow, err)
		}
		return &model.LedgerMethod{ID: mr.ID, PaymentID: mr.PaymentID, ServerURL: mr.ServerURL, Login: mr.Login, Password: password}, nil
	}
	return nil, fmt.Errorf("%w: unknown method kind %q", domain.ErrReadDatabaseRow, mr.Kind)
}
