package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	// FindByID locks the row when tx is a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// AdjustBalance adds delta (possibly negative) and returns the new balance.
	AdjustBalance(ctx context.Context, tx Tx, id string, delta decimal.Decimal) (decimal.Decimal, error)
}
