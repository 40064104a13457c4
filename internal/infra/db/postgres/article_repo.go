package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
)

var _ repository.ArticleRepository = (*articleRepo)(nil)

type articleRepo struct{ pool *pgxpool.Pool }

func NewArticleRepo(pool *pgxpool.Pool) *articleRepo {
	return &articleRepo{pool: pool}
}

const articleColumns = `id, name, unit_price, duration_months, subscription_type, eligible_user_type, purchasable_by_everyone, created_at`

func (r *articleRepo) Save(ctx context.Context, tx repository.Tx, a *model.Article) error {
	const q = `
INSERT INTO articles (` + articleColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=$2, unit_price=$3, duration_months=$4, subscription_type=$5, eligible_user_type=$6, purchasable_by_everyone=$7;`
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.Name, a.UnitPrice, a.DurationMonths, subTypeArg(a.SubscriptionType),
		string(a.EligibleUserType), a.PurchasableByEveryone, a.CreatedAt)
	return err
}

func (r *articleRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Article, error) {
	var a model.Article
	err := queryRow(ctx, r.pool, tx, `SELECT `+articleColumns+` FROM articles WHERE id=$1`, func(row pgx.Row) error {
		return scanArticle(row, &a)
	}, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *articleRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Article, error) {
	var out []*model.Article
	err := queryAll(ctx, r.pool, tx, `SELECT `+articleColumns+` FROM articles ORDER BY name`, func(rows pgx.Rows) error {
		a := new(model.Article)
		if err := scanArticle(rows, a); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

func scanArticle(row pgx.Row, a *model.Article) error {
	var st *string
	var eligible string
	if err := row.Scan(&a.ID, &a.Name, &a.UnitPrice, &a.DurationMonths, &st, &eligible, &a.PurchasableByEveryone, &a.CreatedAt); err != nil {
		return err
	}
	t, err := parseSubType(st)
	if err != nil {
		return err
	}
	a.SubscriptionType = t
	a.EligibleUserType = model.EligibleUserType(eligible)
	return nil
}

// subTypeArg stores a nil subscription type as SQL NULL.
func subTypeArg(t *model.SubscriptionType) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

func parseSubType(s *string) (*model.SubscriptionType, error) {
	if s == nil {
		return nil, nil
	}
	return model.ParseSubscriptionType(*s)
}
