package usecase

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ ArticleUseCase = (*articleUC)(nil)

type ArticleInput struct {
	Name                  string
	UnitPrice             decimal.Decimal
	DurationMonths        *int
	SubscriptionType      *model.SubscriptionType
	EligibleUserType      model.EligibleUserType
	PurchasableByEveryone bool
}

type ArticleUseCase interface {
	Create(ctx context.Context, actor Actor, in ArticleInput) (*model.Article, error)
	// List returns the catalog sorted by name; members only see articles
	// open to everyone.
	List(ctx context.Context, actor Actor) ([]*model.Article, error)
}

type articleUC struct {
	articles repository.ArticleRepository
	log      *zerolog.Logger
}

func NewArticleUseCase(articles repository.ArticleRepository, logger *zerolog.Logger) *articleUC {
	l := logger.With().Str("component", "articles").Logger()
	return &articleUC{articles: articles, log: &l}
}

func (u *articleUC) Create(ctx context.Context, actor Actor, in ArticleInput) (*model.Article, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	a, err := model.NewArticle(in.Name, in.UnitPrice, in.DurationMonths, in.SubscriptionType, in.EligibleUserType, in.PurchasableByEveryone)
	if err != nil {
		return nil, err
	}
	if err := u.articles.Save(ctx, repository.NoTX, a); err != nil {
		return nil, err
	}
	u.log.Info().Str("article_id", a.ID).Str("name", a.Name).Msg("article created")
	return a, nil
}

func (u *articleUC) List(ctx context.Context, actor Actor) ([]*model.Article, error) {
	all, err := u.articles.List(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Article, 0, len(all))
	for _, a := range all {
		if actor.IsAdmin || a.PurchasableByEveryone {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
