//go:build !integration

package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/usecase"
)

func TestArticleUseCase(t *testing.T) {
	ctx := context.Background()
	catalog := newArticleCatalog()
	uc := usecase.NewArticleUseCase(catalog, newTestLogger())
	admin := usecase.Actor{UserID: "admin", IsAdmin: true}
	member := usecase.Actor{UserID: "u1"}

	t.Run("members do not see restricted articles", func(t *testing.T) {
		list, err := uc.List(ctx, member)
		require.NoError(t, err)
		assert.Len(t, list, 3)
		for i := 1; i < len(list); i++ {
			assert.LessOrEqual(t, list[i-1].Name, list[i].Name)
		}

		all, err := uc.List(ctx, admin)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("create is admin only and validated", func(t *testing.T) {
		six := 6
		in := usecase.ArticleInput{Name: "Connexion 6 mois", UnitPrice: d("25.00"), DurationMonths: &six, SubscriptionType: stp(model.SubscriptionConnection), EligibleUserType: model.EligibleBoth, PurchasableByEveryone: true}

		_, err := uc.Create(ctx, member, in)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		a, err := uc.Create(ctx, admin, in)
		require.NoError(t, err)
		assert.Contains(t, catalog, a.ID)

		in.DurationMonths = nil
		_, err = uc.Create(ctx, admin, in)
		assert.ErrorIs(t, err, domain.ErrDurationRequiredForSubscription)
	})
}
