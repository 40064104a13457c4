package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"netaccess-billing/internal/config"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/domain/ports/repository"
	pg "netaccess-billing/internal/infra/db/postgres"
	"netaccess-billing/internal/infra/logging"
	"netaccess-billing/internal/infra/security"
	"netaccess-billing/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	adminEmail := flag.String("admin-email", "treasurer@example.org", "email of the seeded admin account")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}

	encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}
	tm := pg.NewTxManager(pool)
	users := pg.NewUserRepo(pool)
	articleUC := usecase.NewArticleUseCase(pg.NewArticleRepo(pool), logger)
	methodUC := usecase.NewPaymentMethodUseCase(pg.NewPaymentRepo(pool), pg.NewPaymentMethodRepo(pool, encSvc), tm, logger)
	admin := usecase.Actor{UserID: "seed", IsAdmin: true}

	// If the catalog already exists, do nothing
	existing, err := articleUC.List(ctx, admin)
	if err != nil {
		logger.Fatal().Err(err).Msg("list articles")
	}
	if len(existing) > 0 {
		fmt.Printf("%d articles already present. No changes.\n", len(existing))
		for _, a := range existing {
			fmt.Printf("  - %s (price=%s)\n", a.Name, a.UnitPrice.StringFixed(2))
		}
		return
	}

	u, err := model.NewUser("", "treasurer", *adminEmail, model.UserTypeMember)
	if err != nil {
		logger.Fatal().Err(err).Msg("admin user")
	}
	u.IsAdmin = true
	if err := users.Save(ctx, repository.NoTX, u); err != nil {
		logger.Fatal().Err(err).Msg("save admin user")
	}
	fmt.Printf("seeded admin user %s (id=%s)\n", u.Email, u.ID)

	months := func(n int) *int { return &n }
	sub := func(t model.SubscriptionType) *model.SubscriptionType { return &t }
	articles := []usecase.ArticleInput{
		{Name: "Membership (1 year)", UnitPrice: decimal.RequireFromString("10.00"), DurationMonths: months(12), SubscriptionType: sub(model.SubscriptionMembership), EligibleUserType: model.EligibleBoth, PurchasableByEveryone: true},
		{Name: "Connection (1 month)", UnitPrice: decimal.RequireFromString("5.00"), DurationMonths: months(1), SubscriptionType: sub(model.SubscriptionConnection), EligibleUserType: model.EligibleMember, PurchasableByEveryone: true},
		{Name: "Membership + connection (1 month)", UnitPrice: decimal.RequireFromString("6.00"), DurationMonths: months(1), SubscriptionType: sub(model.SubscriptionBoth), EligibleUserType: model.EligibleMember, PurchasableByEveryone: true},
		{Name: "Ethernet cable", UnitPrice: decimal.RequireFromString("3.00"), EligibleUserType: model.EligibleBoth},
	}
	for _, in := range articles {
		a, err := articleUC.Create(ctx, admin, in)
		if err != nil {
			logger.Fatal().Err(err).Str("article", in.Name).Msg("create article")
		}
		fmt.Printf("seeded article: %s (id=%s, price=%s)\n", a.Name, a.ID, a.UnitPrice.StringFixed(2))
	}

	payments := []struct {
		Name     string
		Everyone bool
		Method   model.PaymentMethod
	}{
		{"Cash", false, nil},
		{"Cheque", true, &model.ChequeMethod{}},
		{"Prepaid balance", true, &model.BalanceMethod{MinimumBalance: decimal.Zero}},
	}
	for _, s := range payments {
		p, err := methodUC.CreatePayment(ctx, admin, s.Name, s.Everyone)
		if err != nil {
			logger.Fatal().Err(err).Str("payment", s.Name).Msg("create payment")
		}
		if s.Method != nil {
			if err := methodUC.Attach(ctx, admin, p.ID, s.Method); err != nil {
				logger.Fatal().Err(err).Str("payment", s.Name).Msg("attach method")
			}
		}
		fmt.Printf("seeded payment: %s (id=%s)\n", p.DisplayName, p.ID)
	}

	fmt.Println("Seeding complete.")
}
