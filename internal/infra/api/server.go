package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"netaccess-billing/internal/infra/i18n"
	"netaccess-billing/internal/infra/metrics"
	"netaccess-billing/internal/usecase"
)

// Deps lists what the HTTP layer serves.
type Deps struct {
	Invoices      usecase.InvoiceUseCase
	Purchases     usecase.PurchaseUseCase
	Payments      usecase.PaymentUseCase
	Notifications usecase.NotificationUseCase
	Methods       usecase.PaymentMethodUseCase
	Balances      usecase.BalanceUseCase
	Articles      usecase.ArticleUseCase

	Auth       *AuthManager
	Translator *i18n.Translator

	// Limiter is optional; NotifyLimit is per source address per minute.
	Limiter     RateLimiter
	LimitKey    func(ip string) string
	NotifyLimit int

	Timeout time.Duration
}

type Server struct {
	d   Deps
	log *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "api").Logger()
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}
	if d.LimitKey == nil {
		d.LimitKey = func(ip string) string { return ip }
	}
	return &Server{d: d, log: &l}
}

// Router returns the full handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(s.d.Timeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/payments/gateway/{methodID}", func(r chi.Router) {
		r.With(RateLimit(s.d.Limiter, s.d.LimitKey, s.d.NotifyLimit, s.log)).
			Post("/notify", s.notify)
		r.Get("/accept", s.page("accept"))
		r.Get("/refuse", s.page("refuse"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(s.d.Auth))

		r.Get("/payments", s.listPayments)
		r.Post("/payments", s.createPayment)
		r.Put("/payments/{paymentID}/method", s.attachMethod)

		r.Get("/articles", s.listArticles)
		r.Post("/articles", s.createArticle)

		r.Post("/invoices", s.checkout)
		r.Get("/invoices/{invoiceID}", s.getInvoice)
		r.Delete("/invoices/{invoiceID}", s.deleteInvoice)
		r.Put("/invoices/{invoiceID}/controlled", s.setControlled)
		r.Post("/invoices/{invoiceID}/end", s.endPayment)
		r.Post("/invoices/{invoiceID}/cheque", s.submitCheque)

		r.Post("/purchases", s.createPurchase)
		r.Patch("/purchases/{purchaseID}", s.updatePurchase)
		r.Delete("/purchases/{purchaseID}", s.deletePurchase)

		r.Get("/users/{userID}/invoices", s.userInvoices)
		r.Get("/users/{userID}/intervals", s.userIntervals)
		r.Get("/users/{userID}/balance", s.userBalance)
		r.Post("/users/{userID}/balance/credit", s.creditBalance)
	})
	return r
}
