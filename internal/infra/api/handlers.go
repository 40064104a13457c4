package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/domain/model"
	"netaccess-billing/internal/infra/metrics"
	"netaccess-billing/internal/usecase"
)

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Methods.Available(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]paymentDTO, 0, len(list))
	for _, p := range list {
		out = append(out, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	p, err := s.d.Methods.CreatePayment(r.Context(), actorFrom(r.Context()), req.DisplayName, req.AvailableForEveryone)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

func (s *Server) attachMethod(w http.ResponseWriter, r *http.Request) {
	var req attachMethodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	m, ok := req.method()
	if !ok {
		writeError(w, r, s.log, domain.ErrInvalidMethodSetting)
		return
	}
	if err := s.d.Methods.Attach(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "paymentID"), m); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Articles.List(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]articleDTO, 0, len(list))
	for _, a := range list {
		out = append(out, toArticleDTO(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	in := usecase.ArticleInput{
		Name:                  req.Name,
		UnitPrice:             req.UnitPrice,
		DurationMonths:        req.DurationMonths,
		EligibleUserType:      model.EligibleUserType(req.EligibleUserType),
		PurchasableByEveryone: req.PurchasableByEveryone,
	}
	if req.SubscriptionType != nil {
		st, err := model.ParseSubscriptionType(*req.SubscriptionType)
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		in.SubscriptionType = st
	}
	a, err := s.d.Articles.Create(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toArticleDTO(a))
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	actor := actorFrom(r.Context())
	in := usecase.CheckoutRequest{UserID: req.UserID, PaymentID: req.PaymentID, ExplicitStart: req.Start}
	if in.UserID == "" {
		in.UserID = actor.UserID
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, usecase.PurchaseLine{ArticleID: l.ArticleID, Quantity: l.Quantity})
	}
	inv, err := s.d.Invoices.Checkout(r.Context(), actor, in)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.d.Invoices.Get(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "invoiceID"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

func (s *Server) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := s.d.Invoices.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "invoiceID")); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setControlled(w http.ResponseWriter, r *http.Request) {
	var req controlledRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	err := s.d.Invoices.SetControlled(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "invoiceID"), req.Controlled)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) endPayment(w http.ResponseWriter, r *http.Request) {
	res, err := s.d.Payments.EndPayment(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "invoiceID"))
	if err != nil {
		metrics.IncPaymentEnd("error")
		writeError(w, r, s.log, err)
		return
	}
	metrics.IncPaymentEnd(string(res.Kind))
	writeJSON(w, http.StatusOK, toEndDTO(res))
}

func (s *Server) submitCheque(w http.ResponseWriter, r *http.Request) {
	var req chequeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	inv, err := s.d.Payments.SubmitCheque(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "invoiceID"), req.Bank, req.ChequeNumber)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

func (s *Server) createPurchase(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	p := &model.Purchase{
		ID:             uuid.NewString(),
		InvoiceID:      req.InvoiceID,
		ArticleName:    req.ArticleName,
		UnitPrice:      req.UnitPrice.Round(2),
		Quantity:       req.Quantity,
		DurationMonths: req.DurationMonths,
		CreatedAt:      time.Now(),
	}
	if req.SubscriptionType != nil {
		st, err := model.ParseSubscriptionType(*req.SubscriptionType)
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		p.SubscriptionType = st
	}
	created, err := s.d.Purchases.Create(r.Context(), actorFrom(r.Context()), p, req.Start)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPurchaseDTO(created))
}

func (s *Server) updatePurchase(w http.ResponseWriter, r *http.Request) {
	var req updatePurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	upd := usecase.PurchaseUpdate{
		ArticleName:    req.ArticleName,
		UnitPrice:      req.UnitPrice,
		Quantity:       req.Quantity,
		DurationMonths: req.DurationMonths,
	}
	p, err := s.d.Purchases.Update(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "purchaseID"), upd)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPurchaseDTO(p))
}

func (s *Server) deletePurchase(w http.ResponseWriter, r *http.Request) {
	if err := s.d.Purchases.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "purchaseID")); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) userInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Invoices.ListByUser(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]invoiceDTO, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceDTO(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) userIntervals(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Invoices.Intervals(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	now := time.Now()
	out := make([]intervalDTO, 0, len(list))
	for _, iv := range list {
		out = append(out, toIntervalDTO(iv, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) userBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	b, err := s.d.Balances.Balance(r.Context(), actorFrom(r.Context()), userID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newBalanceDTO(userID, b))
}

func (s *Server) creditBalance(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	userID := chi.URLParam(r, "userID")
	b, err := s.d.Balances.Credit(r.Context(), actorFrom(r.Context()), userID, req.Amount)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newBalanceDTO(userID, b))
}
