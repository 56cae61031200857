package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/exequial/internal/cotizacion"
	"github.com/Simplici0/exequial/internal/pricing"
	"github.com/Simplici0/exequial/internal/store"
)

type quoteCalculation struct {
	PricedOn  string            `json:"fecha_cotizacion"`
	Breakdown pricing.Breakdown `json:"desglose"`
}

type quoteStatusRequest struct {
	Estado string `json:"estado" validate:"required,oneof=pendiente asesoria rechazada"`
}

func (s *server) priceRequest(req quotationRequest) (cotizacion.Quotation, pricing.Breakdown, time.Time, error) {
	today := s.today()
	q, err := req.toQuotation(today)
	if err != nil {
		return cotizacion.Quotation{}, pricing.Breakdown{}, today, err
	}
	b, err := cotizacion.Price(q, today)
	if err != nil {
		return cotizacion.Quotation{}, pricing.Breakdown{}, today, err
	}
	s.metrics.QuotesPriced.Inc()
	return q, b, today, nil
}

func (s *server) handleQuoteCalculate(w http.ResponseWriter, r *http.Request) {
	var req quotationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	_, b, today, err := s.priceRequest(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteCalculation{PricedOn: today.Format(time.DateOnly), Breakdown: b})
}

func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	claims := sessionClaims(ctx)

	resellerID, err := s.resellerScope(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if resellerID == "" && req.TenderoID != "" {
		if _, err := s.store.GetReseller(ctx, req.TenderoID); err != nil {
			s.writeError(w, r, err)
			return
		}
		resellerID = req.TenderoID
	}
	if req.ClienteID != "" {
		if _, err := s.clientVisible(r, req.ClienteID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	q, b, today, err := s.priceRequest(req.quotation())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	quote, err := s.store.CreateQuote(ctx, store.NewQuote{
		ResellerID:    resellerID,
		ClientID:      req.ClienteID,
		CreatedBy:     claims.UserID,
		CreatedByRole: claims.Role,
		Composition:   q,
		PricedOn:      today,
		Breakdown:     b,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.QuotesCreated.Inc()
	s.logger.Info("quote created", "quote_id", quote.ID, "reseller_id", resellerID, "total", b.TotalPrice)
	writeJSON(w, http.StatusCreated, quote)
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	resellerID, err := s.resellerScope(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := store.QuoteStatus(r.URL.Query().Get("estado"))
	if status != "" && !status.Valid() {
		s.writeError(w, r, store.ErrInvalidStatus)
		return
	}

	quotes, err := s.store.ListQuotes(r.Context(), store.QuoteFilter{ResellerID: resellerID, Status: status})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	q, err := s.quoteVisible(r, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleQuoteStatus(w http.ResponseWriter, r *http.Request) {
	var req quoteStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	q, err := s.store.UpdateQuoteStatus(r.Context(), chi.URLParam(r, "id"), store.QuoteStatus(req.Estado))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleDirectSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	seller, err := s.store.GetUserByID(ctx, sessionClaims(ctx).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.sales.DirectSale(ctx, chi.URLParam(r, "id"), seller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// quoteVisible loads a quote, hiding other resellers' quotes from a reseller.
func (s *server) quoteVisible(r *http.Request, id string) (store.Quote, error) {
	q, err := s.store.GetQuote(r.Context(), id)
	if err != nil {
		return store.Quote{}, err
	}
	resellerID, err := s.resellerScope(r.Context())
	if err != nil {
		return store.Quote{}, err
	}
	if resellerID != "" && q.ResellerID != resellerID {
		return store.Quote{}, errForbidden
	}
	return q, nil
}
