package main

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/exequial/internal/store"
	"github.com/Simplici0/exequial/internal/wompi"
)

type paymentRequest struct {
	CotizacionID string `json:"cotizacion_id" validate:"required"`
}

type paymentResponse struct {
	Transaction wompi.Transaction `json:"transaccion"`
	PublicKey   string            `json:"public_key,omitempty"`
}

type paymentStatusResponse struct {
	Transaction wompi.Transaction `json:"transaccion"`
	Sale        *store.Sale       `json:"venta,omitempty"`
}

type simulateRequest struct {
	Estado string `json:"estado" validate:"required,oneof=APPROVED DECLINED ERROR VOIDED"`
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

func (s *server) handlePaymentStart(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.quoteVisible(r, req.CotizacionID); err != nil {
		s.writeError(w, r, err)
		return
	}

	tx, err := s.sales.StartPayment(r.Context(), req.CotizacionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentResponse{Transaction: tx, PublicKey: s.cfg.Wompi.PublicKey})
}

// handlePaymentStatus backs the confirmation page the gateway redirects to.
func (s *server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	tx, sale, err := s.sales.PaymentStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.quoteVisible(r, tx.Reference); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentStatusResponse{Transaction: tx, Sale: sale})
}

// handlePaymentSimulate settles a simulated transaction and feeds the signed
// event through the same path as the webhook.
func (s *server) handlePaymentSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ev, err := s.gateway.Resolve(chi.URLParam(r, "id"), req.Estado)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.sales.HandleEvent(r.Context(), ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, webhookResponse{Received: true, Outcome: res.Outcome})
}

func (s *server) handleWompiWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, badRequest("No se pudo leer la solicitud"))
		return
	}

	ev, err := wompi.ParseEvent(body)
	if err != nil {
		s.writeError(w, r, badRequest("Evento inválido"))
		return
	}

	res, err := s.sales.HandleEvent(r.Context(), ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, webhookResponse{Received: true, Outcome: res.Outcome})
}
