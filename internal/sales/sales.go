// Package sales turns approved payments into recorded sales and reseller
// commissions.
package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Simplici0/exequial/internal/cotizacion"
	"github.com/Simplici0/exequial/internal/metrics"
	"github.com/Simplici0/exequial/internal/store"
	"github.com/Simplici0/exequial/internal/wompi"
)

var (
	ErrAmountMismatch        = errors.New("paid amount does not match quote total")
	ErrAlreadyPaid           = errors.New("quote already paid")
	ErrUnverifiedTransaction = errors.New("transaction does not match the gateway record")
	ErrUnsignedEvents        = errors.New("events secret not configured")
)

// Store is the persistence the service needs.
type Store interface {
	GetQuote(ctx context.Context, id string) (store.Quote, error)
	RecordSale(ctx context.Context, rec store.SaleRecord, commission store.CommissionFunc) (store.SaleResult, error)
	GetSaleByReference(ctx context.Context, reference string) (store.Sale, error)
}

// Result reports what happened to a payment notification.
type Result struct {
	Outcome string
	Sale    *store.SaleResult
}

// Service records sales from gateway notifications and call-center closings.
type Service struct {
	store        Store
	provider     wompi.Provider
	metrics      *metrics.Metrics
	logger       *slog.Logger
	eventsSecret  string
	allowUnsigned bool
	redirectURL   string
}

// Options configures a Service.
type Options struct {
	EventsSecret string
	// AllowUnsigned accepts events without a checksum when EventsSecret is
	// empty. Only for local development.
	AllowUnsigned bool
	RedirectURL   string
	Logger        *slog.Logger
}

func NewService(st Store, provider wompi.Provider, m *metrics.Metrics, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:         st,
		provider:      provider,
		metrics:       m,
		logger:        logger,
		eventsSecret:  opts.EventsSecret,
		allowUnsigned: opts.AllowUnsigned,
		redirectURL:   opts.RedirectURL,
	}
}

// Commission is the reseller commission of a stored quote, recomputed from its
// stored composition at the date it was priced.
func Commission(q store.Quote) (int64, error) {
	b, err := cotizacion.Price(q.Composition, q.PricedOn)
	if err != nil {
		return 0, fmt.Errorf("reprice quote %s: %w", q.ID, err)
	}
	return b.CommissionToReseller, nil
}

// StartPayment opens a gateway transaction for the quote total. The quote id
// is the payment reference.
func (s *Service) StartPayment(ctx context.Context, quoteID string) (wompi.Transaction, error) {
	q, err := s.store.GetQuote(ctx, quoteID)
	if err != nil {
		return wompi.Transaction{}, err
	}
	if q.Status == store.QuotePaid {
		return wompi.Transaction{}, fmt.Errorf("quote %s: %w", q.ID, ErrAlreadyPaid)
	}

	tx, err := s.provider.CreateTransaction(ctx, wompi.PaymentRequest{
		AmountInCents: wompi.AmountInCents(q.Breakdown.TotalPrice),
		Currency:      wompi.CurrencyCOP,
		Reference:     q.ID,
		CustomerEmail: q.Composition.Holder.Email,
		CustomerName:  q.Composition.Holder.Name,
		RedirectURL:   s.redirectURL,
	})
	if err != nil {
		return wompi.Transaction{}, fmt.Errorf("create wompi transaction: %w", err)
	}

	s.logger.Info("payment started", "quote_id", q.ID, "transaction_id", tx.ID, "amount_in_cents", tx.AmountInCents)
	return tx, nil
}

// HandleEvent verifies a webhook event and confirms the transaction it carries.
func (s *Service) HandleEvent(ctx context.Context, ev wompi.Event) (Result, error) {
	if s.eventsSecret == "" && !s.allowUnsigned {
		s.metrics.WebhookEvents.WithLabelValues(metrics.OutcomeInvalid).Inc()
		s.logger.Error("wompi event rejected, events secret not configured", "event", ev.Event)
		return Result{Outcome: metrics.OutcomeInvalid}, fmt.Errorf("%w: %w", ErrUnsignedEvents, wompi.ErrInvalidSignature)
	}
	if err := wompi.VerifyEvent(ev, s.eventsSecret); err != nil {
		s.metrics.WebhookEvents.WithLabelValues(metrics.OutcomeInvalid).Inc()
		s.logger.Warn("wompi event rejected", "event", ev.Event, "error", err)
		return Result{Outcome: metrics.OutcomeInvalid}, err
	}
	if ev.Event != wompi.EventUpdated {
		s.metrics.WebhookEvents.WithLabelValues(metrics.OutcomeIgnored).Inc()
		s.logger.Info("wompi event ignored", "event", ev.Event)
		return Result{Outcome: metrics.OutcomeIgnored}, nil
	}
	return s.ConfirmPayment(ctx, ev.Data.Transaction)
}

// ConfirmPayment records a sale for an approved transaction. The transaction
// must exist at the gateway with the same status, reference and amount. Other
// statuses leave the quote untouched. Replaying an already recorded
// transaction is a no-op.
func (s *Service) ConfirmPayment(ctx context.Context, tx wompi.Transaction) (Result, error) {
	switch tx.Status {
	case wompi.StatusApproved:
	case wompi.StatusPending:
		s.metrics.WebhookEvents.WithLabelValues(metrics.OutcomeIgnored).Inc()
		return Result{Outcome: metrics.OutcomeIgnored}, nil
	default:
		s.metrics.WebhookEvents.WithLabelValues(metrics.OutcomeDeclined).Inc()
		s.logger.Warn("payment not approved", "transaction_id", tx.ID, "reference", tx.Reference, "status", tx.Status)
		return Result{Outcome: metrics.OutcomeDeclined}, nil
	}

	if err := s.verify(ctx, tx); err != nil {
		return Result{Outcome: metrics.OutcomeInvalid}, err
	}

	q, err := s.store.GetQuote(ctx, tx.Reference)
	if err != nil {
		return Result{}, fmt.Errorf("quote for reference %s: %w", tx.Reference, err)
	}
	expected := wompi.AmountInCents(q.Breakdown.TotalPrice)
	if tx.AmountInCents != expected {
		s.logger.Error("payment amount mismatch", "quote_id", q.ID, "amount_in_cents", tx.AmountInCents, "expected_in_cents", expected)
		return Result{}, fmt.Errorf("quote %s paid %d cents: %w", q.ID, tx.AmountInCents, ErrAmountMismatch)
	}

	res, err := s.store.RecordSale(ctx, store.SaleRecord{
		QuoteID:       q.ID,
		Amount:        q.Breakdown.TotalPrice,
		Method:        store.MethodWompi,
		PaymentStatus: tx.Status,
		Reference:     tx.ID,
		SoldBy:        q.CreatedBy,
	}, Commission)
	if err != nil {
		return Result{}, fmt.Errorf("record wompi sale: %w", err)
	}

	if !res.Created {
		s.metrics.WebhookEvents.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		s.logger.Info("payment already recorded", "transaction_id", tx.ID, "sale_id", res.Sale.ID)
		return Result{Outcome: metrics.OutcomeDuplicate, Sale: &res}, nil
	}

	s.metrics.WebhookEvents.WithLabelValues(metrics.OutcomeRecorded).Inc()
	s.observe(res)
	return Result{Outcome: metrics.OutcomeRecorded, Sale: &res}, nil
}

// verify checks tx against the gateway's own record of it.
func (s *Service) verify(ctx context.Context, tx wompi.Transaction) error {
	gw, err := s.provider.GetTransaction(ctx, tx.ID)
	if err != nil {
		if errors.Is(err, wompi.ErrTransactionNotFound) {
			s.metrics.WebhookEvents.WithLabelValues(metrics.OutcomeInvalid).Inc()
			s.logger.Warn("payment for unknown transaction", "transaction_id", tx.ID, "reference", tx.Reference)
			return fmt.Errorf("transaction %s: %w", tx.ID, ErrUnverifiedTransaction)
		}
		return fmt.Errorf("get wompi transaction %s: %w", tx.ID, err)
	}
	if gw.Status != tx.Status || gw.Reference != tx.Reference || gw.AmountInCents != tx.AmountInCents {
		s.metrics.WebhookEvents.WithLabelValues(metrics.OutcomeInvalid).Inc()
		s.logger.Warn("payment does not match gateway",
			"transaction_id", tx.ID,
			"status", tx.Status, "gateway_status", gw.Status,
			"reference", tx.Reference, "gateway_reference", gw.Reference,
			"amount_in_cents", tx.AmountInCents, "gateway_amount_in_cents", gw.AmountInCents)
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrUnverifiedTransaction)
	}
	return nil
}

// PaymentStatus returns the gateway's view of a transaction and the sale it
// produced, if any.
func (s *Service) PaymentStatus(ctx context.Context, txID string) (wompi.Transaction, *store.Sale, error) {
	tx, err := s.provider.GetTransaction(ctx, txID)
	if err != nil {
		return wompi.Transaction{}, nil, err
	}
	sale, err := s.store.GetSaleByReference(ctx, tx.ID)
	switch {
	case err == nil:
		return tx, &sale, nil
	case errors.Is(err, store.ErrNotFound):
		return tx, nil, nil
	default:
		return wompi.Transaction{}, nil, err
	}
}

// DirectSale closes a quote sold over the phone by seller.
func (s *Service) DirectSale(ctx context.Context, quoteID string, seller store.User) (store.SaleResult, error) {
	q, err := s.store.GetQuote(ctx, quoteID)
	if err != nil {
		return store.SaleResult{}, err
	}
	if q.Status == store.QuotePaid {
		return store.SaleResult{}, fmt.Errorf("quote %s: %w", q.ID, ErrAlreadyPaid)
	}

	res, err := s.store.RecordSale(ctx, store.SaleRecord{
		QuoteID:       q.ID,
		Amount:        q.Breakdown.TotalPrice,
		Method:        store.MethodDirect,
		PaymentStatus: wompi.StatusApproved,
		Reference:     wompi.NewReference(),
		SoldBy:        seller.ID,
	}, Commission)
	if err != nil {
		return store.SaleResult{}, fmt.Errorf("record direct sale: %w", err)
	}
	s.observe(res)
	return res, nil
}

func (s *Service) observe(res store.SaleResult) {
	s.metrics.SalesRecorded.WithLabelValues(res.Sale.Method).Inc()
	attrs := []any{"sale_id", res.Sale.ID, "quote_id", res.Sale.QuoteID, "method", res.Sale.Method, "amount", res.Sale.Amount}
	if res.Commission != nil {
		s.metrics.CommissionsCOP.Add(float64(res.Commission.Amount))
		attrs = append(attrs, "reseller_id", res.Commission.ResellerID, "commission", res.Commission.Amount)
	}
	s.logger.Info("sale recorded", attrs...)
}
