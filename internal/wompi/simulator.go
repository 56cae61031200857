package wompi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Simulator is an in-memory Provider. Transactions start PENDING and are
// settled with Resolve, which returns the signed webhook event the real
// gateway would send.
type Simulator struct {
	mu     sync.Mutex
	txs    map[string]Transaction
	secret string
	now    func() time.Time
}

var _ Provider = (*Simulator)(nil)

func NewSimulator(eventsSecret string) *Simulator {
	return &Simulator{
		txs:    make(map[string]Transaction),
		secret: eventsSecret,
		now:    time.Now,
	}
}

func (s *Simulator) CreateTransaction(ctx context.Context, req PaymentRequest) (Transaction, error) {
	if err := ctx.Err(); err != nil {
		return Transaction{}, err
	}
	if req.AmountInCents <= 0 {
		return Transaction{}, fmt.Errorf("create transaction: amount must be positive")
	}
	if req.Reference == "" {
		return Transaction{}, fmt.Errorf("create transaction: reference is required")
	}
	currency := req.Currency
	if currency == "" {
		currency = CurrencyCOP
	}

	tx := Transaction{
		ID:                "WOMPI-" + uuid.NewString(),
		Status:            StatusPending,
		Reference:         req.Reference,
		AmountInCents:     req.AmountInCents,
		Currency:          currency,
		PaymentMethodType: MethodPSE,
		CustomerEmail:     req.CustomerEmail,
		CustomerName:      req.CustomerName,
		RedirectURL:       req.RedirectURL,
		CreatedAt:         s.now().UTC(),
	}

	s.mu.Lock()
	s.txs[tx.ID] = tx
	s.mu.Unlock()
	return tx, nil
}

func (s *Simulator) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	if err := ctx.Err(); err != nil {
		return Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok {
		return Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
	}
	return tx, nil
}

// Resolve settles a pending transaction with a terminal status and returns
// the signed transaction.updated event.
func (s *Simulator) Resolve(id, status string) (Event, error) {
	switch status {
	case StatusApproved, StatusDeclined, StatusVoided, StatusError:
	default:
		return Event{}, fmt.Errorf("resolve %s to %q: %w", id, status, ErrInvalidStatus)
	}

	s.mu.Lock()
	tx, ok := s.txs[id]
	if !ok {
		s.mu.Unlock()
		return Event{}, fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
	}
	if tx.Final() {
		s.mu.Unlock()
		return Event{}, fmt.Errorf("transaction %s is %s: %w", id, tx.Status, ErrNotPending)
	}
	tx.Status = status
	s.txs[id] = tx
	s.mu.Unlock()

	return NewEvent(tx, s.secret, s.now())
}
