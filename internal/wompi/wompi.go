// Package wompi models the Wompi PSE payment gateway: transactions, signed
// webhook events and an in-memory simulator standing in for the real API.
package wompi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Transaction statuses reported by the gateway.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusDeclined = "DECLINED"
	StatusVoided   = "VOIDED"
	StatusError    = "ERROR"
)

const (
	CurrencyCOP   = "COP"
	MethodPSE     = "PSE"
	EventUpdated  = "transaction.updated"
	centsPerPeso  = 100
	referenceHead = "REF-"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotPending          = errors.New("transaction is not pending")
	ErrInvalidStatus       = errors.New("invalid transaction status")
)

// Transaction is the gateway's view of a payment attempt.
type Transaction struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"`
	Reference         string    `json:"reference"`
	AmountInCents     int64     `json:"amount_in_cents"`
	Currency          string    `json:"currency"`
	PaymentMethodType string    `json:"payment_method_type"`
	CustomerEmail     string    `json:"customer_email"`
	CustomerName      string    `json:"customer_name,omitempty"`
	RedirectURL       string    `json:"redirect_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Final reports whether the transaction reached a terminal status.
func (t Transaction) Final() bool {
	return t.Status != StatusPending
}

// PaymentRequest starts a transaction.
type PaymentRequest struct {
	AmountInCents int64
	Currency      string
	Reference     string
	CustomerEmail string
	CustomerName  string
	RedirectURL   string
}

// Provider is the subset of the gateway API the application uses.
type Provider interface {
	CreateTransaction(ctx context.Context, req PaymentRequest) (Transaction, error)
	GetTransaction(ctx context.Context, id string) (Transaction, error)
}

// AmountInCents converts a COP amount to the gateway's cents.
func AmountInCents(cop int64) int64 {
	return cop * centsPerPeso
}

// NewReference returns a unique payment reference of the form REF-<unix ms>-<random>.
func NewReference() string {
	return fmt.Sprintf("%s%d-%s", referenceHead, time.Now().UnixMilli(), uuid.NewString()[:8])
}
