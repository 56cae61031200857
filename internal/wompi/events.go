package wompi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var ErrInvalidSignature = errors.New("invalid event signature")

// DefaultProperties are the transaction fields covered by an event checksum.
var DefaultProperties = []string{"transaction.id", "transaction.status", "transaction.amount_in_cents"}

// Event is a webhook notification sent by the gateway.
type Event struct {
	Event       string    `json:"event"`
	Data        EventData `json:"data"`
	Environment string    `json:"environment"`
	Signature   Signature `json:"signature"`
	Timestamp   int64     `json:"timestamp"`
	SentAt      time.Time `json:"sent_at"`
}

type EventData struct {
	Transaction Transaction `json:"transaction"`
}

type Signature struct {
	Properties []string `json:"properties"`
	Checksum   string   `json:"checksum"`
}

// NewEvent builds a transaction.updated event for tx signed with secret.
func NewEvent(tx Transaction, secret string, at time.Time) (Event, error) {
	ev := Event{
		Event:       EventUpdated,
		Data:        EventData{Transaction: tx},
		Environment: "test",
		Signature:   Signature{Properties: append([]string(nil), DefaultProperties...)},
		Timestamp:   at.Unix(),
		SentAt:      at.UTC(),
	}
	sum, err := Checksum(ev, secret)
	if err != nil {
		return Event{}, err
	}
	ev.Signature.Checksum = sum
	return ev, nil
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("decode wompi event: %w", err)
	}
	if ev.Event == "" {
		return Event{}, errors.New("decode wompi event: missing event name")
	}
	return ev, nil
}

// Checksum is the SHA-256 hex digest of the signed property values, the
// timestamp and the events secret, concatenated in that order.
func Checksum(ev Event, secret string) (string, error) {
	var b strings.Builder
	for _, prop := range ev.Signature.Properties {
		v, err := propertyValue(ev.Data.Transaction, prop)
		if err != nil {
			return "", err
		}
		b.WriteString(v)
	}
	b.WriteString(strconv.FormatInt(ev.Timestamp, 10))
	b.WriteString(secret)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

// VerifyEvent checks the event checksum. An empty secret disables verification.
func VerifyEvent(ev Event, secret string) error {
	if secret == "" {
		return nil
	}
	if len(ev.Signature.Properties) == 0 || ev.Signature.Checksum == "" {
		return ErrInvalidSignature
	}
	want, err := Checksum(ev, secret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	got := strings.ToLower(ev.Signature.Checksum)
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

func propertyValue(tx Transaction, prop string) (string, error) {
	switch prop {
	case "transaction.id":
		return tx.ID, nil
	case "transaction.status":
		return tx.Status, nil
	case "transaction.amount_in_cents":
		return strconv.FormatInt(tx.AmountInCents, 10), nil
	case "transaction.reference":
		return tx.Reference, nil
	case "transaction.currency":
		return tx.Currency, nil
	case "transaction.payment_method_type":
		return tx.PaymentMethodType, nil
	case "transaction.customer_email":
		return tx.CustomerEmail, nil
	default:
		return "", fmt.Errorf("unsupported signature property %q", prop)
	}
}
