package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Simplici0/exequial/internal/cotizacion"
	"github.com/Simplici0/exequial/internal/pricing"
)

// QuoteStatus is the lifecycle state of a quotation.
type QuoteStatus string

const (
	QuotePending  QuoteStatus = "pendiente"
	QuoteAdvisory QuoteStatus = "asesoria"
	QuotePaid     QuoteStatus = "pagada"
	QuoteRejected QuoteStatus = "rechazada"
)

// Valid reports whether st is a known status.
func (st QuoteStatus) Valid() bool {
	switch st {
	case QuotePending, QuoteAdvisory, QuotePaid, QuoteRejected:
		return true
	}
	return false
}

// Quote is a persisted quotation with its composition and the breakdown
// computed when it was created.
type Quote struct {
	ID            string               `json:"id"`
	ResellerID    string               `json:"tendero_id,omitempty"`
	ClientID      string               `json:"cliente_id,omitempty"`
	CreatedBy     string               `json:"created_by"`
	CreatedByRole Role                 `json:"created_by_role"`
	Composition   cotizacion.Quotation `json:"composicion"`
	PricedOn      time.Time            `json:"priced_on"`
	Breakdown     pricing.Breakdown    `json:"desglose"`
	Status        QuoteStatus          `json:"estado"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewQuote is the input to CreateQuote. The creator's identity is passed
// explicitly by the caller.
type NewQuote struct {
	ResellerID    string
	ClientID      string
	CreatedBy     string
	CreatedByRole Role
	Composition   cotizacion.Quotation
	PricedOn      time.Time
	Breakdown     pricing.Breakdown
}

// QuoteFilter narrows ListQuotes. Zero fields match everything.
type QuoteFilter struct {
	ResellerID string
	Status     QuoteStatus
}

const quoteColumns = `id, tendero_id, cliente_id, created_by, created_by_role, composition_json,
	priced_on, breakdown_json, estado, created_at, updated_at`

// CreateQuote persists a priced quotation in the pending state.
func (s *Store) CreateQuote(ctx context.Context, in NewQuote) (Quote, error) {
	composition, err := json.Marshal(in.Composition)
	if err != nil {
		return Quote{}, fmt.Errorf("encode quote composition: %w", err)
	}
	breakdown, err := json.Marshal(in.Breakdown)
	if err != nil {
		return Quote{}, fmt.Errorf("encode quote breakdown: %w", err)
	}

	now := s.now().UTC()
	q := Quote{
		ID:            uuid.NewString(),
		ResellerID:    in.ResellerID,
		ClientID:      in.ClientID,
		CreatedBy:     in.CreatedBy,
		CreatedByRole: in.CreatedByRole,
		Composition:   in.Composition,
		PricedOn:      dateOnly(in.PricedOn),
		Breakdown:     in.Breakdown,
		Status:        QuotePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cotizaciones (
			id, tendero_id, cliente_id, created_by, created_by_role,
			composition_json, priced_on, breakdown_json,
			numero_personas, adultos_mayores, valor_total, estado, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		q.ID, nullable(q.ResellerID), nullable(q.ClientID), q.CreatedBy, string(q.CreatedByRole),
		string(composition), q.PricedOn.Format(time.DateOnly), string(breakdown),
		q.Breakdown.PersonCount, q.Breakdown.SeniorCount, q.Breakdown.TotalPrice, string(q.Status),
		now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return Quote{}, fmt.Errorf("insert quote: %w", err)
	}
	return q, nil
}

// GetQuote looks a quotation up by id.
func (s *Store) GetQuote(ctx context.Context, id string) (Quote, error) {
	return getQuote(ctx, s.db, id)
}

func getQuote(ctx context.Context, q querier, id string) (Quote, error) {
	quote, err := scanQuote(q.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM cotizaciones WHERE id = ?`, id))
	if err != nil {
		return Quote{}, notFound(err, "quote")
	}
	return quote, nil
}

// ListQuotes returns quotations matching f, newest first.
func (s *Store) ListQuotes(ctx context.Context, f QuoteFilter) ([]Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM cotizaciones WHERE 1 = 1`
	var args []any
	if f.ResellerID != "" {
		query += ` AND tendero_id = ?`
		args = append(args, f.ResellerID)
	}
	if f.Status != "" {
		query += ` AND estado = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	out := []Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return out, nil
}

// UpdateQuoteStatus moves a quotation to pendiente, asesoria or rechazada.
// Only a recorded sale marks a quote as paid, and a paid quote is final.
func (s *Store) UpdateQuoteStatus(ctx context.Context, id string, status QuoteStatus) (Quote, error) {
	if !status.Valid() || status == QuotePaid {
		return Quote{}, fmt.Errorf("quote status %q: %w", status, ErrInvalidStatus)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("begin quote status transaction: %w", err)
	}
	defer tx.Rollback()

	q, err := getQuote(ctx, tx, id)
	if err != nil {
		return Quote{}, err
	}
	if q.Status == QuotePaid {
		return Quote{}, fmt.Errorf("quote %s already paid: %w", id, ErrConflict)
	}

	now := s.now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE cotizaciones SET estado = ?, updated_at = ? WHERE id = ?`,
		string(status), now.Format(timeLayout), id); err != nil {
		return Quote{}, fmt.Errorf("update quote status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Quote{}, fmt.Errorf("commit quote status transaction: %w", err)
	}

	q.Status = status
	q.UpdatedAt = now
	return q, nil
}

func scanQuote(row scanner) (Quote, error) {
	var (
		q                      Quote
		reseller, client       sql.NullString
		role, status           string
		composition, breakdown string
		pricedOn               string
		created, updated       string
	)
	if err := row.Scan(&q.ID, &reseller, &client, &q.CreatedBy, &role, &composition,
		&pricedOn, &breakdown, &status, &created, &updated); err != nil {
		return Quote{}, err
	}
	if err := json.Unmarshal([]byte(composition), &q.Composition); err != nil {
		return Quote{}, fmt.Errorf("decode quote composition: %w", err)
	}
	if err := json.Unmarshal([]byte(breakdown), &q.Breakdown); err != nil {
		return Quote{}, fmt.Errorf("decode quote breakdown: %w", err)
	}
	d, err := time.Parse(time.DateOnly, pricedOn)
	if err != nil {
		return Quote{}, fmt.Errorf("decode quote priced_on: %w", err)
	}

	q.ResellerID = reseller.String
	q.ClientID = client.String
	q.CreatedByRole = Role(role)
	q.PricedOn = d
	q.Status = QuoteStatus(status)
	q.CreatedAt = parseTime(created)
	q.UpdatedAt = parseTime(updated)
	return q, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
