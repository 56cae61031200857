package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Payment methods.
const (
	MethodWompi  = "wompi"
	MethodDirect = "directa"
)

// Sale is a paid quotation.
type Sale struct {
	ID            string    `json:"id"`
	QuoteID       string    `json:"cotizacion_id"`
	ResellerID    string    `json:"tendero_id,omitempty"`
	Amount        int64     `json:"valor_pagado"`
	Method        string    `json:"metodo_pago"`
	PaymentStatus string    `json:"estado_pago"`
	Reference     string    `json:"referencia_wompi"`
	SoldBy        string    `json:"vendido_por"`
	CreatedAt     time.Time `json:"created_at"`
}

// Commission is the reseller payout attached to a sale.
type Commission struct {
	ID         string    `json:"id"`
	ResellerID string    `json:"tendero_id"`
	SaleID     string    `json:"venta_id"`
	Amount     int64     `json:"valor_comision"`
	CreatedAt  time.Time `json:"created_at"`
}

// SaleRecord describes a payment to record against a quotation.
type SaleRecord struct {
	QuoteID       string
	Amount        int64
	Method        string
	PaymentStatus string
	Reference     string
	SoldBy        string
}

// SaleResult reports the outcome of RecordSale. Created is false when the
// reference had already been recorded.
type SaleResult struct {
	Sale       Sale        `json:"venta"`
	Commission *Commission `json:"comision,omitempty"`
	Created    bool        `json:"creada"`
}

// CommissionFunc computes the reseller commission for a stored quotation.
type CommissionFunc func(Quote) (int64, error)

const saleSelect = `
	SELECT v.id, v.cotizacion_id, c.tendero_id, v.valor_pagado, v.metodo_pago, v.estado_pago,
		v.referencia_wompi, v.vendido_por, v.created_at
	FROM ventas v
	JOIN cotizaciones c ON c.id = v.cotizacion_id
`

const commissionColumns = `id, tendero_id, venta_id, valor_comision, created_at`

// RecordSale stores a sale, marks its quotation as paid, and accrues the
// reseller commission, all in one transaction. Replaying a reference returns
// the original sale without side effects.
func (s *Store) RecordSale(ctx context.Context, rec SaleRecord, commission CommissionFunc) (SaleResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SaleResult{}, fmt.Errorf("begin sale transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanSale(tx.QueryRowContext(ctx, saleSelect+` WHERE v.referencia_wompi = ?`, rec.Reference))
	switch {
	case err == nil:
		c, err := commissionForSale(ctx, tx, existing.ID)
		if err != nil {
			return SaleResult{}, err
		}
		return SaleResult{Sale: existing, Commission: c}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return SaleResult{}, fmt.Errorf("query sale by reference: %w", err)
	}

	q, err := getQuote(ctx, tx, rec.QuoteID)
	if err != nil {
		return SaleResult{}, err
	}
	if q.Status == QuotePaid {
		return SaleResult{}, fmt.Errorf("quote %s already paid: %w", q.ID, ErrConflict)
	}

	now := s.now().UTC()
	sale := Sale{
		ID:            uuid.NewString(),
		QuoteID:       q.ID,
		ResellerID:    q.ResellerID,
		Amount:        rec.Amount,
		Method:        rec.Method,
		PaymentStatus: rec.PaymentStatus,
		Reference:     rec.Reference,
		SoldBy:        rec.SoldBy,
		CreatedAt:     now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ventas (id, cotizacion_id, valor_pagado, metodo_pago, estado_pago, referencia_wompi, vendido_por, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sale.ID, sale.QuoteID, sale.Amount, sale.Method, sale.PaymentStatus, sale.Reference, sale.SoldBy, now.Format(timeLayout)); err != nil {
		if isUniqueViolation(err) {
			return SaleResult{}, fmt.Errorf("sale reference %s: %w", rec.Reference, ErrConflict)
		}
		return SaleResult{}, fmt.Errorf("insert sale: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE cotizaciones SET estado = ?, updated_at = ? WHERE id = ?`,
		string(QuotePaid), now.Format(timeLayout), q.ID); err != nil {
		return SaleResult{}, fmt.Errorf("mark quote paid: %w", err)
	}

	result := SaleResult{Sale: sale, Created: true}

	if q.ResellerID != "" && commission != nil {
		amount, err := commission(q)
		if err != nil {
			return SaleResult{}, fmt.Errorf("compute commission: %w", err)
		}
		c := Commission{
			ID:         uuid.NewString(),
			ResellerID: q.ResellerID,
			SaleID:     sale.ID,
			Amount:     amount,
			CreatedAt:  now,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO comisiones (id, tendero_id, venta_id, valor_comision, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, c.ID, c.ResellerID, c.SaleID, c.Amount, now.Format(timeLayout)); err != nil {
			return SaleResult{}, fmt.Errorf("insert commission: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE tenderos
			SET comision_total = (SELECT COALESCE(SUM(valor_comision), 0) FROM comisiones WHERE tendero_id = ?)
			WHERE id = ?
		`, c.ResellerID, c.ResellerID); err != nil {
			return SaleResult{}, fmt.Errorf("update reseller commission total: %w", err)
		}
		result.Commission = &c
	}

	if err := tx.Commit(); err != nil {
		return SaleResult{}, fmt.Errorf("commit sale transaction: %w", err)
	}
	return result, nil
}

// GetSaleByReference looks a sale up by its payment reference.
func (s *Store) GetSaleByReference(ctx context.Context, reference string) (Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, saleSelect+` WHERE v.referencia_wompi = ?`, reference))
	if err != nil {
		return Sale{}, notFound(err, "sale")
	}
	return sale, nil
}

// ListSales returns sales newest first, optionally restricted to a reseller.
func (s *Store) ListSales(ctx context.Context, resellerID string) ([]Sale, error) {
	query := saleSelect
	var args []any
	if resellerID != "" {
		query += ` WHERE c.tendero_id = ?`
		args = append(args, resellerID)
	}
	query += ` ORDER BY v.created_at DESC, v.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	out := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		out = append(out, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return out, nil
}

// ListCommissions returns commissions newest first, optionally restricted to a reseller.
func (s *Store) ListCommissions(ctx context.Context, resellerID string) ([]Commission, error) {
	query := `SELECT ` + commissionColumns + ` FROM comisiones`
	var args []any
	if resellerID != "" {
		query += ` WHERE tendero_id = ?`
		args = append(args, resellerID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commissions: %w", err)
	}
	defer rows.Close()

	out := []Commission{}
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commission: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commissions: %w", err)
	}
	return out, nil
}

// Stats summarises activity for the admin dashboard.
type Stats struct {
	Quotes         int                 `json:"cotizaciones"`
	QuotesByStatus map[QuoteStatus]int `json:"cotizaciones_por_estado"`
	Sales          int                 `json:"ventas"`
	Revenue        int64               `json:"ingresos"`
	Commissions    int64               `json:"comisiones"`
	Resellers      int                 `json:"tenderos"`
	Clients        int                 `json:"clientes"`
}

// Stats computes dashboard totals.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{QuotesByStatus: map[QuoteStatus]int{
		QuotePending:  0,
		QuoteAdvisory: 0,
		QuotePaid:     0,
		QuoteRejected: 0,
	}}

	rows, err := s.db.QueryContext(ctx, `SELECT estado, COUNT(*) FROM cotizaciones GROUP BY estado`)
	if err != nil {
		return Stats{}, fmt.Errorf("query quote counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("scan quote count: %w", err)
		}
		st.QuotesByStatus[QuoteStatus(status)] = n
		st.Quotes += n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate quote counts: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(valor_pagado), 0) FROM ventas`).
		Scan(&st.Sales, &st.Revenue); err != nil {
		return Stats{}, fmt.Errorf("query sale totals: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(valor_comision), 0) FROM comisiones`).
		Scan(&st.Commissions); err != nil {
		return Stats{}, fmt.Errorf("query commission total: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenderos`).Scan(&st.Resellers); err != nil {
		return Stats{}, fmt.Errorf("query reseller count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clientes`).Scan(&st.Clients); err != nil {
		return Stats{}, fmt.Errorf("query client count: %w", err)
	}
	return st, nil
}

func commissionForSale(ctx context.Context, q querier, saleID string) (*Commission, error) {
	c, err := scanCommission(q.QueryRowContext(ctx, `SELECT `+commissionColumns+` FROM comisiones WHERE venta_id = ?`, saleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query commission for sale: %w", err)
	}
	return &c, nil
}

func scanSale(row scanner) (Sale, error) {
	var (
		sale     Sale
		reseller sql.NullString
		created  string
	)
	if err := row.Scan(&sale.ID, &sale.QuoteID, &reseller, &sale.Amount, &sale.Method, &sale.PaymentStatus,
		&sale.Reference, &sale.SoldBy, &created); err != nil {
		return Sale{}, err
	}
	sale.ResellerID = reseller.String
	sale.CreatedAt = parseTime(created)
	return sale, nil
}

func scanCommission(row scanner) (Commission, error) {
	var (
		c       Commission
		created string
	)
	if err := row.Scan(&c.ID, &c.ResellerID, &c.SaleID, &c.Amount, &created); err != nil {
		return Commission{}, err
	}
	c.CreatedAt = parseTime(created)
	return c, nil
}
