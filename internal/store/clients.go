package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is a registered customer, optionally attached to the reseller who
// brought them in.
type Client struct {
	ID         string    `json:"id"`
	Name       string    `json:"nombre"`
	IDNumber   string    `json:"cedula"`
	Phone      string    `json:"telefono"`
	Email      string    `json:"email"`
	ResellerID string    `json:"tendero_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const clientColumns = `id, nombre, cedula, telefono, email, tendero_id, created_at`

// CreateClient inserts c. A repeated cedula yields ErrConflict.
func (s *Store) CreateClient(ctx context.Context, c *Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.IDNumber = strings.TrimSpace(c.IDNumber)
	c.Email = normalizeEmail(c.Email)
	c.CreatedAt = s.now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clientes (id, nombre, cedula, telefono, email, tendero_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.IDNumber, c.Phone, c.Email, nullable(c.ResellerID), c.CreatedAt.Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("client cedula %s: %w", c.IDNumber, ErrConflict)
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// ListClients returns clients, newest first. A non-empty resellerID restricts
// the list to that reseller's clients.
func (s *Store) ListClients(ctx context.Context, resellerID string) ([]Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clientes`
	var args []any
	if resellerID != "" {
		query += ` WHERE tendero_id = ?`
		args = append(args, resellerID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	out := []Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return out, nil
}

// GetClient looks a client up by id.
func (s *Store) GetClient(ctx context.Context, id string) (Client, error) {
	c, err := scanClient(s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clientes WHERE id = ?`, id))
	if err != nil {
		return Client{}, notFound(err, "client")
	}
	return c, nil
}

// GetClientByCedula looks a client up by national id number.
func (s *Store) GetClientByCedula(ctx context.Context, cedula string) (Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clientes WHERE cedula = ?`, strings.TrimSpace(cedula))
	c, err := scanClient(row)
	if err != nil {
		return Client{}, notFound(err, "client")
	}
	return c, nil
}

func scanClient(row scanner) (Client, error) {
	var (
		c        Client
		reseller sql.NullString
		created  string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.IDNumber, &c.Phone, &c.Email, &reseller, &created); err != nil {
		return Client{}, err
	}
	c.ResellerID = reseller.String
	c.CreatedAt = parseTime(created)
	return c, nil
}
