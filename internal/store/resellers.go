package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reseller is a "tendero": a shop owner who quotes and sells plans on commission.
type Reseller struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"nombre"`
	Email           string    `json:"email"`
	Phone           string    `json:"telefono"`
	Address         string    `json:"direccion"`
	CommissionTotal int64     `json:"comision_total"`
	Active          bool      `json:"activo"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewReseller carries what is needed to open a reseller account.
type NewReseller struct {
	Name         string
	Email        string
	Phone        string
	Address      string
	PasswordHash string
}

// ResellerUpdate holds the reseller fields to change. Nil fields are left as
// they are.
type ResellerUpdate struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

const resellerSelect = `
	SELECT t.id, t.user_id, u.name, u.email, u.phone, t.direccion, t.comision_total, u.active, t.created_at
	FROM tenderos t
	JOIN users u ON u.id = t.user_id
`

// CreateReseller creates the login and the reseller profile in one transaction.
func (s *Store) CreateReseller(ctx context.Context, in NewReseller) (Reseller, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Reseller{}, fmt.Errorf("begin reseller transaction: %w", err)
	}
	defer tx.Rollback()

	u := User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: in.PasswordHash,
		Role:         RoleReseller,
		Active:       true,
	}
	if err := s.createUser(ctx, tx, &u); err != nil {
		return Reseller{}, err
	}

	r := Reseller{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Address:   in.Address,
		Active:    true,
		CreatedAt: u.CreatedAt,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tenderos (id, user_id, direccion, comision_total, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, r.ID, r.UserID, r.Address, r.CreatedAt.Format(timeLayout)); err != nil {
		return Reseller{}, fmt.Errorf("insert reseller: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Reseller{}, fmt.Errorf("commit reseller transaction: %w", err)
	}
	return r, nil
}

// ListResellers returns every reseller ordered by name.
func (s *Store) ListResellers(ctx context.Context) ([]Reseller, error) {
	rows, err := s.db.QueryContext(ctx, resellerSelect+` ORDER BY u.name, t.id`)
	if err != nil {
		return nil, fmt.Errorf("query resellers: %w", err)
	}
	defer rows.Close()

	out := []Reseller{}
	for rows.Next() {
		r, err := scanReseller(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reseller: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resellers: %w", err)
	}
	return out, nil
}

// GetReseller looks a reseller up by id.
func (s *Store) GetReseller(ctx context.Context, id string) (Reseller, error) {
	r, err := scanReseller(s.db.QueryRowContext(ctx, resellerSelect+` WHERE t.id = ?`, id))
	if err != nil {
		return Reseller{}, notFound(err, "reseller")
	}
	return r, nil
}

// GetResellerByUserID looks up the reseller profile owned by a user.
func (s *Store) GetResellerByUserID(ctx context.Context, userID string) (Reseller, error) {
	r, err := scanReseller(s.db.QueryRowContext(ctx, resellerSelect+` WHERE t.user_id = ?`, userID))
	if err != nil {
		return Reseller{}, notFound(err, "reseller")
	}
	return r, nil
}

// UpdateReseller changes the reseller's login details and profile in one
// transaction.
func (s *Store) UpdateReseller(ctx context.Context, id string, in ResellerUpdate) (Reseller, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Reseller{}, fmt.Errorf("begin reseller update: %w", err)
	}
	defer tx.Rollback()

	current, err := scanReseller(tx.QueryRowContext(ctx, resellerSelect+` WHERE t.id = ?`, id))
	if err != nil {
		return Reseller{}, notFound(err, "reseller")
	}

	if err := s.updateUser(ctx, tx, current.UserID, UserUpdate{Name: in.Name, Email: in.Email, Phone: in.Phone}); err != nil {
		return Reseller{}, err
	}
	if in.Address != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE tenderos SET direccion = ? WHERE id = ?`, *in.Address, id); err != nil {
			return Reseller{}, fmt.Errorf("update reseller address: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Reseller{}, fmt.Errorf("commit reseller update: %w", err)
	}
	return s.GetReseller(ctx, id)
}

func scanReseller(row scanner) (Reseller, error) {
	var (
		r       Reseller
		created string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.Email, &r.Phone, &r.Address, &r.CommissionTotal, &r.Active, &created); err != nil {
		return Reseller{}, err
	}
	r.CreatedAt = parseTime(created)
	return r, nil
}
