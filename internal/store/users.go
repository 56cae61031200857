package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies what a user may do.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleCallCenter Role = "callcenter"
	RoleReseller   Role = "tendero"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCallCenter, RoleReseller:
		return true
	}
	return false
}

// User is an account able to log in.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"nombre"`
	Email        string    `json:"email"`
	Phone        string    `json:"telefono"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"rol"`
	Active       bool      `json:"activo"`
	CreatedAt    time.Time `json:"created_at"`
}

const userColumns = `id, name, email, phone, password_hash, role, active, created_at`

// CreateUser inserts u, assigning its ID and creation time.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	return s.createUser(ctx, s.db, u)
}

func (s *Store) createUser(ctx context.Context, q querier, u *User) error {
	if !u.Role.Valid() {
		return fmt.Errorf("create user role %q: %w", u.Role, ErrInvalidRole)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = normalizeEmail(u.Email)
	u.CreatedAt = s.now().UTC()

	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, name, email, phone, password_hash, role, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, string(u.Role), u.Active, u.CreatedAt.Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user email %s: %w", u.Email, ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail looks a user up by case-insensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
	u, err := scanUser(row)
	if err != nil {
		return User{}, notFound(err, "user")
	}
	return u, nil
}

// GetUserByID looks a user up by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return User{}, notFound(err, "user")
	}
	return u, nil
}

// SetUserActive enables or disables logins for a user.
func (s *Store) SetUserActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("update user active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user active rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// UserUpdate holds the user fields to change. Nil fields are left as they are.
type UserUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	PasswordHash *string
}

// UpdateUser applies in to the user and returns the updated record.
func (s *Store) UpdateUser(ctx context.Context, id string, in UserUpdate) (User, error) {
	if err := s.updateUser(ctx, s.db, id, in); err != nil {
		return User{}, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) updateUser(ctx context.Context, q querier, id string, in UserUpdate) error {
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	res, err := q.ExecContext(ctx, `
		UPDATE users
		SET name = COALESCE(?, name),
			email = COALESCE(?, email),
			phone = COALESCE(?, phone),
			password_hash = COALESCE(?, password_hash)
		WHERE id = ?
	`, optional(in.Name), optional(in.Email), optional(in.Phone), optional(in.PasswordHash), id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user email %s: %w", *in.Email, ErrConflict)
		}
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var (
		u       User
		role    string
		created string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &role, &u.Active, &created); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	u.CreatedAt = parseTime(created)
	return u, nil
}
