package seed

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/exequial/internal/auth"
	"github.com/Simplici0/exequial/internal/store"
)

const (
	demoCallCenterEmail = "callcenter@exequial.dev"
	demoResellerEmail   = "tendero@exequial.dev"
	demoResellerAddress = "Cra. 7 # 12-40, Bogotá"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	// Demo also creates a call-center agent and a reseller sharing the admin password.
	Demo bool
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return Stats{}, nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return Stats{}, fmt.Errorf("hash seed password: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if _, err := ensureUser(tx, "Administrador", cfg.AdminEmail, hash, store.RoleAdmin, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if cfg.Demo {
		if _, err := ensureUser(tx, "Agente Call Center", demoCallCenterEmail, hash, store.RoleCallCenter, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
		userID, err := ensureUser(tx, "Tienda Demo", demoResellerEmail, hash, store.RoleReseller, &stats)
		if err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
		if err := ensureReseller(tx, userID, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureUser(tx *sql.Tx, name, email, hash string, role store.Role, stats *Stats) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var id string
	err := tx.QueryRow(`SELECT id FROM users WHERE email = ?`, email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("check %s user existence: %w", role, err)
	}

	id = uuid.NewString()
	if _, err := tx.Exec(`
		INSERT INTO users (id, name, email, phone, password_hash, role, active, created_at)
		VALUES (?, ?, ?, '', ?, ?, 1, ?)
	`, id, name, email, hash, string(role), now()); err != nil {
		return "", fmt.Errorf("insert %s user: %w", role, err)
	}
	stats.Inserts++
	return id, nil
}

func ensureReseller(tx *sql.Tx, userID string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM tenderos WHERE user_id = ? LIMIT 1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("check demo reseller existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO tenderos (id, user_id, direccion, comision_total, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, uuid.NewString(), userID, demoResellerAddress, now()); err != nil {
		return fmt.Errorf("insert demo reseller: %w", err)
	}
	stats.Inserts++
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
