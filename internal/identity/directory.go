package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Directory answers doctor-eligibility questions against the externally
// owned users table. User CRUD itself belongs to the identity collaborator;
// this is a read-only view.
type Directory struct {
	db DB
}

// NewDirectory creates a doctor directory.
func NewDirectory(db DB) *Directory {
	return &Directory{db: db}
}

// IsBookable reports whether the user is an active, verified doctor.
func (d *Directory) IsBookable(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	row := d.db.QueryRow(ctx, `
		SELECT role, verification_status, active
		FROM users
		WHERE id = $1`, doctorID)

	var role, verification string
	var active bool
	if err := row.Scan(&role, &verification, &active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("identity: doctor lookup: %w", err)
	}
	return role == string(RoleDoctor) && verification == "verified" && active, nil
}
