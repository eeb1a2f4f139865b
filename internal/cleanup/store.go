package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Trigger records which invocation path ran the sweep.
type Trigger string

const (
	TriggerCron   Trigger = "cron"
	TriggerManual Trigger = "manual"
)

// LogEntry is one immutable audit record for a sweep-corrected appointment.
// Entries are append-only and never mutated.
type LogEntry struct {
	ID             uuid.UUID `json:"id"`
	AppointmentID  uuid.UUID `json:"appointmentId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	NoShowType     string    `json:"noShowType,omitempty"`
	AutoFixed      bool      `json:"autoFixed"`
	TriggeredBy    Trigger   `json:"triggeredBy"`
	CreatedAt      time.Time `json:"createdAt"`
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store appends and reads cleanup audit log entries.
type Store struct {
	db DB
}

// NewStore creates a cleanup log store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Append inserts one audit record.
func (s *Store) Append(ctx context.Context, e *LogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO appointment_cleanup_log (id, appointment_id, previous_status, new_status, no_show_type, auto_fixed, triggered_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.AppointmentID, e.PreviousStatus, e.NewStatus, e.NoShowType, e.AutoFixed, string(e.TriggeredBy), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("cleanup: append log: %w", err)
	}
	return nil
}

// ListRecent returns the newest audit entries, for the admin view.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, appointment_id, previous_status, new_status, no_show_type, auto_fixed, triggered_by, created_at
		FROM appointment_cleanup_log
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("cleanup: list recent: %w", err)
	}
	defer rows.Close()

	var result []LogEntry
	for rows.Next() {
		var e LogEntry
		var triggeredBy string
		if err := rows.Scan(&e.ID, &e.AppointmentID, &e.PreviousStatus, &e.NewStatus, &e.NoShowType, &e.AutoFixed, &triggeredBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("cleanup: scan log entry: %w", err)
		}
		e.TriggeredBy = Trigger(triggeredBy)
		result = append(result, e)
	}
	return result, rows.Err()
}
